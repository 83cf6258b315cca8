package usecase

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	xerrors "signature-service/pkg/xerrors"
)

// Valid 1x1 GIF.
const tinyGIF = "R0lGODlhAQABAIAAAAUEBAAAACwAAAAAAQABAAACAkQBADs="

func TestDecodeSignatureImageDataURL(t *testing.T) {
	b, err := decodeSignatureImage("data:image/png;base64,"+tinyPNG, 10, 1<<20)
	require.NoError(t, err)
	assert.NotEmpty(t, b)
}

func TestDecodeSignatureImageBareBase64(t *testing.T) {
	b, err := decodeSignatureImage(tinyPNG, 10, 1<<20)
	require.NoError(t, err)
	assert.NotEmpty(t, b)
}

func TestDecodeSignatureImageGIF(t *testing.T) {
	_, err := decodeSignatureImage("data:image/gif;base64,"+tinyGIF, 10, 1<<20)
	require.NoError(t, err)
}

func TestDecodeSignatureImageRejections(t *testing.T) {
	cases := map[string]string{
		"empty":                 "",
		"whitespace":            "   ",
		"bad base64":            "data:image/png;base64,!!!not-base64!!!",
		"prefix without base64": "data:image/png," + tinyPNG,
		"prefix without comma":  "data:image/png;base64" + tinyPNG,
		"not an image":          base64.StdEncoding.EncodeToString([]byte("just some text, definitely not an image")),
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := decodeSignatureImage(payload, 10, 1<<20)
			assert.ErrorIs(t, err, xerrors.ErrInvalidSignaturePayload)
		})
	}
}

func TestDecodeSignatureImageSizeBounds(t *testing.T) {
	decoded, err := base64.StdEncoding.DecodeString(tinyPNG)
	require.NoError(t, err)

	// Below the blank-signature floor.
	_, err = decodeSignatureImage(tinyPNG, len(decoded)+1, 1<<20)
	assert.ErrorIs(t, err, xerrors.ErrInvalidSignaturePayload)

	// Above the ceiling.
	_, err = decodeSignatureImage(tinyPNG, 10, len(decoded)-1)
	assert.ErrorIs(t, err, xerrors.ErrInvalidSignaturePayload)

	// Exactly at the bounds is accepted.
	_, err = decodeSignatureImage(tinyPNG, len(decoded), len(decoded))
	require.NoError(t, err)
}

func TestDecodeSignatureImageTrimsWhitespace(t *testing.T) {
	_, err := decodeSignatureImage("  "+tinyPNG+"  ", 10, 1<<20)
	require.NoError(t, err)
}

func TestDecodeSignatureImageLongPrefix(t *testing.T) {
	// Some webviews emit charset parameters in the media type.
	payload := "data:image/png;charset=utf-8;base64," + tinyPNG
	_, err := decodeSignatureImage(payload, 10, 1<<20)
	require.NoError(t, err)

	assert.True(t, strings.Contains(payload, ";base64"))
}
