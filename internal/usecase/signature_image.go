package usecase

import (
	"bytes"
	"encoding/base64"
	"image"
	"strings"

	_ "image/gif"  // register gif
	_ "image/jpeg" // register jpeg
	_ "image/png"  // register png

	xerrors "signature-service/pkg/xerrors"
)

// decodeSignatureImage turns a base64 data-url (or bare base64) into image
// bytes, rejecting payloads that do not decode as an image or fall outside
// the size bounds. Near-empty decodes are blank-signature submissions.
func decodeSignatureImage(dataURL string, minBytes, maxBytes int) ([]byte, error) {
	payload := strings.TrimSpace(dataURL)
	if payload == "" {
		return nil, xerrors.ErrInvalidSignaturePayload
	}

	// data:image/png;base64,iVBOR...
	if strings.HasPrefix(payload, "data:") {
		idx := strings.Index(payload, ",")
		if idx < 0 || !strings.Contains(payload[:idx], ";base64") {
			return nil, xerrors.ErrInvalidSignaturePayload
		}
		payload = payload[idx+1:]
	}

	imageBytes, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, xerrors.ErrInvalidSignaturePayload
	}
	if len(imageBytes) < minBytes || len(imageBytes) > maxBytes {
		return nil, xerrors.ErrInvalidSignaturePayload
	}

	if _, _, err := image.DecodeConfig(bytes.NewReader(imageBytes)); err != nil {
		return nil, xerrors.ErrInvalidSignaturePayload
	}
	return imageBytes, nil
}
