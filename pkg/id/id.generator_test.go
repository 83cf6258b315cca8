package id

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnowflakeUnique(t *testing.T) {
	sf, err := NewSnowflake(1)
	require.NoError(t, err)

	seen := make(map[string]bool)
	for i := 0; i < 5000; i++ {
		id := sf.Generate()
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}

func TestSnowflakeNodeRange(t *testing.T) {
	_, err := NewSnowflake(-1)
	assert.ErrorIs(t, err, ErrInvalidNode)

	_, err = NewSnowflake(1024)
	assert.ErrorIs(t, err, ErrInvalidNode)

	_, err = NewSnowflake(1023)
	assert.NoError(t, err)
}

func TestGenerateUUIDPrefix(t *testing.T) {
	id := GenerateUUID("sess")
	assert.True(t, strings.HasPrefix(id, "sess_"))
	assert.Len(t, id, len("sess_")+26) // ulid is 26 chars

	assert.NotEqual(t, GenerateUUID("tab"), GenerateUUID("tab"))
}

func TestGeneratePairingCode(t *testing.T) {
	for i := 0; i < 50; i++ {
		code := GeneratePairingCode(8)
		assert.Len(t, code, 8)
		for _, r := range code {
			assert.True(t, strings.ContainsRune(pairingAlphabet, r), "unexpected char %q", r)
		}
	}
}

func TestDeviceTokenAndHash(t *testing.T) {
	token := GenerateDeviceToken()
	assert.Len(t, token, 64) // 32 bytes hex

	assert.Equal(t, HashToken(token), HashToken(token))
	assert.NotEqual(t, HashToken(token), HashToken(token+"x"))
	assert.NotEqual(t, token, HashToken(token))
	assert.Len(t, HashToken(token), 64)
}
