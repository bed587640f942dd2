package service

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleveque/citysnap-gateway/internal/apperr"
)

func TestDecodeImage(t *testing.T) {
	raw := []byte("sample-image")
	enc := base64.StdEncoding.EncodeToString(raw)

	tests := []struct {
		name    string
		payload string
		ext     string
	}{
		{"bare", enc, "jpg"},
		{"png data url", "data:image/png;base64," + enc, "png"},
		{"webp data url", "data:image/webp;base64," + enc, "webp"},
		{"jpeg data url", "data:image/jpeg;base64," + enc, "jpg"},
		{"unknown mime", "data:image/gif;base64," + enc, "jpg"},
		{"surrounding space", "  " + enc + "\n", "jpg"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, ext, err := DecodeImage(tt.payload)
			require.NoError(t, err)
			assert.Equal(t, raw, data)
			assert.Equal(t, tt.ext, ext)
		})
	}
}

func TestDecodeImage_Rejects(t *testing.T) {
	for _, payload := range []string{
		"@@@invalid@@@",
		"c2FtcGxlZ", // bad padding
		"data:image/png;base64,",
		"data:image/png;base64",
		"",
	} {
		_, _, err := DecodeImage(payload)
		require.Error(t, err, "payload %q", payload)
		assert.True(t, apperr.Is(err, apperr.KindValidation))
		assert.Contains(t, err.Error(), "cannot decode the provided base64 photo")
	}
}

func TestDecodeImage_Deterministic(t *testing.T) {
	enc := base64.StdEncoding.EncodeToString([]byte{0xff, 0xd8, 0xff, 0xe0})

	a, _, err := DecodeImage(enc)
	require.NoError(t, err)
	b, _, err := DecodeImage(enc)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	_, _, err1 := DecodeImage("@@@invalid@@@")
	_, _, err2 := DecodeImage("@@@invalid@@@")
	assert.Equal(t, err1.Error(), err2.Error())
}
