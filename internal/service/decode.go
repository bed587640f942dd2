package service

import (
	"encoding/base64"
	"strings"

	"github.com/fleveque/citysnap-gateway/internal/apperr"
)

const decodeFailed = "OpenStreetMap gateway cannot decode the provided base64 photo"

// Extensions for data URL MIME types; anything else is stored as jpg.
var mimeExtensions = map[string]string{
	"image/jpeg": "jpg",
	"image/jpg":  "jpg",
	"image/png":  "png",
	"image/webp": "webp",
}

// DecodeImage decodes a base64 photo, optionally wrapped in a
// "data:<mime>;base64," prefix, and returns the bytes and file extension.
// Decoding is strict: bad padding or characters are a validation error.
func DecodeImage(payload string) ([]byte, string, error) {
	payload = strings.TrimSpace(payload)
	ext := "jpg"

	if strings.HasPrefix(payload, "data:") {
		header, body, ok := strings.Cut(payload, ",")
		if !ok {
			return nil, "", apperr.Validation(decodeFailed)
		}
		mime, _, _ := strings.Cut(strings.TrimPrefix(header, "data:"), ";")
		if e, known := mimeExtensions[strings.ToLower(strings.TrimSpace(mime))]; known {
			ext = e
		}
		payload = strings.TrimSpace(body)
	}

	if payload == "" {
		return nil, "", apperr.Validation(decodeFailed)
	}

	data, err := base64.StdEncoding.Strict().DecodeString(payload)
	if err != nil {
		return nil, "", &apperr.Error{Kind: apperr.KindValidation, Message: decodeFailed, Err: err}
	}
	return data, ext, nil
}
