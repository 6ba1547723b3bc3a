package crypto

import (
	"encoding/base64"
	"strings"
)

// ToBase64 encodes bytes to standard base64 with padding. Envelopes,
// password boxes and signatures all use this encoding on the wire.
func ToBase64(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// FromBase64 decodes standard base64 (with padding) to bytes.
func FromBase64(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(s)
}

// ToBase64URL encodes bytes to URL-safe base64 without padding.
func ToBase64URL(data []byte) string {
	return base64.RawURLEncoding.EncodeToString(data)
}

// FromBase64URL decodes URL-safe base64 without padding.
func FromBase64URL(s string) ([]byte, error) {
	return base64.RawURLEncoding.DecodeString(s)
}

// ToURLSafe rewrites standard base64 text into the URL-safe alphabet and
// drops the padding. Stored key records use this form.
func ToURLSafe(b64 string) string {
	s := strings.NewReplacer("+", "-", "/", "_").Replace(b64)
	return strings.TrimRight(s, "=")
}

// DecodeBase64 decodes standard or URL-safe base64, with or without padding.
func DecodeBase64(s string) ([]byte, error) {
	// Try standard with padding first, it is what we emit
	data, err := base64.StdEncoding.DecodeString(s)
	if err == nil {
		return data, nil
	}

	data, err = base64.RawStdEncoding.DecodeString(s)
	if err == nil {
		return data, nil
	}

	data, err = base64.RawURLEncoding.DecodeString(s)
	if err == nil {
		return data, nil
	}

	return base64.URLEncoding.DecodeString(s)
}
