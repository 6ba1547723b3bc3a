package eerip

import "github.com/eerip/client-go/internal/crypto"

// Fingerprint returns the URL-safe SHA-256 of a PEM-armored public key.
func Fingerprint(publicKeyPEM string) string {
	return crypto.Fingerprint(publicKeyPEM)
}

// ValidateFingerprint checks that fp is 32 bytes of URL-safe base64.
func ValidateFingerprint(fp string) error {
	return crypto.ValidateFingerprint(fp)
}

// ValidateSignatureFormat checks the shape of a signature without verifying it.
func ValidateSignatureFormat(signature string) error {
	return crypto.ValidateSignatureFormat(signature)
}

// BodyHash returns the base64 SHA-256 of a request body.
func BodyHash(body []byte) string {
	return crypto.BodyHash(body)
}

// SigningPayload returns the canonical text signed for a relay request.
func SigningPayload(method, path string, timestamp int64, bodyHash string) string {
	return crypto.SigningPayload(method, path, timestamp, bodyHash)
}

// ToURLSafe converts standard base64 to the unpadded URL-safe alphabet.
// Envelopes, boxes and signatures decode from either form.
func ToURLSafe(b64 string) string {
	return crypto.ToURLSafe(b64)
}
