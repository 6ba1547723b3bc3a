package crypto

import (
	"crypto"
	"crypto/rsa"
	"crypto/sha256"
	"fmt"
	"strconv"
	"strings"
)

// SignatureService signs and verifies messages with RSASSA-PKCS1-v1_5 over
// SHA-256. Signatures are deterministic: the same message and key always
// produce the same signature.
type SignatureService struct {
	provider Provider
}

// NewSignatureService returns a signature service using p.
func NewSignatureService(p Provider) *SignatureService {
	return &SignatureService{provider: providerOrDefault(p)}
}

// Sign returns the base64 signature of message under priv.
func (s *SignatureService) Sign(message string, priv *rsa.PrivateKey) (string, error) {
	if err := checkPrivateKey(priv); err != nil {
		return "", fmt.Errorf("%w: %v", ErrSignatureFormat, err)
	}

	digest := sha256.Sum256([]byte(message))
	sig, err := rsa.SignPKCS1v15(s.provider.Rand(), priv, crypto.SHA256, digest[:])
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSignatureFormat, err)
	}

	return ToBase64(sig), nil
}

// Verify reports whether signature is a valid signature of message under
// pub. A wrong message, wrong key or altered signature yields false with a
// nil error. An error wrapping ErrSignatureFormat is returned only when the
// signature or key is structurally unusable.
func (s *SignatureService) Verify(message, signature string, pub *rsa.PublicKey) (bool, error) {
	if err := checkPublicKey(pub); err != nil {
		return false, fmt.Errorf("%w: %v", ErrSignatureFormat, err)
	}

	sig, err := DecodeBase64(signature)
	if err != nil {
		return false, fmt.Errorf("%w: invalid base64", ErrSignatureFormat)
	}
	if len(sig) != pub.Size() {
		return false, fmt.Errorf("%w: signature is %d bytes, want %d", ErrSignatureFormat, len(sig), pub.Size())
	}

	digest := sha256.Sum256([]byte(message))
	// Structure was checked above, so any failure here is a mismatch.
	return rsa.VerifyPKCS1v15(pub, crypto.SHA256, digest[:], sig) == nil, nil
}

// ValidateSignatureFormat checks that signature has the shape of a 2048-bit
// signature (344 base64 characters, 256 decoded bytes) without verifying it.
func ValidateSignatureFormat(signature string) error {
	if len(signature) != SignatureB64Size {
		return fmt.Errorf("%w: length %d, want %d", ErrSignatureFormat, len(signature), SignatureB64Size)
	}
	raw, err := FromBase64(signature)
	if err != nil {
		return fmt.Errorf("%w: invalid base64", ErrSignatureFormat)
	}
	if len(raw) != RSAKeySize {
		return fmt.Errorf("%w: decoded %d bytes, want %d", ErrSignatureFormat, len(raw), RSAKeySize)
	}
	return nil
}

// BodyHash returns the standard base64 SHA-256 of a request body, as used in
// SigningPayload.
func BodyHash(body []byte) string {
	sum := sha256.Sum256(body)
	return ToBase64(sum[:])
}

// SigningPayload builds the canonical text signed for a relay request:
// method and path are trimmed and lower-cased, then joined with the unix
// timestamp and body hash by newlines.
func SigningPayload(method, path string, timestamp int64, bodyHash string) string {
	return strings.Join([]string{
		normalizeForSigning(method),
		normalizeForSigning(path),
		strconv.FormatInt(timestamp, 10),
		bodyHash,
	}, "\n")
}

func normalizeForSigning(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
