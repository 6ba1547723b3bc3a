package crypto

import "errors"

var (
	// ErrKeyGeneration is returned when the key pair could not be generated.
	ErrKeyGeneration = errors.New("key generation failed")

	// ErrEncryption is returned when a message cannot be encrypted, usually
	// because the recipient public key is missing or malformed.
	ErrEncryption = errors.New("encryption failed")

	// ErrDecode is returned when an envelope is not valid base64.
	ErrDecode = errors.New("invalid base64 encoding")

	// ErrMalformedEnvelope is returned when an envelope is too short to
	// contain the fixed-size fields.
	ErrMalformedEnvelope = errors.New("malformed envelope")

	// ErrKeyUnwrap is returned when the content key cannot be recovered
	// with the supplied private key.
	ErrKeyUnwrap = errors.New("content key unwrap failed")

	// ErrAuthentication is returned when the AES-GCM tag does not verify.
	ErrAuthentication = errors.New("authentication tag mismatch or corrupted data")

	// ErrPasswordBoxDecrypt is returned when a password box cannot be opened.
	// A wrong password and a corrupted box are indistinguishable.
	ErrPasswordBoxDecrypt = errors.New("decryption failed, possibly due to incorrect password or corrupted data")

	// ErrSignatureFormat is returned when a signature or key is structurally
	// invalid, as opposed to a signature that merely does not verify.
	ErrSignatureFormat = errors.New("invalid signature format")

	// ErrInvalidKey is returned when PEM input does not hold a usable RSA key.
	ErrInvalidKey = errors.New("invalid RSA key")

	// ErrInvalidFingerprint is returned when a fingerprint is not 32 bytes
	// of URL-safe base64.
	ErrInvalidFingerprint = errors.New("invalid public key fingerprint")

	// ErrInvalidText is returned when a message is not valid UTF-8.
	ErrInvalidText = errors.New("message is not valid UTF-8")
)

// messageFailure is the only text an envelope decryption failure exposes.
const messageFailure = "message decryption failed"

// CipherError describes a failed envelope decryption. Error() is identical
// for every stage so callers relaying it cannot tell stages apart; Stage and
// errors.Is expose the cause for local diagnostics.
type CipherError struct {
	Stage string // "decode", "parse", "unwrap", "open" or "text"
	Err   error
}

func (e *CipherError) Error() string {
	return messageFailure
}

// Unwrap returns the stage sentinel.
func (e *CipherError) Unwrap() error {
	return e.Err
}
