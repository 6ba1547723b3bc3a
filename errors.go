package eerip

import (
	"errors"
	"fmt"
	"strings"

	"github.com/eerip/client-go/internal/crypto"
	"github.com/eerip/client-go/internal/keystore"
)

// Sentinel errors for errors.Is() checks
var (
	// ErrClientClosed is returned when operations are attempted on a closed client.
	ErrClientClosed = errors.New("client has been closed")

	// ErrWrongPassword is returned when a stored identity cannot be unlocked
	// with the supplied password. A damaged record produces the same error.
	ErrWrongPassword = errors.New("wrong password or corrupted key record")

	// ErrKeyMismatch is returned when an unlocked public key does not belong
	// to the unlocked private key.
	ErrKeyMismatch = errors.New("public and private key do not match")

	// ErrInvalidImportData is returned when imported identity data is invalid.
	ErrInvalidImportData = errors.New("invalid import data")

	// ErrDecryptionFailed is returned when a message envelope cannot be opened.
	ErrDecryptionFailed = errors.New("decryption failed")

	// ErrInvalidInput is returned for empty usernames, passwords and similar
	// caller mistakes.
	ErrInvalidInput = errors.New("invalid input")

	// ErrIdentityNotFound is returned when no stored identity has the id.
	ErrIdentityNotFound = keystore.ErrNotFound

	// ErrPlaintextKeyMaterial is returned when a record would store an
	// unwrapped key.
	ErrPlaintextKeyMaterial = keystore.ErrPlaintextKeyMaterial

	// ErrImmutableRecord is returned when a stored record would be replaced.
	ErrImmutableRecord = keystore.ErrImmutableRecord

	// ErrKeyGeneration is returned when a key pair could not be generated.
	ErrKeyGeneration = crypto.ErrKeyGeneration

	// ErrEncryption is returned when a message cannot be encrypted.
	ErrEncryption = crypto.ErrEncryption

	// ErrSignatureFormat is returned when a signature or key is malformed.
	ErrSignatureFormat = crypto.ErrSignatureFormat

	// ErrInvalidKey is returned when PEM text does not hold an RSA key.
	ErrInvalidKey = crypto.ErrInvalidKey

	// ErrInvalidFingerprint is returned for malformed fingerprints.
	ErrInvalidFingerprint = crypto.ErrInvalidFingerprint
)

// EeripError is implemented by all SDK errors.
type EeripError interface {
	error
	EeripError() // marker method
}

// DecryptionError represents a failure to open a message envelope.
//
// Error() never mentions the stage so the text can be shown or relayed
// without revealing which check failed. Stage and errors.Is against the
// underlying sentinel remain available for local diagnostics.
type DecryptionError struct {
	Stage string // "decode", "parse", "unwrap", "open", "text"
	Err   error
}

func (e *DecryptionError) Error() string {
	return "message decryption failed"
}

// Unwrap returns the underlying error.
func (e *DecryptionError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is for sentinel error matching.
func (e *DecryptionError) Is(target error) bool {
	return target == ErrDecryptionFailed
}

// EeripError implements the EeripError interface.
func (e *DecryptionError) EeripError() {}

// KeyStoreError represents a failed key store operation.
type KeyStoreError struct {
	Op  string // "put", "get", "list"
	ID  int64  // zero when not applicable
	Err error
}

func (e *KeyStoreError) Error() string {
	if e.ID != 0 {
		return fmt.Sprintf("keystore %s %d: %v", e.Op, e.ID, e.Err)
	}
	return fmt.Sprintf("keystore %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *KeyStoreError) Unwrap() error {
	return e.Err
}

// EeripError implements the EeripError interface.
func (e *KeyStoreError) EeripError() {}

// ValidationError contains multiple validation failures.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s", strings.Join(e.Errors, "; "))
}

// Is implements errors.Is for sentinel error matching.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// EeripError implements the EeripError interface.
func (e *ValidationError) EeripError() {}

// wrapError converts internal errors to public errors.
// This ensures that errors.As() checks work with public error types.
func wrapError(op string, id int64, err error) error {
	if err == nil {
		return nil
	}

	var cipherErr *crypto.CipherError
	if errors.As(err, &cipherErr) {
		return &DecryptionError{Stage: cipherErr.Stage, Err: cipherErr.Err}
	}

	for _, target := range []error{
		keystore.ErrNotFound,
		keystore.ErrImmutableRecord,
		keystore.ErrPlaintextKeyMaterial,
		keystore.ErrInvalidRecord,
		keystore.ErrClosed,
	} {
		if errors.Is(err, target) {
			return &KeyStoreError{Op: op, ID: id, Err: err}
		}
	}

	return err
}

// User-facing messages returned by UserMessage.
const (
	MessageWrongPassword = "wrong password"
	MessageCorrupted     = "corrupted or tampered data"
	MessageTryAgain      = "try again"
)

// UserMessage collapses err into one of a few short messages fit to show an
// end user. It never returns internal error text. A nil error yields "".
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrWrongPassword):
		return MessageWrongPassword
	case errors.Is(err, ErrDecryptionFailed),
		errors.Is(err, ErrKeyMismatch),
		errors.Is(err, ErrInvalidImportData),
		errors.Is(err, ErrSignatureFormat),
		errors.Is(err, ErrInvalidKey),
		errors.Is(err, ErrInvalidFingerprint):
		return MessageCorrupted
	}
	return MessageTryAgain
}
