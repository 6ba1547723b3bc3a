package eerip

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/eerip/client-go/internal/crypto"
	"github.com/eerip/client-go/internal/keystore"
)

func TestSentinelErrors(t *testing.T) {
	sentinels := []struct {
		name string
		err  error
	}{
		{"ErrClientClosed", ErrClientClosed},
		{"ErrWrongPassword", ErrWrongPassword},
		{"ErrKeyMismatch", ErrKeyMismatch},
		{"ErrInvalidImportData", ErrInvalidImportData},
		{"ErrDecryptionFailed", ErrDecryptionFailed},
		{"ErrInvalidInput", ErrInvalidInput},
		{"ErrIdentityNotFound", ErrIdentityNotFound},
		{"ErrPlaintextKeyMaterial", ErrPlaintextKeyMaterial},
		{"ErrImmutableRecord", ErrImmutableRecord},
		{"ErrKeyGeneration", ErrKeyGeneration},
		{"ErrEncryption", ErrEncryption},
		{"ErrSignatureFormat", ErrSignatureFormat},
		{"ErrInvalidKey", ErrInvalidKey},
		{"ErrInvalidFingerprint", ErrInvalidFingerprint},
	}

	for _, s := range sentinels {
		t.Run(s.name, func(t *testing.T) {
			if s.err == nil {
				t.Error("sentinel error is nil")
			}
			if s.err.Error() == "" {
				t.Error("sentinel error has empty message")
			}
		})
	}
}

func TestDecryptionError(t *testing.T) {
	stages := []struct {
		stage string
		err   error
	}{
		{"decode", crypto.ErrDecode},
		{"parse", crypto.ErrMalformedEnvelope},
		{"unwrap", crypto.ErrKeyUnwrap},
		{"open", crypto.ErrAuthentication},
		{"text", crypto.ErrInvalidText},
	}

	for _, s := range stages {
		t.Run(s.stage, func(t *testing.T) {
			var err error = &DecryptionError{Stage: s.stage, Err: s.err}

			if err.Error() != "message decryption failed" {
				t.Errorf("Error() = %q", err.Error())
			}
			if !errors.Is(err, ErrDecryptionFailed) {
				t.Error("should match ErrDecryptionFailed")
			}
			if !errors.Is(err, s.err) {
				t.Errorf("should unwrap to %v", s.err)
			}
			var marker EeripError
			if !errors.As(err, &marker) {
				t.Error("should implement EeripError")
			}
		})
	}
}

func TestKeyStoreError(t *testing.T) {
	tests := []struct {
		name     string
		err      *KeyStoreError
		expected string
	}{
		{
			name:     "with id",
			err:      &KeyStoreError{Op: "get", ID: 7, Err: keystore.ErrNotFound},
			expected: "keystore get 7: key record not found",
		},
		{
			name:     "without id",
			err:      &KeyStoreError{Op: "put", Err: keystore.ErrPlaintextKeyMaterial},
			expected: "keystore put: key material must be password-wrapped",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
			if !errors.Is(tt.err, tt.err.Err) {
				t.Error("should unwrap to the store error")
			}
		})
	}
}

func TestValidationError(t *testing.T) {
	err := &ValidationError{Errors: []string{"username is required", "password is required"}}

	if got := err.Error(); got != "validation failed: username is required; password is required" {
		t.Errorf("Error() = %q", got)
	}
	if !errors.Is(err, ErrInvalidInput) {
		t.Error("should match ErrInvalidInput")
	}
}

func TestWrapError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		check   func(error) bool
		wantNil bool
	}{
		{
			name:    "nil",
			err:     nil,
			wantNil: true,
		},
		{
			name: "cipher error",
			err:  &crypto.CipherError{Stage: "unwrap", Err: crypto.ErrKeyUnwrap},
			check: func(err error) bool {
				var d *DecryptionError
				return errors.As(err, &d) && d.Stage == "unwrap"
			},
		},
		{
			name: "store not found",
			err:  fmt.Errorf("lookup: %w", keystore.ErrNotFound),
			check: func(err error) bool {
				var k *KeyStoreError
				return errors.As(err, &k) && errors.Is(err, ErrIdentityNotFound)
			},
		},
		{
			name: "context error passes through",
			err:  context.Canceled,
			check: func(err error) bool {
				return err == context.Canceled
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := wrapError("get", 1, tt.err)
			if tt.wantNil {
				if got != nil {
					t.Errorf("wrapError() = %v, want nil", got)
				}
				return
			}
			if !tt.check(got) {
				t.Errorf("wrapError() = %T %v", got, got)
			}
		})
	}
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"wrong password", ErrWrongPassword, MessageWrongPassword},
		{"wrapped wrong password", fmt.Errorf("unlock: %w", ErrWrongPassword), MessageWrongPassword},
		{"decryption", &DecryptionError{Stage: "open", Err: crypto.ErrAuthentication}, MessageCorrupted},
		{"key mismatch", ErrKeyMismatch, MessageCorrupted},
		{"bad import", ErrInvalidImportData, MessageCorrupted},
		{"bad signature", crypto.ErrSignatureFormat, MessageCorrupted},
		{"closed", ErrClientClosed, MessageTryAgain},
		{"key generation", ErrKeyGeneration, MessageTryAgain},
		{"unknown", errors.New("disk full"), MessageTryAgain},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := UserMessage(tt.err); got != tt.want {
				t.Errorf("UserMessage() = %q, want %q", got, tt.want)
			}
		})
	}
}
