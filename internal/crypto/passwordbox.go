package crypto

import (
	"crypto/aes"
	"crypto/sha1"
	"fmt"
	"unicode/utf8"

	"golang.org/x/crypto/pbkdf2"
)

// BoxScheme selects the cipher construction of a password box.
type BoxScheme int

const (
	// SchemeCBC is the original format: salt (16) || iv (16) || AES-128-CBC
	// ciphertext with PKCS#7 padding. It has no integrity protection.
	SchemeCBC BoxScheme = iota
	// SchemeGCM is the authenticated format: 0x02 || salt (16) || nonce (12)
	// || AES-128-GCM ciphertext || tag (16).
	SchemeGCM
)

func (s BoxScheme) String() string {
	switch s {
	case SchemeCBC:
		return "pbkdf2-aes-128-cbc"
	case SchemeGCM:
		return "pbkdf2-aes-128-gcm"
	}
	return fmt.Sprintf("BoxScheme(%d)", int(s))
}

// BoxOption configures a PasswordKeyBox.
type BoxOption func(*PasswordKeyBox)

// WithIterations sets the PBKDF2 iteration count. Boxes can only be opened
// with the count they were sealed with.
func WithIterations(n int) BoxOption {
	return func(b *PasswordKeyBox) {
		if n > 0 {
			b.iterations = n
		}
	}
}

// WithScheme selects the box format.
func WithScheme(s BoxScheme) BoxOption {
	return func(b *PasswordKeyBox) {
		b.scheme = s
	}
}

// PasswordKeyBox protects key material at rest under a password.
type PasswordKeyBox struct {
	provider   Provider
	iterations int
	scheme     BoxScheme
}

// NewPasswordKeyBox returns a box using SchemeCBC and 10000 PBKDF2
// iterations unless overridden.
func NewPasswordKeyBox(p Provider, opts ...BoxOption) *PasswordKeyBox {
	b := &PasswordKeyBox{
		provider:   providerOrDefault(p),
		iterations: DefaultKDFIterations,
		scheme:     SchemeCBC,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Scheme returns the configured box format.
func (b *PasswordKeyBox) Scheme() BoxScheme {
	return b.scheme
}

// Encrypt seals plaintext under password and returns the base64 box.
// plaintext must be valid UTF-8.
func (b *PasswordKeyBox) Encrypt(plaintext, password string) (string, error) {
	if !utf8.ValidString(plaintext) {
		return "", fmt.Errorf("%w: %v", ErrEncryption, ErrInvalidText)
	}

	salt, err := randomBytes(b.provider, BoxSaltSize)
	if err != nil {
		return "", fmt.Errorf("draw salt: %w", err)
	}

	key := b.deriveKey(password, salt)
	defer zeroBytes(key)

	switch b.scheme {
	case SchemeGCM:
		return b.sealGCM(key, salt, plaintext)
	default:
		return b.sealCBC(key, salt, plaintext)
	}
}

// Decrypt opens box with password. Every failure returns
// ErrPasswordBoxDecrypt so that a wrong password and a damaged box cannot
// be told apart. A CBC box opened with the wrong key can still carry valid
// padding, so recovered bytes that are not UTF-8 are rejected as well.
func (b *PasswordKeyBox) Decrypt(box, password string) (string, error) {
	raw, err := DecodeBase64(box)
	if err != nil {
		return "", ErrPasswordBoxDecrypt
	}

	var plaintext []byte
	switch b.scheme {
	case SchemeGCM:
		plaintext, err = b.openGCM(raw, password)
	default:
		plaintext, err = b.openCBC(raw, password)
	}
	if err != nil || !utf8.Valid(plaintext) {
		return "", ErrPasswordBoxDecrypt
	}
	return string(plaintext), nil
}

// deriveKey returns the full 32-byte PBKDF2 output; callers key the cipher
// with the first BoxCipherKeySize bytes.
func (b *PasswordKeyBox) deriveKey(password string, salt []byte) []byte {
	return pbkdf2.Key([]byte(password), salt, b.iterations, BoxDerivedKeySize, sha1.New)
}

func (b *PasswordKeyBox) sealCBC(key, salt []byte, plaintext string) (string, error) {
	iv, err := randomBytes(b.provider, BoxIVSize)
	if err != nil {
		return "", fmt.Errorf("draw iv: %w", err)
	}

	ciphertext, err := encryptCBC(key[:BoxCipherKeySize], iv, []byte(plaintext))
	if err != nil {
		return "", err
	}

	out := make([]byte, 0, BoxSaltSize+BoxIVSize+len(ciphertext))
	out = append(out, salt...)
	out = append(out, iv...)
	out = append(out, ciphertext...)
	return ToBase64(out), nil
}

func (b *PasswordKeyBox) openCBC(raw []byte, password string) ([]byte, error) {
	if len(raw) < BoxSaltSize+BoxIVSize {
		return nil, ErrPasswordBoxDecrypt
	}

	salt := raw[:BoxSaltSize]
	iv := raw[BoxSaltSize : BoxSaltSize+BoxIVSize]
	ciphertext := raw[BoxSaltSize+BoxIVSize:]

	key := b.deriveKey(password, salt)
	defer zeroBytes(key)

	return decryptCBC(key[:BoxCipherKeySize], iv, ciphertext)
}

func (b *PasswordKeyBox) sealGCM(key, salt []byte, plaintext string) (string, error) {
	nonce, err := randomBytes(b.provider, GCMNonceSize)
	if err != nil {
		return "", fmt.Errorf("draw nonce: %w", err)
	}

	ciphertext, tag, err := sealGCM(key[:BoxCipherKeySize], nonce, []byte(plaintext))
	if err != nil {
		return "", err
	}

	out := make([]byte, 0, 1+BoxSaltSize+GCMNonceSize+len(ciphertext)+GCMTagSize)
	out = append(out, boxVersionGCM)
	out = append(out, salt...)
	out = append(out, nonce...)
	out = append(out, ciphertext...)
	out = append(out, tag...)
	return ToBase64(out), nil
}

func (b *PasswordKeyBox) openGCM(raw []byte, password string) ([]byte, error) {
	if len(raw) < 1+BoxSaltSize+GCMNonceSize+GCMTagSize || raw[0] != boxVersionGCM {
		return nil, ErrPasswordBoxDecrypt
	}

	salt := raw[1 : 1+BoxSaltSize]
	nonce := raw[1+BoxSaltSize : 1+BoxSaltSize+GCMNonceSize]
	body := raw[1+BoxSaltSize+GCMNonceSize:]
	ciphertext, tag := body[:len(body)-GCMTagSize], body[len(body)-GCMTagSize:]

	key := b.deriveKey(password, salt)
	defer zeroBytes(key)

	return openGCM(key[:BoxCipherKeySize], nonce, tag, ciphertext)
}

// MinBoxSize returns the smallest decoded size of a box in scheme s.
func MinBoxSize(s BoxScheme) int {
	if s == SchemeGCM {
		return 1 + BoxSaltSize + GCMNonceSize + GCMTagSize
	}
	return BoxSaltSize + BoxIVSize + aes.BlockSize
}
