package crypto

import (
	"crypto/rsa"
	"crypto/sha1"
	"errors"
	"fmt"
	"unicode/utf8"
)

// HybridCipher encrypts messages for a recipient's RSA public key using a
// fresh AES-128-GCM content key per message.
//
// Envelope layout (base64 on the wire):
//
//	wrapped_key (256) || nonce (12) || tag (16) || ciphertext
//
// The layout has no length prefix, so both sides must use 2048-bit keys.
// Keys of any other size are rejected on both ends instead of producing an
// envelope that would be sliced at the wrong offsets.
type HybridCipher struct {
	provider Provider
}

// NewHybridCipher returns a cipher drawing content keys and nonces from p.
func NewHybridCipher(p Provider) *HybridCipher {
	return &HybridCipher{provider: providerOrDefault(p)}
}

// Encrypt seals message for pub and returns the base64 envelope.
func (c *HybridCipher) Encrypt(message string, pub *rsa.PublicKey) (string, error) {
	if err := checkPublicKey(pub); err != nil {
		return "", fmt.Errorf("%w: %v", ErrEncryption, err)
	}
	if !utf8.ValidString(message) {
		return "", fmt.Errorf("%w: %v", ErrEncryption, ErrInvalidText)
	}

	contentKey, err := randomBytes(c.provider, ContentKeySize)
	if err != nil {
		return "", fmt.Errorf("%w: draw content key: %v", ErrEncryption, err)
	}
	defer zeroBytes(contentKey)

	nonce, err := randomBytes(c.provider, GCMNonceSize)
	if err != nil {
		return "", fmt.Errorf("%w: draw nonce: %v", ErrEncryption, err)
	}

	ciphertext, tag, err := sealGCM(contentKey, nonce, []byte(message))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrEncryption, err)
	}

	wrapped, err := rsa.EncryptOAEP(sha1.New(), c.provider.Rand(), pub, contentKey, nil)
	if err != nil {
		return "", fmt.Errorf("%w: wrap content key: %v", ErrEncryption, err)
	}

	envelope := make([]byte, 0, EnvelopeHeaderSize+len(ciphertext))
	envelope = append(envelope, wrapped...)
	envelope = append(envelope, nonce...)
	envelope = append(envelope, tag...)
	envelope = append(envelope, ciphertext...)

	return ToBase64(envelope), nil
}

// Decrypt opens a base64 envelope with priv.
//
// Every failure is a *CipherError with the same message text. Its Stage
// and errors.Is against ErrDecode, ErrMalformedEnvelope, ErrKeyUnwrap,
// ErrAuthentication or ErrInvalidText identify the cause.
func (c *HybridCipher) Decrypt(envelope string, priv *rsa.PrivateKey) (string, error) {
	raw, err := DecodeBase64(envelope)
	if err != nil {
		return "", &CipherError{Stage: "decode", Err: ErrDecode}
	}

	if len(raw) < EnvelopeHeaderSize {
		return "", &CipherError{Stage: "parse", Err: ErrMalformedEnvelope}
	}

	wrapped := raw[:RSAKeySize]
	nonce := raw[RSAKeySize : RSAKeySize+GCMNonceSize]
	tag := raw[RSAKeySize+GCMNonceSize : EnvelopeHeaderSize]
	ciphertext := raw[EnvelopeHeaderSize:]

	contentKey, unwrapErr := unwrapContentKey(wrapped, priv)
	if unwrapErr != nil {
		// Run the GCM stage anyway under a throwaway key so an unwrap failure
		// costs the same as a tag failure.
		contentKey, err = randomBytes(c.provider, ContentKeySize)
		if err != nil {
			contentKey = make([]byte, ContentKeySize)
		}
	}

	plaintext, openErr := openGCM(contentKey, nonce, tag, ciphertext)
	zeroBytes(contentKey)

	switch {
	case unwrapErr != nil:
		return "", &CipherError{Stage: "unwrap", Err: ErrKeyUnwrap}
	case openErr != nil:
		return "", &CipherError{Stage: "open", Err: ErrAuthentication}
	case !utf8.Valid(plaintext):
		return "", &CipherError{Stage: "text", Err: ErrInvalidText}
	}

	return string(plaintext), nil
}

func unwrapContentKey(wrapped []byte, priv *rsa.PrivateKey) ([]byte, error) {
	if err := checkPrivateKey(priv); err != nil {
		return nil, err
	}

	key, err := rsa.DecryptOAEP(sha1.New(), nil, priv, wrapped, nil)
	if err != nil {
		return nil, err
	}
	if len(key) != ContentKeySize {
		zeroBytes(key)
		return nil, errors.New("unexpected content key size")
	}
	return key, nil
}

func checkPublicKey(pub *rsa.PublicKey) error {
	if pub == nil || pub.N == nil {
		return errors.New("missing public key")
	}
	if pub.N.BitLen() != RSAKeyBits {
		return fmt.Errorf("key size %d bits, want %d", pub.N.BitLen(), RSAKeyBits)
	}
	return nil
}

func checkPrivateKey(priv *rsa.PrivateKey) error {
	if priv == nil || priv.N == nil || priv.D == nil || len(priv.Primes) < 2 {
		return errors.New("missing private key")
	}
	if priv.N.BitLen() != RSAKeyBits {
		return fmt.Errorf("key size %d bits, want %d", priv.N.BitLen(), RSAKeyBits)
	}
	return nil
}
