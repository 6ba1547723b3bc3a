package crypto

import (
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/pem"
	"fmt"
)

// generateKey is the RSA primitive used by KeyPairGenerator. It can be
// overridden for testing.
var generateKey = rsa.GenerateKey

// KeyPair is an RSA-2048 identity key pair.
type KeyPair struct {
	// PublicKey is freely shareable.
	PublicKey *rsa.PublicKey
	// PrivateKey must only leave the process wrapped in a password box.
	PrivateKey *rsa.PrivateKey
}

// KeyPairResult carries the outcome of an asynchronous generation.
type KeyPairResult struct {
	KeyPair *KeyPair
	Err     error
}

// KeyPairGenerator produces identity key pairs.
type KeyPairGenerator struct {
	provider Provider
}

// NewKeyPairGenerator returns a generator drawing randomness from p.
func NewKeyPairGenerator(p Provider) *KeyPairGenerator {
	return &KeyPairGenerator{provider: providerOrDefault(p)}
}

// Generate creates a new 2048-bit key pair with public exponent 65537.
// On failure it returns an error wrapping ErrKeyGeneration and no keys.
func (g *KeyPairGenerator) Generate() (*KeyPair, error) {
	priv, err := generateKey(g.provider.Rand(), RSAKeyBits)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyGeneration, err)
	}
	if priv == nil || priv.N.BitLen() != RSAKeyBits || priv.E != RSAPublicExponent {
		return nil, fmt.Errorf("%w: unexpected key parameters", ErrKeyGeneration)
	}
	if err := priv.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyGeneration, err)
	}

	return &KeyPair{
		PublicKey:  &priv.PublicKey,
		PrivateKey: priv,
	}, nil
}

// GenerateAsync runs Generate on its own goroutine. The returned channel
// receives exactly one result and is then closed. The computation always
// runs to completion, even if nobody is left to receive it.
func (g *KeyPairGenerator) GenerateAsync() <-chan KeyPairResult {
	ch := make(chan KeyPairResult, 1)
	go func() {
		defer close(ch)
		kp, err := g.Generate()
		ch <- KeyPairResult{KeyPair: kp, Err: err}
	}()
	return ch
}

// PublicKeyPEM returns the public key as a PKIX "PUBLIC KEY" PEM block.
func (k *KeyPair) PublicKeyPEM() (string, error) {
	return PublicKeyToPEM(k.PublicKey)
}

// PrivateKeyPEM returns the private key as a PKCS#1 "RSA PRIVATE KEY" PEM
// block. Handle the result as secret material.
func (k *KeyPair) PrivateKeyPEM() (string, error) {
	return PrivateKeyToPEM(k.PrivateKey)
}

// Fingerprint returns the public key fingerprint, see Fingerprint.
func (k *KeyPair) Fingerprint() (string, error) {
	pemText, err := k.PublicKeyPEM()
	if err != nil {
		return "", err
	}
	return Fingerprint(pemText), nil
}

// Matches reports whether pub is the public half of priv.
func Matches(pub *rsa.PublicKey, priv *rsa.PrivateKey) bool {
	if pub == nil || priv == nil || pub.N == nil || priv.N == nil {
		return false
	}
	return pub.Equal(&priv.PublicKey)
}

// PublicKeyToPEM encodes pub as a PKIX "PUBLIC KEY" PEM block.
func PublicKeyToPEM(pub *rsa.PublicKey) (string, error) {
	if pub == nil {
		return "", ErrInvalidKey
	}
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})), nil
}

// PrivateKeyToPEM encodes priv as a PKCS#1 "RSA PRIVATE KEY" PEM block.
func PrivateKeyToPEM(priv *rsa.PrivateKey) (string, error) {
	if priv == nil {
		return "", ErrInvalidKey
	}
	der := x509.MarshalPKCS1PrivateKey(priv)
	return string(pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: der})), nil
}

// ParsePublicKeyPEM decodes the first RSA public key found in pemText.
// Both PKIX "PUBLIC KEY" and PKCS#1 "RSA PUBLIC KEY" blocks are accepted.
func ParsePublicKeyPEM(pemText string) (*rsa.PublicKey, error) {
	rest := []byte(pemText)
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			return nil, fmt.Errorf("%w: no public key block", ErrInvalidKey)
		}

		switch block.Type {
		case "PUBLIC KEY":
			key, err := x509.ParsePKIXPublicKey(block.Bytes)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
			}
			rsaKey, ok := key.(*rsa.PublicKey)
			if !ok {
				return nil, fmt.Errorf("%w: not an RSA key", ErrInvalidKey)
			}
			return rsaKey, nil
		case "RSA PUBLIC KEY":
			key, err := x509.ParsePKCS1PublicKey(block.Bytes)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
			}
			return key, nil
		}
	}
}

// ParsePrivateKeyPEM decodes the first RSA private key found in pemText.
// Both PKCS#1 "RSA PRIVATE KEY" and PKCS#8 "PRIVATE KEY" blocks are accepted.
func ParsePrivateKeyPEM(pemText string) (*rsa.PrivateKey, error) {
	rest := []byte(pemText)
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			return nil, fmt.Errorf("%w: no private key block", ErrInvalidKey)
		}

		switch block.Type {
		case "RSA PRIVATE KEY":
			key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
			}
			return key, nil
		case "PRIVATE KEY":
			key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
			}
			rsaKey, ok := key.(*rsa.PrivateKey)
			if !ok {
				return nil, fmt.Errorf("%w: not an RSA key", ErrInvalidKey)
			}
			return rsaKey, nil
		}
	}
}

// Fingerprint returns the SHA-256 of the PEM-armored public key text,
// encoded as URL-safe base64 without padding.
func Fingerprint(publicKeyPEM string) string {
	sum := sha256.Sum256([]byte(publicKeyPEM))
	return ToBase64URL(sum[:])
}

// ValidateFingerprint checks that fp decodes to a 32-byte digest.
func ValidateFingerprint(fp string) error {
	raw, err := FromBase64URL(fp)
	if err != nil {
		return fmt.Errorf("%w: invalid base64", ErrInvalidFingerprint)
	}
	if len(raw) != FingerprintSize {
		return fmt.Errorf("%w: decoded %d bytes, want %d", ErrInvalidFingerprint, len(raw), FingerprintSize)
	}
	return nil
}
