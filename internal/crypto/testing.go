package crypto

import (
	"crypto/rsa"
	"io"
)

// SetKeyGeneratorForTesting replaces the RSA key generation primitive.
// This is intended for testing only. Returns a function to restore the original.
// Since this package is internal, this function cannot be accessed by external code.
func SetKeyGeneratorForTesting(fn func(io.Reader, int) (*rsa.PrivateKey, error)) func() {
	original := generateKey
	generateKey = fn
	return func() { generateKey = original }
}
