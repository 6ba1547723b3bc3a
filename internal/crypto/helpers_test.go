package crypto

import (
	"crypto/rsa"
	"errors"
	"sync"
	"testing"
)

var (
	fixtureOnce sync.Once
	fixtureA    *KeyPair
	fixtureB    *KeyPair
	fixtureErr  error
)

// testKeyPairs returns two distinct key pairs shared by the package tests.
// RSA-2048 generation is slow enough that doing it per test adds up.
func testKeyPairs(t testing.TB) (*KeyPair, *KeyPair) {
	t.Helper()

	fixtureOnce.Do(func() {
		gen := NewKeyPairGenerator(SystemProvider())
		fixtureA, fixtureErr = gen.Generate()
		if fixtureErr != nil {
			return
		}
		fixtureB, fixtureErr = gen.Generate()
	})
	if fixtureErr != nil {
		t.Fatalf("Generate() error = %v", fixtureErr)
	}
	return fixtureA, fixtureB
}

// failingReader fails every read.
type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("entropy source unavailable")
}

// countingReader returns a repeating byte pattern and counts calls.
type countingReader struct {
	mu    sync.Mutex
	calls int
}

func (r *countingReader) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	for i := range p {
		p[i] = byte(r.calls + i)
	}
	return len(p), nil
}

func smallKey(t testing.TB) *rsa.PrivateKey {
	t.Helper()
	// 1024 bits is the smallest size crypto/rsa will still generate.
	priv, err := rsa.GenerateKey(SystemProvider().Rand(), 1024)
	if err != nil {
		t.Fatalf("rsa.GenerateKey() error = %v", err)
	}
	return priv
}
