package eerip

import (
	"crypto/rsa"
	"io"
	"sync"
	"testing"

	"github.com/eerip/client-go/internal/crypto"
)

const testPassword = "correct horse battery staple"

var (
	fixtureOnce sync.Once
	fixtureKeys [2]*rsa.PrivateKey
	fixtureErr  error
)

// fixtureKey returns one of two RSA-2048 keys generated once per test run.
func fixtureKey(t testing.TB, n int) *rsa.PrivateKey {
	t.Helper()
	fixtureOnce.Do(func() {
		gen := crypto.NewKeyPairGenerator(nil)
		for i := range fixtureKeys {
			kp, err := gen.Generate()
			if err != nil {
				fixtureErr = err
				return
			}
			fixtureKeys[i] = kp.PrivateKey
		}
	})
	if fixtureErr != nil {
		t.Fatalf("Generate() error = %v", fixtureErr)
	}
	return fixtureKeys[n]
}

// useKey makes key generation return the given fixture key for the rest
// of the test.
func useKey(t testing.TB, n int) {
	t.Helper()
	key := fixtureKey(t, n)
	restore := crypto.SetKeyGeneratorForTesting(func(io.Reader, int) (*rsa.PrivateKey, error) {
		return key, nil
	})
	t.Cleanup(restore)
}

func newTestClient(t testing.TB, opts ...Option) *Client {
	t.Helper()
	opts = append([]Option{WithKDFIterations(1000)}, opts...)
	c, err := New(opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}
