package crypto

import (
	"crypto/rand"
	"io"
	"sync"
)

// Provider supplies the randomness used by every component. Implementations
// must be safe for concurrent use.
type Provider interface {
	Rand() io.Reader
}

type systemProvider struct{}

func (systemProvider) Rand() io.Reader { return rand.Reader }

// SystemProvider returns a Provider backed by crypto/rand.
func SystemProvider() Provider {
	return systemProvider{}
}

type readerProvider struct {
	r lockedReader
}

func (p *readerProvider) Rand() io.Reader { return &p.r }

// ReaderProvider wraps r so it can be shared between goroutines. It exists
// for tests that need fixed randomness; nil falls back to crypto/rand.
func ReaderProvider(r io.Reader) Provider {
	if r == nil {
		return SystemProvider()
	}
	return &readerProvider{r: lockedReader{r: r}}
}

type lockedReader struct {
	mu sync.Mutex
	r  io.Reader
}

func (l *lockedReader) Read(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Read(p)
}

// randomBytes draws n bytes or fails without returning a partial buffer.
func randomBytes(p Provider, n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(p.Rand(), buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func providerOrDefault(p Provider) Provider {
	if p == nil {
		return SystemProvider()
	}
	return p
}

func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
