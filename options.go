package eerip

import (
	"io"
	"log/slog"

	"github.com/eerip/client-go/internal/crypto"
)

// DefaultKDFIterations is the PBKDF2 iteration count used for password
// boxes unless WithKDFIterations overrides it.
const DefaultKDFIterations = crypto.DefaultKDFIterations

// clientConfig holds configuration for the client.
type clientConfig struct {
	store            KeyStore
	logger           *slog.Logger
	rand             io.Reader
	kdfIterations    int
	authenticatedBox bool
}

// Option configures the client.
type Option func(*clientConfig)

// WithKeyStore sets the store identities are persisted to. The client does
// not close a store supplied this way.
// Default: a fresh in-memory store owned by the client.
func WithKeyStore(store KeyStore) Option {
	return func(c *clientConfig) {
		c.store = store
	}
}

// WithLogger sets the structured logger. Passwords, keys and message text
// are never logged.
// Default: discard.
func WithLogger(logger *slog.Logger) Option {
	return func(c *clientConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithRandReader replaces crypto/rand as the randomness source for content
// keys, nonces, salts and IVs. The reader is serialized internally.
func WithRandReader(r io.Reader) Option {
	return func(c *clientConfig) {
		c.rand = r
	}
}

// WithKDFIterations sets the PBKDF2 iteration count for new password boxes.
// Existing records can only be unlocked with the count they were created
// with.
// Default: 10000
func WithKDFIterations(n int) Option {
	return func(c *clientConfig) {
		c.kdfIterations = n
	}
}

// WithAuthenticatedKeyBox wraps new identities with the AES-GCM password box
// instead of the legacy AES-CBC one. Unlock accepts both formats either way.
func WithAuthenticatedKeyBox() Option {
	return func(c *clientConfig) {
		c.authenticatedBox = true
	}
}
