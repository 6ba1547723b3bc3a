// Package keystore persists password-wrapped identity key pairs.
//
// Records are insert-only: every Put allocates a new id and no backend
// exposes an update path. The store only ever sees PasswordKeyBox output;
// anything that looks like plaintext key material is refused.
package keystore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/eerip/client-go/internal/crypto"
)

var (
	// ErrNotFound is returned when no record has the requested id.
	ErrNotFound = errors.New("key record not found")

	// ErrImmutableRecord is returned when Put is given a record that already
	// carries an id. Stored records cannot be replaced.
	ErrImmutableRecord = errors.New("key records are immutable")

	// ErrPlaintextKeyMaterial is returned when a key field is not a
	// password box.
	ErrPlaintextKeyMaterial = errors.New("key material must be password-wrapped")

	// ErrInvalidRecord is returned for records missing required fields.
	ErrInvalidRecord = errors.New("invalid key record")

	// ErrClosed is returned by operations on a closed store.
	ErrClosed = errors.New("key store is closed")
)

// Record is one stored identity. Both key fields hold PasswordKeyBox
// output, never PEM text.
type Record struct {
	ID                  int64  `json:"id" msgpack:"id"`
	Username            string `json:"username" msgpack:"username"`
	EncryptedPublicKey  string `json:"encryptedPublicKey" msgpack:"encryptedPublicKey"`
	EncryptedPrivateKey string `json:"encryptedPrivateKey" msgpack:"encryptedPrivateKey"`
}

// Store is implemented by every backend.
type Store interface {
	// Put inserts r and returns its newly assigned id.
	Put(ctx context.Context, r Record) (int64, error)
	// Get returns the record with the given id or ErrNotFound.
	Get(ctx context.Context, id int64) (*Record, error)
	// ListByUsername returns all records for username in ascending id order.
	ListByUsername(ctx context.Context, username string) ([]*Record, error)
	Close() error
}

// minBoxSize is the smallest decoded password box of any scheme.
var minBoxSize = min(crypto.MinBoxSize(crypto.SchemeCBC), crypto.MinBoxSize(crypto.SchemeGCM))

// Validate checks r before insertion.
func Validate(r Record) error {
	if r.ID != 0 {
		return fmt.Errorf("%w: id %d already assigned", ErrImmutableRecord, r.ID)
	}
	if strings.TrimSpace(r.Username) == "" {
		return fmt.Errorf("%w: username is required", ErrInvalidRecord)
	}
	if strings.ContainsRune(r.Username, 0) {
		return fmt.Errorf("%w: username contains NUL", ErrInvalidRecord)
	}
	if err := checkWrapped("encryptedPublicKey", r.EncryptedPublicKey); err != nil {
		return err
	}
	return checkWrapped("encryptedPrivateKey", r.EncryptedPrivateKey)
}

func checkWrapped(field, value string) error {
	if value == "" {
		return fmt.Errorf("%w: %s is empty", ErrPlaintextKeyMaterial, field)
	}
	if strings.Contains(value, "-----BEGIN") || strings.Contains(value, "KEY-----") {
		return fmt.Errorf("%w: %s contains PEM armor", ErrPlaintextKeyMaterial, field)
	}
	raw, err := crypto.DecodeBase64(value)
	if err != nil {
		return fmt.Errorf("%w: %s is not base64", ErrPlaintextKeyMaterial, field)
	}
	if len(raw) < minBoxSize {
		return fmt.Errorf("%w: %s is too short to be wrapped", ErrPlaintextKeyMaterial, field)
	}
	return nil
}

func (r *Record) clone() *Record {
	c := *r
	return &c
}

// userLocks serializes writes per username. Entries are reference counted
// and dropped once no writer holds them.
type userLocks struct {
	mu    sync.Mutex
	locks map[string]*userLock
}

type userLock struct {
	mu   sync.Mutex
	refs int
}

func newUserLocks() *userLocks {
	return &userLocks{locks: make(map[string]*userLock)}
}

// lock blocks until the caller owns username and returns the release func.
func (u *userLocks) lock(username string) func() {
	u.mu.Lock()
	l, ok := u.locks[username]
	if !ok {
		l = &userLock{}
		u.locks[username] = l
	}
	l.refs++
	u.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()

		u.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(u.locks, username)
		}
		u.mu.Unlock()
	}
}
