package eerip

import "github.com/eerip/client-go/internal/keystore"

// KeyStore persists password-wrapped identities. Records are insert-only.
type KeyStore = keystore.Store

// IdentityRecord is a stored identity: both keys are password boxes.
type IdentityRecord = keystore.Record

// NewMemoryKeyStore returns an in-process store.
func NewMemoryKeyStore() KeyStore {
	return keystore.NewMemoryStore()
}

// OpenKeyStore opens the store described by dsn: "memory",
// "leveldb:<dir>" or "sqlite:<file>".
func OpenKeyStore(dsn string) (KeyStore, error) {
	return keystore.Open(dsn)
}
