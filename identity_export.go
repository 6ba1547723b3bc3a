package eerip

import (
	"fmt"
	"strings"
	"time"

	"github.com/eerip/client-go/internal/crypto"
	"github.com/eerip/client-go/internal/keystore"
)

// ExportVersion is the current export format version.
const ExportVersion = 1

// ExportedIdentity carries a wrapped identity between key stores.
// Both key fields are password boxes; the password is not part of the export.
type ExportedIdentity struct {
	// Version is the export format version. MUST be 1.
	Version int `json:"version"`
	// ID is the record id in the exporting store. Informational only.
	ID int64 `json:"id"`
	// Username is the owner of the identity. Non-empty.
	Username string `json:"username"`
	// EncryptedPublicKey is the password-wrapped public key PEM.
	EncryptedPublicKey string `json:"encryptedPublicKey"`
	// EncryptedPrivateKey is the password-wrapped private key PEM.
	EncryptedPrivateKey string `json:"encryptedPrivateKey"`
	// Fingerprint is the public key fingerprint (URL-safe base64, 32 bytes decoded).
	Fingerprint string `json:"fingerprint"`
	// ExportedAt is the export timestamp (ISO 8601). Informational only.
	ExportedAt time.Time `json:"exportedAt"`
}

// Validate checks that the exported data can be imported.
func (e *ExportedIdentity) Validate() error {
	if e.Version != ExportVersion {
		return fmt.Errorf("%w: unsupported version %d, expected %d", ErrInvalidImportData, e.Version, ExportVersion)
	}

	if strings.TrimSpace(e.Username) == "" {
		return fmt.Errorf("%w: username is required", ErrInvalidImportData)
	}

	if err := keystore.Validate(keystore.Record{
		Username:            e.Username,
		EncryptedPublicKey:  e.EncryptedPublicKey,
		EncryptedPrivateKey: e.EncryptedPrivateKey,
	}); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidImportData, err)
	}

	if e.Fingerprint != "" {
		if err := crypto.ValidateFingerprint(e.Fingerprint); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidImportData, err)
		}
	}

	return nil
}
