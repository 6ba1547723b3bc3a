package eerip

import (
	"crypto/rsa"
	"time"

	"github.com/eerip/client-go/internal/crypto"
)

// Identity is an unlocked key pair. It holds the private key in memory;
// drop references to it when no longer needed.
type Identity struct {
	client      *Client
	record      IdentityRecord
	keys        *crypto.KeyPair
	pubPEM      string
	fingerprint string
}

func newIdentity(c *Client, rec IdentityRecord, keys *crypto.KeyPair, pubPEM string) *Identity {
	return &Identity{
		client:      c,
		record:      rec,
		keys:        keys,
		pubPEM:      pubPEM,
		fingerprint: crypto.Fingerprint(pubPEM),
	}
}

// ID returns the key store id of the identity.
func (i *Identity) ID() int64 {
	return i.record.ID
}

// Username returns the username the identity was created for.
func (i *Identity) Username() string {
	return i.record.Username
}

// PublicKey returns the RSA public key.
func (i *Identity) PublicKey() *rsa.PublicKey {
	return i.keys.PublicKey
}

// PublicKeyPEM returns the public key as a PKIX "PUBLIC KEY" PEM block.
func (i *Identity) PublicKeyPEM() string {
	return i.pubPEM
}

// Fingerprint returns the URL-safe SHA-256 of PublicKeyPEM.
func (i *Identity) Fingerprint() string {
	return i.fingerprint
}

// Decrypt opens an envelope addressed to this identity. Failures are
// *DecryptionError values matching ErrDecryptionFailed.
func (i *Identity) Decrypt(envelope string) (string, error) {
	if err := i.client.checkClosed(); err != nil {
		return "", err
	}

	plaintext, err := i.client.cipher.Decrypt(envelope, i.keys.PrivateKey)
	if err != nil {
		err = wrapError("decrypt", i.record.ID, err)
		if de, ok := err.(*DecryptionError); ok {
			i.client.logger.Debug("envelope rejected", "id", i.record.ID, "stage", de.Stage)
		}
		return "", err
	}
	return plaintext, nil
}

// Sign returns the deterministic base64 signature of message.
func (i *Identity) Sign(message string) (string, error) {
	if err := i.client.checkClosed(); err != nil {
		return "", err
	}
	return i.client.signer.Sign(message, i.keys.PrivateKey)
}

// SignRequest signs the canonical relay payload for a request and returns
// the body hash together with the signature.
func (i *Identity) SignRequest(method, path string, ts time.Time, body []byte) (bodyHash, signature string, err error) {
	bodyHash = crypto.BodyHash(body)
	signature, err = i.Sign(crypto.SigningPayload(method, path, ts.Unix(), bodyHash))
	if err != nil {
		return "", "", err
	}
	return bodyHash, signature, nil
}

// Export returns the wrapped record of the identity. Both keys stay
// password-protected; the private key is never exported in the clear.
func (i *Identity) Export() *ExportedIdentity {
	return &ExportedIdentity{
		Version:             ExportVersion,
		ID:                  i.record.ID,
		Username:            i.record.Username,
		EncryptedPublicKey:  i.record.EncryptedPublicKey,
		EncryptedPrivateKey: i.record.EncryptedPrivateKey,
		Fingerprint:         i.fingerprint,
		ExportedAt:          time.Now().UTC(),
	}
}
