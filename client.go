package eerip

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/eerip/client-go/internal/crypto"
	"github.com/eerip/client-go/internal/logging"
)

// minKDFIterations is the lowest iteration count WithKDFIterations accepts.
const minKDFIterations = 1000

// Client creates, stores and unlocks identities and performs the message
// operations that only need a public key.
type Client struct {
	store     KeyStore
	ownsStore bool
	logger    *slog.Logger

	keygen *crypto.KeyPairGenerator
	cipher *crypto.HybridCipher
	signer *crypto.SignatureService
	box    *crypto.PasswordKeyBox
	// boxes lists every scheme Unlock tries, the configured one first.
	boxes []*crypto.PasswordKeyBox

	mu     sync.RWMutex
	closed bool
}

// New creates a new client.
func New(opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		logger:        logging.Discard(),
		kdfIterations: DefaultKDFIterations,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.kdfIterations < minKDFIterations {
		return nil, &ValidationError{Errors: []string{
			fmt.Sprintf("kdf iterations %d below minimum %d", cfg.kdfIterations, minKDFIterations),
		}}
	}

	provider := crypto.ReaderProvider(cfg.rand)

	primary, secondary := crypto.SchemeCBC, crypto.SchemeGCM
	if cfg.authenticatedBox {
		primary, secondary = secondary, primary
	}
	box := crypto.NewPasswordKeyBox(provider, crypto.WithIterations(cfg.kdfIterations), crypto.WithScheme(primary))
	alt := crypto.NewPasswordKeyBox(provider, crypto.WithIterations(cfg.kdfIterations), crypto.WithScheme(secondary))

	c := &Client{
		store:  cfg.store,
		logger: cfg.logger,
		keygen: crypto.NewKeyPairGenerator(provider),
		cipher: crypto.NewHybridCipher(provider),
		signer: crypto.NewSignatureService(provider),
		box:    box,
		boxes:  []*crypto.PasswordKeyBox{box, alt},
	}
	if c.store == nil {
		c.store = NewMemoryKeyStore()
		c.ownsStore = true
	}

	return c, nil
}

// checkClosed returns ErrClientClosed if the client has been closed.
func (c *Client) checkClosed() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrClientClosed
	}
	return nil
}

// CreateIdentity generates a key pair for username, stores both halves
// wrapped under password and returns the unlocked identity.
//
// Key generation runs in the background. If ctx ends first CreateIdentity
// returns ctx.Err() and the key that is eventually produced is discarded
// without being stored.
func (c *Client) CreateIdentity(ctx context.Context, username, password string) (*Identity, error) {
	if err := c.checkClosed(); err != nil {
		return nil, err
	}
	if err := validateCredentials(username, password); err != nil {
		return nil, err
	}

	results := c.keygen.GenerateAsync()

	var res crypto.KeyPairResult
	select {
	case <-ctx.Done():
		c.logger.Debug("identity creation abandoned", "username", username, "err", ctx.Err())
		return nil, ctx.Err()
	case res = <-results:
	}
	if res.Err != nil {
		c.logger.Warn("key generation failed", "err", res.Err)
		return nil, res.Err
	}

	pubPEM, err := res.KeyPair.PublicKeyPEM()
	if err != nil {
		return nil, err
	}
	privPEM, err := res.KeyPair.PrivateKeyPEM()
	if err != nil {
		return nil, err
	}

	wrappedPub, err := c.box.Encrypt(pubPEM, password)
	if err != nil {
		return nil, fmt.Errorf("wrap public key: %w", err)
	}
	wrappedPriv, err := c.box.Encrypt(privPEM, password)
	if err != nil {
		return nil, fmt.Errorf("wrap private key: %w", err)
	}

	rec := IdentityRecord{
		Username:            username,
		EncryptedPublicKey:  wrappedPub,
		EncryptedPrivateKey: wrappedPriv,
	}
	id, err := c.store.Put(ctx, rec)
	if err != nil {
		return nil, wrapError("put", 0, err)
	}
	rec.ID = id

	ident := newIdentity(c, rec, res.KeyPair, pubPEM)
	c.logger.Info("identity created", "username", username, "id", id, "fingerprint", ident.Fingerprint(), "scheme", c.box.Scheme().String())
	return ident, nil
}

// Identities returns the stored records for username in creation order.
// The records stay wrapped; use Unlock to open one.
func (c *Client) Identities(ctx context.Context, username string) ([]IdentityRecord, error) {
	if err := c.checkClosed(); err != nil {
		return nil, err
	}

	recs, err := c.store.ListByUsername(ctx, username)
	if err != nil {
		return nil, wrapError("list", 0, err)
	}

	out := make([]IdentityRecord, 0, len(recs))
	for _, r := range recs {
		out = append(out, *r)
	}
	return out, nil
}

// Unlock loads the identity with the given id and opens it with password.
// A wrong password returns ErrWrongPassword.
func (c *Client) Unlock(ctx context.Context, id int64, password string) (*Identity, error) {
	if err := c.checkClosed(); err != nil {
		return nil, err
	}

	rec, err := c.store.Get(ctx, id)
	if err != nil {
		return nil, wrapError("get", id, err)
	}

	privPEM, err := c.openBox(rec.EncryptedPrivateKey, password)
	if err != nil {
		c.logger.Debug("unlock failed", "id", id)
		return nil, ErrWrongPassword
	}
	pubPEM, err := c.openBox(rec.EncryptedPublicKey, password)
	if err != nil {
		c.logger.Debug("unlock failed", "id", id)
		return nil, ErrWrongPassword
	}

	priv, err := crypto.ParsePrivateKeyPEM(privPEM)
	if err != nil {
		c.logger.Debug("unlock failed", "id", id, "err", err)
		return nil, ErrWrongPassword
	}
	pub, err := crypto.ParsePublicKeyPEM(pubPEM)
	if err != nil {
		c.logger.Debug("unlock failed", "id", id, "err", err)
		return nil, ErrWrongPassword
	}
	if !crypto.Matches(pub, priv) {
		c.logger.Warn("stored key halves do not match", "id", id)
		return nil, ErrKeyMismatch
	}

	kp := &crypto.KeyPair{PublicKey: pub, PrivateKey: priv}
	c.logger.Debug("identity unlocked", "id", id)
	return newIdentity(c, *rec, kp, pubPEM), nil
}

// openBox tries each supported box scheme and accepts only PEM output, so
// a CBC box that happens to unpad under the wrong password is still
// rejected.
func (c *Client) openBox(box, password string) (string, error) {
	for _, b := range c.boxes {
		plain, err := b.Decrypt(box, password)
		if err == nil && strings.Contains(plain, "-----BEGIN ") {
			return plain, nil
		}
	}
	return "", crypto.ErrPasswordBoxDecrypt
}

// Encrypt seals message for the holder of pub.
func (c *Client) Encrypt(message string, pub *rsa.PublicKey) (string, error) {
	if err := c.checkClosed(); err != nil {
		return "", err
	}
	return c.cipher.Encrypt(message, pub)
}

// EncryptFor seals message for the holder of the PEM-armored public key.
func (c *Client) EncryptFor(message, recipientPEM string) (string, error) {
	if err := c.checkClosed(); err != nil {
		return "", err
	}
	pub, err := crypto.ParsePublicKeyPEM(recipientPEM)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrEncryption, err)
	}
	return c.Encrypt(message, pub)
}

// Verify reports whether signature is a valid signature of message by the
// holder of pub. A mismatch is (false, nil); an error means the signature
// or key is malformed.
func (c *Client) Verify(message, signature string, pub *rsa.PublicKey) (bool, error) {
	if err := c.checkClosed(); err != nil {
		return false, err
	}
	return c.signer.Verify(message, signature, pub)
}

// VerifyWithPEM is Verify for a PEM-armored public key.
func (c *Client) VerifyWithPEM(message, signature, publicKeyPEM string) (bool, error) {
	if err := c.checkClosed(); err != nil {
		return false, err
	}
	pub, err := crypto.ParsePublicKeyPEM(publicKeyPEM)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrSignatureFormat, err)
	}
	return c.Verify(message, signature, pub)
}

// ImportIdentity stores an exported identity as a new record and returns
// its id. The exported id is informational; the store assigns a fresh one.
func (c *Client) ImportIdentity(ctx context.Context, data *ExportedIdentity) (int64, error) {
	if err := c.checkClosed(); err != nil {
		return 0, err
	}
	if data == nil {
		return 0, fmt.Errorf("%w: no data", ErrInvalidImportData)
	}
	if err := data.Validate(); err != nil {
		return 0, err
	}

	id, err := c.store.Put(ctx, IdentityRecord{
		Username:            data.Username,
		EncryptedPublicKey:  data.EncryptedPublicKey,
		EncryptedPrivateKey: data.EncryptedPrivateKey,
	})
	if err != nil {
		return 0, wrapError("put", 0, err)
	}

	c.logger.Info("identity imported", "username", data.Username, "id", id, "source_id", data.ID)
	return id, nil
}

// ExportIdentityToFile writes the wrapped record of ident as JSON with
// owner-only permissions (0600).
func (c *Client) ExportIdentityToFile(ident *Identity, filePath string) error {
	if ident == nil {
		return fmt.Errorf("identity is nil")
	}

	jsonData, err := json.MarshalIndent(ident.Export(), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal identity data: %w", err) //coverage:ignore
	}

	if err := os.WriteFile(filePath, jsonData, 0600); err != nil {
		return fmt.Errorf("write file: %w", err)
	}

	return nil
}

// ImportIdentityFromFile reads an export written by ExportIdentityToFile
// and stores it as a new record.
func (c *Client) ImportIdentityFromFile(ctx context.Context, filePath string) (int64, error) {
	if err := c.checkClosed(); err != nil {
		return 0, err
	}

	jsonData, err := os.ReadFile(filePath)
	if err != nil {
		return 0, fmt.Errorf("read file: %w", err)
	}

	var data ExportedIdentity
	if err := json.Unmarshal(jsonData, &data); err != nil {
		return 0, fmt.Errorf("%w: parse identity data: %v", ErrInvalidImportData, err)
	}

	return c.ImportIdentity(ctx, &data)
}

// Close closes the client. A store created by New is closed with it.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	if c.ownsStore {
		return c.store.Close()
	}
	return nil
}

func validateCredentials(username, password string) error {
	var problems []string
	if strings.TrimSpace(username) == "" {
		problems = append(problems, "username is required")
	}
	if password == "" {
		problems = append(problems, "password is required")
	}
	if len(problems) > 0 {
		return &ValidationError{Errors: problems}
	}
	return nil
}
