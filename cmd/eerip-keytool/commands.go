package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	eerip "github.com/eerip/client-go"
	"github.com/eerip/client-go/internal/logging"
)

// usesStore marks commands that read or write the key store.
var usesStore = map[string]string{"keystore": "true"}

// errSignatureMismatch makes verify exit non-zero for a well-formed
// signature that does not verify.
var errSignatureMismatch = errors.New("signature does not verify")

// app carries the state shared by one invocation's commands.
type app struct {
	cfg      *Config
	settings settings
	client   *eerip.Client
	store    eerip.KeyStore
	logger   *slog.Logger

	// flag values
	envFile  string
	keyStore string
	password string
	logLevel string
	jsonLogs bool
}

func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "eerip-keytool",
		Short: "Manage eerip identities and messages",
		Long: `Create, store and use RSA identities whose keys are kept
password-wrapped in a key store.

Examples:
  eerip-keytool create alice
  eerip-keytool list alice
  echo hello | eerip-keytool encrypt --to alice.pem
  eerip-keytool decrypt 1 < envelope.txt`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.envFile, "env-file", ".env", "file with KEY=value defaults")
	flags.StringVar(&a.keyStore, "keystore", "", "key store: memory, leveldb:<dir> or sqlite:<file> (env "+envKeyStore+")")
	flags.StringVar(&a.password, "password", "", "identity password (env "+envPassword+")")
	flags.StringVar(&a.logLevel, "log-level", "", "debug, info, warn or error (env "+envLogLevel+")")
	flags.BoolVar(&a.jsonLogs, "json-logs", false, "write logs as JSON")

	encryptCmd := &cobra.Command{
		Use:   "encrypt",
		Short: "Encrypt stdin for a recipient public key",
		Args:  cobra.NoArgs,
		RunE:  a.runEncrypt,
	}
	encryptCmd.Flags().String("to", "", "recipient public key PEM file")
	encryptCmd.MarkFlagRequired("to")

	verifyCmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify a signature over stdin",
		Args:  cobra.NoArgs,
		RunE:  a.runVerify,
	}
	verifyCmd.Flags().String("key", "", "signer public key PEM file")
	verifyCmd.Flags().String("signature", "", "base64 signature")
	verifyCmd.MarkFlagRequired("key")
	verifyCmd.MarkFlagRequired("signature")

	fingerprintCmd := &cobra.Command{
		Use:   "fingerprint",
		Short: "Print the fingerprint of a public key PEM (file or stdin)",
		Args:  cobra.NoArgs,
		RunE:  a.runFingerprint,
	}
	fingerprintCmd.Flags().String("key", "", "public key PEM file (default stdin)")

	root.AddCommand(
		&cobra.Command{
			Use:         "create <username>",
			Short:       "Generate and store a new identity",
			Args:        cobra.ExactArgs(1),
			RunE:        a.runCreate,
			Annotations: usesStore,
		},
		&cobra.Command{
			Use:         "list <username>",
			Short:       "List stored identities for a username",
			Args:        cobra.ExactArgs(1),
			RunE:        a.runList,
			Annotations: usesStore,
		},
		&cobra.Command{
			Use:         "export <id>",
			Short:       "Write an identity's wrapped record as JSON",
			Args:        cobra.ExactArgs(1),
			RunE:        a.runExport,
			Annotations: usesStore,
		},
		&cobra.Command{
			Use:         "import",
			Short:       "Store an exported identity read from stdin",
			Args:        cobra.NoArgs,
			RunE:        a.runImport,
			Annotations: usesStore,
		},
		&cobra.Command{
			Use:         "decrypt <id>",
			Short:       "Decrypt an envelope from stdin with a stored identity",
			Args:        cobra.ExactArgs(1),
			RunE:        a.runDecrypt,
			Annotations: usesStore,
		},
		&cobra.Command{
			Use:         "sign <id>",
			Short:       "Sign stdin with a stored identity",
			Args:        cobra.ExactArgs(1),
			RunE:        a.runSign,
			Annotations: usesStore,
		},
		encryptCmd,
		verifyCmd,
		fingerprintCmd,
	)

	return root
}

// setup resolves settings and opens the client before any subcommand runs.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	env, err := newLookup(a.cfg.Getenv, a.envFile)
	if err != nil {
		return err
	}
	s, err := loadSettings(env)
	if err != nil {
		return err
	}
	if a.keyStore != "" {
		s.keyStore = a.keyStore
	}
	if a.password != "" {
		s.password = a.password
	}
	if a.logLevel != "" {
		s.logLevel = a.logLevel
	}
	a.settings = s

	logger, err := logging.New(a.cfg.Stderr, logging.Config{
		Level:  s.logLevel,
		JSON:   a.jsonLogs,
		Prefix: "eerip-keytool",
	})
	if err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	a.logger = logger

	store, err := eerip.OpenKeyStore(s.keyStore)
	if err != nil {
		return err
	}
	a.store = store

	opts := []eerip.Option{
		eerip.WithKeyStore(store),
		eerip.WithLogger(logger),
	}
	if s.kdfIterations > 0 {
		opts = append(opts, eerip.WithKDFIterations(s.kdfIterations))
	}
	if s.authenticatedBox {
		opts = append(opts, eerip.WithAuthenticatedKeyBox())
	}

	client, err := eerip.New(opts...)
	if err != nil {
		return err
	}
	a.client = client

	kind := storeKind(s.keyStore)
	if cmd.Annotations["keystore"] == "true" && (kind == "" || kind == "memory") {
		logger.Warn("using the in-memory key store; identities are discarded on exit",
			"hint", "set --keystore or "+envKeyStore+" to leveldb:<dir> or sqlite:<file>")
	}

	logger.Debug("keytool ready", "command", cmd.Name(), "keystore", kind)
	return nil
}

func (a *app) close() {
	if a.client != nil {
		a.client.Close()
	}
	if a.store != nil {
		a.store.Close()
	}
}

func (a *app) requirePassword() (string, error) {
	if a.settings.password == "" {
		return "", fmt.Errorf("password required: use --password or %s", envPassword)
	}
	return a.settings.password, nil
}

func (a *app) unlock(cmd *cobra.Command, arg string) (*eerip.Identity, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return nil, fmt.Errorf("invalid identity id %q", arg)
	}
	password, err := a.requirePassword()
	if err != nil {
		return nil, err
	}

	ident, err := a.client.Unlock(cmd.Context(), id, password)
	switch {
	case errors.Is(err, eerip.ErrIdentityNotFound):
		return nil, fmt.Errorf("identity %d: %w", id, eerip.ErrIdentityNotFound)
	case err != nil:
		return nil, a.userError(err)
	}
	return ident, nil
}

type identityOutput struct {
	ID          int64  `json:"id"`
	Username    string `json:"username"`
	Fingerprint string `json:"fingerprint,omitempty"`
	PublicKey   string `json:"publicKey,omitempty"`
}

func (a *app) runCreate(cmd *cobra.Command, args []string) error {
	password, err := a.requirePassword()
	if err != nil {
		return err
	}

	ident, err := a.client.CreateIdentity(cmd.Context(), args[0], password)
	switch {
	case errors.Is(err, eerip.ErrInvalidInput):
		return err
	case err != nil:
		return a.userError(err)
	}

	return a.printJSON(identityOutput{
		ID:          ident.ID(),
		Username:    ident.Username(),
		Fingerprint: ident.Fingerprint(),
		PublicKey:   ident.PublicKeyPEM(),
	})
}

func (a *app) runList(cmd *cobra.Command, args []string) error {
	recs, err := a.client.Identities(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	out := make([]identityOutput, 0, len(recs))
	for _, r := range recs {
		out = append(out, identityOutput{ID: r.ID, Username: r.Username})
	}
	return a.printJSON(out)
}

func (a *app) runExport(cmd *cobra.Command, args []string) error {
	ident, err := a.unlock(cmd, args[0])
	if err != nil {
		return err
	}
	return a.printJSON(ident.Export())
}

func (a *app) runImport(cmd *cobra.Command, _ []string) error {
	data, err := io.ReadAll(a.cfg.Stdin)
	if err != nil {
		return fmt.Errorf("read stdin: %w", err)
	}

	var exported eerip.ExportedIdentity
	if err := json.Unmarshal(data, &exported); err != nil {
		return fmt.Errorf("parse export: %w", err)
	}

	id, err := a.client.ImportIdentity(cmd.Context(), &exported)
	if err != nil {
		return err
	}
	return a.printJSON(map[string]int64{"id": id})
}

func (a *app) runEncrypt(cmd *cobra.Command, _ []string) error {
	keyFile, _ := cmd.Flags().GetString("to")
	pemText, err := os.ReadFile(keyFile)
	if err != nil {
		return fmt.Errorf("read public key: %w", err)
	}
	message, err := io.ReadAll(a.cfg.Stdin)
	if err != nil {
		return fmt.Errorf("read stdin: %w", err)
	}

	envelope, err := a.client.EncryptFor(string(message), string(pemText))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(a.cfg.Stdout, envelope)
	return err
}

func (a *app) runDecrypt(cmd *cobra.Command, args []string) error {
	ident, err := a.unlock(cmd, args[0])
	if err != nil {
		return err
	}
	envelope, err := io.ReadAll(a.cfg.Stdin)
	if err != nil {
		return fmt.Errorf("read stdin: %w", err)
	}

	plaintext, err := ident.Decrypt(strings.TrimSpace(string(envelope)))
	if err != nil {
		return a.userError(err)
	}
	_, err = io.WriteString(a.cfg.Stdout, plaintext)
	return err
}

func (a *app) runSign(cmd *cobra.Command, args []string) error {
	ident, err := a.unlock(cmd, args[0])
	if err != nil {
		return err
	}
	message, err := io.ReadAll(a.cfg.Stdin)
	if err != nil {
		return fmt.Errorf("read stdin: %w", err)
	}

	sig, err := ident.Sign(string(message))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(a.cfg.Stdout, sig)
	return err
}

func (a *app) runVerify(cmd *cobra.Command, _ []string) error {
	keyFile, _ := cmd.Flags().GetString("key")
	signature, _ := cmd.Flags().GetString("signature")

	pemText, err := os.ReadFile(keyFile)
	if err != nil {
		return fmt.Errorf("read public key: %w", err)
	}
	message, err := io.ReadAll(a.cfg.Stdin)
	if err != nil {
		return fmt.Errorf("read stdin: %w", err)
	}

	ok, err := a.client.VerifyWithPEM(string(message), strings.TrimSpace(signature), string(pemText))
	if err != nil {
		return err
	}
	if err := a.printJSON(map[string]bool{"valid": ok}); err != nil {
		return err
	}
	if !ok {
		return errSignatureMismatch
	}
	return nil
}

func (a *app) runFingerprint(cmd *cobra.Command, _ []string) error {
	keyFile, _ := cmd.Flags().GetString("key")

	var (
		pemText []byte
		err     error
	)
	if keyFile != "" {
		pemText, err = os.ReadFile(keyFile)
	} else {
		pemText, err = io.ReadAll(a.cfg.Stdin)
	}
	if err != nil {
		return fmt.Errorf("read public key: %w", err)
	}
	if !strings.Contains(string(pemText), "-----BEGIN") {
		return fmt.Errorf("%w: no PEM block", eerip.ErrInvalidKey)
	}

	_, err = fmt.Fprintln(a.cfg.Stdout, eerip.Fingerprint(string(pemText)))
	return err
}

func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.cfg.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// userError hides err behind its user-facing message. The full chain goes
// to the debug log and stays reachable through errors.Is.
func (a *app) userError(err error) error {
	if a.logger != nil {
		a.logger.Debug("command failed", "err", err)
	}
	return &collapsedError{msg: eerip.UserMessage(err), err: err}
}

type collapsedError struct {
	msg string
	err error
}

func (e *collapsedError) Error() string { return e.msg }
func (e *collapsedError) Unwrap() error { return e.err }

// storeKind returns the backend name of a key store DSN without its path.
func storeKind(dsn string) string {
	kind, _, _ := strings.Cut(dsn, ":")
	return kind
}
