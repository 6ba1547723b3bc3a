// Command eerip-keytool creates, stores and uses eerip identities from the
// shell. Passwords come from --password or EERIP_PASSWORD; message text is
// read from stdin.
package main

import (
	"fmt"
	"io"
	"os"
)

// Config holds the process surroundings so tests can substitute them.
type Config struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	// Getenv looks up environment variables.
	Getenv func(string) string
}

// DefaultConfig returns a Config bound to the real process.
func DefaultConfig() *Config {
	return &Config{
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		Getenv: os.Getenv,
	}
}

// exitFunc is os.Exit, replaceable in tests.
var exitFunc = os.Exit

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	exitFunc(1)
}

func run(args []string, cfg *Config) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: eerip-keytool <command> [args]")
	}

	a := &app{cfg: cfg}
	defer a.close()

	root := a.rootCommand()
	root.SetArgs(args[1:])
	root.SetIn(cfg.Stdin)
	root.SetOut(cfg.Stdout)
	root.SetErr(cfg.Stderr)

	return root.Execute()
}
