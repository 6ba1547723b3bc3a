package main

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variables read by the tool.
const (
	envKeyStore         = "EERIP_KEYSTORE"
	envLogLevel         = "EERIP_LOG_LEVEL"
	envKDFIterations    = "EERIP_KDF_ITERATIONS"
	envAuthenticatedBox = "EERIP_AUTHENTICATED_BOX"
	envPassword         = "EERIP_PASSWORD"
)

// settings is the resolved configuration. Flags win over the environment,
// which wins over the .env file.
type settings struct {
	keyStore         string
	logLevel         string
	password         string
	kdfIterations    int
	authenticatedBox bool
}

// lookup returns a variable from the process environment, falling back to
// the values read from the .env file.
type lookup func(string) string

func newLookup(getenv func(string) string, envFile string) (lookup, error) {
	fileVars := map[string]string{}
	if envFile != "" {
		vars, err := godotenv.Read(envFile)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read %s: %w", envFile, err)
		default:
			fileVars = vars
		}
	}

	return func(key string) string {
		if getenv != nil {
			if v := getenv(key); v != "" {
				return v
			}
		}
		return fileVars[key]
	}, nil
}

func loadSettings(env lookup) (settings, error) {
	s := settings{
		keyStore: env(envKeyStore),
		logLevel: env(envLogLevel),
		password: env(envPassword),
	}
	if s.keyStore == "" {
		s.keyStore = "memory"
	}
	if s.logLevel == "" {
		s.logLevel = "warn"
	}

	if v := strings.TrimSpace(env(envKDFIterations)); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return settings{}, fmt.Errorf("%s: %w", envKDFIterations, err)
		}
		s.kdfIterations = n
	}

	if v := strings.TrimSpace(env(envAuthenticatedBox)); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return settings{}, fmt.Errorf("%s: %w", envAuthenticatedBox, err)
		}
		s.authenticatedBox = b
	}

	return s, nil
}
