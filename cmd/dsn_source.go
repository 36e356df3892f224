// Copyright (c) 2025 RemoteSQL Authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"remotesql/cli/internal/keychain"
)

// Environment variables consulted for the responder DSN, in order.
const (
	EnvDSN         = "REMOTESQL_DSN"
	EnvDatabaseURL = "DATABASE_URL"
)

// errNoDSN reports that no DSN source produced a value.
var errNoDSN = errors.New("no database configured: pass --dsn, set REMOTESQL_DSN or DATABASE_URL, or run 'remotesql connect'")

// resolveDSN picks the responder DSN: flag, REMOTESQL_DSN, DATABASE_URL, then the
// OS keychain. It returns the DSN and a description of where it came from.
func resolveDSN(flagValue string) (value, source string, err error) {
	if v := strings.TrimSpace(flagValue); v != "" {
		return v, "--dsn flag", nil
	}
	for _, env := range []string{EnvDSN, EnvDatabaseURL} {
		if v := strings.TrimSpace(os.Getenv(env)); v != "" {
			return v, env + " environment variable", nil
		}
	}
	km, err := keychain.GetManager()
	if err != nil {
		return "", "", fmt.Errorf("%w (secure storage unavailable: %v)", errNoDSN, err)
	}
	v, err := km.LoadDBDSN()
	if errors.Is(err, keychain.ErrNotFound) {
		return "", "", errNoDSN
	}
	if err != nil {
		return "", "", fmt.Errorf("read keychain: %w", err)
	}
	return v, "OS keychain", nil
}
