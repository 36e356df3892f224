// Copyright (c) 2025 RemoteSQL Authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import "fmt"

var (
	// Version and Commit are set at build time using -ldflags, e.g.
	// -X remotesql/cli/cmd.Version=1.2.0 -X remotesql/cli/cmd.Commit=abc123.
	Version = "0.0.0-dev"
	Commit  = ""
)

// versionString renders the version line printed by --version.
func versionString() string {
	if Commit == "" {
		return "remotesql " + Version
	}
	return fmt.Sprintf("remotesql %s (%s)", Version, Commit)
}
