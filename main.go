// Copyright (c) 2025 RemoteSQL Authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package main is the entry point for the remotesql CLI.
// It runs SQL queries on remote peers through a relay.
package main

import (
	"remotesql/cli/cmd"
)

func main() {
	cmd.Execute()
}
