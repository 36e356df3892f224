// Copyright (c) 2025 RemoteSQL Authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"errors"
	"fmt"
	"strings"

	"remotesql/cli/internal/dsn"
	"remotesql/cli/internal/logging"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// dbinfoCmd shows which database 'respond' would use, with credentials masked.
var dbinfoCmd = &cobra.Command{
	Use:   "dbinfo",
	Short: "Show the database connection this node answers from",
	Long: `The dbinfo command displays the DSN 'remotesql respond' would use and where it
was found, with credentials masked.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, source, err := resolveDSN("")
		if errors.Is(err, errNoDSN) {
			pterm.Warning.Println("No database connection configured")
			pterm.Println("   Please run: remotesql connect")
			return nil
		}
		if err != nil {
			return err
		}

		pterm.Printf("Using DSN from %s\n\n", source)
		pterm.DefaultBox.
			WithTitle(pterm.NewStyle(pterm.FgCyan, pterm.Bold).Sprint("Database Connection")).
			WithPadding(1).
			Println(describeDSN(raw))
		pterm.Println()
		pterm.Println("To update this connection, run: remotesql connect")
		pterm.Println()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(dbinfoCmd)
}

// describeDSN renders the masked DSN together with its parsed location.
func describeDSN(raw string) string {
	masked := logging.Mask(raw)
	info, err := dsn.ParseInfo(raw)
	if err != nil {
		return masked
	}
	var b strings.Builder
	b.WriteString(masked)
	fmt.Fprintf(&b, "\n\nType:     %s", info.Type)
	fmt.Fprintf(&b, "\nLocation: %s", info.Location())
	if info.User != "" {
		fmt.Fprintf(&b, "\nUser:     %s", info.User)
	}
	return b.String()
}
