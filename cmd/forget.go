// Copyright (c) 2025 RemoteSQL Authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"remotesql/cli/internal/keychain"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// forgetCmd removes the stored responder DSN.
var forgetCmd = &cobra.Command{
	Use:   "forget",
	Short: "Remove the database connection saved by 'connect'",
	Long: `The forget command deletes the DSN stored in the OS keychain. Environment
variables and flags are not affected.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		km, err := keychain.GetManager()
		if err != nil {
			pterm.Error.Println("Secure storage is not available on this system.")
			return err
		}
		if err := km.ClearDB(); err != nil {
			return err
		}
		pterm.Success.Println("Saved database connection removed")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(forgetCmd)
}
