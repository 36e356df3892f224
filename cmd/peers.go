// Copyright (c) 2025 RemoteSQL Authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"os"

	"remotesql/cli/internal/render"

	"github.com/spf13/cobra"
)

// peersCmd lists the nodes a query would be broadcast to.
var peersCmd = &cobra.Command{
	Use:   "peers",
	Short: "List nodes reachable through the relay",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext(cmd.Context())
		defer stop()

		b, err := dialRelay(ctx)
		if err != nil {
			return err
		}
		defer closeBridge(b)

		peers, err := b.Peers(ctx)
		if err != nil {
			return err
		}
		return render.Peers(os.Stdout, b.ID(), peers)
	},
}

func init() {
	rootCmd.AddCommand(peersCmd)
}
