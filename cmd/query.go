// Copyright (c) 2025 RemoteSQL Authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"errors"
	"fmt"
	"os"

	"remotesql/cli/internal/config"
	"remotesql/cli/internal/metrics"
	"remotesql/cli/internal/remotequery"
	"remotesql/cli/internal/render"
	"remotesql/cli/internal/wire"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var queryOutput string

// queryCmd runs one query on whichever responder answers first.
var queryCmd = &cobra.Command{
	Use:   "query SQL [ARG...]",
	Short: "Run a SQL query on a remote responder",
	Long: `The query command broadcasts SQL with positional arguments to every node on
the relay and prints the first result table that comes back.

Arguments bind as text in order ($1, $2 for PostgreSQL, ? for SQLite).
Pass \N for a NULL argument.

Examples:
  remotesql query 'SELECT id, name FROM users WHERE id = $1' 42
  remotesql query -o json 'SELECT * FROM events WHERE note IS NOT DISTINCT FROM $1' '\N'`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext(cmd.Context())
		defer stop()

		b, err := dialRelay(ctx)
		if err != nil {
			return err
		}
		defer closeBridge(b)

		reg := newRegistry()
		c := remotequery.NewClient(b,
			remotequery.WithPrefix(cfg.Query.Prefix),
			remotequery.WithTimeout(cfg.Query.Timeout),
			remotequery.WithClientLogger(logger),
			remotequery.WithClientMetrics(metrics.NewClient(reg)),
		)
		defer c.Close()
		startMetrics(ctx, reg)
		defer logClientMetrics(reg)

		var table *wire.Table
		err = withSpinner("waiting for an answer", func() error {
			table, err = c.Query(ctx, args[0], parseArgs(args[1:])...)
			return err
		})
		if errors.Is(err, remotequery.ErrNoResult) {
			pterm.Warning.Printf("No peer answered within %s.\n", cfg.Query.Timeout)
			pterm.Println("   Check that a responder is running with 'remotesql peers', or that the query is valid on its database.")
			return fmt.Errorf("no result for query")
		}
		if err != nil {
			return err
		}
		return render.Result(os.Stdout, queryOutput, table)
	},
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.Flags().Duration("timeout", remotequery.DefaultTimeout, "How long to wait for an answer")
	queryCmd.Flags().StringVarP(&queryOutput, "output", "o", render.FormatTable, "Output format: table or json")
	queryCmd.Flags().String("metrics-addr", "", "Serve Prometheus metrics on this address while the query runs")
	bindLocal(queryCmd, "timeout", config.KeyQueryTimeout)
	bindLocal(queryCmd, "metrics-addr", config.KeyMetricsAddress)
}
