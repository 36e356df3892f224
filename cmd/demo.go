// Copyright (c) 2025 RemoteSQL Authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"

	"remotesql/cli/internal/bridge/memory"
	"remotesql/cli/internal/dsn"
	"remotesql/cli/internal/metrics"
	"remotesql/cli/internal/remotequery"
	"remotesql/cli/internal/render"
	"remotesql/cli/internal/sqlexec"
	"remotesql/cli/internal/wire"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

const demoQuery = "SELECT id, name, email FROM people ORDER BY id"

var demoSeed = []string{
	"CREATE TABLE people (id INTEGER PRIMARY KEY, name TEXT NOT NULL, email TEXT)",
	"INSERT INTO people (name, email) VALUES ('Ann', 'ann@example.com'), ('Bob', NULL), ('Chen', 'chen@example.com')",
}

// demoCmd runs client and responder in one process over an in-memory network.
var demoCmd = &cobra.Command{
	Use:   "demo [SQL [ARG...]]",
	Short: "Run a query end to end without a relay",
	Long: `The demo command starts a responder backed by an in-memory SQLite database
and a client on an in-process network, then runs one query through the full
protocol. The database holds a table 'people' with columns id, name and email.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext(cmd.Context())
		defer stop()

		text := demoQuery
		if len(args) > 0 {
			text = args[0]
		}
		reg := prometheus.NewRegistry()
		table, err := runDemo(ctx, reg, text, parseArgs(tail(args)))
		defer printClientMetrics(reg)
		if errors.Is(err, remotequery.ErrNoResult) {
			pterm.Warning.Println("The responder did not answer; the query probably failed on SQLite.")
			return fmt.Errorf("no result for query")
		}
		if err != nil {
			return err
		}
		pterm.Info.Printf("%s\n\n", text)
		return render.Table(os.Stdout, table)
	},
}

func init() {
	rootCmd.AddCommand(demoCmd)
}

func tail(args []string) []string {
	if len(args) < 2 {
		return nil
	}
	return args[1:]
}

// printClientMetrics shows what the client collectors recorded during the demo.
func printClientMetrics(reg prometheus.Gatherer) {
	lines, err := metrics.Summary(reg, metrics.ClientPrefix)
	if err != nil || len(lines) == 0 {
		return
	}
	pterm.Println()
	pterm.DefaultSection.Println("Client metrics")
	for _, l := range lines {
		pterm.Println("  " + l)
	}
}

func runDemo(ctx context.Context, reg prometheus.Registerer, text string, qargs []sql.NullString) (*wire.Table, error) {
	db, err := sqlexec.OpenSQLite(dsn.MemoryDatabase)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	for _, stmt := range demoSeed {
		if err := db.Exec(ctx, stmt); err != nil {
			return nil, fmt.Errorf("seed demo database: %w", err)
		}
	}

	network := memory.NewNetwork()
	dbNode := network.Join("demo-responder")
	defer dbNode.Close(context.Background())
	clientNode := network.Join("demo-client")
	defer clientNode.Close(context.Background())

	r, err := remotequery.NewResponder(db, dbNode,
		remotequery.WithResponderPrefix(cfg.Query.Prefix),
		remotequery.WithResponderLogger(logger),
	)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	if err := r.Start(); err != nil {
		return nil, err
	}

	c := remotequery.NewClient(clientNode,
		remotequery.WithPrefix(cfg.Query.Prefix),
		remotequery.WithTimeout(cfg.Query.Timeout),
		remotequery.WithClientLogger(logger),
		remotequery.WithClientMetrics(metrics.NewClient(reg)),
	)
	defer c.Close()
	return c.Query(ctx, text, qargs...)
}
