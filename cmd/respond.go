// Copyright (c) 2025 RemoteSQL Authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"context"
	"time"

	"remotesql/cli/internal/config"
	"remotesql/cli/internal/dsn"
	"remotesql/cli/internal/logging"
	"remotesql/cli/internal/metrics"
	"remotesql/cli/internal/remotequery"
	"remotesql/cli/internal/sqlexec"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var respondDSN string

// respondCmd answers queries from other nodes against the local database.
var respondCmd = &cobra.Command{
	Use:   "respond",
	Short: "Answer remote queries against a local database",
	Long: `The respond command opens the local database, attaches to the relay and runs
every query it receives, broadcasting the result table back. Failing queries
are not answered; the asking node sees no result.

The database is taken from --dsn, REMOTESQL_DSN, DATABASE_URL or the OS
keychain (see 'remotesql connect'), in that order.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext(cmd.Context())
		defer stop()

		raw, source, err := resolveDSN(respondDSN)
		if err != nil {
			return err
		}
		info, err := dsn.ParseInfo(raw)
		if err != nil {
			return err
		}
		logger.Info("using database", logger.Args("source", source, "type", string(info.Type), "location", info.Location()))

		var db sqlexec.Database
		err = withSpinner("opening database", func() error {
			openCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			db, err = sqlexec.Open(openCtx, raw)
			return err
		})
		if err != nil {
			pterm.Error.Println(logging.PresentError("Database unavailable", err))
			return err
		}
		defer db.Close()

		b, err := dialRelay(ctx)
		if err != nil {
			return err
		}
		defer closeBridge(b)

		reg := newRegistry()
		r, err := remotequery.NewResponder(db, b,
			remotequery.WithResponderPrefix(cfg.Query.Prefix),
			remotequery.WithConcurrency(cfg.Responder.Concurrency),
			remotequery.WithExecTimeout(cfg.Responder.ExecTimeout),
			remotequery.WithResponderLogger(logger),
			remotequery.WithResponderMetrics(metrics.NewResponder(reg)),
		)
		if err != nil {
			return err
		}
		defer r.Close()
		if err := r.Start(); err != nil {
			return err
		}
		startMetrics(ctx, reg)

		pterm.Success.Printf("Answering queries on %s as %s (%s)\n", cfg.Query.Prefix, b.ID(), info.Location())
		<-ctx.Done()
		logger.Info("shutting down responder")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(respondCmd)
	f := respondCmd.Flags()
	f.StringVar(&respondDSN, "dsn", "", "Database DSN (postgres://... or a SQLite file)")
	f.Int("concurrency", remotequery.DefaultConcurrency, "Queries executed at once; extra requests are dropped")
	f.Duration("exec-timeout", remotequery.DefaultExecTimeout, "Deadline for one query execution")
	f.String("metrics-addr", "", "Serve Prometheus metrics on this address")
	bindLocal(respondCmd, "concurrency", config.KeyResponderConcurrency)
	bindLocal(respondCmd, "exec-timeout", config.KeyResponderExecTimeout)
	bindLocal(respondCmd, "metrics-addr", config.KeyMetricsAddress)
}
