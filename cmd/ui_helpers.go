// Copyright (c) 2025 RemoteSQL Authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"remotesql/cli/internal/bridge"
	"remotesql/cli/internal/logging"
	"remotesql/cli/internal/metrics"
	"remotesql/cli/internal/terminal"
	"remotesql/cli/internal/wire"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// NullArg is the command-line spelling of a SQL NULL argument.
const NullArg = `\N`

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// withSpinner runs fn while a spinner with text is shown.
func withSpinner(text string, fn func() error) error {
	stop := terminal.StartSpinner(text)
	defer stop()
	return fn()
}

// dialRelay connects to the configured relay, explaining failures to the user.
func dialRelay(ctx context.Context) (bridge.Bridge, error) {
	var b bridge.Bridge
	err := withSpinner("connecting to relay "+cfg.Relay.Address, func() error {
		var err error
		b, err = bridge.Dial(ctx, cfg.Relay.Address, cfg.NodeID, bridge.DialOptions{
			Insecure: cfg.Relay.Insecure,
			Logger:   logger,
		})
		return err
	})
	if err != nil {
		logging.PresentRelayError(cfg.Relay.Address, err)
		return nil, err
	}
	logger.Debug("connected to relay", logger.Args("relay", cfg.Relay.Address, "node_id", b.ID()))
	return b, nil
}

// closeBridge closes b with a short grace period.
func closeBridge(b bridge.Bridge) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := b.Close(ctx); err != nil {
		logger.Debug("bridge close failed", logger.Args("error", err.Error()))
	}
}

// parseArgs turns positional command-line arguments into query arguments.
// NullArg becomes SQL NULL, everything else binds as text.
func parseArgs(args []string) []sql.NullString {
	out := make([]sql.NullString, 0, len(args))
	for _, a := range args {
		if a == NullArg {
			out = append(out, wire.Null())
			continue
		}
		out = append(out, wire.String(a))
	}
	return out
}

// startMetrics serves reg on the configured metrics address until ctx ends.
// It does nothing when no address is configured.
func startMetrics(ctx context.Context, reg *prometheus.Registry) {
	addr := cfg.Metrics.Address
	if addr == "" {
		return
	}
	go func() {
		logger.Info("serving metrics", logger.Args("address", addr, "path", "/metrics"))
		if err := metrics.Serve(ctx, addr, reg); err != nil {
			logger.Error("metrics server stopped", logger.Args("error", err.Error()))
		}
	}()
}

// logClientMetrics writes the client collectors of reg to the debug log.
func logClientMetrics(reg prometheus.Gatherer) {
	lines, err := metrics.Summary(reg, metrics.ClientPrefix)
	if err != nil {
		logger.Debug("gather client metrics failed", logger.Args("error", err.Error()))
		return
	}
	for _, l := range lines {
		logger.Debug("client metric", logger.Args("sample", l))
	}
}

// newRegistry returns a registry with the Go and process collectors.
func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg
}
