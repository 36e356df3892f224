// Copyright (c) 2025 RemoteSQL Authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"fmt"
	"net"

	"remotesql/cli/internal/bridge/relay"
	"remotesql/cli/internal/config"
	"remotesql/cli/internal/metrics"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var (
	relayListen    string
	relayQueueSize int
)

// relayCmd runs the hub every node attaches to.
var relayCmd = &cobra.Command{
	Use:   "relay",
	Short: "Run the relay hub that forwards messages between nodes",
	Long: `The relay command accepts node connections over gRPC, answers peer listings
and forwards messages between attached nodes until interrupted.

Example:
  remotesql relay --listen :7400 --metrics-addr :9400`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext(cmd.Context())
		defer stop()

		reg := newRegistry()
		srv := relay.NewServer(relay.Options{
			QueueSize: relayQueueSize,
			Logger:    logger,
			Metrics:   metrics.NewRelay(reg),
		})

		lis, err := net.Listen("tcp", relayListen)
		if err != nil {
			return fmt.Errorf("listen on %s: %w", relayListen, err)
		}
		startMetrics(ctx, reg)

		pterm.Success.Printf("Relay listening on %s\n", lis.Addr())
		logger.Info("relay started", logger.Args("address", lis.Addr().String(), "queue_size", relayQueueSize))
		if err := srv.Serve(ctx, lis); err != nil {
			return fmt.Errorf("relay stopped: %w", err)
		}
		logger.Info("relay stopped")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(relayCmd)
	relayCmd.Flags().StringVar(&relayListen, "listen", ":7400", "Address to accept node connections on")
	relayCmd.Flags().IntVar(&relayQueueSize, "queue-size", relay.DefaultQueueSize, "Per-node outbound queue length")
	relayCmd.Flags().String("metrics-addr", "", "Serve Prometheus metrics on this address")
	bindLocal(relayCmd, "metrics-addr", config.KeyMetricsAddress)
}
