// Copyright (c) 2025 RemoteSQL Authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package cmd provides the command-line interface for remotesql.
// It wires the relay hub, the query responder and the query client to cobra
// subcommands, layering settings from the config file, REMOTESQL_* environment
// variables and flags.
package cmd

import (
	"fmt"
	"os"

	"remotesql/cli/internal/config"
	"remotesql/cli/internal/logging"
	"remotesql/cli/internal/remotequery"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var (
	showVersion bool
	configPath  string

	// cfg and logger are populated by the root PersistentPreRunE.
	cfg    config.Config
	logger = logging.Discard()
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "remotesql",
	Short: "Run SQL queries on whichever peer holds the database",
	Long: `remotesql broadcasts a SQL query over a relay to every connected node and
prints the first table that comes back. Nodes started with 'remotesql respond'
answer queries against their local PostgreSQL or SQLite database.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	RunE: func(cmd *cobra.Command, args []string) error {
		if showVersion {
			fmt.Println(versionString())
			return nil
		}
		return cmd.Help()
	},
}

// Execute runs the CLI application and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		pterm.Error.Println(logging.Mask(err.Error()))
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().BoolVar(&showVersion, "version", false, "Show CLI version information")

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "Config file (default $XDG_CONFIG_HOME/remotesql/config.json)")
	pf.String("log-level", "info", "Log level: trace, debug, info, warn, error")
	pf.String("log-format", logging.FormatText, "Log format: text or json")
	pf.String("node-id", "", "Node id on the relay (default: random)")
	pf.String("relay", "localhost:7400", "Relay address host[:port]")
	pf.Bool("insecure", true, "Connect to the relay without TLS")
	pf.String("prefix", remotequery.DefaultPrefix, "Routing key prefix of the query protocol")
}

// persistentBindings maps root flags to config keys.
var persistentBindings = map[string]string{
	"log-level":  config.KeyLogLevel,
	"log-format": config.KeyLogFormat,
	"node-id":    config.KeyNodeID,
	"relay":      config.KeyRelayAddress,
	"insecure":   config.KeyRelayInsecure,
	"prefix":     config.KeyQueryPrefix,
}

// setup resolves the configuration and builds the logger before any subcommand runs.
func setup(cmd *cobra.Command, args []string) error {
	path := configPath
	if path == "" {
		p, err := config.DefaultPath()
		if err != nil {
			return fmt.Errorf("locate config: %w", err)
		}
		path = p
	}
	loader := config.NewLoader(path)
	for name, key := range persistentBindings {
		if err := loader.BindFlag(key, cmd.Flags().Lookup(name)); err != nil {
			return err
		}
	}
	for name, key := range localBindings[cmd.Name()] {
		if err := loader.BindFlag(key, cmd.Flags().Lookup(name)); err != nil {
			return err
		}
	}

	c, err := loader.Load()
	if err != nil {
		return err
	}
	l, err := logging.New(c.LogLevel, c.LogFormat, os.Stderr)
	if err != nil {
		return err
	}
	cfg, logger = c, l
	logger.Debug("configuration loaded", logger.Args("config", path, "node_id", cfg.NodeID, "relay", cfg.Relay.Address))
	return nil
}

// localBindings maps subcommand flags to config keys, by command name.
var localBindings = map[string]map[string]string{}

func bindLocal(cmd *cobra.Command, flag, key string) {
	if localBindings[cmd.Name()] == nil {
		localBindings[cmd.Name()] = map[string]string{}
	}
	localBindings[cmd.Name()][flag] = key
}
