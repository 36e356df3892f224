// Copyright (c) 2025 RemoteSQL Authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package config loads CLI configuration with viper. Values are layered:
// built-in defaults, then the JSON file in the XDG config dir, then REMOTESQL_*
// environment variables, then any bound command flags. Secrets are not kept
// here; the responder DSN lives in the OS keychain.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"remotesql/cli/internal/xdg"

	"github.com/google/uuid"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. REMOTESQL_RELAY_ADDRESS.
const EnvPrefix = "REMOTESQL"

// Keys.
const (
	KeyLogLevel             = "log_level"
	KeyLogFormat            = "log_format"
	KeyNodeID               = "node_id"
	KeyRelayAddress         = "relay.address"
	KeyRelayInsecure        = "relay.insecure"
	KeyQueryPrefix          = "query.prefix"
	KeyQueryTimeout         = "query.timeout"
	KeyResponderConcurrency = "responder.concurrency"
	KeyResponderExecTimeout = "responder.exec_timeout"
	KeyMetricsAddress       = "metrics.address"
)

// Config holds non-sensitive CLI settings.
type Config struct {
	LogLevel  string          `mapstructure:"log_level"`
	LogFormat string          `mapstructure:"log_format"`
	NodeID    string          `mapstructure:"node_id"`
	Relay     RelayConfig     `mapstructure:"relay"`
	Query     QueryConfig     `mapstructure:"query"`
	Responder ResponderConfig `mapstructure:"responder"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

// RelayConfig locates the relay hub.
type RelayConfig struct {
	Address  string `mapstructure:"address"`
	Insecure bool   `mapstructure:"insecure"`
}

// QueryConfig tunes the remote query client.
type QueryConfig struct {
	Prefix  string        `mapstructure:"prefix"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// ResponderConfig tunes the query responder.
type ResponderConfig struct {
	Concurrency int           `mapstructure:"concurrency"`
	ExecTimeout time.Duration `mapstructure:"exec_timeout"`
}

// MetricsConfig enables the /metrics endpoint when Address is set.
type MetricsConfig struct {
	Address string `mapstructure:"address"`
}

var defaults = map[string]any{
	KeyLogLevel:             "info",
	KeyLogFormat:            "text",
	KeyNodeID:               "",
	KeyRelayAddress:         "localhost:7400",
	KeyRelayInsecure:        true,
	KeyQueryPrefix:          "/remotesql/query",
	KeyQueryTimeout:         10 * time.Second,
	KeyResponderConcurrency: 4,
	KeyResponderExecTimeout: 10 * time.Second,
	KeyMetricsAddress:       "",
}

// DefaultPath returns the config file location in the XDG config dir.
func DefaultPath() (string, error) {
	dir, err := xdg.ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Loader reads one config file plus environment and flag overrides.
type Loader struct {
	v    *viper.Viper
	path string
}

// NewLoader prepares a loader for the JSON file at path. An empty path skips the file.
func NewLoader(path string) *Loader {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return &Loader{v: v, path: path}
}

// BindFlag lets f override key when the flag is set on the command line.
func (l *Loader) BindFlag(key string, f *pflag.Flag) error {
	if f == nil {
		return fmt.Errorf("config: no flag to bind for %s", key)
	}
	return l.v.BindPFlag(key, f)
}

// Load resolves the configuration. A missing file yields defaults.
// An empty node id is replaced by a random one.
func (l *Loader) Load() (Config, error) {
	var c Config
	if l.path != "" {
		l.v.SetConfigFile(l.path)
		l.v.SetConfigType("json")
		if err := l.v.ReadInConfig(); err != nil && !isNotExist(err) {
			return c, fmt.Errorf("read config %s: %w", l.path, err)
		}
	}
	if err := l.v.Unmarshal(&c); err != nil {
		return c, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if c.NodeID == "" {
		c.NodeID = uuid.NewString()
	}
	if c.Responder.Concurrency < 1 {
		c.Responder.Concurrency = 1
	}
	return c, nil
}

func isNotExist(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist)
}

// Load reads the default config file with environment overrides.
func Load() (Config, error) {
	p, err := DefaultPath()
	if err != nil {
		return Config{}, err
	}
	return NewLoader(p).Load()
}

// Save writes c to path as JSON with 0600 permissions.
func Save(path string, c Config) error {
	v := viper.New()
	v.Set(KeyLogLevel, c.LogLevel)
	v.Set(KeyLogFormat, c.LogFormat)
	v.Set(KeyNodeID, c.NodeID)
	v.Set(KeyRelayAddress, c.Relay.Address)
	v.Set(KeyRelayInsecure, c.Relay.Insecure)
	v.Set(KeyQueryPrefix, c.Query.Prefix)
	v.Set(KeyQueryTimeout, c.Query.Timeout.String())
	v.Set(KeyResponderConcurrency, c.Responder.Concurrency)
	v.Set(KeyResponderExecTimeout, c.Responder.ExecTimeout.String())
	v.Set(KeyMetricsAddress, c.Metrics.Address)
	if err := v.WriteConfigAs(path); err != nil {
		return err
	}
	return os.Chmod(path, 0o600)
}
