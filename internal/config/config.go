// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

// Package config loads and validates service configuration. Values are
// merged from three layers, lowest precedence first: built-in defaults, an
// optional YAML config file, environment variables (GATEHOUSE_ prefix), and
// command-line flags.
package config

import (
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
)

// Defaults.
const (
	DefaultHTTPAddr      = ":8080"
	DefaultMetricsAddr   = "127.0.0.1:9100"
	DefaultPowDifficulty = 16
	DefaultPowTTLSeconds = 120
	DefaultLogFormat     = "json"
)

// Config is the full service configuration.
type Config struct {
	HTTP     HTTPConfig     `koanf:"http" json:"http,omitempty"`
	Metrics  MetricsConfig  `koanf:"metrics" json:"metrics,omitempty"`
	Database DatabaseConfig `koanf:"database" json:"database,omitempty"`
	Pow      PowConfig      `koanf:"pow" json:"pow,omitempty"`
	Log      LogConfig      `koanf:"log" json:"log,omitempty"`
	Filters  FiltersConfig  `koanf:"filters" json:"filters,omitempty"`
}

// HTTPConfig configures the public API server.
type HTTPConfig struct {
	Addr string `koanf:"addr" json:"addr,omitempty"`
}

// MetricsConfig configures the observability server. An empty address
// disables it.
type MetricsConfig struct {
	Addr string `koanf:"addr" json:"addr,omitempty"`
}

// DatabaseConfig configures the PostgreSQL connection.
type DatabaseConfig struct {
	URL string `koanf:"url" json:"url,omitempty"`
}

// PowConfig configures the proof-of-work challenge gate.
type PowConfig struct {
	// Difficulty is the required number of leading zero bits.
	Difficulty int `koanf:"difficulty" json:"difficulty,omitempty"`

	// TTLSeconds is how long an issued challenge stays verifiable, in
	// seconds. Named "ttl" in config so environment mapping stays flat
	// (GATEHOUSE_POW_TTL).
	TTLSeconds int `koanf:"ttl" json:"ttl,omitempty"`
}

// LogConfig configures logging output.
type LogConfig struct {
	Format string `koanf:"format" json:"format,omitempty"`
}

// FiltersConfig supplies extra username filter patterns on top of the
// built-in tables. Patterns use glob syntax.
type FiltersConfig struct {
	Blacklist []string `koanf:"blacklist" json:"blacklist,omitempty"`
	Profanity []string `koanf:"profanity" json:"profanity,omitempty"`
}

// Validate checks invariants the schema cannot express relative to runtime
// use (required fields whose absence only matters for serve).
func (c *Config) Validate() error {
	if c.HTTP.Addr == "" {
		return oops.Code("CONFIG_INVALID").Errorf("http.addr is required")
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return oops.Code("CONFIG_INVALID").
			With("format", c.Log.Format).
			Errorf("log.format must be 'json' or 'text'")
	}
	if c.Pow.Difficulty <= 0 || c.Pow.Difficulty > 256 {
		return oops.Code("CONFIG_INVALID").
			With("difficulty", c.Pow.Difficulty).
			Errorf("pow.difficulty must be between 1 and 256")
	}
	if c.Pow.TTLSeconds <= 0 {
		return oops.Code("CONFIG_INVALID").
			With("ttl", c.Pow.TTLSeconds).
			Errorf("pow.ttl must be positive")
	}
	return nil
}

// defaults returns the built-in configuration.
func defaults() *Config {
	return &Config{
		HTTP:    HTTPConfig{Addr: DefaultHTTPAddr},
		Metrics: MetricsConfig{Addr: DefaultMetricsAddr},
		Pow: PowConfig{
			Difficulty: DefaultPowDifficulty,
			TTLSeconds: DefaultPowTTLSeconds,
		},
		Log: LogConfig{Format: DefaultLogFormat},
	}
}

// Load builds the configuration from defaults, an optional YAML file,
// environment, and flags. path may be empty; flags may be nil.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	cfg := defaults()

	if path != "" {
		raw, err := os.ReadFile(path) //nolint:gosec // operator-supplied config path
		if err != nil {
			return nil, oops.Code("CONFIG_READ_FAILED").With("path", path).Wrap(err)
		}
		if err := ValidateSchema(raw); err != nil {
			return nil, oops.Code("CONFIG_SCHEMA_INVALID").With("path", path).Wrap(err)
		}
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("path", path).Wrap(err)
		}
	}

	// GATEHOUSE_DATABASE_URL -> database.url, etc.
	if err := k.Load(env.Provider("GATEHOUSE_", ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, "GATEHOUSE_")), "_", ".")
	}), nil); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "env").Wrap(err)
	}

	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "flags").Wrap(err)
		}
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, oops.Code("CONFIG_UNMARSHAL_FAILED").Wrap(err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
