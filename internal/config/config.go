// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gridfall Contributors

// Package config loads the Gridfall client configuration: defaults, then an
// optional YAML file, then command-line flags, highest precedence last.
package config

import (
	"fmt"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/gridfall/gridfall/internal/game"
)

// Config is the full client configuration.
type Config struct {
	Authority  Authority  `koanf:"authority" json:"authority"`
	Player     Player     `koanf:"player" json:"player"`
	Logging    Logging    `koanf:"logging" json:"logging"`
	Metrics    Metrics    `koanf:"metrics" json:"metrics"`
	Automation Automation `koanf:"automation" json:"automation,omitempty"`
}

// Authority configures the connection to the authoritative backend.
type Authority struct {
	URL                string        `koanf:"url" json:"url"`
	ProtocolConstraint string        `koanf:"protocol_constraint" json:"protocol_constraint"`
	DialTimeout        time.Duration `koanf:"dial_timeout" json:"dial_timeout,omitempty" jsonschema:"type=string"`
	MaxDialAttempts    uint64        `koanf:"max_dial_attempts" json:"max_dial_attempts,omitempty"`
}

// Player identifies the acting player and its session key.
type Player struct {
	Address string `koanf:"address" json:"address"`
	// SessionSeed is a hex-encoded 32-byte ed25519 seed. Empty generates an
	// ephemeral burner key at startup.
	SessionSeed string `koanf:"session_seed" json:"session_seed,omitempty"`
}

// Logging selects output format and level.
type Logging struct {
	Format string `koanf:"format" json:"format" jsonschema:"enum=json,enum=text"`
	Level  string `koanf:"level" json:"level" jsonschema:"enum=debug,enum=info,enum=warn,enum=error"`
}

// Metrics configures the observability HTTP server.
type Metrics struct {
	Addr string `koanf:"addr" json:"addr,omitempty"`
}

// Automation points at user macro scripts.
type Automation struct {
	ScriptDir string `koanf:"script_dir" json:"script_dir,omitempty"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Authority: Authority{
			URL:                "ws://localhost:7777/sync",
			ProtocolConstraint: ">= 1.0.0, < 2.0.0",
			DialTimeout:        10 * time.Second,
			MaxDialAttempts:    5,
		},
		Logging: Logging{Format: "text", Level: "info"},
		Metrics: Metrics{Addr: "localhost:9300"},
	}
}

// Load builds the configuration from defaults, the YAML file at path (when
// non-empty), and flags (when non-nil).
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	var cfg Config
	k := koanf.New(".")

	// Defaults go into koanf itself so that posflag can tell a flag left at
	// its zero default apart from a key that was never configured.
	d := Default()
	if err := k.Load(confmap.Provider(map[string]interface{}{
		"authority.url":                 d.Authority.URL,
		"authority.protocol_constraint": d.Authority.ProtocolConstraint,
		"authority.dial_timeout":        d.Authority.DialTimeout,
		"authority.max_dial_attempts":   d.Authority.MaxDialAttempts,
		"logging.format":                d.Logging.Format,
		"logging.level":                 d.Logging.Level,
		"metrics.addr":                  d.Metrics.Addr,
	}, "."), nil); err != nil {
		return Config{}, fmt.Errorf("loading defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}
	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return Config{}, fmt.Errorf("loading flags: %w", err)
		}
	}

	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints the schema cannot express.
func (c Config) Validate() error {
	if c.Authority.URL == "" {
		return fmt.Errorf("authority.url is required")
	}
	if c.Authority.ProtocolConstraint == "" {
		return fmt.Errorf("authority.protocol_constraint is required")
	}
	if c.Player.Address != "" && !game.ValidAddress(c.Player.Address) {
		return fmt.Errorf("player.address %q is not a valid address", c.Player.Address)
	}
	switch c.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("logging.format must be json or text, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}
