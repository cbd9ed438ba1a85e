// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gridfall Contributors

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gridfall.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	t.Run("defaults apply without file or flags", func(t *testing.T) {
		cfg, err := Load("", nil)
		require.NoError(t, err)
		assert.Equal(t, "ws://localhost:7777/sync", cfg.Authority.URL)
		assert.Equal(t, 10*time.Second, cfg.Authority.DialTimeout)
		assert.Equal(t, "text", cfg.Logging.Format)
	})

	t.Run("file overrides defaults", func(t *testing.T) {
		path := writeConfig(t, `
authority:
  url: wss://play.gridfall.dev/sync
logging:
  format: json
player:
  address: "0x00112233445566778899aabbccddeeff00112233"
`)
		cfg, err := Load(path, nil)
		require.NoError(t, err)
		assert.Equal(t, "wss://play.gridfall.dev/sync", cfg.Authority.URL)
		assert.Equal(t, "json", cfg.Logging.Format)
		// Untouched keys keep their defaults.
		assert.Equal(t, ">= 1.0.0, < 2.0.0", cfg.Authority.ProtocolConstraint)
	})

	t.Run("flags override file", func(t *testing.T) {
		path := writeConfig(t, "logging:\n  level: debug\n")
		flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
		flags.String("logging.level", "info", "")
		require.NoError(t, flags.Parse([]string{"--logging.level=warn"}))

		cfg, err := Load(path, flags)
		require.NoError(t, err)
		assert.Equal(t, "warn", cfg.Logging.Level)
	})

	t.Run("unset flags do not clobber defaults", func(t *testing.T) {
		flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
		flags.String("authority.url", "", "")
		flags.String("player.address", "", "")
		require.NoError(t, flags.Parse(nil))

		cfg, err := Load("", flags)
		require.NoError(t, err)
		assert.Equal(t, "ws://localhost:7777/sync", cfg.Authority.URL)
		assert.Empty(t, cfg.Player.Address)
	})

	t.Run("invalid player address rejected", func(t *testing.T) {
		path := writeConfig(t, "player:\n  address: nope\n")
		_, err := Load(path, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "player.address")
	})

	t.Run("invalid logging format rejected", func(t *testing.T) {
		path := writeConfig(t, "logging:\n  format: xml\n")
		_, err := Load(path, nil)
		require.Error(t, err)
	})

	t.Run("missing file is an error", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), nil)
		require.Error(t, err)
	})
}

func TestSchema(t *testing.T) {
	t.Run("generated schema is valid JSON with id", func(t *testing.T) {
		data, err := GenerateSchema()
		require.NoError(t, err)
		assert.Contains(t, string(data), SchemaID)
	})

	t.Run("valid config passes schema validation", func(t *testing.T) {
		err := ValidateSchema([]byte(`
authority:
  url: ws://localhost:7777/sync
  protocol_constraint: ">= 1.0.0"
logging:
  format: json
  level: info
player:
  address: "0x00112233445566778899aabbccddeeff00112233"
metrics:
  addr: localhost:9300
`))
		assert.NoError(t, err)
	})

	t.Run("wrong type fails schema validation", func(t *testing.T) {
		err := ValidateSchema([]byte("authority:\n  url: 42\n"))
		require.Error(t, err)
	})

	t.Run("empty data rejected", func(t *testing.T) {
		require.Error(t, ValidateSchema(nil))
	})
}
