// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gridfall Contributors

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/gridfall/gridfall/internal/authority"
	"github.com/gridfall/gridfall/internal/automation"
	"github.com/gridfall/gridfall/internal/config"
	"github.com/gridfall/gridfall/internal/ecs"
	"github.com/gridfall/gridfall/internal/game"
	"github.com/gridfall/gridfall/internal/logging"
	"github.com/gridfall/gridfall/internal/observability"
	"github.com/gridfall/gridfall/internal/signer"
	gfsyscall "github.com/gridfall/gridfall/internal/syscall"
)

// NewRunCmd creates the run subcommand.
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Connect to the authority and run the client core",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configFile, cmd.Flags())
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	flags := cmd.Flags()
	flags.String("authority.url", "", "authority websocket endpoint")
	flags.String("player.address", "", "acting player address")
	flags.String("logging.format", "", "log format (json or text)")
	flags.String("logging.level", "", "log level")
	flags.String("metrics.addr", "", "observability listen address")
	flags.String("automation.script_dir", "", "directory of Lua macro scripts")

	return cmd
}

func run(ctx context.Context, cfg config.Config) error {
	logging.SetDefault("gridfall", version, cfg.Logging.Format, cfg.Logging.Level)
	log := slog.Default()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := ecs.NewStore()
	comp := game.NewComponents(store)
	applier := game.NewApplier(comp, log)

	// Ready once the handshake is done and the first commit has landed.
	var synced atomic.Bool
	var connected atomic.Bool
	onCommit := func(table string, entity ecs.Entity, value json.RawMessage) {
		if err := applier.Apply(table, entity, value); err != nil {
			log.Warn("dropping unappliable commit", "table", table, "entity", entity, "error", err)
			return
		}
		synced.Store(true)
	}

	obs, err := observability.NewServer(cfg.Metrics.Addr,
		func() bool { return connected.Load() && synced.Load() },
		game.RegisterMetrics,
		authority.RegisterMetrics,
		gfsyscall.RegisterMetrics,
	)
	if err != nil {
		return err
	}
	obsErr, err := obs.Start()
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = obs.Stop(shutdownCtx)
	}()

	client, err := authority.Dial(ctx, authority.WSConfig{
		URL:                cfg.Authority.URL,
		ProtocolConstraint: cfg.Authority.ProtocolConstraint,
		DialTimeout:        cfg.Authority.DialTimeout,
		MaxDialAttempts:    cfg.Authority.MaxDialAttempts,
	}, onCommit, log)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()
	connected.Store(true)

	sgn, err := sessionSigner(cfg.Player.SessionSeed)
	if err != nil {
		return err
	}
	log.Info("session key ready", "burner_address", sgn.BurnerAddress())

	caller := gfsyscall.New(comp, client, sgn, cfg.Player.Address, log)

	if cfg.Automation.ScriptDir != "" {
		if err := runMacros(ctx, caller, comp, cfg.Automation.ScriptDir, log); err != nil {
			return err
		}
	}

	log.Info("client core running", "player", cfg.Player.Address)
	select {
	case <-ctx.Done():
		log.Info("shutting down")
		return nil
	case err := <-obsErr:
		if err != nil {
			return fmt.Errorf("observability server failed: %w", err)
		}
		return nil
	}
}

func sessionSigner(seedHex string) (*signer.Signer, error) {
	if seedHex == "" {
		return signer.Generate()
	}
	return signer.FromSeedHex(seedHex)
}

// runMacros executes every .lua script in dir, lexicographic order.
func runMacros(ctx context.Context, caller *gfsyscall.Caller, comp *game.Components, dir string, log *slog.Logger) error {
	scripts, err := filepath.Glob(filepath.Join(dir, "*.lua"))
	if err != nil {
		return fmt.Errorf("listing macro scripts: %w", err)
	}
	sort.Strings(scripts)

	engine := automation.New(caller, comp, log)
	for _, script := range scripts {
		log.Info("running macro", "script", script)
		if err := engine.RunFile(ctx, script); err != nil {
			log.Warn("macro failed", "script", script, "error", err)
		}
	}
	return nil
}
