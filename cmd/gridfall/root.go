// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gridfall Contributors

package main

import (
	"github.com/spf13/cobra"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the Gridfall CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gridfall",
		Short: "Gridfall - optimistic sync client core",
		Long: `Gridfall keeps a local reactive view of authoritative game state
responsive despite multi-second settlement latency: speculative overrides
give immediate feedback, the authority's state-sync stream remains the
source of truth.`,
	}

	// Global flag for config file path
	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")

	cmd.AddCommand(NewRunCmd())

	return cmd
}
