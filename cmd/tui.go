// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cmd defines the ragchat command tree.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jeranaias/ragchat-tui/internal/cli"
	"github.com/jeranaias/ragchat-tui/internal/logging"
	"github.com/jeranaias/ragchat-tui/internal/ui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Open the full-screen interface",
	Args:  cobra.NoArgs,
	RunE:  runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, args []string) error {
	c, err := loadedConfig()
	if err != nil {
		return err
	}
	if !cli.IsTTY() || !cli.IsStdoutTTY() {
		return fmt.Errorf("the interface needs a terminal; try 'ragchat ask' or 'ragchat --help'")
	}

	// The screen belongs to the interface, so logs go to a file.
	opts := logging.FromConfig(c, "")
	if verbose {
		opts.Level = "debug"
	}
	logger, err := logging.New(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		logger = logging.Nop()
	}
	defer logger.Sync()

	return ui.Run(cmd.Context(), c, cfgPath, logger)
}
