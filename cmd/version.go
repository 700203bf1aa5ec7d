// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cmd defines the ragchat command tree.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/jeranaias/ragchat-tui/internal/cli"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cli.ShowVersion(cmd.OutOrStdout(), jsonOutput)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
