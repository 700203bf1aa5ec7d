// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cmd defines the ragchat command tree.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/jeranaias/ragchat-tui/internal/app"
	"github.com/jeranaias/ragchat-tui/internal/cli"
)

var (
	offline   bool
	deleteYes bool
)

var conversationsCmd = &cobra.Command{
	Use:     "conversations",
	Aliases: []string{"conv", "c"},
	Short:   "List, show and delete conversations",
}

var conversationsListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List conversations, newest first",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if offline {
			c, err := loadedConfig()
			if err != nil {
				return err
			}
			return cli.ListCachedConversations(c, cmd.OutOrStdout(), jsonOutput)
		}
		return withApp(func(a *app.App) error {
			return cli.ListConversations(cmd.Context(), a, cmd.OutOrStdout(), jsonOutput)
		})
	},
}

var conversationsShowCmd = &cobra.Command{
	Use:   "show ID",
	Short: "Print the messages of a conversation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if offline {
			c, err := loadedConfig()
			if err != nil {
				return err
			}
			return cli.ShowCachedConversation(c, cmd.OutOrStdout(), args[0], jsonOutput)
		}
		return withApp(func(a *app.App) error {
			return cli.ShowConversation(cmd.Context(), a, cmd.OutOrStdout(), args[0], jsonOutput)
		})
	},
}

var conversationsDeleteCmd = &cobra.Command{
	Use:     "delete ID",
	Aliases: []string{"rm"},
	Short:   "Delete a conversation",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := cli.DeleteOptions{ID: args[0], Yes: deleteYes}
		if cli.IsTTY() {
			opts.In = cmd.InOrStdin()
		}
		return withApp(func(a *app.App) error {
			return cli.DeleteConversation(cmd.Context(), a, cmd.OutOrStdout(), opts)
		})
	},
}

func init() {
	conversationsCmd.PersistentFlags().BoolVar(&offline, "offline", false, "read the local cache instead of the server")
	conversationsDeleteCmd.Flags().BoolVarP(&deleteYes, "yes", "y", false, "delete without asking")

	conversationsCmd.AddCommand(conversationsListCmd, conversationsShowCmd, conversationsDeleteCmd)
	rootCmd.AddCommand(conversationsCmd)
}
