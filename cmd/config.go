// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cmd defines the ragchat command tree.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jeranaias/ragchat-tui/internal/cli"
)

var initForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show and change the configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadedConfig()
		if err != nil {
			return err
		}
		return cli.ShowConfig(c, cmd.OutOrStdout(), jsonOutput)
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfgPath == "" {
			return fmt.Errorf("cannot determine config path: %w", cfgErr)
		}
		return cli.InitConfig(cmd.OutOrStdout(), cfgPath, initForce)
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get KEY",
	Short: "Print one setting, e.g. chat.model",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadedConfig()
		if err != nil {
			return err
		}
		return cli.GetConfig(c, cmd.OutOrStdout(), args[0])
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set KEY VALUE",
	Short: "Change one setting and save the config file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadedConfig()
		if err != nil {
			return err
		}
		return cli.SetConfig(c, cmd.OutOrStdout(), cfgPath, args[0], args[1])
	},
}

var configKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List every settable key",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cli.ListConfigKeys(cmd.OutOrStdout())
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file path",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), cfgPath)
	},
}

func init() {
	configInitCmd.Flags().BoolVarP(&initForce, "force", "f", false, "overwrite an existing file")

	configCmd.AddCommand(configShowCmd, configInitCmd, configGetCmd, configSetCmd, configKeysCmd, configPathCmd)
	rootCmd.AddCommand(configCmd)
}
