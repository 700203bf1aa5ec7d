// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cmd defines the ragchat command tree.
package cmd

import (
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/ragchat-tui/internal/app"
	"github.com/jeranaias/ragchat-tui/internal/cli"
)

var (
	chatConversation string
	chatModel        string
	chatTag          string
	chatUseTool      bool
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat line by line in the terminal",
	Long: `Start an interactive chat with input history and slash commands.
Type /help inside the session for the list of commands.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app.App) error {
			applyChatFlags(cmd, a)
			return cli.RunChat(cmd.Context(), a, cmd.OutOrStdout(), chatConversation)
		})
	},
}

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask one question and stream the answer",
	Long: `Ask one question and print the answer as it streams.
With no arguments the question is read from stdin.`,
	Example: `  ragchat ask "what does the deploy script do?"
  ragchat ask --tag 12 --conversation 42 "and the rollback?"
  git diff | ragchat ask --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		question := strings.Join(args, " ")
		if question == "" {
			b, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return err
			}
			question = string(b)
		}
		return withApp(func(a *app.App) error {
			applyChatFlags(cmd, a)
			return cli.Ask(cmd.Context(), a, cmd.OutOrStdout(), cli.AskOptions{
				Question:     question,
				Conversation: chatConversation,
				JSON:         jsonOutput,
			})
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{chatCmd, askCmd} {
		flags := c.Flags()
		flags.StringVar(&chatConversation, "conversation", "", "continue the conversation with this id")
		flags.StringVarP(&chatModel, "model", "m", "", "model name (default from config)")
		flags.StringVarP(&chatTag, "tag", "t", "", "knowledge tag id to retrieve from; 'none' turns retrieval off")
		flags.BoolVar(&chatUseTool, "use-tool", false, "let the model call tools")
		rootCmd.AddCommand(c)
	}
}

// applyChatFlags overrides the configured generation options with the
// flags the user actually set.
func applyChatFlags(cmd *cobra.Command, a *app.App) {
	flags := cmd.Flags()
	if flags.Changed("model") {
		a.Chat.SetModel(chatModel)
	}
	if flags.Changed("tag") {
		tag := chatTag
		if strings.EqualFold(tag, "none") {
			tag = ""
		}
		a.Chat.SetTag(tag)
	}
	if flags.Changed("use-tool") {
		a.Chat.SetUseTool(chatUseTool)
	}
}
