// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cmd defines the ragchat command tree.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/jeranaias/ragchat-tui/internal/app"
	"github.com/jeranaias/ragchat-tui/internal/cli"
	"github.com/jeranaias/ragchat-tui/internal/upload"
)

var (
	uploadTag    string
	uploadNewTag string

	gitForm upload.GitForm
)

var tagsCmd = &cobra.Command{
	Use:   "tags",
	Short: "List knowledge-base tags",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app.App) error {
			return cli.ListTags(cmd.Context(), a, cmd.OutOrStdout(), jsonOutput)
		})
	},
}

var uploadCmd = &cobra.Command{
	Use:   "upload FILE...",
	Short: "Upload documents to the knowledge base",
	Long: `Upload one or more files under a tag. Use --tag for an existing tag
or --new-tag to create one first.`,
	Example: `  ragchat upload --tag 12 notes.md design.pdf
  ragchat upload --new-tag handbook docs/*.md`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app.App) error {
			return cli.Upload(cmd.Context(), a, cmd.OutOrStdout(), cli.UploadOptions{
				Paths:  args,
				TagID:  uploadTag,
				NewTag: uploadNewTag,
				JSON:   jsonOutput,
			})
		})
	},
}

var gitCmd = &cobra.Command{
	Use:   "git REPO_URL",
	Short: "Submit a Git repository for analysis",
	Long: `Ask the backend to clone and ingest a Git repository. The access token
is prompted for when --token is omitted.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		form := gitForm
		form.RepoURL = args[0]
		return withApp(func(a *app.App) error {
			return cli.AnalyzeGit(cmd.Context(), a, cmd.OutOrStdout(), form)
		})
	},
}

func init() {
	uploadCmd.Flags().StringVarP(&uploadTag, "tag", "t", "", "existing tag id")
	uploadCmd.Flags().StringVar(&uploadNewTag, "new-tag", "", "create a tag with this name")
	uploadCmd.MarkFlagsMutuallyExclusive("tag", "new-tag")

	gitCmd.Flags().StringVarP(&gitForm.UserName, "user", "u", "", "repository user name")
	gitCmd.Flags().StringVar(&gitForm.Token, "token", "", "repository access token (prompted when omitted)")

	rootCmd.AddCommand(tagsCmd, uploadCmd, gitCmd)
}
