// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cmd defines the ragchat command tree.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/jeranaias/ragchat-tui/internal/app"
	"github.com/jeranaias/ragchat-tui/internal/auth"
	"github.com/jeranaias/ragchat-tui/internal/cli"
)

var (
	loginPassword string

	registerForm auth.RegisterForm
	captchaOut   string
)

var loginCmd = &cobra.Command{
	Use:   "login EMAIL",
	Short: "Log in and remember the session",
	Long: `Log in with an email and password. The password is read from the
terminal unless --password is given. The session cookie is stored in the
data directory and reused by later commands.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app.App) error {
			return cli.Login(cmd.Context(), a, cmd.OutOrStdout(), cli.LoginOptions{
				Email:    args[0],
				Password: loginPassword,
			})
		})
	},
}

var registerCmd = &cobra.Command{
	Use:   "register EMAIL",
	Short: "Create an account",
	Long: `Create an account. Request a verification code with 'ragchat send-code'
and download the captcha with 'ragchat captcha' first.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		form := registerForm
		form.Email = args[0]
		return withApp(func(a *app.App) error {
			return cli.Register(cmd.Context(), a, cmd.OutOrStdout(), form)
		})
	},
}

var sendCodeCmd = &cobra.Command{
	Use:   "send-code EMAIL",
	Short: "Email a registration verification code",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app.App) error {
			return cli.SendCode(cmd.Context(), a, cmd.OutOrStdout(), args[0])
		})
	},
}

var captchaCmd = &cobra.Command{
	Use:   "captcha",
	Short: "Download a registration captcha image",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app.App) error {
			return cli.SaveCaptcha(cmd.Context(), a, cmd.OutOrStdout(), captchaOut)
		})
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app.App) error {
			return cli.Logout(a, cmd.OutOrStdout())
		})
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the session and effective settings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app.App) error {
			cli.Status(a, cmd.OutOrStdout())
			return nil
		})
	},
}

func init() {
	loginCmd.Flags().StringVarP(&loginPassword, "password", "p", "", "password (prompted when omitted)")

	flags := registerCmd.Flags()
	flags.StringVar(&registerForm.Password, "password", "", "password (prompted when omitted)")
	flags.StringVar(&registerForm.Confirm, "confirm", "", "password confirmation (prompted when omitted)")
	flags.StringVar(&registerForm.VerificationCode, "code", "", "email verification code")
	flags.StringVar(&registerForm.Captcha, "captcha", "", "captcha text")

	captchaCmd.Flags().StringVarP(&captchaOut, "output", "o", "", "image path (default: captcha.png in the data dir)")

	rootCmd.AddCommand(loginCmd, registerCmd, sendCodeCmd, captchaCmd, logoutCmd, statusCmd)
}
