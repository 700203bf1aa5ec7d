// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the line-oriented ragchat commands.
package cli

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/jeranaias/ragchat-tui/internal/app"
	"github.com/jeranaias/ragchat-tui/internal/auth"
	"github.com/jeranaias/ragchat-tui/internal/model"
)

// CaptchaFileName is the default captcha image name inside the data dir.
const CaptchaFileName = "captcha.png"

// readPassword is swapped out by tests.
var readPassword = ReadPassword

// LoginOptions configures Login.
type LoginOptions struct {
	Email string
	// Password is read from the terminal when empty.
	Password string
}

// Login signs in and stores the session cookie.
func Login(ctx context.Context, a *app.App, out io.Writer, opts LoginOptions) error {
	if opts.Password == "" {
		pw, err := readPassword(out, "Password: ")
		if err != nil {
			return err
		}
		opts.Password = pw
	}
	if err := a.Auth.Login(ctx, opts.Email, opts.Password); err != nil {
		return err
	}
	fmt.Fprintln(out, RenderConditional(SuccessStyle, "Logged in as "+opts.Email))
	return nil
}

// Register creates an account. Empty passwords are read from the terminal.
func Register(ctx context.Context, a *app.App, out io.Writer, form auth.RegisterForm) error {
	if form.Password == "" {
		pw, err := readPassword(out, "Password: ")
		if err != nil {
			return err
		}
		form.Password = pw
	}
	if form.Confirm == "" {
		pw, err := readPassword(out, "Confirm password: ")
		if err != nil {
			return err
		}
		form.Confirm = pw
	}
	if err := a.Auth.Register(ctx, form); err != nil {
		return err
	}
	fmt.Fprintln(out, RenderConditional(SuccessStyle, "Account created. You can now log in."))
	return nil
}

// SendCode requests an email verification code.
func SendCode(ctx context.Context, a *app.App, out io.Writer, email string) error {
	if err := a.Auth.SendEmailCode(ctx, email); err != nil {
		return err
	}
	fmt.Fprintf(out, "Verification code sent to %s\n", email)
	return nil
}

// SaveCaptcha downloads a captcha image to path, or to the data dir when
// path is empty, and prints where it went.
func SaveCaptcha(ctx context.Context, a *app.App, out io.Writer, path string) error {
	if path == "" {
		path = filepath.Join(a.Config.DataDir(), CaptchaFileName)
	}
	if err := a.Auth.SaveCaptcha(ctx, path); err != nil {
		return err
	}
	fmt.Fprintf(out, "Captcha saved to %s\n", path)
	return nil
}

// Logout forgets the stored session.
func Logout(a *app.App, out io.Writer) error {
	if err := a.Auth.Logout(); err != nil {
		return err
	}
	fmt.Fprintln(out, "Logged out.")
	return nil
}

// Status prints whether a session is stored.
func Status(a *app.App, out io.Writer) {
	state := RenderConditional(WarningStyle, "[!] logged out")
	if a.Gate.Authenticated() {
		state = RenderConditional(SuccessStyle, "[OK] logged in")
	}
	fmt.Fprintln(out, RenderLabel("Session")+state)
	fmt.Fprintln(out, RenderLabel("Server")+a.Config.Server.BaseURL)
	opts := a.Chat.Options()
	fmt.Fprintln(out, RenderLabel("Model")+opts.Model)
	tag := opts.TagID
	if model.IsNoTag(tag) {
		tag = "none"
	}
	fmt.Fprintln(out, RenderLabel("Tag")+tag)
	fmt.Fprintln(out, RenderLabel("Data dir")+a.Config.DataDir())
}
