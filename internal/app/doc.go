// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package app wires the ragchat components into one explicit context.
//
// Nothing in ragchat reaches for globals: the API client, session gate,
// conversation store and the two controllers are built here and handed to
// the TUI or the CLI commands.
//
// # Key Types
//
//   - App: the wired component graph
//   - Options: front-end hooks (notifier, state callback)
//   - WriterNotifier: Notifier for line-oriented front ends
//
// # Usage
//
//	a, err := app.New(cfg, logger, app.Options{Notifier: app.NewWriterNotifier(os.Stderr)})
//	if err != nil {
//	    return err
//	}
//	defer a.Close()
//	res, err := a.Chat.Send(ctx, "hello")
package app
