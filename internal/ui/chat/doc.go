// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package chat provides the root screen of the ragchat TUI.

The screen is a single Bubble Tea model over an *app.App. It never owns
conversation state: it renders the conversation store's snapshots and
forwards user actions to the store, the streaming controller and the
upload controller, each call running in a tea.Cmd.

# Key Components

## Model (model.go)

Layout state, focus (input or sidebar) and the active overlay (login,
upload, delete confirmation, help).

## Update Loop (update.go)

  - A command blocked on Store.Changes re-renders the transcript after
    every store mutation, which is how streamed fragments appear.
  - The input is disabled while the controller is Sending or StreamOpen.
  - Esc cancels the open stream; received content is kept.

## Dialogs (login.go, upload.go)

Login and registration with the email-code cooldown, and the knowledge
base dialog with its Files and Git repository tabs.

# Usage

	a, _ := app.New(cfg, logger, app.Options{Notifier: n})
	m := chat.New(a, styles.NewTheme(styles.ModeAuto), chat.Options{})
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
*/
package chat
