// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package components provides the reusable pieces of the ragchat TUI.

Each component is built on Bubble Tea and Lip Gloss and takes a
*styles.Theme for its colors.

# Key Types

  - Sidebar (sidebar.go) - conversation list with a cursor separate from
    the store's selection.
  - StatusBar (statusbar.go) - session, streaming state, model, tag and key
    hints on one line.
  - Markdown (markdown.go) - glamour rendering of finished replies with a
    cheap path for replies still streaming.
  - CodeBlock (codeblock.go) - Chroma-highlighted fenced code.
  - ToastStack (toast.go) - auto-dismissing notifications.
  - Spinner (spinner.go) - activity indicator with an elapsed timer.

# Usage

	theme := styles.NewTheme(styles.ModeAuto)
	sidebar := components.NewSidebar(theme)
	sidebar.SetSize(32, 20)
	view := sidebar.View(store.Snapshot())
*/
package components
