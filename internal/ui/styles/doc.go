// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the visual styling system for the ragchat TUI.
//
// All colors are lipgloss AdaptiveColors so one palette serves dark and
// light terminals. The Theme resolves the background once (from config or
// termenv detection) and also picks matching glamour and chroma styles.
//
// # Key Types
//
//   - Theme: every lipgloss style the views use
//   - Mode: dark, light or auto
//   - StatusIndicatorSet: ASCII shapes shown beside colored states
//
// # Usage
//
//	theme := styles.NewTheme(styles.ParseMode(cfg.UI.Theme))
//	header := theme.SidebarTitle.Render("Conversations")
package styles
