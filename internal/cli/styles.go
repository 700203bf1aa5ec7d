// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the line-oriented ragchat commands.
package cli

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/ragchat-tui/internal/ui/styles"
)

func init() {
	lipgloss.SetColorProfile(ColorProfile())
}

// =============================================================================
// SHARED STYLES
// =============================================================================

var (
	// TitleStyle is used for command headers.
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(styles.Cyan)

	// LabelStyle is used for aligned field labels.
	LabelStyle = lipgloss.NewStyle().
			Foreground(styles.TextSecondary).
			Width(16)

	// PromptStyle is the REPL prompt.
	PromptStyle = lipgloss.NewStyle().
			Foreground(styles.Purple).
			Bold(true)

	UserStyle      = lipgloss.NewStyle().Foreground(styles.UserAccent).Bold(true)
	AssistantStyle = lipgloss.NewStyle().Foreground(styles.AssistantAccent).Bold(true)
	DimStyle       = lipgloss.NewStyle().Foreground(styles.TextMuted)

	SuccessStyle = lipgloss.NewStyle().Foreground(styles.Emerald)
	ErrorStyle   = lipgloss.NewStyle().Foreground(styles.Rose).Bold(true)
	WarningStyle = lipgloss.NewStyle().Foreground(styles.Amber)
)

// RenderSeparator renders a horizontal rule of the given width.
func RenderSeparator(width int) string {
	if width <= 0 {
		width = 40
	}
	return DimStyle.Render(strings.Repeat("-", width))
}

// RenderLabel renders a label padded to the label column.
func RenderLabel(label string) string {
	return LabelStyle.Render(label)
}

// RenderConditional applies style only when colors are enabled.
func RenderConditional(style lipgloss.Style, text string) string {
	if !ColorsEnabled() {
		return text
	}
	return style.Render(text)
}
