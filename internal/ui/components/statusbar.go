// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides UI components for the ragchat TUI.
package components

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/ragchat-tui/internal/model"
	"github.com/jeranaias/ragchat-tui/internal/ui/styles"
)

// =============================================================================
// STATUS BAR
// =============================================================================

// StatusInfo is everything the status bar shows.
type StatusInfo struct {
	// State is the streaming state name; Busy marks Sending and StreamOpen.
	State string
	Busy  bool
	// Spinner is the current spinner frame, shown while Busy.
	Spinner string

	Model   string
	TagID   string
	TagName string

	Authenticated bool
	Uploading     bool
	// Pending counts files selected for upload.
	Pending int

	Hints []key.Binding
}

// StatusBar renders the bottom line.
type StatusBar struct {
	theme *styles.Theme
	width int
}

// NewStatusBar creates a status bar.
func NewStatusBar(theme *styles.Theme) *StatusBar {
	return &StatusBar{theme: theme, width: 80}
}

// SetWidth sets the full terminal width.
func (s *StatusBar) SetWidth(w int) { s.width = w }

// View renders info. Key hints are dropped from the right when the line
// does not fit.
func (s *StatusBar) View(info StatusInfo) string {
	t := s.theme
	sep := t.StatusKey.Render(" | ")

	var left []string
	if info.Authenticated {
		left = append(left, t.StatusOK.Render(styles.StatusIndicators.Success))
	} else {
		left = append(left, t.StatusWarn.Render(styles.StatusIndicators.Warning+" logged out"))
	}

	state := info.State
	if info.Busy && info.Spinner != "" {
		state = info.Spinner + " " + state
	}
	left = append(left, t.StatusValue.Render(state))

	if info.Model != "" {
		left = append(left, t.StatusKey.Render("model ")+t.StatusValue.Render(info.Model))
	}
	left = append(left, t.StatusKey.Render("tag ")+t.StatusValue.Render(tagLabel(info)))

	switch {
	case info.Uploading:
		left = append(left, t.StatusWarn.Render("uploading"))
	case info.Pending > 0:
		left = append(left, t.StatusKey.Render("files ")+t.StatusValue.Render(strconv.Itoa(info.Pending)))
	}

	line := strings.Join(left, sep)
	inner := s.width - 2
	if inner < 10 {
		inner = 10
	}

	var hints []string
	for _, b := range info.Hints {
		if !b.Enabled() {
			continue
		}
		h := b.Help()
		hints = append(hints, t.StatusValue.Render(h.Key)+" "+t.StatusKey.Render(h.Desc))
	}
	for len(hints) > 0 {
		right := strings.Join(hints, "  ")
		gap := inner - lipgloss.Width(line) - lipgloss.Width(right)
		if gap >= 2 {
			line += strings.Repeat(" ", gap) + right
			break
		}
		hints = hints[:len(hints)-1]
	}

	if lipgloss.Width(line) > inner {
		line = lipgloss.NewStyle().MaxWidth(inner).Render(line)
	}
	return t.StatusBar.Width(s.width).Render(line)
}

func tagLabel(info StatusInfo) string {
	if model.IsNoTag(info.TagID) {
		return "none"
	}
	if info.TagName != "" {
		return info.TagName
	}
	return info.TagID
}
