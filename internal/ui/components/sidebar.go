// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides UI components for the ragchat TUI.
package components

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/ragchat-tui/internal/conversation"
	"github.com/jeranaias/ragchat-tui/internal/model"
	"github.com/jeranaias/ragchat-tui/internal/ui/styles"
	"github.com/jeranaias/ragchat-tui/internal/util"
)

// UntitledLabel is shown for conversations without a title yet.
const UntitledLabel = "New conversation"

// =============================================================================
// SIDEBAR
// =============================================================================

// Sidebar is the conversation list. It keeps a cursor separate from the
// store's selection; Enter turns the cursor into a selection.
type Sidebar struct {
	theme   *styles.Theme
	width   int
	height  int
	focused bool

	cursor int
	offset int
}

// NewSidebar creates an unfocused sidebar.
func NewSidebar(theme *styles.Theme) *Sidebar {
	return &Sidebar{theme: theme, width: 32, height: 10}
}

// SetSize sets the outer size including the border.
func (s *Sidebar) SetSize(width, height int) {
	s.width, s.height = width, height
}

// Width returns the outer width.
func (s *Sidebar) Width() int { return s.width }

// SetFocused toggles keyboard focus.
func (s *Sidebar) SetFocused(v bool) { s.focused = v }

// Focused reports whether the sidebar has keyboard focus.
func (s *Sidebar) Focused() bool { return s.focused }

// Cursor returns the cursor row.
func (s *Sidebar) Cursor() int { return s.cursor }

// Move shifts the cursor by delta rows, clamped to n conversations.
func (s *Sidebar) Move(delta, n int) {
	s.cursor += delta
	s.clamp(n)
}

// SyncToSelection puts the cursor on the selected conversation.
func (s *Sidebar) SyncToSelection(snap *conversation.Snapshot) {
	for i, c := range snap.Conversations {
		if c.ID == snap.Selected {
			s.cursor = i
			return
		}
	}
	s.clamp(len(snap.Conversations))
}

// CursorID returns the id under the cursor, or the None id.
func (s *Sidebar) CursorID(snap *conversation.Snapshot) model.ID {
	if s.cursor < 0 || s.cursor >= len(snap.Conversations) {
		return model.NoID()
	}
	return snap.Conversations[s.cursor].ID
}

func (s *Sidebar) clamp(n int) {
	if s.cursor >= n {
		s.cursor = n - 1
	}
	if s.cursor < 0 {
		s.cursor = 0
	}
}

// visibleRows is the number of list rows that fit below the title.
func (s *Sidebar) visibleRows() int {
	// Border (2) and title with its margin (2).
	rows := s.height - 4
	if rows < 1 {
		rows = 1
	}
	return rows
}

// scroll keeps the cursor inside the visible window.
func (s *Sidebar) scroll() {
	rows := s.visibleRows()
	if s.cursor < s.offset {
		s.offset = s.cursor
	}
	if s.cursor >= s.offset+rows {
		s.offset = s.cursor - rows + 1
	}
	if s.offset < 0 {
		s.offset = 0
	}
}

// View renders the list for snap.
func (s *Sidebar) View(snap *conversation.Snapshot) string {
	s.clamp(len(snap.Conversations))
	s.scroll()

	box := s.theme.Sidebar
	if s.focused {
		box = s.theme.SidebarFocused
	}
	// Border and padding take four columns.
	inner := s.width - 4
	if inner < 8 {
		inner = 8
	}

	title := s.theme.SidebarTitle.Render(
		util.TruncateWidth("Conversations ("+strconv.Itoa(len(snap.Conversations))+")", inner))

	var rows []string
	if len(snap.Conversations) == 0 {
		rows = append(rows, s.theme.SidebarMeta.Render("No conversations yet"))
	}
	end := s.offset + s.visibleRows()
	if end > len(snap.Conversations) {
		end = len(snap.Conversations)
	}
	for i := s.offset; i < end; i++ {
		rows = append(rows, s.renderRow(snap, snap.Conversations[i], i, inner))
	}

	body := lipgloss.JoinVertical(lipgloss.Left, title, strings.Join(rows, "\n"))
	return box.
		Width(s.width - 2).
		Height(s.height - 2).
		Render(body)
}

func (s *Sidebar) renderRow(snap *conversation.Snapshot, c *model.Conversation, i, width int) string {
	marker := "  "
	switch {
	case c.ID == snap.Streaming:
		marker = "~ "
	case c.ID == snap.Selected:
		marker = "> "
	}

	label := c.Title
	if label == "" {
		label = UntitledLabel
	}
	label = util.PadWidth(marker+util.SingleLine(label), width)

	switch {
	case s.focused && i == s.cursor:
		return s.theme.SidebarItemCursor.Render(label)
	case c.ID == snap.Selected:
		return s.theme.SidebarItemSelected.Render(label)
	default:
		return s.theme.SidebarItem.Render(label)
	}
}
