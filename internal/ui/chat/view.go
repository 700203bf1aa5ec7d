// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the root screen of the ragchat TUI.
package chat

import (
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/ragchat-tui/internal/conversation"
	"github.com/jeranaias/ragchat-tui/internal/model"
	"github.com/jeranaias/ragchat-tui/internal/ui/components"
)

// View renders the screen.
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}
	bodyHeight := m.height - 1

	var body string
	switch m.overlay {
	case overlayNone:
		body = lipgloss.JoinHorizontal(lipgloss.Top,
			m.sidebar.View(m.snapshot()),
			m.mainView(bodyHeight),
		)
	default:
		body = lipgloss.Place(m.width, bodyHeight, lipgloss.Center, lipgloss.Center, m.overlayView())
	}
	return lipgloss.JoinVertical(lipgloss.Left, body, m.status.View(m.statusInfo()))
}

// mainView renders the transcript, toasts and input column.
func (m Model) mainView(height int) string {
	width := m.width - m.sidebar.Width()

	transcript := m.viewport.View()
	if m.toasts.Len() > 0 {
		toasts := components.RenderToastStack(m.toasts.Toasts(), width, time.Now())
		lines := strings.Split(transcript, "\n")
		if h := lipgloss.Height(toasts); h < len(lines) {
			lines = lines[h:]
		}
		transcript = strings.Join(lines, "\n") + "\n" +
			lipgloss.PlaceHorizontal(width, lipgloss.Right, toasts)
	}

	col := lipgloss.JoinVertical(lipgloss.Left, transcript, m.inputView(width))
	return lipgloss.NewStyle().Width(width).MaxHeight(height).Render(col)
}

func (m Model) inputView(width int) string {
	box := m.theme.InputContainer
	if m.busy() || m.focus != focusInput {
		box = m.theme.InputContainerDisabled
	}
	content := m.input.View()
	if m.busy() {
		content = m.spinner.View() + "\n" + m.theme.InputHint.Render("Waiting for the reply, Esc to stop")
	}
	return box.Width(width - 2).Render(content)
}

func (m Model) statusInfo() components.StatusInfo {
	opts := m.app.Chat.Options()
	state := m.app.Chat.State()

	hints := m.keys.ShortHelp()
	switch {
	case state.Busy():
		hints = m.keys.StreamingHelp()
	case m.focus == focusSidebar:
		hints = m.keys.SidebarHelp()
	}

	return components.StatusInfo{
		State:         state.String(),
		Busy:          state.Busy(),
		Spinner:       m.spinner.Frame(),
		Model:         opts.Model,
		TagID:         opts.TagID,
		TagName:       m.tagName(opts.TagID),
		Authenticated: m.app.Gate.Authenticated(),
		Uploading:     m.app.Upload.Uploading() || m.app.Upload.Analyzing(),
		Pending:       len(m.app.Upload.Files()),
		Hints:         hints,
	}
}

// =============================================================================
// TRANSCRIPT
// =============================================================================

// transcriptView renders the selected conversation's messages.
func (m Model) transcriptView(snap *conversation.Snapshot) string {
	width := m.viewport.Width - 2
	if width < 10 {
		width = 10
	}
	empty := m.theme.EmptyState.Width(width)

	if len(snap.Messages) == 0 {
		switch {
		case snap.Loading:
			return empty.Render("\nLoading messages...")
		case !m.app.Gate.Authenticated():
			return empty.Render("\nYou are logged out. Press C-l to log in.")
		default:
			return empty.Render("\nStart a new conversation by typing a message below.")
		}
	}

	parts := make([]string, 0, len(snap.Messages))
	for _, msg := range snap.Messages {
		parts = append(parts, m.renderMessage(msg, width))
	}
	return m.theme.Transcript.Render(strings.Join(parts, "\n\n"))
}

func (m Model) renderMessage(msg *model.Message, width int) string {
	label := m.theme.AssistantLabel
	box := m.theme.AssistantMessage
	if msg.IsUser() {
		label = m.theme.UserLabel
		box = m.theme.UserMessage
	}

	header := label.Render(msg.Role.DisplayName())
	if ts := msg.FormatTimestamp(); ts != "" {
		header += " " + m.theme.Timestamp.Render(ts)
	}

	var content string
	switch {
	case msg.IsUser():
		content = msg.Content
	case msg.Loading && msg.Content == "":
		content = "..."
	case msg.Loading:
		content = m.markdown.RenderStreaming(msg.Content)
	default:
		content = m.markdown.Render(msg.Content)
	}
	return header + "\n" + box.Width(width-2).Render(content)
}

// =============================================================================
// OVERLAYS
// =============================================================================

func (m Model) overlayView() string {
	switch m.overlay {
	case overlayLogin:
		return m.login.view(m.theme, m.app.Auth.CodeCooldown(), captchaPath(m.app.Config.DataDir()))
	case overlayUpload:
		return m.upload.view(m.theme, m.app.Upload, m.opts.DropDir)
	case overlayConfirmDelete:
		return m.confirmView()
	case overlayHelp:
		h := help.New()
		h.ShowAll = true
		return m.theme.Modal.Render(
			m.theme.ModalTitle.Render("Keyboard shortcuts") + "\n" + h.View(m.keys) +
				"\n\n" + m.theme.FormHint.Render("Esc to close"))
	}
	return ""
}

func (m Model) confirmView() string {
	title := components.UntitledLabel
	if c := m.snapshot().Conversation(m.pendingDelete); c != nil && c.Title != "" {
		title = c.Title
	}
	return m.theme.Modal.Render(
		m.theme.ModalTitle.Render("Delete conversation") + "\n" +
			"Delete \"" + title + "\"? This cannot be undone.\n\n" +
			m.theme.FormHint.Render("y to delete, n or Esc to keep"))
}
