// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the root screen of the ragchat TUI.
package chat

import (
	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
)

// clipboardWrite is replaced in tests.
var clipboardWrite = clipboard.WriteAll

// lastReply returns the newest finished assistant reply in the transcript.
func (m Model) lastReply() string {
	msgs := m.snapshot().Messages
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].IsAssistant() && !msgs[i].Loading && msgs[i].Content != "" {
			return msgs[i].Content
		}
	}
	return ""
}

// copyLastReply copies the newest reply to the system clipboard.
func (m *Model) copyLastReply() tea.Cmd {
	text := m.lastReply()
	if text == "" {
		return m.toastInfo("Nothing to copy yet")
	}
	if err := clipboardWrite(text); err != nil {
		m.app.Logger.Debug("clipboard unavailable")
		return m.toastError("Clipboard is not available")
	}
	return m.toastSuccess("Copied reply to clipboard")
}
