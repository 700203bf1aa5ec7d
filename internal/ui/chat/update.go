// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the root screen of the ragchat TUI.
package chat

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/jeranaias/ragchat-tui/internal/auth"
	chatctl "github.com/jeranaias/ragchat-tui/internal/chat"
	"github.com/jeranaias/ragchat-tui/internal/conversation"
	"github.com/jeranaias/ragchat-tui/internal/ui/components"
)

// Update handles every message.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case storeChangedMsg:
		m.renderTranscript()
		return m, waitForChanges(m.app.Store)

	case ChatStateMsg:
		return m.handleChatState(msg)

	case NotifyMsg:
		return m, m.pushToast(msg.Kind, msg.Text)

	case LoginRequiredMsg:
		if m.overlay != overlayLogin {
			m.openLogin()
		}
		return m, nil

	case FileDroppedMsg:
		return m, m.toastInfo("Added " + msg.Path)

	case ConfigReloadedMsg:
		return m, m.toastInfo("Configuration reloaded")

	case components.ToastTickMsg:
		if m.toasts.Tick() {
			return m, components.ToastTickCmd()
		}
		m.toastTicking = false
		return m, nil

	case refreshDoneMsg:
		if msg.err != nil && !errors.Is(msg.err, auth.ErrLoginRequired) {
			m.app.Logger.Warn("refresh failed", zap.Error(msg.err))
			return m, m.toastError("Failed to load conversations")
		}
		m.sidebar.SyncToSelection(m.snapshot())
		return m, nil

	case selectDoneMsg:
		if msg.err != nil && !errors.Is(msg.err, auth.ErrLoginRequired) {
			return m, m.toastError("Failed to load messages")
		}
		m.followTail = true
		m.renderTranscript()
		return m, nil

	case removeDoneMsg:
		return m.handleRemoveDone(msg)

	case sendDoneMsg:
		return m.handleSendDone(msg)

	case tagsLoadedMsg:
		if msg.err != nil {
			if !errors.Is(msg.err, auth.ErrLoginRequired) {
				return m, m.toastError("Failed to load tags")
			}
			return m, nil
		}
		m.tags = msg.tags
		m.upload.setTags(msg.tags)
		return m, nil

	case uploadDoneMsg:
		return m.handleUploadDone(msg)

	case gitDoneMsg:
		return m.handleGitDone(msg)

	case loginDoneMsg, registerDoneMsg, codeSentMsg, captchaSavedMsg, cooldownTickMsg:
		return m.handleLoginResult(msg)
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.spinner, cmd = m.spinner.Update(msg)
	cmds = append(cmds, cmd)
	if m.overlay == overlayNone && m.focus == focusInput {
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

// =============================================================================
// MESSAGE HANDLERS
// =============================================================================

func (m *Model) resize(width, height int) {
	m.width, m.height = width, height

	sideWidth := m.opts.SidebarWidth
	if sideWidth > width/2 {
		sideWidth = width / 2
	}
	// Status bar takes one line.
	bodyHeight := height - 1
	if bodyHeight < 5 {
		bodyHeight = 5
	}
	m.sidebar.SetSize(sideWidth, bodyHeight)
	m.status.SetWidth(width)

	mainWidth := width - sideWidth
	if mainWidth < 20 {
		mainWidth = 20
	}
	// Input box: three text lines plus its border.
	const inputHeight = 5
	m.input.SetWidth(mainWidth - 4)
	m.viewport.Width = mainWidth
	m.viewport.Height = bodyHeight - inputHeight
	if m.viewport.Height < 1 {
		m.viewport.Height = 1
	}
	m.markdown.SetWidth(mainWidth - 4)
	m.renderTranscript()
}

// handleChatState follows the controller's current state; notifications
// may trail the transition they describe.
func (m Model) handleChatState(ChatStateMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.app.Chat.State() {
	case chatctl.StateSending:
		m.input.Blur()
		cmd = m.spinner.Start("Sending")
	case chatctl.StateStreamOpen:
		m.spinner.SetMessage("Receiving")
	case chatctl.StateFailed, chatctl.StateIdle:
		m.spinner.Stop()
		if m.overlay == overlayNone && m.focus == focusInput {
			m.input.Focus()
		}
	}
	return m, cmd
}

func (m Model) handleSendDone(msg sendDoneMsg) (tea.Model, tea.Cmd) {
	m.spinner.Stop()
	if m.overlay == overlayNone && m.focus == focusInput {
		m.input.Focus()
	}
	m.renderTranscript()

	switch {
	case msg.err == nil:
		if msg.res != nil && msg.res.Canceled {
			return m, m.toastInfo("Reply stopped")
		}
		return m, nil
	case errors.Is(msg.err, chatctl.ErrEmptyInput), errors.Is(msg.err, auth.ErrLoginRequired):
		return m, nil
	case errors.Is(msg.err, chatctl.ErrBusy), errors.Is(msg.err, chatctl.ErrLoading):
		return m, m.toastInfo(capitalize(msg.err.Error()))
	}
	// Request failures were already reported by the controller.
	return m, nil
}

func (m Model) handleRemoveDone(msg removeDoneMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.err == nil:
		m.sidebar.SyncToSelection(m.snapshot())
		m.renderTranscript()
		return m, m.toastSuccess("Conversation deleted successfully")
	case errors.Is(msg.err, conversation.ErrStreaming):
		return m, m.toastError("Cannot delete a conversation while it is replying")
	case errors.Is(msg.err, auth.ErrLoginRequired):
		return m, nil
	}
	m.app.Logger.Warn("delete failed", zap.String("chat_id", msg.id.String()), zap.Error(msg.err))
	return m, m.toastError("Failed to delete conversation")
}

// =============================================================================
// KEY HANDLING
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		m.app.Chat.Cancel()
		return m, tea.Quit
	}

	switch m.overlay {
	case overlayLogin:
		return m.handleLoginKey(msg)
	case overlayUpload:
		return m.handleUploadKey(msg)
	case overlayConfirmDelete:
		return m.handleConfirmKey(msg)
	case overlayHelp:
		if msg.Type == tea.KeyEsc || key.Matches(msg, m.keys.Help) || msg.String() == "q" {
			m.closeOverlay()
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Cancel) && m.busy():
		m.app.Chat.Cancel()
		return m, nil

	case key.Matches(msg, m.keys.Help):
		m.overlay = overlayHelp
		m.input.Blur()
		return m, nil

	case key.Matches(msg, m.keys.Dismiss):
		m.toasts.Dismiss()
		return m, nil

	case key.Matches(msg, m.keys.NewConversation):
		m.app.Store.CreateEmpty()
		m.followTail = true
		m.setFocus(focusInput)
		return m, nil

	case key.Matches(msg, m.keys.Focus):
		if m.focus == focusInput {
			m.setFocus(focusSidebar)
		} else {
			m.setFocus(focusInput)
		}
		return m, nil

	case key.Matches(msg, m.keys.CycleTag):
		id := m.nextTag()
		m.app.Chat.SetTag(id)
		if id == "" {
			return m, m.toastInfo("Tag: none")
		}
		return m, m.toastInfo("Tag: " + m.tagName(id))

	case key.Matches(msg, m.keys.Upload):
		m.openUpload()
		return m, loadTagsCmd(m.ctx, m.app.Upload)

	case key.Matches(msg, m.keys.Copy):
		return m, m.copyLastReply()

	case key.Matches(msg, m.keys.Refresh):
		return m, tea.Batch(refreshCmd(m.ctx, m.app.Store), loadTagsCmd(m.ctx, m.app.Upload))

	case key.Matches(msg, m.keys.Login):
		m.openLogin()
		return m, nil

	case key.Matches(msg, m.keys.PageUp):
		m.viewport.HalfViewUp()
		m.followTail = m.viewport.AtBottom()
		return m, nil

	case key.Matches(msg, m.keys.PageDown):
		m.viewport.HalfViewDown()
		m.followTail = m.viewport.AtBottom()
		return m, nil
	}

	if m.focus == focusSidebar {
		return m.handleSidebarKey(msg)
	}
	return m.handleInputKey(msg)
}

func (m Model) handleSidebarKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	snap := m.snapshot()
	switch {
	case key.Matches(msg, m.keys.Up):
		m.sidebar.Move(-1, len(snap.Conversations))
	case key.Matches(msg, m.keys.Down):
		m.sidebar.Move(1, len(snap.Conversations))
	case key.Matches(msg, m.keys.Select):
		id := m.sidebar.CursorID(snap)
		if id.IsNone() {
			return m, nil
		}
		m.followTail = true
		m.setFocus(focusInput)
		return m, selectCmd(m.ctx, m.app.Store, id)
	case key.Matches(msg, m.keys.Delete):
		id := m.sidebar.CursorID(snap)
		if id.IsNone() {
			return m, nil
		}
		if id == snap.Streaming {
			return m, m.toastError("Cannot delete a conversation while it is replying")
		}
		m.pendingDelete = id
		m.overlay = overlayConfirmDelete
	}
	return m, nil
}

func (m Model) handleConfirmKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y", "enter":
		id := m.pendingDelete
		m.closeOverlay()
		return m, removeCmd(m.ctx, m.app.Store, id)
	case "n", "N", "esc":
		m.closeOverlay()
	}
	return m, nil
}

func (m Model) handleInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Send) {
		if m.busy() {
			return m, nil
		}
		text := strings.TrimSpace(m.input.Value())
		if text == "" {
			return m, nil
		}
		if m.snapshot().Loading {
			return m, m.toastInfo("Conversation is still loading")
		}
		if !m.app.Gate.Authenticated() {
			// Require raises the login prompt.
			_ = m.app.Gate.Require()
			return m, nil
		}
		m.input.Reset()
		m.followTail = true
		return m, sendCmd(m.ctx, m.app.Chat, text)
	}

	if m.busy() {
		// Keep scrolling available while the input is disabled.
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		m.followTail = m.viewport.AtBottom()
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// =============================================================================
// TRANSCRIPT
// =============================================================================

// renderTranscript rebuilds the viewport content from the store.
func (m *Model) renderTranscript() {
	m.viewport.SetContent(m.transcriptView(m.snapshot()))
	if m.followTail {
		m.viewport.GotoBottom()
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// describeError returns the text shown for err in a form.
func describeError(err error) string {
	var verrs auth.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		msgs := make([]string, len(verrs))
		for i, v := range verrs {
			msgs[i] = v.Message
		}
		return strings.Join(msgs, "; ")
	}
	var cooldown *auth.CooldownError
	if errors.As(err, &cooldown) {
		return capitalize(cooldown.Error())
	}
	return capitalize(fmt.Sprint(err))
}
