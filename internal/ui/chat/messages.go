// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the root screen of the ragchat TUI.
package chat

import (
	"context"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	chatctl "github.com/jeranaias/ragchat-tui/internal/chat"
	"github.com/jeranaias/ragchat-tui/internal/conversation"
	"github.com/jeranaias/ragchat-tui/internal/model"
	"github.com/jeranaias/ragchat-tui/internal/upload"
	"github.com/jeranaias/ragchat-tui/internal/ui/components"
)

// =============================================================================
// MESSAGES FROM OUTSIDE THE PROGRAM
// =============================================================================

// NotifyMsg carries a transient notification raised by a controller.
type NotifyMsg struct {
	Kind components.ToastKind
	Text string
}

// ChatStateMsg reports a streaming state transition.
type ChatStateMsg struct {
	State chatctl.State
}

// LoginRequiredMsg asks the screen to open the login dialog.
type LoginRequiredMsg struct{}

// FileDroppedMsg reports a file added to the upload selection by the drop
// directory watcher.
type FileDroppedMsg struct {
	Path string
}

// ConfigReloadedMsg reports that the [chat] section was reloaded.
type ConfigReloadedMsg struct{}

// =============================================================================
// COMMAND RESULTS
// =============================================================================

type storeChangedMsg struct{}

type refreshDoneMsg struct{ err error }

type selectDoneMsg struct{ err error }

type removeDoneMsg struct {
	id  model.ID
	err error
}

type sendDoneMsg struct {
	res *chatctl.Result
	err error
}

type tagsLoadedMsg struct {
	tags []model.Tag
	err  error
}

type uploadDoneMsg struct {
	res *upload.UploadResult
	err error
}

type gitDoneMsg struct{ err error }

type loginDoneMsg struct{ err error }

type registerDoneMsg struct{ err error }

type codeSentMsg struct{ err error }

type captchaSavedMsg struct {
	path string
	err  error
}

type cooldownTickMsg struct{}

// =============================================================================
// COMMAND CREATORS
// =============================================================================

// waitForChanges blocks until the store publishes a new snapshot.
func waitForChanges(store *conversation.Store) tea.Cmd {
	return func() tea.Msg {
		<-store.Changes()
		return storeChangedMsg{}
	}
}

func refreshCmd(ctx context.Context, store *conversation.Store) tea.Cmd {
	return func() tea.Msg {
		return refreshDoneMsg{err: store.Refresh(ctx)}
	}
}

func selectCmd(ctx context.Context, store *conversation.Store, id model.ID) tea.Cmd {
	return func() tea.Msg {
		return selectDoneMsg{err: store.Select(ctx, id)}
	}
}

func removeCmd(ctx context.Context, store *conversation.Store, id model.ID) tea.Cmd {
	return func() tea.Msg {
		return removeDoneMsg{id: id, err: store.Remove(ctx, id)}
	}
}

// sendCmd runs a whole send cycle; progress reaches the screen through
// store change notifications.
func sendCmd(ctx context.Context, c *chatctl.Controller, text string) tea.Cmd {
	return func() tea.Msg {
		res, err := c.Send(ctx, text)
		return sendDoneMsg{res: res, err: err}
	}
}

func loadTagsCmd(ctx context.Context, u *upload.Controller) tea.Cmd {
	return func() tea.Msg {
		tags, err := u.Tags(ctx)
		return tagsLoadedMsg{tags: tags, err: err}
	}
}

func uploadCmd(ctx context.Context, u *upload.Controller, mode upload.TagMode) tea.Cmd {
	return func() tea.Msg {
		res, err := u.SubmitFiles(ctx, mode)
		return uploadDoneMsg{res: res, err: err}
	}
}

func gitCmd(ctx context.Context, u *upload.Controller) tea.Cmd {
	return func() tea.Msg {
		return gitDoneMsg{err: u.SubmitGit(ctx)}
	}
}

// captchaPath is where the registration captcha image is written.
func captchaPath(dataDir string) string {
	return filepath.Join(dataDir, "captcha.png")
}
