// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the root screen of the ragchat TUI.
package chat

import (
	"context"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/ragchat-tui/internal/app"
	"github.com/jeranaias/ragchat-tui/internal/conversation"
	"github.com/jeranaias/ragchat-tui/internal/model"
	"github.com/jeranaias/ragchat-tui/internal/ui/components"
	"github.com/jeranaias/ragchat-tui/internal/ui/styles"
)

// =============================================================================
// SCREEN STATE
// =============================================================================

type focusArea int

const (
	focusInput focusArea = iota
	focusSidebar
)

type overlay int

const (
	overlayNone overlay = iota
	overlayLogin
	overlayUpload
	overlayConfirmDelete
	overlayHelp
)

// Options configures the screen.
type Options struct {
	// Context bounds every backend call started by the screen.
	Context context.Context
	// SidebarWidth is the conversation list width in columns.
	SidebarWidth int
	// Markdown enables glamour rendering of finished replies.
	Markdown bool
	// DropDir is shown in the upload dialog when set.
	DropDir string
}

// Model is the root Bubble Tea model.
type Model struct {
	ctx   context.Context
	app   *app.App
	theme *styles.Theme
	keys  KeyMap
	opts  Options

	width  int
	height int

	focus   focusArea
	overlay overlay

	// UI components
	sidebar  *components.Sidebar
	status   *components.StatusBar
	toasts   *components.ToastStack
	markdown *components.Markdown
	spinner  components.Spinner
	viewport viewport.Model
	input    textarea.Model

	login  *loginForm
	upload *uploadDialog

	// pendingDelete is the conversation awaiting confirmation.
	pendingDelete model.ID

	tags []model.Tag

	// followTail keeps the transcript scrolled to the newest line.
	followTail   bool
	toastTicking bool
}

// New creates the screen for a.
func New(a *app.App, theme *styles.Theme, opts Options) Model {
	if opts.Context == nil {
		opts.Context = context.Background()
	}
	if opts.SidebarWidth <= 0 {
		opts.SidebarWidth = 32
	}

	ta := textarea.New()
	ta.Placeholder = "Ask anything..."
	ta.ShowLineNumbers = false
	ta.Prompt = "> "
	ta.CharLimit = 8192
	ta.SetHeight(3)
	// Enter sends; alt+enter inserts a newline.
	ta.KeyMap.InsertNewline.SetKeys("alt+enter", "ctrl+j")
	ta.Focus()

	vp := viewport.New(80, 20)

	sidebar := components.NewSidebar(theme)
	sidebar.SyncToSelection(a.Store.Snapshot())

	m := Model{
		ctx:        opts.Context,
		app:        a,
		theme:      theme,
		keys:       DefaultKeyMap(),
		opts:       opts,
		sidebar:    sidebar,
		status:     components.NewStatusBar(theme),
		toasts:     components.NewToastStack(),
		markdown:   components.NewMarkdown(theme, opts.Markdown),
		spinner:    components.NewSpinner(),
		viewport:   vp,
		input:      ta,
		login:      newLoginForm(),
		upload:     newUploadDialog(),
		followTail: true,
	}
	if !a.Gate.Authenticated() {
		m.openLogin()
	}
	return m
}

// Init starts the background commands.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{waitForChanges(m.app.Store), textarea.Blink}
	if m.app.Gate.Authenticated() {
		cmds = append(cmds,
			refreshCmd(m.ctx, m.app.Store),
			loadTagsCmd(m.ctx, m.app.Upload),
		)
	}
	return tea.Batch(cmds...)
}

// snapshot returns the store's current state.
func (m Model) snapshot() *conversation.Snapshot {
	return m.app.Store.Snapshot()
}

// busy reports whether a send cycle is running.
func (m Model) busy() bool {
	return m.app.Chat.State().Busy()
}

// =============================================================================
// FOCUS AND OVERLAYS
// =============================================================================

func (m *Model) setFocus(f focusArea) {
	m.focus = f
	m.sidebar.SetFocused(f == focusSidebar)
	if f == focusInput && !m.busy() {
		m.input.Focus()
	} else {
		m.input.Blur()
	}
	if f == focusSidebar {
		m.sidebar.SyncToSelection(m.snapshot())
	}
}

func (m *Model) openLogin() {
	m.overlay = overlayLogin
	m.login.open()
	m.input.Blur()
}

func (m *Model) openUpload() {
	m.overlay = overlayUpload
	m.upload.open(m.app.Upload.GitForm())
	m.input.Blur()
}

func (m *Model) closeOverlay() {
	m.overlay = overlayNone
	m.pendingDelete = model.NoID()
	m.setFocus(m.focus)
}

// =============================================================================
// TOASTS
// =============================================================================

// pushToast shows a notification and starts the expiry ticker if needed.
func (m *Model) pushToast(kind components.ToastKind, text string) tea.Cmd {
	m.toasts.Push(kind, text)
	if m.toastTicking {
		return nil
	}
	m.toastTicking = true
	return components.ToastTickCmd()
}

func (m *Model) toastError(text string) tea.Cmd {
	return m.pushToast(components.ToastError, text)
}

func (m *Model) toastInfo(text string) tea.Cmd {
	return m.pushToast(components.ToastInfo, text)
}

func (m *Model) toastSuccess(text string) tea.Cmd {
	return m.pushToast(components.ToastSuccess, text)
}

// =============================================================================
// TAGS
// =============================================================================

// tagName returns the display name of tag id, or "".
func (m Model) tagName(id string) string {
	for _, t := range m.tags {
		if t.ID == id {
			return t.Name
		}
	}
	return ""
}

// nextTag cycles the active tag through "none" and the loaded tags.
func (m *Model) nextTag() string {
	current := m.app.Chat.Options().TagID
	if len(m.tags) == 0 {
		return ""
	}
	if model.IsNoTag(current) {
		return m.tags[0].ID
	}
	for i, t := range m.tags {
		if t.ID == current && i+1 < len(m.tags) {
			return m.tags[i+1].ID
		}
	}
	return ""
}
