// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides UI components for the ragchat TUI.
//
// Toasts are transient, non-blocking notifications stacked in the
// bottom-right corner. They auto-dismiss and never take focus.
package components

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/ragchat-tui/internal/ui/styles"
)

// =============================================================================
// TOAST TYPES
// =============================================================================

// ToastKind represents the type of toast notification.
type ToastKind int

const (
	// ToastInfo is an informational toast (cyan)
	ToastInfo ToastKind = iota
	// ToastError is an error toast (rose)
	ToastError
	// ToastSuccess is a success toast (emerald)
	ToastSuccess
)

// InfoToastDuration is the auto-dismiss duration for info and success toasts.
const InfoToastDuration = 4 * time.Second

// ErrorToastDuration is longer so errors can be read.
const ErrorToastDuration = 8 * time.Second

// MaxToasts caps the visible stack.
const MaxToasts = 4

// Toast is one notification.
type Toast struct {
	ID        int
	Message   string
	Kind      ToastKind
	CreatedAt time.Time
	Duration  time.Duration
}

// Expired reports whether the toast should be dismissed at now.
func (t Toast) Expired(now time.Time) bool {
	return now.Sub(t.CreatedAt) >= t.Duration
}

// Remaining returns the time left before auto-dismiss at now.
func (t Toast) Remaining(now time.Time) time.Duration {
	if r := t.Duration - now.Sub(t.CreatedAt); r > 0 {
		return r
	}
	return 0
}

// =============================================================================
// TOAST STACK
// =============================================================================

// ToastStack holds the visible toasts, newest first. It is owned by the
// bubbletea update loop and is not safe for concurrent use.
type ToastStack struct {
	toasts []Toast
	nextID int
	now    func() time.Time
}

// NewToastStack creates an empty stack.
func NewToastStack() *ToastStack {
	return &ToastStack{nextID: 1, now: time.Now}
}

// Push adds a toast and returns its id. The oldest toast is dropped when
// the stack is full.
func (s *ToastStack) Push(kind ToastKind, msg string) int {
	d := InfoToastDuration
	if kind == ToastError {
		d = ErrorToastDuration
	}
	t := Toast{ID: s.nextID, Message: msg, Kind: kind, CreatedAt: s.now(), Duration: d}
	s.nextID++

	s.toasts = append([]Toast{t}, s.toasts...)
	if len(s.toasts) > MaxToasts {
		s.toasts = s.toasts[:MaxToasts]
	}
	return t.ID
}

// Error pushes an error toast.
func (s *ToastStack) Error(msg string) int { return s.Push(ToastError, msg) }

// Info pushes an info toast.
func (s *ToastStack) Info(msg string) int { return s.Push(ToastInfo, msg) }

// Success pushes a success toast.
func (s *ToastStack) Success(msg string) int { return s.Push(ToastSuccess, msg) }

// Dismiss removes the newest toast.
func (s *ToastStack) Dismiss() {
	if len(s.toasts) > 0 {
		s.toasts = s.toasts[1:]
	}
}

// Tick drops expired toasts and reports whether any remain.
func (s *ToastStack) Tick() bool {
	now := s.now()
	active := s.toasts[:0]
	for _, t := range s.toasts {
		if !t.Expired(now) {
			active = append(active, t)
		}
	}
	s.toasts = active
	return len(s.toasts) > 0
}

// Toasts returns a copy of the visible toasts, newest first.
func (s *ToastStack) Toasts() []Toast {
	return append([]Toast(nil), s.toasts...)
}

// Len returns the number of visible toasts.
func (s *ToastStack) Len() int {
	return len(s.toasts)
}

// =============================================================================
// TOAST MESSAGES
// =============================================================================

// ToastTickMsg drives auto-dismissal.
type ToastTickMsg struct {
	Time time.Time
}

// ToastTickCmd ticks toasts every 250ms.
func ToastTickCmd() tea.Cmd {
	return tea.Tick(250*time.Millisecond, func(t time.Time) tea.Msg {
		return ToastTickMsg{Time: t}
	})
}

// =============================================================================
// TOAST RENDERING
// =============================================================================

// RenderToast renders a single toast no wider than width.
func RenderToast(t Toast, width int, now time.Time) string {
	maxWidth := 56
	if width > 0 && width-8 < maxWidth {
		maxWidth = width - 8
	}
	if maxWidth < 24 {
		maxWidth = 24
	}

	var color lipgloss.AdaptiveColor
	var icon string
	switch t.Kind {
	case ToastError:
		color, icon = styles.Rose, styles.StatusIndicators.Error
	case ToastSuccess:
		color, icon = styles.Emerald, styles.StatusIndicators.Success
	default:
		color, icon = styles.Cyan, styles.StatusIndicators.Info
	}

	iconStyle := lipgloss.NewStyle().Foreground(color).Bold(true)
	msgStyle := lipgloss.NewStyle().Foreground(styles.TextPrimary).Width(maxWidth - 10)
	hintStyle := lipgloss.NewStyle().Foreground(styles.TextMuted).Italic(true)

	content := lipgloss.JoinHorizontal(lipgloss.Top, iconStyle.Render(icon+" "), msgStyle.Render(t.Message))
	if secs := int(t.Remaining(now).Seconds()); secs > 0 {
		content += "\n" + hintStyle.Render(fmt.Sprintf("[C-x] dismiss  %ds", secs))
	}

	return lipgloss.NewStyle().
		Background(styles.SurfaceDim).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(color).
		Padding(0, 1).
		Render(content)
}

// RenderToastStack renders the stack, newest at the bottom.
func RenderToastStack(toasts []Toast, width int, now time.Time) string {
	if len(toasts) == 0 {
		return ""
	}
	rendered := make([]string, 0, len(toasts))
	for i := len(toasts) - 1; i >= 0; i-- {
		rendered = append(rendered, RenderToast(toasts[i], width, now))
	}
	return strings.Join(rendered, "\n")
}
