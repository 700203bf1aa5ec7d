// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides UI components for the ragchat TUI.
package components

import (
	"strconv"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/ragchat-tui/internal/ui/styles"
)

// =============================================================================
// SPINNER MODEL
// =============================================================================

// Spinner is an ASCII activity indicator with an elapsed timer.
type Spinner struct {
	spinner   spinner.Model
	message   string
	startTime time.Time
	active    bool
}

// NewSpinner creates a stopped spinner.
func NewSpinner() Spinner {
	s := spinner.New()
	s.Spinner = spinner.Spinner{
		Frames: []string{"|", "/", "-", "\\"},
		FPS:    time.Second / 10,
	}
	return Spinner{spinner: s}
}

// Start activates the spinner with message and returns its tick.
func (s *Spinner) Start(message string) tea.Cmd {
	s.message = message
	if s.active {
		return nil
	}
	s.active = true
	s.startTime = time.Now()
	return s.spinner.Tick
}

// SetMessage changes the text without restarting the timer.
func (s *Spinner) SetMessage(message string) {
	s.message = message
}

// Stop deactivates the spinner. Pending ticks are dropped by Update.
func (s *Spinner) Stop() {
	s.active = false
}

// Active reports whether the spinner is running.
func (s *Spinner) Active() bool {
	return s.active
}

// Frame returns the current frame, or "" when stopped.
func (s Spinner) Frame() string {
	if !s.active {
		return ""
	}
	return s.spinner.View()
}

// Update advances the animation.
func (s Spinner) Update(msg tea.Msg) (Spinner, tea.Cmd) {
	if !s.active {
		return s, nil
	}
	var cmd tea.Cmd
	s.spinner, cmd = s.spinner.Update(msg)
	return s, cmd
}

// View renders the frame, message and elapsed time.
func (s Spinner) View() string {
	if !s.active {
		return ""
	}
	frame := lipgloss.NewStyle().Foreground(styles.Purple).Render(s.spinner.View())
	msg := lipgloss.NewStyle().Foreground(styles.TextSecondary).Render(s.message)
	elapsed := lipgloss.NewStyle().Foreground(styles.TextMuted).
		Render(" (" + FormatElapsed(time.Since(s.startTime)) + ")")
	return frame + " " + msg + elapsed
}

// FormatElapsed formats d as "12s" or "3m 4s".
func FormatElapsed(d time.Duration) string {
	seconds := int(d.Seconds())
	if seconds < 60 {
		return strconv.Itoa(seconds) + "s"
	}
	return strconv.Itoa(seconds/60) + "m " + strconv.Itoa(seconds%60) + "s"
}
