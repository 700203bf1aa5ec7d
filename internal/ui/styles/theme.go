// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the visual styling system for the ragchat TUI.
package styles

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Mode selects the background the palette is tuned for.
type Mode int

const (
	ModeAuto Mode = iota
	ModeDark
	ModeLight
)

// ParseMode maps a config theme name to a Mode. Unknown names are auto.
func ParseMode(s string) Mode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "dark":
		return ModeDark
	case "light":
		return ModeLight
	default:
		return ModeAuto
	}
}

// Theme holds all the styled components for the application.
type Theme struct {
	// Terminal capabilities
	IsDark       bool
	ColorProfile termenv.Profile

	// ==========================================================================
	// SIDEBAR STYLES
	// ==========================================================================

	Sidebar             lipgloss.Style
	SidebarFocused      lipgloss.Style
	SidebarTitle        lipgloss.Style
	SidebarItem         lipgloss.Style
	SidebarItemSelected lipgloss.Style
	SidebarItemCursor   lipgloss.Style
	SidebarMeta         lipgloss.Style

	// ==========================================================================
	// TRANSCRIPT STYLES
	// ==========================================================================

	Transcript       lipgloss.Style
	UserLabel        lipgloss.Style
	AssistantLabel   lipgloss.Style
	UserMessage      lipgloss.Style
	AssistantMessage lipgloss.Style
	Timestamp        lipgloss.Style
	EmptyState       lipgloss.Style

	// ==========================================================================
	// INPUT AREA STYLES
	// ==========================================================================

	InputContainer         lipgloss.Style
	InputContainerDisabled lipgloss.Style
	InputHint              lipgloss.Style

	// ==========================================================================
	// STATUS BAR STYLES
	// ==========================================================================

	StatusBar   lipgloss.Style
	StatusKey   lipgloss.Style
	StatusValue lipgloss.Style
	StatusOK    lipgloss.Style
	StatusWarn  lipgloss.Style

	// ==========================================================================
	// MODAL AND FORM STYLES
	// ==========================================================================

	Modal            lipgloss.Style
	ModalTitle       lipgloss.Style
	FormLabel        lipgloss.Style
	FormLabelFocused lipgloss.Style
	FormHint         lipgloss.Style
	FormError        lipgloss.Style
	Tab              lipgloss.Style
	TabActive        lipgloss.Style
}

// NewTheme creates a theme for mode. Auto asks the terminal.
func NewTheme(mode Mode) *Theme {
	isDark := true
	switch mode {
	case ModeLight:
		isDark = false
	case ModeAuto:
		isDark = termenv.HasDarkBackground()
	}
	// Adaptive colors follow the resolved background from here on.
	lipgloss.SetHasDarkBackground(isDark)

	t := &Theme{
		IsDark:       isDark,
		ColorProfile: termenv.ColorProfile(),
	}
	t.initStyles()
	return t
}

// GlamourStyle names the glamour standard style matching the theme.
func (t *Theme) GlamourStyle() string {
	if t.ColorProfile == termenv.Ascii {
		return "notty"
	}
	if t.IsDark {
		return "dark"
	}
	return "light"
}

// CodeStyle names the chroma style used for code blocks.
func (t *Theme) CodeStyle() string {
	if t.IsDark {
		return "monokai"
	}
	return "github"
}

// initStyles initializes all the lip gloss styles.
func (t *Theme) initStyles() {
	// Sidebar
	t.Sidebar = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Overlay).
		Padding(0, 1)

	t.SidebarFocused = t.Sidebar.
		BorderForeground(Purple)

	t.SidebarTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(Purple).
		MarginBottom(1)

	t.SidebarItem = lipgloss.NewStyle().
		Foreground(TextSecondary)

	t.SidebarItemSelected = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true)

	t.SidebarItemCursor = lipgloss.NewStyle().
		Foreground(TextPrimary).
		Background(SelectionBg)

	t.SidebarMeta = lipgloss.NewStyle().
		Foreground(TextMuted).
		Italic(true)

	// Transcript
	t.Transcript = lipgloss.NewStyle().
		Padding(0, 1)

	t.UserLabel = lipgloss.NewStyle().
		Foreground(UserAccent).
		Bold(true)

	t.AssistantLabel = lipgloss.NewStyle().
		Foreground(Purple).
		Bold(true)

	t.UserMessage = lipgloss.NewStyle().
		Foreground(TextPrimary).
		BorderStyle(lipgloss.NormalBorder()).
		BorderLeft(true).
		BorderForeground(UserAccent).
		PaddingLeft(1)

	t.AssistantMessage = lipgloss.NewStyle().
		Foreground(TextPrimary).
		BorderStyle(lipgloss.NormalBorder()).
		BorderLeft(true).
		BorderForeground(AssistantAccent).
		PaddingLeft(1)

	t.Timestamp = lipgloss.NewStyle().
		Foreground(TextMuted)

	t.EmptyState = lipgloss.NewStyle().
		Foreground(TextMuted).
		Italic(true).
		Align(lipgloss.Center)

	// Input area
	t.InputContainer = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Cyan).
		Padding(0, 1)

	t.InputContainerDisabled = t.InputContainer.
		BorderForeground(OverlayDim).
		Foreground(TextMuted)

	t.InputHint = lipgloss.NewStyle().
		Foreground(TextMuted).
		Italic(true)

	// Status bar
	t.StatusBar = lipgloss.NewStyle().
		Background(SurfaceDim).
		Foreground(TextSecondary).
		Padding(0, 1)

	t.StatusKey = lipgloss.NewStyle().
		Foreground(TextMuted)

	t.StatusValue = lipgloss.NewStyle().
		Foreground(TextPrimary).
		Bold(true)

	t.StatusOK = lipgloss.NewStyle().
		Foreground(Emerald).
		Bold(true)

	t.StatusWarn = lipgloss.NewStyle().
		Foreground(Amber).
		Bold(true)

	// Modals and forms
	t.Modal = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Purple).
		Padding(1, 2)

	t.ModalTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(Purple).
		MarginBottom(1)

	t.FormLabel = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Width(14)

	t.FormLabelFocused = t.FormLabel.
		Foreground(Cyan).
		Bold(true)

	t.FormHint = lipgloss.NewStyle().
		Foreground(TextMuted).
		Italic(true)

	t.FormError = lipgloss.NewStyle().
		Foreground(Rose)

	t.Tab = lipgloss.NewStyle().
		Foreground(TextMuted).
		Padding(0, 1)

	t.TabActive = lipgloss.NewStyle().
		Foreground(TextInverse).
		Background(Purple).
		Bold(true).
		Padding(0, 1)
}
