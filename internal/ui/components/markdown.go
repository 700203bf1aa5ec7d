// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides UI components for the ragchat TUI.
package components

import (
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/jeranaias/ragchat-tui/internal/ui/styles"
)

// maxCacheEntries bounds the rendered-reply cache.
const maxCacheEntries = 256

// Markdown renders finished assistant replies with glamour. Replies still
// streaming take the cheap path (code fences only) so each fragment does
// not pay for a full markdown render.
type Markdown struct {
	style     string
	codeStyle string
	width     int
	enabled   bool

	renderer *glamour.TermRenderer
	cache    map[string]string
}

// NewMarkdown creates a renderer following theme. When enabled is false
// every reply takes the plain path.
func NewMarkdown(theme *styles.Theme, enabled bool) *Markdown {
	return &Markdown{
		style:     theme.GlamourStyle(),
		codeStyle: theme.CodeStyle(),
		enabled:   enabled,
		cache:     make(map[string]string),
	}
}

// SetWidth sets the wrap width. A change drops the renderer and cache.
func (m *Markdown) SetWidth(width int) {
	if width < 20 {
		width = 20
	}
	if width == m.width {
		return
	}
	m.width = width
	m.renderer = nil
	m.cache = make(map[string]string)
}

// Render renders a finished reply.
func (m *Markdown) Render(text string) string {
	if !m.enabled {
		return m.RenderStreaming(text)
	}
	if out, ok := m.cache[text]; ok {
		return out
	}

	if m.renderer == nil {
		r, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(m.style),
			glamour.WithWordWrap(m.width),
		)
		if err != nil {
			return m.RenderStreaming(text)
		}
		m.renderer = r
	}

	out, err := m.renderer.Render(text)
	if err != nil {
		return m.RenderStreaming(text)
	}
	out = strings.Trim(out, "\n")

	if len(m.cache) >= maxCacheEntries {
		m.cache = make(map[string]string)
	}
	m.cache[text] = out
	return out
}

// RenderStreaming renders a partial reply: prose is left as is and code
// fences are highlighted.
func (m *Markdown) RenderStreaming(text string) string {
	return RenderCodeFences(text, m.width, m.codeStyle)
}
