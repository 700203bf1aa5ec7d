// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides UI components for the ragchat TUI.
package components

import (
	"strconv"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	chromaStyles "github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/ragchat-tui/internal/ui/styles"
)

// =============================================================================
// CODE BLOCK RENDERER
// =============================================================================

// CodeBlock represents a fenced code block.
type CodeBlock struct {
	Language string
	Code     string
	MaxWidth int
	// Style is the chroma style name.
	Style string
}

// Render renders the code block with line numbers and highlighting.
func (c CodeBlock) Render() string {
	code := strings.TrimRight(c.Code, "\n")
	lines := strings.Split(highlightCode(code, c.Language, c.Style), "\n")

	lineNumStyle := lipgloss.NewStyle().
		Foreground(styles.TextMuted).
		Width(4).
		Align(lipgloss.Right).
		MarginRight(1)

	rendered := make([]string, 0, len(lines))
	for i, line := range lines {
		rendered = append(rendered, lineNumStyle.Render(strconv.Itoa(i+1))+line)
	}

	var header string
	if c.Language != "" {
		header = lipgloss.NewStyle().
			Foreground(styles.TextMuted).
			Background(styles.OverlayDim).
			Padding(0, 1).
			Bold(true).
			Render(c.Language) + "\n"
	}

	maxWidth := c.MaxWidth - 4
	if maxWidth < 20 {
		maxWidth = 20
	}
	return lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(styles.Overlay).
		Padding(0, 1).
		MaxWidth(maxWidth).
		Render(header + strings.Join(rendered, "\n"))
}

// =============================================================================
// MARKDOWN CODE BLOCK PARSER
// =============================================================================

// RenderCodeFences replaces ``` fenced blocks in text with highlighted code
// blocks and leaves the prose untouched. An unclosed fence, common while a
// reply is still streaming, is rendered as far as it goes.
func RenderCodeFences(text string, maxWidth int, style string) string {
	lines := strings.Split(text, "\n")
	var (
		result    []string
		inCode    bool
		codeLines []string
		language  string
	)

	flush := func() {
		cb := CodeBlock{Language: language, Code: strings.Join(codeLines, "\n"), MaxWidth: maxWidth, Style: style}
		result = append(result, cb.Render())
		codeLines = nil
		language = ""
	}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "```") && inCode:
			flush()
			inCode = false
		case strings.HasPrefix(trimmed, "```"):
			language = strings.TrimSpace(strings.TrimPrefix(trimmed, "```"))
			inCode = true
		case inCode:
			codeLines = append(codeLines, line)
		default:
			result = append(result, line)
		}
	}
	if inCode && len(codeLines) > 0 {
		flush()
	}
	return strings.Join(result, "\n")
}

// =============================================================================
// SYNTAX HIGHLIGHTING (Chroma-based)
// =============================================================================

// highlightCode applies terminal syntax highlighting, returning code
// unchanged when highlighting fails.
func highlightCode(code, language, styleName string) string {
	lexer := lexers.Get(language)
	if lexer == nil {
		lexer = lexers.Analyse(code)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	style := chromaStyles.Get(styleName)
	if style == nil {
		style = chromaStyles.Fallback
	}

	formatter := formatters.Get("terminal256")
	if formatter == nil {
		formatter = formatters.Fallback
	}

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code
	}
	var buf strings.Builder
	if err := formatter.Format(&buf, style, iterator); err != nil {
		return code
	}
	return buf.String()
}
