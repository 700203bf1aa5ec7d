// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
package model

import (
	"strings"

	"github.com/rivo/uniseg"
	"golang.org/x/text/unicode/norm"
)

const (
	// TitleMaxChars is the display limit for conversation titles.
	TitleMaxChars = 30

	// TitleEllipsis is appended to titles longer than TitleMaxChars.
	TitleEllipsis = "..."

	// PrefixChars is the length of the title seed sent to the backend.
	PrefixChars = 10
)

// UNICODE: titles are counted in user-perceived characters (grapheme
// clusters), so emoji and combining sequences are never split.

// DeriveTitle builds a conversation title from the first user message.
// Text of at most TitleMaxChars characters is returned verbatim; longer text
// is cut to TitleMaxChars characters followed by TitleEllipsis.
func DeriveTitle(text string) string {
	text = norm.NFC.String(strings.TrimSpace(text))
	if uniseg.GraphemeClusterCount(text) <= TitleMaxChars {
		return text
	}
	return firstGraphemes(text, TitleMaxChars) + TitleEllipsis
}

// TitlePrefix returns the short seed the backend stores as the initial title.
func TitlePrefix(text string) string {
	return firstGraphemes(norm.NFC.String(strings.TrimSpace(text)), PrefixChars)
}

func firstGraphemes(text string, n int) string {
	var b strings.Builder
	g := uniseg.NewGraphemes(text)
	for i := 0; i < n && g.Next(); i++ {
		b.WriteString(g.Str())
	}
	return b.String()
}
