// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
package model

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// TITLE TESTS
// =============================================================================

func TestDeriveTitle(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"short verbatim", "hello", "hello"},
		{"exactly thirty", strings.Repeat("a", 30), strings.Repeat("a", 30)},
		{"thirty five", strings.Repeat("b", 35), strings.Repeat("b", 30) + "..."},
		{"trims whitespace", "   spaced out   ", "spaced out"},
		{"empty", "", ""},
		{"cjk counted by character", strings.Repeat("字", 31), strings.Repeat("字", 30) + "..."},
		{"emoji not split", strings.Repeat("👍🏽", 32), strings.Repeat("👍🏽", 30) + "..."},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := DeriveTitle(tc.input); got != tc.want {
				t.Errorf("DeriveTitle(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}

func TestDeriveTitle_LengthProperty(t *testing.T) {
	for n := 0; n <= 40; n++ {
		in := strings.Repeat("x", n)
		got := DeriveTitle(in)
		if n <= TitleMaxChars {
			assert.Equal(t, in, got, "n=%d", n)
			continue
		}
		assert.Equal(t, TitleMaxChars+len(TitleEllipsis), len(got), "n=%d", n)
		assert.True(t, strings.HasSuffix(got, TitleEllipsis))
	}
}

func TestTitlePrefix(t *testing.T) {
	assert.Equal(t, "abcdefghij", TitlePrefix("  abcdefghijklmnop"))
	assert.Equal(t, "short", TitlePrefix("short"))
}

// =============================================================================
// ID TESTS
// =============================================================================

func TestID_Kinds(t *testing.T) {
	assert.True(t, NoID().IsNone())
	assert.True(t, PersistedID("  ").IsNone())
	assert.True(t, PersistedID("42").IsPersisted())

	local := NewLocalID()
	assert.True(t, local.IsLocal())
	assert.NotEqual(t, local, NewLocalID())
}

func TestID_LocalNeverEqualsPersisted(t *testing.T) {
	local := LocalID("123")
	persisted := PersistedID("123")

	assert.NotEqual(t, local, persisted)
	assert.NotEqual(t, local.String(), persisted.String())
	assert.Equal(t, local, ParseID(local.String()))
	assert.Equal(t, persisted, ParseID(persisted.String()))
}

func TestID_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want ID
	}{
		{"quoted", `"1899871234567890944"`, PersistedID("1899871234567890944")},
		{"bare number keeps precision", `1899871234567890944`, PersistedID("1899871234567890944")},
		{"null", `null`, NoID()},
		{"local", `"local-abc"`, LocalID("abc")},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var got ID
			require.NoError(t, json.Unmarshal([]byte(tc.raw), &got))
			assert.Equal(t, tc.want, got)
		})
	}
}

// =============================================================================
// CONVERSATION TESTS
// =============================================================================

func TestNewConversation_IsLocal(t *testing.T) {
	conv := NewConversation()
	assert.True(t, conv.ID.IsLocal())
	assert.Empty(t, conv.Messages)
	assert.NotEqual(t, conv.ID, NewConversation().ID)
}

func TestIndexOf(t *testing.T) {
	a, b := NewUserMessage("a"), NewAssistantMessage()
	msgs := []*Message{a, b}
	assert.Equal(t, 0, IndexOf(msgs, a.ID))
	assert.Equal(t, 1, IndexOf(msgs, b.ID))
	assert.Equal(t, -1, IndexOf(msgs, NewUserMessage("c").ID))
	assert.Equal(t, -1, IndexOf(nil, a.ID))
}

func TestMessage_CloneIsIndependent(t *testing.T) {
	m := NewAssistantMessage()
	c := m.Clone()
	c.Content = "changed"
	c.Loading = false

	assert.Empty(t, m.Content)
	assert.True(t, m.Loading)
	assert.Equal(t, m.ID, c.ID)
}

func TestParseRole(t *testing.T) {
	r, err := ParseRole("Assistant")
	require.NoError(t, err)
	assert.Equal(t, RoleAssistant, r)

	_, err = ParseRole("system")
	assert.Error(t, err)
}

func TestIsNoTag(t *testing.T) {
	assert.True(t, IsNoTag(""))
	assert.True(t, IsNoTag(DefaultTagID))
	assert.False(t, IsNoTag("17"))
}
