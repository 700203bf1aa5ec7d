// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
package model

import (
	"fmt"
	"strings"
	"time"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Assistant"
	default:
		return string(r)
	}
}

// ParseRole converts a wire role into a Role.
func ParseRole(s string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleUser:
		return RoleUser, nil
	case RoleAssistant:
		return RoleAssistant, nil
	default:
		return "", fmt.Errorf("unknown message role %q", s)
	}
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message represents a single turn in a conversation.
type Message struct {
	ID        ID        `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`

	// Loading is set while the message is still receiving content.
	Loading bool `json:"-"`
}

// NewUserMessage creates an optimistic user message with a local id.
func NewUserMessage(content string) *Message {
	return &Message{
		ID:        NewLocalID(),
		Role:      RoleUser,
		Content:   content,
		Timestamp: time.Now(),
	}
}

// NewAssistantMessage creates an empty assistant message ready for streaming.
func NewAssistantMessage() *Message {
	return &Message{
		ID:        NewLocalID(),
		Role:      RoleAssistant,
		Timestamp: time.Now(),
		Loading:   true,
	}
}

// Clone returns a copy of the message.
func (m *Message) Clone() *Message {
	if m == nil {
		return nil
	}
	c := *m
	return &c
}

// IsUser reports whether the user authored this message.
func (m *Message) IsUser() bool {
	return m.Role == RoleUser
}

// IsAssistant reports whether the assistant authored this message.
func (m *Message) IsAssistant() bool {
	return m.Role == RoleAssistant
}

// FormatTimestamp returns a short display time for the message.
func (m *Message) FormatTimestamp() string {
	if m.Timestamp.IsZero() {
		return ""
	}
	if time.Since(m.Timestamp) < 24*time.Hour {
		return m.Timestamp.Format("15:04")
	}
	return m.Timestamp.Format("Jan 2 15:04")
}
