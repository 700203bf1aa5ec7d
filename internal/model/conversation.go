// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
package model

import (
	"time"
)

// =============================================================================
// CONVERSATION TYPE
// =============================================================================

// Conversation holds a titled, ordered thread of messages.
type Conversation struct {
	ID        ID        `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Messages []*Message `json:"messages"`
}

// NewConversation creates a local placeholder conversation.
func NewConversation() *Conversation {
	now := time.Now()
	return &Conversation{
		ID:        NewLocalID(),
		CreatedAt: now,
		UpdatedAt: now,
		Messages:  make([]*Message, 0),
	}
}

// IndexOf returns the position of message id in msgs, or -1.
func IndexOf(msgs []*Message, id ID) int {
	for i, m := range msgs {
		if m.ID == id {
			return i
		}
	}
	return -1
}

// =============================================================================
// KNOWLEDGE-BASE TAGS
// =============================================================================

// DefaultTagID is the sentinel the tag picker uses for "no tag".
const DefaultTagID = "default"

// Tag is a named grouping of uploaded documents.
type Tag struct {
	ID   string `json:"tagId"`
	Name string `json:"tagName"`
}

// IsNoTag reports whether tagID selects plain generation.
func IsNoTag(tagID string) bool {
	return tagID == "" || tagID == DefaultTagID
}
