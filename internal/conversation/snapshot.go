// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package conversation holds the ordered conversation list and the message
// list of the selected conversation.
package conversation

import (
	"github.com/jeranaias/ragchat-tui/internal/model"
)

// Snapshot is an immutable view of the store. Callers must not modify any
// slice or value reachable from it.
type Snapshot struct {
	// Conversations in display order, newest first.
	Conversations []*model.Conversation

	// Selected is the active conversation, or the None id.
	Selected model.ID

	// Messages is the active message list.
	Messages []*model.Message

	// Loading is set while the selected conversation's messages are fetched.
	Loading bool

	// Streaming is the conversation with an open generation stream.
	Streaming model.ID
}

// Conversation returns the conversation with the given id, or nil.
func (s *Snapshot) Conversation(id model.ID) *model.Conversation {
	if idx := s.indexOf(id); idx >= 0 {
		return s.Conversations[idx]
	}
	return nil
}

// Current returns the selected conversation, or nil.
func (s *Snapshot) Current() *model.Conversation {
	if s.Selected.IsNone() {
		return nil
	}
	return s.Conversation(s.Selected)
}

func (s *Snapshot) indexOf(id model.ID) int {
	for i, c := range s.Conversations {
		if c.ID == id {
			return i
		}
	}
	return -1
}

// clone copies the top-level slices. Conversations and messages are still
// shared and must be replaced, not mutated.
func (s *Snapshot) clone() *Snapshot {
	next := *s
	next.Conversations = append([]*model.Conversation(nil), s.Conversations...)
	next.Messages = append([]*model.Message(nil), s.Messages...)
	return &next
}

// editConversation replaces conversation id with a shallow copy whose
// message slice is private, then applies fn to it.
func (s *Snapshot) editConversation(id model.ID, fn func(c *model.Conversation)) bool {
	idx := s.indexOf(id)
	if idx < 0 {
		return false
	}
	c := *s.Conversations[idx]
	c.Messages = append([]*model.Message(nil), c.Messages...)
	fn(&c)
	s.Conversations[idx] = &c
	return true
}

// editMessage replaces message id in msgs with a mutated copy.
func editMessage(msgs []*model.Message, id model.ID, fn func(m *model.Message)) bool {
	idx := model.IndexOf(msgs, id)
	if idx < 0 {
		return false
	}
	m := msgs[idx].Clone()
	fn(m)
	msgs[idx] = m
	return true
}

func removeMessage(msgs []*model.Message, id model.ID) []*model.Message {
	idx := model.IndexOf(msgs, id)
	if idx < 0 {
		return msgs
	}
	return append(msgs[:idx:idx], msgs[idx+1:]...)
}
