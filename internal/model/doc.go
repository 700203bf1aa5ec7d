// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
//
// This package defines the core domain types shared by the conversation
// store, the streaming controller and the terminal UI.
//
// # Key Types
//
//   - ID: Tagged identifier, either Local (optimistic placeholder) or Persisted (backend-assigned)
//   - Conversation: Titled, ordered thread of messages
//   - Message: Single turn with role, content, timestamp and loading flag
//   - Role: Message author enumeration (user, assistant)
//   - Tag: Knowledge-base tag used to scope retrieval-augmented generation
//
// # Usage
//
// Create a local conversation titled from the first user message:
//
//	conv := model.NewConversation()
//	msg := model.NewUserMessage("What is a vector index?")
//	conv.Title = model.DeriveTitle(msg.Content)
//
// Bind the backend identifier once the conversation is created server-side:
//
//	conv.ID = model.PersistedID("1899871234567890944")
package model
