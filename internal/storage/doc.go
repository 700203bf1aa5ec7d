// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides the local conversation cache for ragchat.
//
// The cache mirrors what the backend last returned so history can be shown
// before the backend answers, or with no network at all. It is never the
// source of truth: a Refresh replaces the cached list wholesale.
//
// # Key Types
//
//   - Cache: SQLite-backed store of conversations and their messages
//
// # Usage
//
// Open the cache and hand it to the conversation store:
//
//	cache, err := storage.Open(storage.DefaultPath(dataDir))
//	defer cache.Close()
//	store := conversation.NewStore(client, gate, cache, logger)
//
// Read history offline:
//
//	convs, err := cache.LoadConversations()
//	msgs, err := cache.LoadMessages(convs[0].ID)
//
// # Storage Location
//
// The database lives at ~/.ragchat/cache.db unless the data dir is changed
// in the config file.
package storage
