// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package conversation holds the ordered conversation list and the message
// list of the selected conversation.
//
// State is published as immutable snapshots. Every mutation builds a new
// Snapshot under a writer lock and swaps it in atomically, so a renderer
// holding an older snapshot never observes a half-applied change.
//
// # Key Types
//
//   - Store: Owner of the conversation state and its mutations
//   - Snapshot: Immutable view handed to readers
//   - Selection: Prior selection captured for rollback
//   - Backend: The subset of the API client the store needs
//   - Cache: Optional local persistence for offline history
//
// # Usage
//
//	store := conversation.NewStore(client, gate, cache, logger)
//	if err := store.Refresh(ctx); err != nil { ... }
//	if err := store.Select(ctx, id); err != nil { ... }
//	snap := store.Snapshot()
//	for _, m := range snap.Messages { ... }
package conversation
