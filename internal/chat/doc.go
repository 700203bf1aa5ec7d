// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat runs the send-message cycle: optimistic append, lazy
// conversation creation, the generation stream, and rollback on failure.
//
// A Controller processes one send at a time. Its state moves
// Idle -> Sending -> StreamOpen -> Idle on success and
// Idle -> Sending -> Failed -> Idle on error. Sends attempted while the
// controller is not Idle are rejected with ErrBusy and have no effect.
//
// # Key Types
//
//   - Controller: The send-cycle state machine
//   - State: Controller state enumeration
//   - Options: Model, knowledge-base tag and tool flag for generation
//   - Result: What one cycle produced
//   - Notifier: Sink for transient user-visible notifications
//
// # Usage
//
//	ctrl := chat.NewController(chat.Config{
//	    Backend:  client,
//	    Gate:     gate,
//	    Store:    store,
//	    Notifier: toasts,
//	    Options:  chat.Options{Model: "deepseek-chat"},
//	})
//	res, err := ctrl.Send(ctx, input)
package chat
