// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat runs the send-message cycle.
package chat

import (
	"context"
	"sync"
)

// =============================================================================
// CANCEL FUNCTION MANAGEMENT (THREAD-SAFE)
// =============================================================================

// cancelManager holds the cancel func of the open stream. Cancel may be
// called from the UI goroutine while Send runs on another.
type cancelManager struct {
	mu         sync.Mutex
	cancelFunc context.CancelFunc
	requested  bool
}

// set stores fn for the current send cycle and resets the request flag.
func (cm *cancelManager) set(fn context.CancelFunc) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.cancelFunc = fn
	cm.requested = false
}

// cancel aborts the current stream, if any. Safe to call at any time.
func (cm *cancelManager) cancel() bool {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	if cm.cancelFunc == nil {
		return false
	}
	cm.cancelFunc()
	cm.cancelFunc = nil
	cm.requested = true
	return true
}

// clear releases the context and reports whether the user asked to cancel.
func (cm *cancelManager) clear() (requested bool) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	if cm.cancelFunc != nil {
		cm.cancelFunc()
		cm.cancelFunc = nil
	}
	requested = cm.requested
	cm.requested = false
	return requested
}
