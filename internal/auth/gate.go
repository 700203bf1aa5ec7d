// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package auth tracks the login state and runs the account flows.
package auth

import (
	"errors"
	"sync"
	"sync/atomic"
)

// ErrLoginRequired is returned by Require when the user is not logged in.
var ErrLoginRequired = errors.New("login required")

// =============================================================================
// GATE
// =============================================================================

// Gate holds the authenticated flag. It performs no validation itself; the
// backend decides, and the application flips the flag on login, logout and
// 401 responses.
type Gate struct {
	authenticated atomic.Bool

	mu       sync.Mutex
	onPrompt func()
	onChange []func(bool)
}

// NewGate returns a gate with the given initial state.
func NewGate(authenticated bool) *Gate {
	g := &Gate{}
	g.authenticated.Store(authenticated)
	return g
}

// Authenticated reports the current state.
func (g *Gate) Authenticated() bool {
	return g.authenticated.Load()
}

// SetAuthenticated updates the state and notifies listeners on change.
func (g *Gate) SetAuthenticated(v bool) {
	if g.authenticated.Swap(v) == v {
		return
	}
	g.mu.Lock()
	listeners := append([]func(bool){}, g.onChange...)
	g.mu.Unlock()
	for _, fn := range listeners {
		fn(v)
	}
}

// Logout clears the authenticated flag.
func (g *Gate) Logout() {
	g.SetAuthenticated(false)
}

// OnPrompt registers the callback that surfaces the login prompt.
func (g *Gate) OnPrompt(fn func()) {
	g.mu.Lock()
	g.onPrompt = fn
	g.mu.Unlock()
}

// OnChange registers a listener for authentication state changes.
func (g *Gate) OnChange(fn func(authenticated bool)) {
	g.mu.Lock()
	g.onChange = append(g.onChange, fn)
	g.mu.Unlock()
}

// Require returns nil when authenticated. Otherwise it raises the login
// prompt and returns ErrLoginRequired; nothing else changes.
func (g *Gate) Require() error {
	if g.Authenticated() {
		return nil
	}
	g.mu.Lock()
	prompt := g.onPrompt
	g.mu.Unlock()
	if prompt != nil {
		prompt()
	}
	return ErrLoginRequired
}
