// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package auth tracks the login state and runs the account flows.
//
// # Key Types
//
//   - Gate: Authenticated flag consulted before any backend call
//   - Service: Login, registration, email code and captcha flows
//   - Backend: The subset of the API client the flows need
//
// # Usage
//
//	gate := auth.NewGate(client.HasSession())
//	gate.OnPrompt(func() { showLogin() })
//	if err := gate.Require(); err != nil {
//	    return err // auth.ErrLoginRequired, prompt already raised
//	}
package auth
