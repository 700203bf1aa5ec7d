// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api provides the HTTP client for the chat and knowledge-base backend.
//
// Every backend operation the client uses has exactly one method here. The
// client owns a cookie jar that is persisted to disk so a session survives
// restarts, and it reports 401 responses through an optional hook so the
// application can drop back to the login prompt.
//
// # Key Types
//
//   - Client: Backend client with a regular and a streaming http.Client
//   - ClientConfig: Base URL, timeouts and cookie file location
//   - ClientError: Categorized error carrying the HTTP status and response text
//   - StreamRequest: Parameters for plain or retrieval-augmented generation
//
// # Usage
//
//	client, err := api.NewClientWithConfig(&api.ClientConfig{
//	    BaseURL:    "http://localhost:8090/api/v1",
//	    CookieFile: "~/.ragchat/cookies.json",
//	})
//	if err := client.Login(ctx, email, password); err != nil {
//	    ...
//	}
//	body, err := client.OpenStream(ctx, api.StreamRequest{ChatID: id, Model: "deepseek-chat", Message: text})
//	defer body.Close()
package api
