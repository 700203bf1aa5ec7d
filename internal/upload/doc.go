// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package upload manages knowledge-base ingestion: file uploads against a
// new or existing tag, and Git repository analysis.
//
// # Key Types
//
//   - Controller: File selection, Git form and the two submit flows
//   - TagMode: Either NewTag{Name} or ExistingTag{ID}
//   - GitForm: Repository URL, user name and access token
//   - DropZone: Directory watcher that adds dropped files to the selection
//
// # Usage
//
//	ctrl := upload.NewController(client, gate, notifier, logger)
//	ctrl.AddFiles("notes.md", "paper.pdf")
//	res, err := ctrl.SubmitFiles(ctx, upload.NewTag{Name: "research"})
package upload
