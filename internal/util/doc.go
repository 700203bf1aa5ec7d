// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared across ragchat packages.
//
// # Key Functions
//
//   - AtomicWriteFile: Crash-safe file writing with fsync and rename
//   - ExpandHome: Resolves a leading "~" in configured paths
//   - TruncateWidth: Display-width aware truncation for terminal columns
//   - SingleLine: Collapses whitespace runs for one-line previews
//
// # Usage
//
//	err := util.AtomicWriteFile(path, data, 0600)
//	label := util.TruncateWidth(title, 24)
package util
