// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the line-oriented ragchat commands: one-shot
// questions, the interactive chat REPL, account and knowledge-base
// management, and configuration.
//
// Every command takes its output writer explicitly. Commands that accept
// --json print a single JSONResponse envelope to that writer, while
// notifications from the controllers go to stderr.
//
// USABILITY: Colors are disabled for non-TTY output and when NO_COLOR is set.
package cli
