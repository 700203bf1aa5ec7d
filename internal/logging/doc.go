// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging builds the zap loggers used across ragchat.
//
// The TUI owns the terminal, so it logs to a file in the data dir. CLI
// subcommands log to stderr.
//
// # Usage
//
//	logger, err := logging.New(logging.Options{
//	    Level:       "info",
//	    Encoding:    "json",
//	    ServiceName: "ragchat",
//	    OutputPath:  cfg.LogPath(),
//	})
//	defer logger.Sync()
package logging
