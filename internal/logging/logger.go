// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging builds the zap loggers used across ragchat.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/jeranaias/ragchat-tui/internal/config"
)

// Stderr is the OutputPath for CLI logging.
const Stderr = "stderr"

// Options configures a logger.
type Options struct {
	Level        string
	Encoding     string
	Development  bool
	EnableCaller bool
	ServiceName  string
	// OutputPath is a file path or "stderr".
	OutputPath string
}

// FromConfig derives Options from the [log] section. output overrides the
// configured file, e.g. Stderr for CLI commands.
func FromConfig(cfg *config.Config, output string) Options {
	if output == "" {
		output = cfg.LogPath()
	}
	return Options{
		Level:        cfg.Log.Level,
		Encoding:     cfg.Log.Encoding,
		Development:  cfg.Log.Development,
		EnableCaller: cfg.Log.Development,
		ServiceName:  "ragchat",
		OutputPath:   output,
	}
}

// New builds a logger and installs it as the zap global.
func New(opts Options) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if err := level.Set(strings.ToLower(opts.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	encoding := strings.ToLower(opts.Encoding)
	if encoding == "" {
		encoding = "console"
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderCfg.TimeKey = "time"
	encoderCfg.MessageKey = "msg"
	encoderCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	if encoding == "console" {
		encoderCfg = zap.NewDevelopmentEncoderConfig()
		encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	output := opts.OutputPath
	if output == "" {
		output = Stderr
	}
	if output != Stderr && output != "stdout" {
		if err := os.MkdirAll(filepath.Dir(output), 0700); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
	}

	zapCfg := zap.Config{
		Level:             zap.NewAtomicLevelAt(level),
		Development:       opts.Development,
		Encoding:          encoding,
		EncoderConfig:     encoderCfg,
		OutputPaths:       []string{output},
		ErrorOutputPaths:  []string{output},
		DisableCaller:     !opts.EnableCaller,
		DisableStacktrace: !opts.Development,
	}

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	if name := strings.TrimSpace(opts.ServiceName); name != "" {
		logger = logger.Named(name)
	}

	zap.ReplaceGlobals(logger)
	return logger, nil
}

// Nop returns a logger that discards everything.
func Nop() *zap.Logger {
	return zap.NewNop()
}
