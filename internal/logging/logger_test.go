// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jeranaias/ragchat-tui/internal/config"
)

func TestNew_JSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "ragchat.log")
	logger, err := New(Options{Level: "warn", Encoding: "json", ServiceName: "ragchat", OutputPath: path})
	require.NoError(t, err)
	t.Cleanup(func() { zap.ReplaceGlobals(zap.NewNop()) })

	logger.Info("dropped")
	logger.Warn("malformed event", zap.Int("count", 2))
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "malformed event", entry["msg"])
	assert.Equal(t, "ragchat", entry["logger"])
	assert.Equal(t, float64(2), entry["count"])
	assert.Contains(t, entry, "time")
}

func TestNew_BadLevelFallsBackToInfo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.log")
	logger, err := New(Options{Level: "chatty", Encoding: "json", OutputPath: path})
	require.NoError(t, err)
	t.Cleanup(func() { zap.ReplaceGlobals(zap.NewNop()) })

	assert.False(t, logger.Core().Enabled(zap.DebugLevel))
	assert.True(t, logger.Core().Enabled(zap.InfoLevel))
}

func TestNew_InstallsGlobal(t *testing.T) {
	logger, err := New(Options{Encoding: "console", OutputPath: filepath.Join(t.TempDir(), "c.log")})
	require.NoError(t, err)
	t.Cleanup(func() { zap.ReplaceGlobals(zap.NewNop()) })

	assert.Same(t, logger, zap.L())
}

func TestFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.DataDir = "/data"
	cfg.Log.Level = "debug"

	opts := FromConfig(cfg, "")
	assert.Equal(t, filepath.Join("/data", "ragchat.log"), opts.OutputPath)
	assert.Equal(t, "debug", opts.Level)

	assert.Equal(t, Stderr, FromConfig(cfg, Stderr).OutputPath)
}
