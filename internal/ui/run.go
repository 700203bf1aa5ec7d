// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ui runs the ragchat terminal interface.
package ui

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/jeranaias/ragchat-tui/internal/app"
	chatctl "github.com/jeranaias/ragchat-tui/internal/chat"
	"github.com/jeranaias/ragchat-tui/internal/config"
	"github.com/jeranaias/ragchat-tui/internal/ui/chat"
	"github.com/jeranaias/ragchat-tui/internal/ui/components"
	"github.com/jeranaias/ragchat-tui/internal/ui/styles"
	"github.com/jeranaias/ragchat-tui/internal/upload"
)

// bridgeQueueSize bounds notifications waiting for the program.
const bridgeQueueSize = 256

// =============================================================================
// PROGRAM BRIDGE
// =============================================================================

// bridge forwards notifications from controller goroutines into the
// program. Calls never block, so controllers may notify from inside
// Update; messages keep their order.
type bridge struct {
	queue  chan tea.Msg
	logger *zap.Logger
	once   sync.Once
}

func newBridge(logger *zap.Logger) *bridge {
	return &bridge{queue: make(chan tea.Msg, bridgeQueueSize), logger: logger}
}

// attach starts delivering queued messages to p until ctx is done.
func (b *bridge) attach(ctx context.Context, p *tea.Program) {
	b.once.Do(func() {
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case msg := <-b.queue:
					p.Send(msg)
				}
			}
		}()
	})
}

func (b *bridge) send(msg tea.Msg) {
	select {
	case b.queue <- msg:
	default:
		b.logger.Warn("ui notification dropped", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

// Error implements app.Notifier.
func (b *bridge) Error(msg string) {
	b.send(chat.NotifyMsg{Kind: components.ToastError, Text: msg})
}

// Info implements app.Notifier.
func (b *bridge) Info(msg string) {
	b.send(chat.NotifyMsg{Kind: components.ToastInfo, Text: msg})
}

// =============================================================================
// RUN
// =============================================================================

// Run starts the TUI and blocks until the user quits. cfgPath, when set,
// is watched and its [chat] section applied on change.
func Run(ctx context.Context, cfg *config.Config, cfgPath string, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	br := newBridge(logger)
	a, err := app.New(cfg, logger, app.Options{
		Notifier:        br,
		OnChatState:     func(s chatctl.State) { br.send(chat.ChatStateMsg{State: s}) },
		OnLoginRequired: func() { br.send(chat.LoginRequiredMsg{}) },
	})
	if err != nil {
		return err
	}
	defer a.Close()

	// Cached history shows while the backend list loads.
	if err := a.Store.LoadCached(); err != nil {
		logger.Warn("failed to load cached conversations", zap.Error(err))
	}

	dropDir := startDropZone(ctx, a, br, logger)
	if cfgPath != "" {
		startConfigWatcher(ctx, a, br, cfgPath, logger)
	}

	theme := styles.NewTheme(styles.ParseMode(cfg.UI.Theme))
	m := chat.New(a, theme, chat.Options{
		Context:      ctx,
		SidebarWidth: cfg.UI.SidebarWidth,
		Markdown:     cfg.UI.Markdown,
		DropDir:      dropDir,
	})

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	br.attach(ctx, p)

	logger.Info("tui started", zap.String("base_url", cfg.Server.BaseURL))
	_, err = p.Run()
	cancel()
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}

// startDropZone watches the drop directory and returns it, or "" when
// disabled or unavailable.
func startDropZone(ctx context.Context, a *app.App, br *bridge, logger *zap.Logger) string {
	dir := a.Config.DropPath()
	if dir == "" {
		return ""
	}
	dz, err := upload.NewDropZone(dir, a.Upload, logger)
	if err != nil {
		logger.Warn("drop zone disabled", zap.Error(err))
		return ""
	}
	dz.OnAdd = func(path string) {
		br.send(chat.FileDroppedMsg{Path: filepath.Base(path)})
	}
	go func() {
		if err := dz.Run(ctx); err != nil {
			logger.Warn("drop zone stopped", zap.Error(err))
		}
	}()
	return dz.Dir()
}

func startConfigWatcher(ctx context.Context, a *app.App, br *bridge, path string, logger *zap.Logger) {
	w := config.NewWatcher(path)
	w.OnChange = func(c *config.Config) {
		a.ApplyChatConfig(c.Chat)
		br.send(chat.ConfigReloadedMsg{})
	}
	w.OnError = func(err error) {
		logger.Warn("config reload failed", zap.Error(err))
		br.Error("Config reload failed: " + err.Error())
	}
	go func() {
		if err := w.Run(ctx); err != nil {
			logger.Warn("config watcher stopped", zap.Error(err))
		}
	}()
}
