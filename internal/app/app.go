// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package app wires the ragchat components into one explicit context.
package app

import (
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"

	"github.com/jeranaias/ragchat-tui/internal/api"
	"github.com/jeranaias/ragchat-tui/internal/auth"
	"github.com/jeranaias/ragchat-tui/internal/chat"
	"github.com/jeranaias/ragchat-tui/internal/config"
	"github.com/jeranaias/ragchat-tui/internal/conversation"
	"github.com/jeranaias/ragchat-tui/internal/storage"
	"github.com/jeranaias/ragchat-tui/internal/upload"
)

// Notifier receives transient user-visible notifications.
type Notifier interface {
	Error(msg string)
	Info(msg string)
}

// Options carries front-end hooks.
type Options struct {
	Notifier Notifier
	// OnChatState is called on every streaming state transition.
	OnChatState func(chat.State)
	// OnLoginRequired is called when a gated action is refused.
	OnLoginRequired func()
}

// App is the explicit application context.
type App struct {
	Config *config.Config
	Logger *zap.Logger

	Client *api.Client
	Gate   *auth.Gate
	Auth   *auth.Service
	// Cache is nil when caching is disabled.
	Cache  *storage.Cache
	Store  *conversation.Store
	Chat   *chat.Controller
	Upload *upload.Controller
}

// New builds the component graph from cfg. The gate starts authenticated
// when a session cookie survived from a previous run.
func New(cfg *config.Config, logger *zap.Logger, opts Options) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	client, err := api.NewClientWithConfig(&api.ClientConfig{
		BaseURL:       cfg.Server.BaseURL,
		Timeout:       cfg.Server.Timeout(),
		UploadTimeout: cfg.Server.UploadTimeout(),
		UserAgent:     cfg.Server.UserAgent,
		CookieFile:    cfg.CookiePath(),
		Logger:        logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create API client: %w", err)
	}

	var cache *storage.Cache
	if cfg.Storage.CacheEnabled {
		cache, err = OpenCache(cfg)
		if err != nil {
			// History is a convenience; run without it.
			logger.Warn("cache unavailable", zap.Error(err))
		}
	}

	gate := auth.NewGate(client.HasSession())
	client.OnUnauthorized(gate.Logout)
	if opts.OnLoginRequired != nil {
		gate.OnPrompt(opts.OnLoginRequired)
	}
	gate.OnChange(func(authenticated bool) {
		logger.Info("session changed", zap.Bool("authenticated", authenticated))
	})

	a := &App{
		Config: cfg,
		Logger: logger,
		Client: client,
		Gate:   gate,
		Auth:   auth.NewService(client, gate, logger),
		Cache:  cache,
	}

	// A nil *storage.Cache must not become a non-nil interface.
	var storeCache conversation.Cache
	if cache != nil {
		storeCache = cache
	}
	a.Store = conversation.NewStore(client, gate, storeCache, logger)

	a.Chat = chat.NewController(chat.Config{
		Backend:  client,
		Gate:     gate,
		Store:    a.Store,
		Notifier: opts.Notifier,
		Logger:   logger,
		Options:  chatOptions(cfg.Chat),
		OnState:  opts.OnChatState,
	})
	a.Upload = upload.NewController(client, gate, opts.Notifier, logger)

	return a, nil
}

// OpenCache opens the conversation cache configured in cfg.
func OpenCache(cfg *config.Config) (*storage.Cache, error) {
	return storage.Open(storage.DefaultPath(cfg.DataDir()))
}

// ApplyChatConfig updates generation options after a config reload. The
// in-flight send keeps the options it started with.
func (a *App) ApplyChatConfig(c config.ChatConfig) {
	opts := chatOptions(c)
	a.Chat.SetModel(opts.Model)
	a.Chat.SetTag(opts.TagID)
	a.Chat.SetUseTool(opts.UseTool)
	a.Config.Chat = c
}

// Close releases the cache.
func (a *App) Close() error {
	if a.Cache != nil {
		return a.Cache.Close()
	}
	return nil
}

func chatOptions(c config.ChatConfig) chat.Options {
	return chat.Options{Model: c.Model, TagID: c.Tag, UseTool: c.UseTool}
}

// =============================================================================
// NOTIFIERS
// =============================================================================

// WriterNotifier prints notifications as lines.
type WriterNotifier struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriterNotifier returns a notifier writing to w.
func NewWriterNotifier(w io.Writer) *WriterNotifier {
	return &WriterNotifier{w: w}
}

// Error prints msg with an error prefix.
func (n *WriterNotifier) Error(msg string) {
	n.print("error: " + msg)
}

// Info prints msg.
func (n *WriterNotifier) Info(msg string) {
	n.print(msg)
}

func (n *WriterNotifier) print(line string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	fmt.Fprintln(n.w, line)
}
