// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat runs the send-message cycle.
package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/jeranaias/ragchat-tui/internal/api"
	"github.com/jeranaias/ragchat-tui/internal/conversation"
	"github.com/jeranaias/ragchat-tui/internal/model"
	"github.com/jeranaias/ragchat-tui/internal/sse"
)

// =============================================================================
// STATE
// =============================================================================

// State is the controller's position in the send cycle.
type State int32

const (
	StateIdle State = iota
	StateSending
	StateStreamOpen
	StateFailed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSending:
		return "sending"
	case StateStreamOpen:
		return "stream_open"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Busy reports whether a send is in progress.
func (s State) Busy() bool {
	return s == StateSending || s == StateStreamOpen
}

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrEmptyInput is returned for empty or whitespace-only input.
	ErrEmptyInput = errors.New("message is empty")

	// ErrBusy is returned when a send is already in progress.
	ErrBusy = errors.New("a message is already being sent")

	// ErrLoading is returned while the selected conversation's messages are
	// still being fetched.
	ErrLoading = errors.New("conversation is still loading")
)

// User-visible notification texts.
const (
	msgSendFailed   = "Failed to send message"
	msgCreateFailed = "Failed to create conversation"
)

// =============================================================================
// COLLABORATORS
// =============================================================================

// Backend is the subset of the API client used by the controller.
type Backend interface {
	CreateConversation(ctx context.Context, prefix string) (model.ID, error)
	OpenStream(ctx context.Context, r api.StreamRequest) (io.ReadCloser, error)
}

// Gate reports whether backend calls are allowed.
type Gate interface {
	Require() error
}

// Notifier receives transient user-visible notifications.
type Notifier interface {
	Error(msg string)
	Info(msg string)
}

// Options select how replies are generated.
type Options struct {
	Model string
	// TagID scopes retrieval; empty or "default" means plain generation.
	TagID   string
	UseTool bool
}

// Config wires a Controller.
type Config struct {
	Backend  Backend
	Gate     Gate
	Store    *conversation.Store
	Notifier Notifier
	Logger   *zap.Logger
	Options  Options

	// OnState, if set, is called on every state transition.
	OnState func(State)
}

// Result describes one completed send cycle.
type Result struct {
	ConversationID     model.ID
	UserMessageID      model.ID
	AssistantMessageID model.ID

	// Fragments counts data events appended, Malformed those skipped.
	Fragments int
	Malformed int
	// StreamErrors holds the text of error events, in arrival order.
	StreamErrors []string
	// Canceled is set when Cancel ended the stream.
	Canceled bool
}

// =============================================================================
// CONTROLLER
// =============================================================================

// Controller runs send cycles against one conversation store.
type Controller struct {
	backend Backend
	gate    Gate
	store   *conversation.Store
	notify  Notifier
	logger  *zap.Logger
	onState func(State)

	state  atomic.Int32
	cancel cancelManager

	mu   sync.RWMutex
	opts Options
}

// NewController creates an idle controller.
func NewController(cfg Config) *Controller {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Notifier == nil {
		cfg.Notifier = nopNotifier{}
	}
	return &Controller{
		backend: cfg.Backend,
		gate:    cfg.Gate,
		store:   cfg.Store,
		notify:  cfg.Notifier,
		logger:  cfg.Logger.Named("chat"),
		onState: cfg.OnState,
		opts:    cfg.Options,
	}
}

// State returns the current state.
func (c *Controller) State() State {
	return State(c.state.Load())
}

// Options returns the current generation options.
func (c *Controller) Options() Options {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.opts
}

// SetModel changes the model used by later sends.
func (c *Controller) SetModel(model string) {
	c.mu.Lock()
	c.opts.Model = model
	c.mu.Unlock()
}

// SetTag selects the knowledge-base tag for later sends. Empty or
// "default" selects plain generation.
func (c *Controller) SetTag(tagID string) {
	c.mu.Lock()
	c.opts.TagID = tagID
	c.mu.Unlock()
}

// SetUseTool toggles tool use for later sends.
func (c *Controller) SetUseTool(v bool) {
	c.mu.Lock()
	c.opts.UseTool = v
	c.mu.Unlock()
}

// Cancel aborts the open stream. Content received so far is kept. Returns
// false if nothing was streaming.
func (c *Controller) Cancel() bool {
	return c.cancel.cancel()
}

func (c *Controller) setState(s State) {
	c.state.Store(int32(s))
	if c.onState != nil {
		c.onState(s)
	}
}

// =============================================================================
// SEND CYCLE
// =============================================================================

// Send runs one send cycle for input and blocks until the stream ends.
//
// Precondition failures (empty input, busy controller, not logged in,
// conversation still loading) return an error without touching any state.
func (c *Controller) Send(ctx context.Context, input string) (*Result, error) {
	text := strings.TrimSpace(input)
	if text == "" {
		return nil, ErrEmptyInput
	}
	if c.State() != StateIdle {
		return nil, ErrBusy
	}
	if err := c.gate.Require(); err != nil {
		return nil, err
	}
	if c.store.Snapshot().Loading {
		return nil, ErrLoading
	}
	if !c.state.CompareAndSwap(int32(StateIdle), int32(StateSending)) {
		return nil, ErrBusy
	}
	if c.onState != nil {
		c.onState(StateSending)
	}

	res, err := c.run(ctx, text)
	if err != nil {
		c.setState(StateFailed)
	}
	c.setState(StateIdle)
	return res, err
}

// run performs steps after the controller entered Sending.
func (c *Controller) run(ctx context.Context, text string) (*Result, error) {
	opts := c.Options()
	res := &Result{}

	// Optimistic update. With nothing selected, a local conversation is
	// created on the spot and replaced by the backend's on success.
	convID := c.store.Snapshot().Selected
	var prior *conversation.Selection
	if convID.IsNone() {
		conv := model.NewConversation()
		sel := c.store.InsertLocal(conv)
		prior = &sel
		convID = conv.ID
	}
	user := model.NewUserMessage(text)
	c.store.AppendMessage(convID, user)
	c.store.DeriveTitle(convID, text)
	res.UserMessageID = user.ID

	rollback := func() {
		c.store.RemoveMessage(convID, user.ID)
		if prior != nil {
			c.store.Discard(convID, *prior)
		}
	}

	// Conversation resolution.
	if convID.IsLocal() {
		persisted, err := c.backend.CreateConversation(ctx, model.TitlePrefix(text))
		if err != nil {
			rollback()
			c.logger.Warn("create conversation failed", zap.Error(err))
			c.notify.Error(msgCreateFailed)
			return nil, fmt.Errorf("create conversation: %w", err)
		}
		if err := c.store.Bind(convID, persisted); err != nil {
			rollback()
			c.notify.Error(msgCreateFailed)
			return nil, fmt.Errorf("bind conversation %s: %w", persisted, err)
		}
		convID = persisted
		prior = nil
	}
	res.ConversationID = convID

	// From here on the conversation exists server-side; only the user
	// message is rolled back.
	rollback = func() { c.store.RemoveMessage(convID, user.ID) }

	c.store.SetStreaming(convID)
	defer c.store.SetStreaming(model.NoID())

	streamCtx, cancel := context.WithCancel(ctx)
	c.cancel.set(cancel)
	defer c.cancel.clear()

	body, err := c.backend.OpenStream(streamCtx, api.StreamRequest{
		ChatID:  convID,
		Model:   opts.Model,
		Message: text,
		TagID:   opts.TagID,
		UseTool: opts.UseTool,
	})
	if err != nil {
		if c.cancel.clear() {
			res.Canceled = true
			return res, nil
		}
		rollback()
		c.logger.Warn("open stream failed", zap.String("chat_id", convID.String()), zap.Error(err))
		c.notify.Error(msgSendFailed)
		return nil, fmt.Errorf("open stream: %w", err)
	}
	// RELIABILITY: the body is released on every exit path.
	defer body.Close()
	c.setState(StateStreamOpen)

	streamErr := c.consume(streamCtx, body, convID, res)

	if !res.AssistantMessageID.IsNone() {
		c.store.FinishMessage(convID, res.AssistantMessageID)
	}
	if streamErr != nil {
		if c.cancel.clear() {
			res.Canceled = true
			return res, nil
		}
		// Partial assistant content stays visible.
		rollback()
		c.logger.Warn("stream failed",
			zap.String("chat_id", convID.String()),
			zap.Int("fragments", res.Fragments),
			zap.Error(streamErr),
		)
		c.notify.Error(msgSendFailed)
		return res, fmt.Errorf("stream: %w", streamErr)
	}
	return res, nil
}

// consume decodes the stream and applies each event to the store in
// arrival order.
func (c *Controller) consume(ctx context.Context, body io.Reader, convID model.ID, res *Result) error {
	return sse.Consume(ctx, body, func(ev sse.Event) error {
		if ev.Kind == sse.EventError {
			res.StreamErrors = append(res.StreamErrors, ev.Data)
			c.logger.Warn("stream error event", zap.String("chat_id", convID.String()), zap.String("error", ev.Data))
			c.notify.Error(ev.Data)
			return nil
		}

		frag, err := sse.ParseFragment(ev.Data)
		if err != nil {
			res.Malformed++
			c.logger.Warn("skipping malformed event",
				zap.String("chat_id", convID.String()),
				zap.String("payload", truncate(ev.Data, 200)),
				zap.Error(err),
			)
			return nil
		}

		if frag.Text != "" {
			if res.AssistantMessageID.IsNone() {
				asst := model.NewAssistantMessage()
				c.store.AppendMessage(convID, asst)
				res.AssistantMessageID = asst.ID
			}
			c.store.AppendFragment(convID, res.AssistantMessageID, frag.Text)
			res.Fragments++
		}
		if frag.Done {
			return sse.ErrStop
		}
		return nil
	})
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}

type nopNotifier struct{}

func (nopNotifier) Error(string) {}
func (nopNotifier) Info(string)  {}
