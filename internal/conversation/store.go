// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package conversation holds the ordered conversation list and the message
// list of the selected conversation.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/jeranaias/ragchat-tui/internal/model"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrStreaming is returned when deleting the conversation whose
	// generation stream is still open.
	ErrStreaming = errors.New("conversation is streaming a reply")

	// ErrNotFound is returned for ids not present in the store.
	ErrNotFound = errors.New("conversation not found")
)

// =============================================================================
// COLLABORATORS
// =============================================================================

// Backend is the subset of the API client used by the store.
type Backend interface {
	ListConversations(ctx context.Context) ([]*model.Conversation, error)
	ListMessages(ctx context.Context, id model.ID) ([]*model.Message, error)
	DeleteConversation(ctx context.Context, id model.ID) error
}

// Gate reports whether backend calls are allowed.
type Gate interface {
	Require() error
}

// Cache persists conversations locally. Implementations must be safe for
// concurrent use.
type Cache interface {
	// ReplaceConversations makes convs the complete cached list.
	ReplaceConversations(convs []*model.Conversation) error
	SaveConversations(convs []*model.Conversation) error
	LoadConversations() ([]*model.Conversation, error)
	SaveMessages(id model.ID, msgs []*model.Message) error
	LoadMessages(id model.ID) ([]*model.Message, error)
	DeleteConversation(id model.ID) error
}

// Selection captures a selected id and its message list so a failed
// operation can put them back.
type Selection struct {
	ID       model.ID
	Messages []*model.Message
}

// =============================================================================
// STORE
// =============================================================================

// Store owns the conversation list and the active message list.
type Store struct {
	backend Backend
	gate    Gate
	cache   Cache
	logger  *zap.Logger

	// mu serializes writers; readers use snap without locking.
	mu   sync.Mutex
	snap atomic.Pointer[Snapshot]

	// selectGen increases whenever the selection changes. A message fetch
	// commits only if the generation it started with is still current.
	selectGen uint64

	changes chan struct{}
}

// NewStore creates an empty store. cache may be nil.
func NewStore(backend Backend, gate Gate, cache Cache, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{
		backend: backend,
		gate:    gate,
		cache:   cache,
		logger:  logger.Named("conversation"),
		changes: make(chan struct{}, 1),
	}
	s.snap.Store(&Snapshot{})
	return s
}

// Snapshot returns the current immutable state.
func (s *Store) Snapshot() *Snapshot {
	return s.snap.Load()
}

// Changes signals after every published mutation. Signals coalesce; a
// receiver should re-read Snapshot.
func (s *Store) Changes() <-chan struct{} {
	return s.changes
}

// update applies fn to a copy of the current snapshot and publishes it if
// fn reports a change. Must be called without s.mu held.
func (s *Store) update(fn func(next *Snapshot) bool) bool {
	s.mu.Lock()
	next := s.snap.Load().clone()
	changed := fn(next)
	if changed {
		s.snap.Store(next)
	}
	s.mu.Unlock()

	if changed {
		s.notify()
	}
	return changed
}

func (s *Store) notify() {
	select {
	case s.changes <- struct{}{}:
	default:
	}
}

// setSelected changes the selection and bumps the generation. Caller holds s.mu.
func (s *Store) setSelected(next *Snapshot, id model.ID, msgs []*model.Message) {
	s.selectGen++
	next.Selected = id
	next.Messages = append([]*model.Message(nil), msgs...)
	next.Loading = false
}

// =============================================================================
// LIST OPERATIONS
// =============================================================================

// LoadCached seeds the list from the local cache. It never contacts the
// backend and ignores the gate.
func (s *Store) LoadCached() error {
	if s.cache == nil {
		return nil
	}
	convs, err := s.cache.LoadConversations()
	if err != nil {
		return fmt.Errorf("failed to load cached conversations: %w", err)
	}
	s.update(func(next *Snapshot) bool {
		if len(next.Conversations) > 0 {
			return false
		}
		next.Conversations = convs
		return true
	})
	return nil
}

// Refresh replaces the list with the backend's. Unpersisted local
// conversations stay at the front and messages already loaded are kept.
func (s *Store) Refresh(ctx context.Context) error {
	if err := s.gate.Require(); err != nil {
		return err
	}
	remote, err := s.backend.ListConversations(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch conversations: %w", err)
	}

	s.update(func(next *Snapshot) bool {
		known := make(map[model.ID]*model.Conversation, len(next.Conversations))
		var merged []*model.Conversation
		for _, c := range next.Conversations {
			known[c.ID] = c
			if c.ID.IsLocal() {
				merged = append(merged, c)
			}
		}
		for _, c := range remote {
			if old, ok := known[c.ID]; ok && len(old.Messages) > 0 {
				c.Messages = old.Messages
				if c.Title == "" {
					c.Title = old.Title
				}
			}
			merged = append(merged, c)
		}
		next.Conversations = merged

		if !next.Selected.IsNone() && next.indexOf(next.Selected) < 0 {
			s.setSelected(next, model.NoID(), nil)
		}
		return true
	})

	if s.cache != nil {
		if err := s.cache.ReplaceConversations(remote); err != nil {
			s.logger.Warn("cache write failed", zap.Error(err))
		}
	}
	return nil
}

// CreateEmpty starts a new thread lazily: it clears the selection, and the
// conversation itself is created when the first message is sent.
func (s *Store) CreateEmpty() {
	s.update(func(next *Snapshot) bool {
		if next.Selected.IsNone() && len(next.Messages) == 0 {
			return false
		}
		s.setSelected(next, model.NoID(), nil)
		return true
	})
}

// Select makes id the active conversation and loads its messages.
// Selecting the current conversation is a no-op. If another selection
// happens while the fetch is outstanding, the fetched messages are dropped.
func (s *Store) Select(ctx context.Context, id model.ID) error {
	if id.IsNone() {
		s.CreateEmpty()
		return nil
	}
	if err := s.gate.Require(); err != nil {
		return err
	}

	var (
		gen   uint64
		found bool
		fetch bool
	)
	s.update(func(next *Snapshot) bool {
		if next.Selected == id {
			found = true
			return false
		}
		conv := next.Conversation(id)
		if conv == nil {
			return false
		}
		found = true
		s.setSelected(next, id, conv.Messages)
		gen = s.selectGen
		// Local placeholders have nothing on the server yet, and the server
		// copy of a streaming conversation lacks the reply being built.
		if id.IsPersisted() && id != next.Streaming {
			next.Loading = true
			fetch = true
		}
		return true
	})
	if !found {
		return ErrNotFound
	}
	if !fetch {
		return nil
	}

	msgs, err := s.backend.ListMessages(ctx, id)
	if err != nil && s.cache != nil {
		if cached, cerr := s.cache.LoadMessages(id); cerr == nil && len(cached) > 0 {
			s.logger.Warn("using cached messages", zap.String("chat_id", id.String()), zap.Error(err))
			msgs, err = cached, nil
		}
	}

	committed := false
	s.update(func(next *Snapshot) bool {
		if s.selectGen != gen || next.Selected != id {
			return false
		}
		next.Loading = false
		if err != nil {
			return true
		}
		next.Messages = append([]*model.Message(nil), msgs...)
		next.editConversation(id, func(c *model.Conversation) {
			c.Messages = append([]*model.Message(nil), msgs...)
		})
		committed = true
		return true
	})

	if err != nil {
		return fmt.Errorf("failed to load conversation messages: %w", err)
	}
	if !committed {
		s.logger.Debug("dropped stale message fetch", zap.String("chat_id", id.String()))
		return nil
	}
	if s.cache != nil {
		if cerr := s.cache.SaveMessages(id, msgs); cerr != nil {
			s.logger.Warn("cache write failed", zap.Error(cerr))
		}
	}
	return nil
}

// Remove deletes a conversation on the backend, then locally. If it was
// selected, the conversation that takes its place in the list is selected,
// or nothing if the list is empty.
func (s *Store) Remove(ctx context.Context, id model.ID) error {
	if err := s.gate.Require(); err != nil {
		return err
	}
	snap := s.Snapshot()
	if snap.Streaming == id {
		return ErrStreaming
	}
	if snap.indexOf(id) < 0 {
		return ErrNotFound
	}
	if id.IsPersisted() {
		if err := s.backend.DeleteConversation(ctx, id); err != nil {
			return fmt.Errorf("failed to delete conversation: %w", err)
		}
	}

	var successor model.ID
	s.update(func(next *Snapshot) bool {
		idx := next.indexOf(id)
		if idx < 0 {
			return false
		}
		wasSelected := next.Selected == id
		next.Conversations = append(next.Conversations[:idx:idx], next.Conversations[idx+1:]...)
		if !wasSelected {
			return true
		}
		s.setSelected(next, model.NoID(), nil)
		switch {
		case idx < len(next.Conversations):
			successor = next.Conversations[idx].ID
		case len(next.Conversations) > 0:
			successor = next.Conversations[len(next.Conversations)-1].ID
		}
		return true
	})

	if s.cache != nil && id.IsPersisted() {
		if err := s.cache.DeleteConversation(id); err != nil {
			s.logger.Warn("cache delete failed", zap.Error(err))
		}
	}
	if !successor.IsNone() {
		return s.Select(ctx, successor)
	}
	return nil
}

// DeriveTitle sets the title of conversation id from its first message.
// The title is applied once; later calls leave an existing title alone.
func (s *Store) DeriveTitle(id model.ID, firstMessage string) string {
	title := model.DeriveTitle(firstMessage)
	var result string
	s.update(func(next *Snapshot) bool {
		conv := next.Conversation(id)
		if conv == nil {
			return false
		}
		if conv.Title != "" {
			result = conv.Title
			return false
		}
		result = title
		return next.editConversation(id, func(c *model.Conversation) {
			c.Title = title
		})
	})
	return result
}

// =============================================================================
// SEND-CYCLE MUTATIONS
// =============================================================================

// InsertLocal puts a new local conversation at the front of the list and
// selects it. It returns the prior selection for Discard.
func (s *Store) InsertLocal(conv *model.Conversation) Selection {
	var prior Selection
	s.update(func(next *Snapshot) bool {
		prior = Selection{ID: next.Selected, Messages: next.Messages}
		next.Conversations = append([]*model.Conversation{conv}, next.Conversations...)
		s.setSelected(next, conv.ID, conv.Messages)
		return true
	})
	return prior
}

// Discard removes conversation id and restores the prior selection.
func (s *Store) Discard(id model.ID, prior Selection) {
	s.update(func(next *Snapshot) bool {
		idx := next.indexOf(id)
		if idx >= 0 {
			next.Conversations = append(next.Conversations[:idx:idx], next.Conversations[idx+1:]...)
		}
		if next.Selected == id {
			s.setSelected(next, prior.ID, prior.Messages)
		}
		return true
	})
}

// Bind replaces a local id with the backend-assigned one.
func (s *Store) Bind(local, persisted model.ID) error {
	ok := s.update(func(next *Snapshot) bool {
		if next.indexOf(persisted) >= 0 {
			return false
		}
		if !next.editConversation(local, func(c *model.Conversation) {
			c.ID = persisted
		}) {
			return false
		}
		if next.Selected == local {
			next.Selected = persisted
		}
		if next.Streaming == local {
			next.Streaming = persisted
		}
		return true
	})
	if !ok {
		return ErrNotFound
	}
	return nil
}

// AppendMessage appends msg to conversation id and, if it is selected, to
// the active list.
func (s *Store) AppendMessage(id model.ID, msg *model.Message) {
	s.update(func(next *Snapshot) bool {
		if !next.editConversation(id, func(c *model.Conversation) {
			c.Messages = append(c.Messages, msg)
			c.UpdatedAt = time.Now()
		}) {
			return false
		}
		if next.Selected == id {
			next.Messages = append(next.Messages, msg)
		}
		return true
	})
}

// AppendFragment concatenates fragment onto message msgID in both lists.
func (s *Store) AppendFragment(id, msgID model.ID, fragment string) {
	s.editMessageEverywhere(id, msgID, func(m *model.Message) {
		m.Content += fragment
	})
}

// FinishMessage clears the loading flag of msgID and writes the
// conversation through to the cache.
func (s *Store) FinishMessage(id, msgID model.ID) {
	s.editMessageEverywhere(id, msgID, func(m *model.Message) {
		m.Loading = false
	})
	s.persist(id)
}

// RemoveMessage drops msgID from conversation id and the active list.
func (s *Store) RemoveMessage(id, msgID model.ID) {
	s.update(func(next *Snapshot) bool {
		changed := next.editConversation(id, func(c *model.Conversation) {
			c.Messages = removeMessage(c.Messages, msgID)
		})
		if next.Selected == id {
			next.Messages = removeMessage(next.Messages, msgID)
			changed = true
		}
		return changed
	})
}

// SetStreaming marks id as the conversation with an open stream. Pass the
// None id to clear it.
func (s *Store) SetStreaming(id model.ID) {
	s.update(func(next *Snapshot) bool {
		if next.Streaming == id {
			return false
		}
		next.Streaming = id
		return true
	})
}

func (s *Store) editMessageEverywhere(id, msgID model.ID, fn func(m *model.Message)) {
	s.update(func(next *Snapshot) bool {
		changed := next.editConversation(id, func(c *model.Conversation) {
			editMessage(c.Messages, msgID, fn)
		})
		if next.Selected == id && editMessage(next.Messages, msgID, fn) {
			changed = true
		}
		return changed
	})
}

// persist writes a persisted conversation's messages to the cache.
func (s *Store) persist(id model.ID) {
	if s.cache == nil || !id.IsPersisted() {
		return
	}
	conv := s.Snapshot().Conversation(id)
	if conv == nil {
		return
	}
	if err := s.cache.SaveConversations([]*model.Conversation{conv}); err != nil {
		s.logger.Warn("cache write failed", zap.Error(err))
	}
	if err := s.cache.SaveMessages(id, conv.Messages); err != nil {
		s.logger.Warn("cache write failed", zap.Error(err))
	}
}
