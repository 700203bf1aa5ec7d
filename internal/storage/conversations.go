// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides the local conversation cache for ragchat.
package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/jeranaias/ragchat-tui/internal/model"
)

// DefaultFileName is the cache database name inside the data dir.
const DefaultFileName = "cache.db"

// ErrClosed is returned by operations on a closed cache.
var ErrClosed = errors.New("cache is closed")

// DefaultPath returns the cache location inside dataDir.
func DefaultPath(dataDir string) string {
	return filepath.Join(dataDir, DefaultFileName)
}

// =============================================================================
// CACHE
// =============================================================================

// Cache is a SQLite-backed conversation cache. It is safe for concurrent use.
type Cache struct {
	mu     sync.Mutex
	db     *sql.DB
	path   string
	closed bool
}

// Open opens or creates the cache database at path.
func Open(path string) (*Cache, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}

	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	if _, err := db.Exec(InitMetadata); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize metadata: %w", err)
	}

	return &Cache{db: db, path: path}, nil
}

// Path returns the database file path.
func (c *Cache) Path() string {
	return c.path
}

// Close closes the database. Further calls return ErrClosed.
func (c *Cache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.db.Close()
}

// withTx runs fn in a transaction, committing when fn returns nil.
func (c *Cache) withTx(fn func(tx *sql.Tx) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}

	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// =============================================================================
// CONVERSATIONS
// =============================================================================

const upsertConversation = `
INSERT INTO conversations (id, title, position, created_at, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    title = excluded.title,
    position = CASE WHEN ? THEN excluded.position ELSE conversations.position END,
    created_at = excluded.created_at,
    updated_at = excluded.updated_at`

// ReplaceConversations makes convs the complete cached list, in order.
// Messages of conversations that remain are kept; the rest are dropped.
func (c *Cache) ReplaceConversations(convs []*model.Conversation) error {
	return c.withTx(func(tx *sql.Tx) error {
		keep := make(map[string]bool, len(convs))
		for _, conv := range convs {
			if conv.ID.IsPersisted() {
				keep[conv.ID.String()] = true
			}
		}

		rows, err := tx.Query("SELECT id FROM conversations")
		if err != nil {
			return fmt.Errorf("failed to list cached conversations: %w", err)
		}
		var stale []string
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return fmt.Errorf("failed to scan conversation id: %w", err)
			}
			if !keep[id] {
				stale = append(stale, id)
			}
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("failed to list cached conversations: %w", err)
		}

		for _, id := range stale {
			if err := deleteConversation(tx, id); err != nil {
				return err
			}
		}

		pos := 0
		for _, conv := range convs {
			if !conv.ID.IsPersisted() {
				continue
			}
			if err := putConversation(tx, conv, pos, true); err != nil {
				return err
			}
			pos++
		}
		return nil
	})
}

// SaveConversations upserts convs. New rows go to the front of the list;
// existing rows keep their position.
func (c *Cache) SaveConversations(convs []*model.Conversation) error {
	return c.withTx(func(tx *sql.Tx) error {
		var front int
		if err := tx.QueryRow("SELECT COALESCE(MIN(position), 0) FROM conversations").Scan(&front); err != nil {
			return fmt.Errorf("failed to read list position: %w", err)
		}
		for i := len(convs) - 1; i >= 0; i-- {
			conv := convs[i]
			if !conv.ID.IsPersisted() {
				continue
			}
			front--
			if err := putConversation(tx, conv, front, false); err != nil {
				return err
			}
		}
		return nil
	})
}

func putConversation(tx *sql.Tx, conv *model.Conversation, pos int, reposition bool) error {
	_, err := tx.Exec(upsertConversation,
		conv.ID.String(), conv.Title, pos,
		toMillis(conv.CreatedAt), toMillis(conv.UpdatedAt),
		reposition)
	if err != nil {
		return fmt.Errorf("failed to save conversation %s: %w", conv.ID, err)
	}
	return nil
}

// LoadConversations returns the cached list without messages.
func (c *Cache) LoadConversations() ([]*model.Conversation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClosed
	}

	rows, err := c.db.Query(`
		SELECT id, title, created_at, updated_at
		FROM conversations
		ORDER BY position, created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to load conversations: %w", err)
	}
	defer rows.Close()

	var convs []*model.Conversation
	for rows.Next() {
		var (
			id, title        string
			created, updated int64
		)
		if err := rows.Scan(&id, &title, &created, &updated); err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		convs = append(convs, &model.Conversation{
			ID:        model.ParseID(id),
			Title:     title,
			CreatedAt: fromMillis(created),
			UpdatedAt: fromMillis(updated),
		})
	}
	return convs, rows.Err()
}

// DeleteConversation removes a conversation and its messages.
func (c *Cache) DeleteConversation(id model.ID) error {
	return c.withTx(func(tx *sql.Tx) error {
		return deleteConversation(tx, id.String())
	})
}

func deleteConversation(tx *sql.Tx, key string) error {
	if _, err := tx.Exec("DELETE FROM messages WHERE conversation_id = ?", key); err != nil {
		return fmt.Errorf("failed to delete messages of %s: %w", key, err)
	}
	if _, err := tx.Exec("DELETE FROM conversations WHERE id = ?", key); err != nil {
		return fmt.Errorf("failed to delete conversation %s: %w", key, err)
	}
	return nil
}

// =============================================================================
// MESSAGES
// =============================================================================

// SaveMessages replaces the cached messages of id. Messages still loading
// are skipped. A missing conversation row is created so the messages are
// never orphaned.
func (c *Cache) SaveMessages(id model.ID, msgs []*model.Message) error {
	if !id.IsPersisted() {
		return nil
	}
	key := id.String()
	return c.withTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec("INSERT OR IGNORE INTO conversations (id) VALUES (?)", key); err != nil {
			return fmt.Errorf("failed to create conversation %s: %w", key, err)
		}
		if _, err := tx.Exec("DELETE FROM messages WHERE conversation_id = ?", key); err != nil {
			return fmt.Errorf("failed to clear messages of %s: %w", key, err)
		}

		stmt, err := tx.Prepare(`
			INSERT INTO messages (conversation_id, seq, id, role, content, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("failed to prepare insert: %w", err)
		}
		defer stmt.Close()

		seq := 0
		for _, m := range msgs {
			if m == nil || m.Loading {
				continue
			}
			if _, err := stmt.Exec(key, seq, m.ID.String(), m.Role.String(), m.Content, toMillis(m.Timestamp)); err != nil {
				return fmt.Errorf("failed to save message: %w", err)
			}
			seq++
		}
		return nil
	})
}

// LoadMessages returns the cached messages of id in order. Rows with an
// unknown role are skipped.
func (c *Cache) LoadMessages(id model.ID) ([]*model.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClosed
	}

	rows, err := c.db.Query(`
		SELECT id, role, content, created_at
		FROM messages
		WHERE conversation_id = ?
		ORDER BY seq`, id.String())
	if err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}
	defer rows.Close()

	var msgs []*model.Message
	for rows.Next() {
		var (
			msgID, role, content string
			created              int64
		)
		if err := rows.Scan(&msgID, &role, &content, &created); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		r, err := model.ParseRole(role)
		if err != nil {
			continue
		}
		msgs = append(msgs, &model.Message{
			ID:        model.ParseID(msgID),
			Role:      r,
			Content:   content,
			Timestamp: fromMillis(created),
		})
	}
	return msgs, rows.Err()
}

// =============================================================================
// HELPERS
// =============================================================================

func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}
