// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api provides the HTTP client for the chat and knowledge-base backend.
package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jeranaias/ragchat-tui/internal/model"
)

// =============================================================================
// WIRE TYPES
// =============================================================================

// Timestamp decodes backend times sent either as epoch milliseconds or as
// an ISO-8601 string.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.000-0700",
	"2006-01-02T15:04:05.000+00:00",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		t.Time = time.Time{}
		return nil
	}
	if data[0] != '"' {
		ms, err := strconv.ParseInt(string(data), 10, 64)
		if err != nil {
			return fmt.Errorf("invalid timestamp %s: %w", data, err)
		}
		t.Time = time.UnixMilli(ms)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	s = strings.TrimSpace(s)
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		t.Time = time.UnixMilli(ms)
		return nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("invalid timestamp %q", s)
}

// rawID decodes an identifier sent as a JSON string or a bare number.
// Numbers are kept as their literal text.
type rawID string

// UnmarshalJSON implements json.Unmarshaler.
func (r *rawID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*r = rawID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid identifier %s", data)
	}
	*r = rawID(n.String())
	return nil
}

// chatDTO is one entry of the conversation list.
type chatDTO struct {
	ChatID    rawID     `json:"chatId"`
	Title     string    `json:"title"`
	UpdatedAt Timestamp `json:"updatedAt"`
}

func (d chatDTO) toModel() *model.Conversation {
	return &model.Conversation{
		ID:        model.PersistedID(string(d.ChatID)),
		Title:     d.Title,
		CreatedAt: d.UpdatedAt.Time,
		UpdatedAt: d.UpdatedAt.Time,
		Messages:  make([]*model.Message, 0),
	}
}

// messageDTO is one entry of a conversation's message list.
type messageDTO struct {
	MessageID rawID     `json:"messageId"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt Timestamp `json:"createdAt"`
}

func (d messageDTO) toModel() (*model.Message, error) {
	role, err := model.ParseRole(d.Role)
	if err != nil {
		return nil, err
	}
	return &model.Message{
		ID:        model.PersistedID(string(d.MessageID)),
		Role:      role,
		Content:   d.Content,
		Timestamp: d.CreatedAt.Time,
	}, nil
}

// tagDTO is one entry of the knowledge-base tag list.
type tagDTO struct {
	TagID   rawID  `json:"tagId"`
	TagName string `json:"tagName"`
}

// =============================================================================
// REQUEST TYPES
// =============================================================================

// RegisterRequest carries the registration form.
type RegisterRequest struct {
	Email            string
	Password         string
	VerificationCode string
	Captcha          string
}

// StreamRequest selects the generation endpoint and its parameters.
type StreamRequest struct {
	ChatID  model.ID
	Model   string
	Message string
	// TagID scopes retrieval; empty or "default" means plain generation.
	TagID   string
	UseTool bool
}

// RAG reports whether the request targets the retrieval-augmented route.
func (r StreamRequest) RAG() bool {
	return !model.IsNoTag(r.TagID)
}

// GitRequest carries the repository analysis form.
type GitRequest struct {
	RepoURL  string
	UserName string
	Token    string
}
