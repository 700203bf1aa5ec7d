// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api provides the HTTP client for the chat and knowledge-base backend.
package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"go.uber.org/zap"

	"github.com/jeranaias/ragchat-tui/internal/model"
)

// =============================================================================
// CONVERSATION ENDPOINTS
// =============================================================================

// ListConversations returns the user's conversations without messages.
func (c *Client) ListConversations(ctx context.Context) ([]*model.Conversation, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/openai/chat_list", nil, nil)
	if err != nil {
		return nil, err
	}
	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var dtos []chatDTO
	if err := json.Unmarshal([]byte(body), &dtos); err != nil {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to decode conversation list", Cause: err}
	}
	out := make([]*model.Conversation, 0, len(dtos))
	for _, d := range dtos {
		out = append(out, d.toModel())
	}
	return out, nil
}

// CreateConversation creates a conversation seeded with prefix as its
// initial title and returns the backend identifier.
func (c *Client) CreateConversation(ctx context.Context, prefix string) (model.ID, error) {
	q := url.Values{}
	q.Set("prefixString", prefix)

	req, err := c.newRequest(ctx, http.MethodPost, "/openai/create_chat", q, nil)
	if err != nil {
		return model.NoID(), err
	}
	body, err := c.do(req)
	if err != nil {
		return model.NoID(), err
	}
	id, err := parseRawID(body)
	if err != nil {
		return model.NoID(), err
	}
	return model.PersistedID(id), nil
}

// DeleteConversation deletes a persisted conversation.
func (c *Client) DeleteConversation(ctx context.Context, id model.ID) error {
	if !id.IsPersisted() {
		return ErrNotPersisted
	}
	q := url.Values{}
	q.Set("chatId", id.Value())

	req, err := c.newRequest(ctx, http.MethodDelete, "/openai/delete_chat", q, nil)
	if err != nil {
		return err
	}
	_, err = c.do(req)
	return err
}

// ListMessages returns the messages of a persisted conversation in order.
// Entries with an unknown role are skipped.
func (c *Client) ListMessages(ctx context.Context, id model.ID) ([]*model.Message, error) {
	if !id.IsPersisted() {
		return nil, ErrNotPersisted
	}
	q := url.Values{}
	q.Set("chatId", id.Value())

	req, err := c.newRequest(ctx, http.MethodGet, "/openai/message_list", q, nil)
	if err != nil {
		return nil, err
	}
	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var dtos []messageDTO
	if err := json.Unmarshal([]byte(body), &dtos); err != nil {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to decode message list", Cause: err}
	}
	out := make([]*model.Message, 0, len(dtos))
	for _, d := range dtos {
		msg, err := d.toModel()
		if err != nil {
			c.logger.Warn("skipping message", zap.String("message_id", string(d.MessageID)), zap.Error(err))
			continue
		}
		out = append(out, msg)
	}
	return out, nil
}

// =============================================================================
// GENERATION STREAM
// =============================================================================

// OpenStream starts a generation and returns the event stream body.
// The caller must close the returned body on every path.
func (c *Client) OpenStream(ctx context.Context, r StreamRequest) (io.ReadCloser, error) {
	if !r.ChatID.IsPersisted() {
		return nil, ErrNotPersisted
	}

	q := url.Values{}
	q.Set("chatId", r.ChatID.Value())
	q.Set("model", r.Model)
	q.Set("message", r.Message)
	q.Set("useTool", strconv.FormatBool(r.UseTool))

	path := "/openai/generate_stream"
	if r.RAG() {
		path = "/openai/generate_stream_rag"
		q.Set("tagId", r.TagID)
	}

	req, err := c.newRequest(ctx, http.MethodGet, path, q, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.send(c.streamClient, req)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}
