// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the line-oriented ragchat commands.
package cli

import (
	"encoding/json"
	"io"
	"time"

	"github.com/jeranaias/ragchat-tui/internal/model"
)

// JSONResponse is the envelope every --json command prints.
type JSONResponse struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data"`
	Error     *string     `json:"error"`
	Timestamp string      `json:"timestamp"`
	Command   string      `json:"command,omitempty"`
}

// NewJSONResponse creates a successful response.
func NewJSONResponse(command string, data interface{}) *JSONResponse {
	return &JSONResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Command:   command,
	}
}

// NewJSONErrorResponse creates a failed response.
func NewJSONErrorResponse(command string, err error) *JSONResponse {
	msg := err.Error()
	return &JSONResponse{
		Error:     &msg,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Command:   command,
	}
}

// Write encodes the response to w with indentation.
func (r *JSONResponse) Write(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// OutputJSON runs handler and, in JSON mode, wraps its result or error in a
// JSONResponse written to w. In text mode the handler prints for itself.
func OutputJSON(w io.Writer, jsonMode bool, command string, handler func() (interface{}, error)) error {
	data, err := handler()
	if !jsonMode {
		return err
	}
	if err != nil {
		NewJSONErrorResponse(command, err).Write(w)
		return err
	}
	return NewJSONResponse(command, data).Write(w)
}

// =============================================================================
// RESPONSE DATA
// =============================================================================

// ConversationData is one conversation in list output.
type ConversationData struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Created  string `json:"created,omitempty"`
	Messages int    `json:"messages,omitempty"`
}

// MessageData is one message in show output.
type MessageData struct {
	ID        string `json:"id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp,omitempty"`
}

// TagData is one knowledge tag.
type TagData struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// AskData is the result of a one-shot question.
type AskData struct {
	ConversationID string   `json:"conversation_id"`
	Question       string   `json:"question"`
	Answer         string   `json:"answer"`
	Fragments      int      `json:"fragments"`
	Malformed      int      `json:"malformed,omitempty"`
	StreamErrors   []string `json:"stream_errors,omitempty"`
	Canceled       bool     `json:"canceled,omitempty"`
}

// UploadData is the result of a file upload.
type UploadData struct {
	TagID      string `json:"tag_id"`
	TagCreated bool   `json:"tag_created"`
	Files      int    `json:"files"`
}

// VersionData is the version command output.
type VersionData struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

func conversationData(c *model.Conversation) ConversationData {
	d := ConversationData{
		ID:       c.ID.String(),
		Title:    c.Title,
		Messages: len(c.Messages),
	}
	if !c.CreatedAt.IsZero() {
		d.Created = c.CreatedAt.Format(time.RFC3339)
	}
	return d
}

func messageData(m *model.Message) MessageData {
	d := MessageData{
		ID:      m.ID.String(),
		Role:    m.Role.String(),
		Content: m.Content,
	}
	if !m.Timestamp.IsZero() {
		d.Timestamp = m.Timestamp.Format(time.RFC3339)
	}
	return d
}
