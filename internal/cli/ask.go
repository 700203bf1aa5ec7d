// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the line-oriented ragchat commands.
package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/jeranaias/ragchat-tui/internal/app"
	"github.com/jeranaias/ragchat-tui/internal/chat"
	"github.com/jeranaias/ragchat-tui/internal/conversation"
	"github.com/jeranaias/ragchat-tui/internal/model"
)

// AskOptions configures a one-shot question.
type AskOptions struct {
	Question string
	// Conversation continues an existing conversation instead of starting one.
	Conversation string
	JSON         bool
}

// Ask sends one question and streams the reply to out. In JSON mode the
// reply is printed once, wrapped in a JSONResponse.
func Ask(ctx context.Context, a *app.App, out io.Writer, opts AskOptions) error {
	question := strings.TrimSpace(opts.Question)
	if question == "" {
		return chat.ErrEmptyInput
	}

	return OutputJSON(out, opts.JSON, "ask", func() (interface{}, error) {
		if err := openConversation(ctx, a, opts.Conversation); err != nil {
			return nil, err
		}

		stopInterrupt := cancelOnInterrupt(a.Chat.Cancel, out)
		defer stopInterrupt()

		var stopPrint func()
		if !opts.JSON {
			stopPrint = newStreamPrinter(out, a.Store).follow()
		}
		res, err := a.Chat.Send(ctx, question)
		if stopPrint != nil {
			stopPrint()
		}
		if err != nil {
			return nil, err
		}

		data := askData(a.Store.Snapshot(), question, res)
		if !opts.JSON {
			for _, msg := range data.StreamErrors {
				fmt.Fprintln(out, RenderConditional(ErrorStyle, "[Error]")+" "+msg)
			}
			if data.Answer == "" && len(data.StreamErrors) == 0 && !data.Canceled {
				fmt.Fprintln(out, RenderConditional(DimStyle, "(no reply)"))
			}
		}
		return data, nil
	})
}

// openConversation selects id, refreshing the list first so the store
// knows it. An empty id starts a new conversation.
func openConversation(ctx context.Context, a *app.App, id string) error {
	if strings.TrimSpace(id) == "" {
		a.Store.CreateEmpty()
		return nil
	}
	if err := a.Store.Refresh(ctx); err != nil {
		return err
	}
	if err := a.Store.Select(ctx, model.ParseID(id)); err != nil {
		return fmt.Errorf("conversation %s: %w", id, err)
	}
	return nil
}

func askData(snap *conversation.Snapshot, question string, res *chat.Result) *AskData {
	data := &AskData{
		ConversationID: res.ConversationID.String(),
		Question:       question,
		Fragments:      res.Fragments,
		Malformed:      res.Malformed,
		StreamErrors:   res.StreamErrors,
		Canceled:       res.Canceled,
	}
	if idx := model.IndexOf(snap.Messages, res.AssistantMessageID); idx >= 0 {
		data.Answer = snap.Messages[idx].Content
	}
	return data
}
