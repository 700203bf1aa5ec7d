// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the line-oriented ragchat commands.
package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/jeranaias/ragchat-tui/internal/app"
	"github.com/jeranaias/ragchat-tui/internal/config"
	"github.com/jeranaias/ragchat-tui/internal/model"
	"github.com/jeranaias/ragchat-tui/internal/util"
)

// untitled is shown for conversations the backend returned without a title.
const untitled = "(untitled)"

// =============================================================================
// LIST
// =============================================================================

// ListConversations prints the conversation list from the backend.
func ListConversations(ctx context.Context, a *app.App, out io.Writer, jsonMode bool) error {
	return OutputJSON(out, jsonMode, "conversations list", func() (interface{}, error) {
		if err := a.Store.Refresh(ctx); err != nil {
			return nil, err
		}
		convs := a.Store.Snapshot().Conversations
		if !jsonMode {
			printConversations(out, convs)
		}
		return conversationList(convs), nil
	})
}

// ListCachedConversations prints the conversation list from the local cache
// without contacting the backend.
func ListCachedConversations(cfg *config.Config, out io.Writer, jsonMode bool) error {
	return OutputJSON(out, jsonMode, "conversations list", func() (interface{}, error) {
		cache, err := app.OpenCache(cfg)
		if err != nil {
			return nil, err
		}
		defer cache.Close()

		convs, err := cache.LoadConversations()
		if err != nil {
			return nil, err
		}
		if !jsonMode {
			printConversations(out, convs)
		}
		return conversationList(convs), nil
	})
}

func conversationList(convs []*model.Conversation) []ConversationData {
	data := make([]ConversationData, 0, len(convs))
	for _, c := range convs {
		data = append(data, conversationData(c))
	}
	return data
}

func printConversations(out io.Writer, convs []*model.Conversation) {
	if len(convs) == 0 {
		fmt.Fprintln(out, RenderConditional(DimStyle, "No conversations yet"))
		return
	}
	width := TerminalWidth() - 24
	for _, c := range convs {
		title := c.Title
		if title == "" {
			title = untitled
		}
		fmt.Fprintf(out, "%s  %s\n",
			util.PadWidth(c.ID.String(), 20),
			util.TruncateWidth(util.SingleLine(title), width))
	}
}

// =============================================================================
// SHOW
// =============================================================================

// ShowConversation prints the messages of conversation id.
func ShowConversation(ctx context.Context, a *app.App, out io.Writer, id string, jsonMode bool) error {
	return OutputJSON(out, jsonMode, "conversations show", func() (interface{}, error) {
		if err := openConversation(ctx, a, id); err != nil {
			return nil, err
		}
		msgs := a.Store.Snapshot().Messages
		if !jsonMode {
			printMessages(out, msgs)
		}
		return messageList(msgs), nil
	})
}

// ShowCachedConversation prints the cached messages of conversation id.
func ShowCachedConversation(cfg *config.Config, out io.Writer, id string, jsonMode bool) error {
	return OutputJSON(out, jsonMode, "conversations show", func() (interface{}, error) {
		cache, err := app.OpenCache(cfg)
		if err != nil {
			return nil, err
		}
		defer cache.Close()

		msgs, err := cache.LoadMessages(model.ParseID(id))
		if err != nil {
			return nil, err
		}
		if !jsonMode {
			printMessages(out, msgs)
		}
		return messageList(msgs), nil
	})
}

func messageList(msgs []*model.Message) []MessageData {
	data := make([]MessageData, 0, len(msgs))
	for _, m := range msgs {
		data = append(data, messageData(m))
	}
	return data
}

func printMessages(out io.Writer, msgs []*model.Message) {
	if len(msgs) == 0 {
		fmt.Fprintln(out, RenderConditional(DimStyle, "No messages"))
		return
	}
	for i, m := range msgs {
		if i > 0 {
			fmt.Fprintln(out)
		}
		style := AssistantStyle
		if m.IsUser() {
			style = UserStyle
		}
		header := RenderConditional(style, m.Role.DisplayName())
		if ts := m.FormatTimestamp(); ts != "" {
			header += " " + RenderConditional(DimStyle, ts)
		}
		fmt.Fprintln(out, header)
		fmt.Fprintln(out, m.Content)
	}
}

// =============================================================================
// DELETE
// =============================================================================

// DeleteOptions configures DeleteConversation.
type DeleteOptions struct {
	ID string
	// Yes skips the confirmation prompt.
	Yes bool
	// In answers the confirmation prompt.
	In io.Reader
}

// DeleteConversation removes conversation id after confirmation.
func DeleteConversation(ctx context.Context, a *app.App, out io.Writer, opts DeleteOptions) error {
	if err := a.Store.Refresh(ctx); err != nil {
		return err
	}
	id := model.ParseID(opts.ID)
	conv := a.Store.Snapshot().Conversation(id)
	if conv == nil {
		return fmt.Errorf("conversation %s not found", opts.ID)
	}
	if !opts.Yes {
		title := conv.Title
		if title == "" {
			title = untitled
		}
		ok, err := Confirm(opts.In, out, fmt.Sprintf("Delete %q?", title))
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(out, "Cancelled.")
			return nil
		}
	}
	if err := a.Store.Remove(ctx, id); err != nil {
		return err
	}
	fmt.Fprintln(out, RenderConditional(SuccessStyle, "Conversation deleted successfully"))
	return nil
}
