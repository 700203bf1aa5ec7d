// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the line-oriented ragchat commands.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/peterh/liner"
	"go.uber.org/zap"

	"github.com/jeranaias/ragchat-tui/internal/app"
	"github.com/jeranaias/ragchat-tui/internal/model"
)

// HistoryFileName is the REPL history file inside the data dir.
const HistoryFileName = "chat_history"

// errQuit ends the REPL.
var errQuit = errors.New("quit")

// =============================================================================
// INPUT HISTORY
// =============================================================================

// ChatCLI provides input history and line editing for interactive chat.
// USABILITY: Supports arrow keys for history navigation and line editing.
type ChatCLI struct {
	line        *liner.State
	historyFile string
}

// NewChatCLI creates a line editor whose history lives in dataDir.
func NewChatCLI(dataDir string) *ChatCLI {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	c := &ChatCLI{
		line:        line,
		historyFile: filepath.Join(dataDir, HistoryFileName),
	}
	c.LoadHistory()
	return c
}

// LoadHistory loads command history from file.
func (c *ChatCLI) LoadHistory() {
	if f, err := os.Open(c.historyFile); err == nil {
		c.line.ReadHistory(f)
		f.Close()
	}
}

// ReadInput reads a line with the given prompt.
func (c *ChatCLI) ReadInput(prompt string) (string, error) {
	input, err := c.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		c.line.AppendHistory(input)
	}
	return input, nil
}

// SaveHistory persists command history with owner-only permissions.
func (c *ChatCLI) SaveHistory() {
	if err := os.MkdirAll(filepath.Dir(c.historyFile), 0700); err != nil {
		return
	}
	f, err := os.OpenFile(c.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return
	}
	defer f.Close()
	c.line.WriteHistory(f)
}

// Close saves history and restores the terminal.
func (c *ChatCLI) Close() {
	c.SaveHistory()
	c.line.Close()
}

// =============================================================================
// SESSION
// =============================================================================

// ChatSession is one interactive chat run.
type ChatSession struct {
	app *app.App
	out io.Writer
}

// NewChatSession creates a session printing to out.
func NewChatSession(a *app.App, out io.Writer) *ChatSession {
	return &ChatSession{app: a, out: out}
}

// RunChat runs the interactive REPL until /exit, Ctrl+C at the prompt, or
// EOF. conversation, if set, is opened first.
func RunChat(ctx context.Context, a *app.App, out io.Writer, conversation string) error {
	if err := RequiresTTY("chat"); err != nil {
		return err
	}
	s := NewChatSession(a, out)
	if err := a.Gate.Require(); err != nil {
		return fmt.Errorf("%w; run 'ragchat login' first", err)
	}
	if err := openConversation(ctx, a, conversation); err != nil {
		return err
	}
	s.printBanner()

	input := NewChatCLI(a.Config.DataDir())
	defer input.Close()

	for {
		line, err := input.ReadInput(RenderConditional(PromptStyle, "ragchat> "))
		if err != nil {
			if !errors.Is(err, liner.ErrPromptAborted) && !errors.Is(err, io.EOF) {
				a.Logger.Warn("prompt failed", zap.Error(err))
			}
			fmt.Fprintln(out)
			return nil
		}
		if err := s.Handle(ctx, line); err != nil {
			if errors.Is(err, errQuit) {
				return nil
			}
			fmt.Fprintf(out, "%s %v\n", RenderConditional(ErrorStyle, "[Error]"), err)
		}
	}
}

func (s *ChatSession) printBanner() {
	fmt.Fprintln(s.out, RenderConditional(TitleStyle, "ragchat"))
	fmt.Fprintln(s.out, RenderConditional(DimStyle, "Type a message, /help for commands, Ctrl+C to cancel a reply."))
	if conv := s.app.Store.Snapshot().Current(); conv != nil {
		fmt.Fprintf(s.out, "Continuing %q\n", conv.Title)
		printMessages(s.out, s.app.Store.Snapshot().Messages)
	}
	fmt.Fprintln(s.out)
}

// Handle processes one line of input: a slash command or a message.
func (s *ChatSession) Handle(ctx context.Context, line string) error {
	line = strings.TrimSpace(line)
	switch {
	case line == "":
		return nil
	case strings.EqualFold(line, "exit"), strings.EqualFold(line, "quit"):
		return errQuit
	case strings.HasPrefix(line, "/"):
		return s.command(ctx, line)
	default:
		return s.send(ctx, line)
	}
}

func (s *ChatSession) send(ctx context.Context, text string) error {
	stopInterrupt := cancelOnInterrupt(s.app.Chat.Cancel, s.out)
	defer stopInterrupt()

	fmt.Fprintln(s.out, RenderConditional(AssistantStyle, "Assistant"))
	stopPrint := newStreamPrinter(s.out, s.app.Store).follow()
	res, err := s.app.Chat.Send(ctx, text)
	stopPrint()
	if err != nil {
		return err
	}
	for _, msg := range res.StreamErrors {
		fmt.Fprintf(s.out, "%s %s\n", RenderConditional(ErrorStyle, "[Error]"), msg)
	}
	fmt.Fprintln(s.out)
	return nil
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

func (s *ChatSession) command(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	name, args := strings.ToLower(fields[0]), fields[1:]
	arg := strings.Join(args, " ")

	switch name {
	case "/exit", "/quit", "/q":
		return errQuit
	case "/help", "/?":
		s.printHelp()
	case "/new":
		s.app.Store.CreateEmpty()
		fmt.Fprintln(s.out, "Started a new conversation.")
	case "/list", "/ls":
		if err := s.app.Store.Refresh(ctx); err != nil {
			return err
		}
		s.printList()
	case "/open":
		id, err := s.resolve(arg)
		if err != nil {
			return err
		}
		if err := s.app.Store.Select(ctx, id); err != nil {
			return err
		}
		snap := s.app.Store.Snapshot()
		if conv := snap.Current(); conv != nil {
			fmt.Fprintf(s.out, "Opened %q\n", conv.Title)
		}
		printMessages(s.out, snap.Messages)
	case "/delete", "/rm":
		id, err := s.resolve(arg)
		if err != nil {
			return err
		}
		if err := s.app.Store.Remove(ctx, id); err != nil {
			return err
		}
		fmt.Fprintln(s.out, RenderConditional(SuccessStyle, "Conversation deleted successfully"))
	case "/tags":
		return ListTags(ctx, s.app, s.out, false)
	case "/tag":
		if arg == "" || strings.EqualFold(arg, "none") {
			arg = model.DefaultTagID
		}
		s.app.Chat.SetTag(arg)
		if model.IsNoTag(arg) {
			fmt.Fprintln(s.out, "Retrieval off.")
		} else {
			fmt.Fprintf(s.out, "Retrieving from tag %s.\n", arg)
		}
	case "/model":
		if arg == "" {
			fmt.Fprintln(s.out, s.app.Chat.Options().Model)
			return nil
		}
		s.app.Chat.SetModel(arg)
		fmt.Fprintf(s.out, "Model set to %s.\n", arg)
	case "/tool":
		switch strings.ToLower(arg) {
		case "on":
			s.app.Chat.SetUseTool(true)
		case "off":
			s.app.Chat.SetUseTool(false)
		default:
			return errors.New("usage: /tool on|off")
		}
		fmt.Fprintf(s.out, "Tool use %s.\n", strings.ToLower(arg))
	case "/status":
		Status(s.app, s.out)
	default:
		return fmt.Errorf("unknown command %s; type /help", name)
	}
	return nil
}

// resolve turns a 1-based list position or a conversation id into an id.
func (s *ChatSession) resolve(arg string) (model.ID, error) {
	if arg == "" {
		return model.NoID(), errors.New("which conversation? pass a number from /list or an id")
	}
	convs := s.app.Store.Snapshot().Conversations
	if n, err := strconv.Atoi(arg); err == nil && n >= 1 && n <= len(convs) {
		return convs[n-1].ID, nil
	}
	id := model.ParseID(arg)
	if s.app.Store.Snapshot().Conversation(id) == nil {
		return model.NoID(), fmt.Errorf("conversation %s not found; run /list", arg)
	}
	return id, nil
}

func (s *ChatSession) printList() {
	snap := s.app.Store.Snapshot()
	if len(snap.Conversations) == 0 {
		fmt.Fprintln(s.out, RenderConditional(DimStyle, "No conversations yet"))
		return
	}
	for i, c := range snap.Conversations {
		marker := "  "
		if c.ID == snap.Selected {
			marker = "> "
		}
		title := c.Title
		if title == "" {
			title = untitled
		}
		fmt.Fprintf(s.out, "%s%2d. %s\n", marker, i+1, title)
	}
}

func (s *ChatSession) printHelp() {
	cmds := [][2]string{
		{"/new", "start a new conversation"},
		{"/list", "list conversations"},
		{"/open N|ID", "open a conversation"},
		{"/delete N|ID", "delete a conversation"},
		{"/tags", "list knowledge tags"},
		{"/tag ID|none", "retrieve from a tag, or turn retrieval off"},
		{"/model [NAME]", "show or set the model"},
		{"/tool on|off", "let the model call tools"},
		{"/status", "show session settings"},
		{"/exit", "leave"},
	}
	fmt.Fprintln(s.out, RenderSeparator(40))
	for _, c := range cmds {
		fmt.Fprintln(s.out, RenderLabel(c[0])+c[1])
	}
}
