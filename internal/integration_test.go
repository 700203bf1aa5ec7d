// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package internal provides integration tests for the complete ragchat system.
//
// The tests wire the real application context against an in-process fake
// backend and walk through the flows a user goes through: logging in,
// streaming a reply into a new conversation, reading history back from the
// cache, retrieval through a tag, uploads, and session expiry.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/jeranaias/ragchat-tui/internal/app"
	"github.com/jeranaias/ragchat-tui/internal/auth"
	"github.com/jeranaias/ragchat-tui/internal/config"
	"github.com/jeranaias/ragchat-tui/internal/conversation"
	"github.com/jeranaias/ragchat-tui/internal/model"
	"github.com/jeranaias/ragchat-tui/internal/upload"
)

// =============================================================================
// FAKE BACKEND
// =============================================================================

// fakeBackend keeps conversations in memory and answers every endpoint the
// client uses.
type fakeBackend struct {
	t   *testing.T
	srv *httptest.Server

	mu       sync.Mutex
	nextID   int
	chats    []fakeChat
	messages map[string][]string

	expired   atomic.Bool
	ragCalls  atomic.Int32
	lastTagID atomic.Value
	uploads   atomic.Int32
	gitCalls  atomic.Int32
}

type fakeChat struct {
	id    string
	title string
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()
	b := &fakeBackend{t: t, nextID: 100, messages: make(map[string][]string)}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/user/login", func(w http.ResponseWriter, r *http.Request) {
		if r.FormValue("password") != "secret123" {
			w.WriteHeader(http.StatusUnauthorized)
			io.WriteString(w, "bad credentials")
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "JSESSIONID", Value: "s1", Path: "/"})
		io.WriteString(w, "ok")
	})
	mux.HandleFunc("/api/v1/openai/chat_list", b.guard(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		var parts []string
		for i := len(b.chats) - 1; i >= 0; i-- {
			c := b.chats[i]
			parts = append(parts, fmt.Sprintf(`{"chatId":%q,"title":%q,"updatedAt":1700000000000}`, c.id, c.title))
		}
		io.WriteString(w, "["+strings.Join(parts, ",")+"]")
	}))
	mux.HandleFunc("/api/v1/openai/create_chat", b.guard(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.nextID++
		id := fmt.Sprint(b.nextID)
		b.chats = append(b.chats, fakeChat{id: id, title: r.FormValue("prefixString")})
		io.WriteString(w, id)
	}))
	mux.HandleFunc("/api/v1/openai/delete_chat", b.guard(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		id := r.URL.Query().Get("chatId")
		for i, c := range b.chats {
			if c.id == id {
				b.chats = append(b.chats[:i], b.chats[i+1:]...)
				break
			}
		}
	}))
	mux.HandleFunc("/api/v1/openai/message_list", b.guard(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		id := r.URL.Query().Get("chatId")
		var parts []string
		for i, text := range b.messages[id] {
			role := "user"
			if i%2 == 1 {
				role = "assistant"
			}
			parts = append(parts, fmt.Sprintf(`{"messageId":"%s-%d","role":%q,"content":%q}`, id, i, role, text))
		}
		io.WriteString(w, "["+strings.Join(parts, ",")+"]")
	}))
	stream := func(rag bool) http.HandlerFunc {
		return b.guard(func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			if rag {
				b.ragCalls.Add(1)
				b.lastTagID.Store(q.Get("tagId"))
			}
			reply := "echo: " + q.Get("message")
			b.mu.Lock()
			b.messages[q.Get("chatId")] = append(b.messages[q.Get("chatId")], q.Get("message"), reply)
			b.mu.Unlock()

			w.Header().Set("Content-Type", "text/event-stream")
			half := len(reply) / 2
			fmt.Fprintf(w, "data:{\"result\":{\"output\":{\"text\":%q},\"metadata\":{\"finishReason\":\"\"}}}\n\n", reply[:half])
			io.WriteString(w, "data:not json\n\n")
			fmt.Fprintf(w, "data:{\"result\":{\"output\":{\"text\":%q},\"metadata\":{\"finishReason\":\"STOP\"}}}\n\n", reply[half:])
		})
	}
	mux.HandleFunc("/api/v1/openai/generate_stream", stream(false))
	mux.HandleFunc("/api/v1/openai/generate_stream_rag", stream(true))
	mux.HandleFunc("/api/v1/rag/query_tag_list", b.guard(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `[{"tagId":"7","tagName":"handbook"}]`)
	}))
	mux.HandleFunc("/api/v1/rag/create_tag", b.guard(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "8")
	}))
	mux.HandleFunc("/api/v1/rag/file/upload", b.guard(func(w http.ResponseWriter, r *http.Request) {
		b.uploads.Add(1)
		io.WriteString(w, "ok")
	}))
	mux.HandleFunc("/api/v1/rag/analyze_git_repository", b.guard(func(w http.ResponseWriter, r *http.Request) {
		b.gitCalls.Add(1)
		io.WriteString(w, "ok")
	}))

	b.srv = httptest.NewServer(mux)
	t.Cleanup(b.srv.Close)
	return b
}

// guard rejects requests without a live session.
func (b *fakeBackend) guard(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := r.Cookie("JSESSIONID"); err != nil || b.expired.Load() {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		h(w, r)
	}
}

func newIntegrationConfig(t *testing.T, b *fakeBackend) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Server.BaseURL = b.srv.URL + "/api/v1"
	cfg.Storage.DataDir = t.TempDir()
	cfg.Storage.CacheEnabled = true
	cfg.Chat.Tag = ""
	return cfg
}

func newIntegrationApp(t *testing.T, cfg *config.Config) *app.App {
	t.Helper()
	a, err := app.New(cfg, nil, app.Options{})
	if err != nil {
		t.Fatalf("app.New() error = %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a
}

func lastMessage(snap *conversation.Snapshot) *model.Message {
	if len(snap.Messages) == 0 {
		return nil
	}
	return snap.Messages[len(snap.Messages)-1]
}

// =============================================================================
// END-TO-END FLOWS
// =============================================================================

func TestEndToEnd_LoginSendRefreshDelete(t *testing.T) {
	b := newFakeBackend(t)
	a := newIntegrationApp(t, newIntegrationConfig(t, b))
	ctx := context.Background()

	// Gated before login.
	if _, err := a.Chat.Send(ctx, "hello"); !errors.Is(err, auth.ErrLoginRequired) {
		t.Fatalf("Send() before login error = %v, want ErrLoginRequired", err)
	}
	if err := a.Auth.Login(ctx, "user@example.com", "wrong-pass1"); err == nil {
		t.Fatal("Login() with a wrong password should fail")
	}
	if a.Gate.Authenticated() {
		t.Fatal("failed login must not open the gate")
	}
	if err := a.Auth.Login(ctx, "user@example.com", "secret123"); err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	// First message creates the conversation lazily.
	a.Store.CreateEmpty()
	res, err := a.Chat.Send(ctx, "what is in the handbook?")
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if !res.ConversationID.IsPersisted() || res.Fragments != 2 || res.Malformed != 1 {
		t.Fatalf("result = %+v", res)
	}
	snap := a.Store.Snapshot()
	if snap.Selected != res.ConversationID || len(snap.Conversations) != 1 {
		t.Fatalf("snapshot selected %v with %d conversations", snap.Selected, len(snap.Conversations))
	}
	if got := lastMessage(snap); got == nil || got.Content != "echo: what is in the handbook?" || got.Loading {
		t.Fatalf("last message = %+v", got)
	}
	if title := snap.Current().Title; title != "what is in the handbook?" {
		t.Errorf("title = %q", title)
	}

	// A second send continues the same conversation.
	if _, err := a.Chat.Send(ctx, "thanks"); err != nil {
		t.Fatalf("second Send() error = %v", err)
	}
	if n := len(a.Store.Snapshot().Conversations); n != 1 {
		t.Errorf("conversations = %d, want 1", n)
	}

	// Reloading from the backend keeps the thread.
	if err := a.Store.Refresh(ctx); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	a.Store.CreateEmpty()
	if err := a.Store.Select(ctx, res.ConversationID); err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if n := len(a.Store.Snapshot().Messages); n != 4 {
		t.Errorf("messages after reselect = %d, want 4", n)
	}

	if err := a.Store.Remove(ctx, res.ConversationID); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	snap = a.Store.Snapshot()
	if len(snap.Conversations) != 0 || !snap.Selected.IsNone() {
		t.Errorf("after remove: %d conversations, selected %v", len(snap.Conversations), snap.Selected)
	}
}

func TestEndToEnd_CachedHistorySurvivesRestart(t *testing.T) {
	b := newFakeBackend(t)
	cfg := newIntegrationConfig(t, b)
	ctx := context.Background()

	first := newIntegrationApp(t, cfg)
	if err := first.Auth.Login(ctx, "user@example.com", "secret123"); err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	res, err := first.Chat.Send(ctx, "remember me")
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	// A new process starts logged in and shows cached history before the
	// backend answers.
	second := newIntegrationApp(t, cfg)
	if !second.Gate.Authenticated() {
		t.Fatal("session cookie should survive a restart")
	}
	if err := second.Store.LoadCached(); err != nil {
		t.Fatalf("LoadCached() error = %v", err)
	}
	conv := second.Store.Snapshot().Conversation(res.ConversationID)
	if conv == nil {
		t.Fatal("cached conversation missing after restart")
	}
	if conv.Title != "remember me" {
		t.Errorf("cached title = %q", conv.Title)
	}
}

func TestEndToEnd_RetrievalRoute(t *testing.T) {
	b := newFakeBackend(t)
	a := newIntegrationApp(t, newIntegrationConfig(t, b))
	ctx := context.Background()
	if err := a.Auth.Login(ctx, "user@example.com", "secret123"); err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	tags, err := a.Upload.Tags(ctx)
	if err != nil || len(tags) != 1 {
		t.Fatalf("Tags() = %v, %v", tags, err)
	}

	a.Chat.SetTag(tags[0].ID)
	if _, err := a.Chat.Send(ctx, "search the handbook"); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if b.ragCalls.Load() != 1 {
		t.Errorf("rag calls = %d, want 1", b.ragCalls.Load())
	}
	if got, _ := b.lastTagID.Load().(string); got != "7" {
		t.Errorf("tagId = %q, want 7", got)
	}

	// The default sentinel means plain generation.
	a.Chat.SetTag(model.DefaultTagID)
	if _, err := a.Chat.Send(ctx, "no retrieval"); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if b.ragCalls.Load() != 1 {
		t.Errorf("rag calls = %d after switching tags off, want 1", b.ragCalls.Load())
	}
}

func TestEndToEnd_UploadAndGit(t *testing.T) {
	b := newFakeBackend(t)
	a := newIntegrationApp(t, newIntegrationConfig(t, b))
	ctx := context.Background()
	if err := a.Auth.Login(ctx, "user@example.com", "secret123"); err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	dir := t.TempDir()
	var paths []string
	for _, name := range []string{"a.md", "b.txt"} {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte(name), 0600); err != nil {
			t.Fatal(err)
		}
		paths = append(paths, p)
	}
	if err := a.Upload.AddFiles(paths...); err != nil {
		t.Fatalf("AddFiles() error = %v", err)
	}
	res, err := a.Upload.SubmitFiles(ctx, upload.NewTag{Name: "notes"})
	if err != nil {
		t.Fatalf("SubmitFiles() error = %v", err)
	}
	if res.TagID != "8" || !res.TagCreated || res.Files != 2 || b.uploads.Load() != 1 {
		t.Errorf("upload result = %+v, uploads = %d", res, b.uploads.Load())
	}

	if err := a.Upload.SetGitForm(upload.GitForm{RepoURL: "https://example.com/r.git", UserName: "me"}); err != nil {
		t.Fatal(err)
	}
	if err := a.Upload.SubmitGit(ctx); !errors.Is(err, upload.ErrGitFields) {
		t.Errorf("SubmitGit() with no token error = %v, want ErrGitFields", err)
	}
	if err := a.Upload.SetGitForm(upload.GitForm{RepoURL: "https://example.com/r.git", UserName: "me", Token: "tok"}); err != nil {
		t.Fatal(err)
	}
	if err := a.Upload.SubmitGit(ctx); err != nil {
		t.Fatalf("SubmitGit() error = %v", err)
	}
	if b.gitCalls.Load() != 1 || a.Upload.GitForm() != (upload.GitForm{}) {
		t.Errorf("git calls = %d, form = %+v", b.gitCalls.Load(), a.Upload.GitForm())
	}
}

func TestEndToEnd_SessionExpiry(t *testing.T) {
	b := newFakeBackend(t)
	var prompts atomic.Int32
	a, err := app.New(newIntegrationConfig(t, b), nil, app.Options{
		OnLoginRequired: func() { prompts.Add(1) },
	})
	if err != nil {
		t.Fatalf("app.New() error = %v", err)
	}
	defer a.Close()
	ctx := context.Background()

	if err := a.Auth.Login(ctx, "user@example.com", "secret123"); err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if _, err := a.Chat.Send(ctx, "before expiry"); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	b.expired.Store(true)
	if err := a.Store.Refresh(ctx); err == nil {
		t.Fatal("Refresh() after expiry should fail")
	}
	if a.Gate.Authenticated() {
		t.Fatal("a 401 should close the gate")
	}

	// Gated actions now prompt for login instead of calling the backend.
	if _, err := a.Chat.Send(ctx, "after expiry"); !errors.Is(err, auth.ErrLoginRequired) {
		t.Errorf("Send() error = %v, want ErrLoginRequired", err)
	}
	if prompts.Load() == 0 {
		t.Error("login prompt was not requested")
	}
}
