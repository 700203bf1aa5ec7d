// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/ragchat-tui/internal/app"
	"github.com/jeranaias/ragchat-tui/internal/config"
	"github.com/jeranaias/ragchat-tui/internal/model"
	"github.com/jeranaias/ragchat-tui/internal/ui/styles"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func newTestBackend(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/user/login", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "JSESSIONID", Value: "abc", Path: "/"})
		io.WriteString(w, "ok")
	})
	mux.HandleFunc("/api/v1/openai/chat_list", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `[{"chatId":"1","title":"first chat","updatedAt":1700000000000},{"chatId":"2","title":"second chat","updatedAt":1700000000000}]`)
	})
	mux.HandleFunc("/api/v1/openai/message_list", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `[]`)
	})
	mux.HandleFunc("/api/v1/openai/delete_chat", func(w http.ResponseWriter, r *http.Request) {})
	mux.HandleFunc("/api/v1/openai/create_chat", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "77")
	})
	mux.HandleFunc("/api/v1/openai/generate_stream", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		io.WriteString(w, `data:{"result":{"output":{"text":"Hi from "},"metadata":{"finishReason":""}}}`+"\n\n")
		io.WriteString(w, `data:{"result":{"output":{"text":"the model"},"metadata":{"finishReason":"STOP"}}}`+"\n\n")
	})
	mux.HandleFunc("/api/v1/rag/query_tag_list", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `[{"tagId":"t1","tagName":"docs"},{"tagId":"t2","tagName":"code"}]`)
	})
	mux.HandleFunc("/api/v1/rag/create_tag", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "t3")
	})
	mux.HandleFunc("/api/v1/rag/file/upload", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "ok")
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestApp(t *testing.T, loggedIn bool) *app.App {
	t.Helper()
	srv := newTestBackend(t)
	cfg := config.Default()
	cfg.Server.BaseURL = srv.URL + "/api/v1"
	cfg.Storage.DataDir = t.TempDir()
	cfg.Storage.CacheEnabled = false
	cfg.Chat.Tag = ""

	a, err := app.New(cfg, nil, app.Options{})
	if err != nil {
		t.Fatalf("app.New() error = %v", err)
	}
	t.Cleanup(func() { a.Close() })
	if loggedIn {
		if err := a.Auth.Login(context.Background(), "user@example.com", "secret123"); err != nil {
			t.Fatalf("Login() error = %v", err)
		}
	}
	return a
}

func newTestModel(t *testing.T, a *app.App) Model {
	t.Helper()
	m := New(a, styles.NewTheme(styles.ModeDark), Options{Markdown: true})
	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return next.(Model)
}

func update(m Model, msg tea.Msg) (Model, tea.Cmd) {
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// exec runs a single command and feeds its result back into m.
func exec(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a command")
	}
	m, _ = update(m, cmd())
	return m
}

// =============================================================================
// LOGIN
// =============================================================================

func TestNew_LoggedOutOpensLogin(t *testing.T) {
	m := newTestModel(t, newTestApp(t, false))

	if m.overlay != overlayLogin {
		t.Fatalf("overlay = %v, want login", m.overlay)
	}
	if !strings.Contains(m.View(), "Log in") {
		t.Error("login dialog not rendered")
	}
}

func TestLogin_ValidationKeepsDialogOpen(t *testing.T) {
	m := newTestModel(t, newTestApp(t, false))
	m.login.inputs[fieldEmail].SetValue("not-an-email")
	m.login.inputs[fieldPassword].SetValue("secret123")

	m, cmd := update(m, tea.KeyMsg{Type: tea.KeyEnter})
	if cmd != nil {
		t.Error("invalid form must not contact the backend")
	}
	if m.login.err == "" {
		t.Error("expected a validation message")
	}
	if m.overlay != overlayLogin {
		t.Error("dialog should stay open")
	}
}

func TestLogin_SuccessClosesDialog(t *testing.T) {
	a := newTestApp(t, false)
	m := newTestModel(t, a)
	m.login.inputs[fieldEmail].SetValue("user@example.com")
	m.login.inputs[fieldPassword].SetValue("secret123")

	m, cmd := update(m, tea.KeyMsg{Type: tea.KeyEnter})
	m = exec(t, m, cmd)

	if !a.Gate.Authenticated() {
		t.Fatal("gate should be open after login")
	}
	if m.overlay != overlayNone {
		t.Errorf("overlay = %v, want none", m.overlay)
	}
	if m.login.inputs[fieldPassword].Value() != "" {
		t.Error("password should be cleared")
	}
}

func TestLogin_ToggleRegister(t *testing.T) {
	m := newTestModel(t, newTestApp(t, false))

	m, _ = update(m, tea.KeyMsg{Type: tea.KeyCtrlO})
	if m.login.mode != modeRegister {
		t.Fatal("ctrl+o should switch to registration")
	}
	if got := len(m.login.fields()); got != 5 {
		t.Errorf("register fields = %d, want 5", got)
	}
	if !strings.Contains(m.View(), "Create an account") {
		t.Error("register dialog not rendered")
	}

	m, _ = update(m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.overlay != overlayNone {
		t.Error("esc should close the dialog")
	}
}

// =============================================================================
// SEND CYCLE
// =============================================================================

func TestSend_StreamsReplyIntoTranscript(t *testing.T) {
	a := newTestApp(t, true)
	m := newTestModel(t, a)
	m.input.SetValue("  hello there  ")

	m, cmd := update(m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.input.Value() != "" {
		t.Error("input should be cleared on send")
	}
	m = exec(t, m, cmd)

	snap := a.Store.Snapshot()
	if len(snap.Messages) != 2 {
		t.Fatalf("messages = %d, want 2", len(snap.Messages))
	}
	if snap.Messages[0].Content != "hello there" || !snap.Messages[0].IsUser() {
		t.Errorf("first message = %+v", snap.Messages[0])
	}
	if snap.Messages[1].Content != "Hi from the model" {
		t.Errorf("reply = %q", snap.Messages[1].Content)
	}
	if snap.Selected != model.PersistedID("77") {
		t.Errorf("selected = %v, want 77", snap.Selected)
	}

	view := m.View()
	for _, want := range []string{"hello there", "the model"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestSend_EmptyInputIgnored(t *testing.T) {
	m := newTestModel(t, newTestApp(t, true))
	m.input.SetValue("   ")

	_, cmd := update(m, tea.KeyMsg{Type: tea.KeyEnter})
	if cmd != nil {
		t.Error("whitespace input must not start a send")
	}
}

func TestSend_LoggedOutOpensLogin(t *testing.T) {
	m := newTestModel(t, newTestApp(t, false))
	m, _ = update(m, tea.KeyMsg{Type: tea.KeyEsc})
	m.input.SetValue("hello")

	m, cmd := update(m, tea.KeyMsg{Type: tea.KeyEnter})
	if cmd != nil {
		t.Error("send without a session must not contact the backend")
	}
	m, _ = update(m, LoginRequiredMsg{})
	if m.overlay != overlayLogin {
		t.Error("login dialog should open")
	}
}

func TestNewConversation_ClearsSelection(t *testing.T) {
	a := newTestApp(t, true)
	m := newTestModel(t, a)
	if err := a.Store.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := a.Store.Select(context.Background(), model.PersistedID("1")); err != nil {
		t.Fatal(err)
	}

	update(m, tea.KeyMsg{Type: tea.KeyCtrlN})
	if sel := a.Store.Snapshot().Selected; !sel.IsNone() {
		t.Errorf("selected = %v, want none", sel)
	}
}

// =============================================================================
// SIDEBAR
// =============================================================================

func TestSidebar_DeleteWithConfirmation(t *testing.T) {
	a := newTestApp(t, true)
	m := newTestModel(t, a)
	if err := a.Store.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}

	m, _ = update(m, tea.KeyMsg{Type: tea.KeyTab})
	if m.focus != focusSidebar {
		t.Fatal("tab should focus the sidebar")
	}
	m, _ = update(m, keyRunes("d"))
	if m.overlay != overlayConfirmDelete {
		t.Fatalf("overlay = %v, want confirm", m.overlay)
	}
	if !strings.Contains(m.View(), "first chat") {
		t.Error("confirmation should name the conversation")
	}

	m, cmd := update(m, keyRunes("y"))
	m = exec(t, m, cmd)

	if got := len(a.Store.Snapshot().Conversations); got != 1 {
		t.Errorf("conversations = %d, want 1", got)
	}
	toasts := m.toasts.Toasts()
	if len(toasts) == 0 || toasts[0].Message != "Conversation deleted successfully" {
		t.Errorf("toasts = %+v", toasts)
	}
}

func TestSidebar_DeleteCanceled(t *testing.T) {
	a := newTestApp(t, true)
	m := newTestModel(t, a)
	if err := a.Store.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}

	m, _ = update(m, tea.KeyMsg{Type: tea.KeyTab})
	m, _ = update(m, keyRunes("d"))
	m, cmd := update(m, keyRunes("n"))
	if cmd != nil || m.overlay != overlayNone {
		t.Error("n should close the dialog without deleting")
	}
	if got := len(a.Store.Snapshot().Conversations); got != 2 {
		t.Errorf("conversations = %d, want 2", got)
	}
}

func TestSidebar_SelectLoadsConversation(t *testing.T) {
	a := newTestApp(t, true)
	m := newTestModel(t, a)
	if err := a.Store.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}

	m, _ = update(m, tea.KeyMsg{Type: tea.KeyTab})
	m, _ = update(m, tea.KeyMsg{Type: tea.KeyDown})
	m, cmd := update(m, tea.KeyMsg{Type: tea.KeyEnter})
	m = exec(t, m, cmd)

	if sel := a.Store.Snapshot().Selected; sel != model.PersistedID("2") {
		t.Errorf("selected = %v, want 2", sel)
	}
	if m.focus != focusInput {
		t.Error("opening a conversation should focus the input")
	}
}

// =============================================================================
// TAGS, UPLOAD AND CLIPBOARD
// =============================================================================

func TestCycleTag(t *testing.T) {
	a := newTestApp(t, true)
	m := newTestModel(t, a)
	m, _ = update(m, tagsLoadedMsg{tags: []model.Tag{{ID: "t1", Name: "docs"}, {ID: "t2", Name: "code"}}})

	want := []string{"t1", "t2", ""}
	for _, id := range want {
		m, _ = update(m, tea.KeyMsg{Type: tea.KeyCtrlT})
		if got := a.Chat.Options().TagID; got != id {
			t.Fatalf("TagID = %q, want %q", got, id)
		}
	}
}

func TestUpload_ValidatesThenSubmits(t *testing.T) {
	a := newTestApp(t, true)
	m := newTestModel(t, a)

	m, _ = update(m, tea.KeyMsg{Type: tea.KeyCtrlU})
	if m.overlay != overlayUpload {
		t.Fatalf("overlay = %v, want upload", m.overlay)
	}

	m, cmd := update(m, tea.KeyMsg{Type: tea.KeyCtrlS})
	if cmd != nil {
		t.Error("empty selection must not upload")
	}
	if !strings.Contains(m.upload.err, "select at least one file") {
		t.Errorf("err = %q", m.upload.err)
	}

	path := filepath.Join(t.TempDir(), "notes.md")
	if err := os.WriteFile(path, []byte("# notes"), 0600); err != nil {
		t.Fatal(err)
	}
	m.upload.path.SetValue(path)
	m, _ = update(m, tea.KeyMsg{Type: tea.KeyEnter})
	if files := a.Upload.Files(); len(files) != 1 || files[0] != path {
		t.Fatalf("files = %v", files)
	}

	m.upload.tagName.SetValue("research")
	m, cmd = update(m, tea.KeyMsg{Type: tea.KeyCtrlS})
	m = exec(t, m, cmd)

	if m.overlay != overlayNone {
		t.Errorf("overlay = %v, want closed", m.overlay)
	}
	if len(a.Upload.Files()) != 0 {
		t.Error("selection should be cleared after upload")
	}
}

func TestUpload_GitFormRequiresFields(t *testing.T) {
	a := newTestApp(t, true)
	m := newTestModel(t, a)

	m, _ = update(m, tea.KeyMsg{Type: tea.KeyCtrlU})
	m, _ = update(m, tea.KeyMsg{Type: tea.KeyCtrlO})
	if m.upload.tab != tabGit {
		t.Fatal("ctrl+o should switch to the Git tab")
	}
	m.upload.git[gitURL].SetValue("https://example.com/repo.git")

	m, cmd := update(m, tea.KeyMsg{Type: tea.KeyCtrlS})
	if cmd != nil {
		t.Error("incomplete form must not submit")
	}
	if m.upload.err == "" {
		t.Error("expected a validation message")
	}
	if got := a.Upload.GitForm().RepoURL; got != "https://example.com/repo.git" {
		t.Errorf("form not kept: %q", got)
	}
}

func TestExpandPaths(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.txt", "b.txt", "c.md"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0600); err != nil {
			t.Fatal(err)
		}
	}

	got, err := expandPaths(filepath.Join(dir, "*.txt"))
	if err != nil || len(got) != 2 {
		t.Errorf("glob = %v, %v", got, err)
	}
	if _, err := expandPaths(filepath.Join(dir, "*.pdf")); err == nil {
		t.Error("a glob without matches should fail")
	}
	if got, _ := expandPaths("  "); got != nil {
		t.Errorf("blank input = %v", got)
	}
}

func TestCopyLastReply(t *testing.T) {
	var copied string
	orig := clipboardWrite
	clipboardWrite = func(s string) error { copied = s; return nil }
	t.Cleanup(func() { clipboardWrite = orig })

	a := newTestApp(t, true)
	m := newTestModel(t, a)

	update(m, tea.KeyMsg{Type: tea.KeyCtrlY})
	if copied != "" {
		t.Fatal("nothing should be copied from an empty transcript")
	}

	m.input.SetValue("hello")
	m, cmd := update(m, tea.KeyMsg{Type: tea.KeyEnter})
	m = exec(t, m, cmd)

	update(m, tea.KeyMsg{Type: tea.KeyCtrlY})
	if copied != "Hi from the model" {
		t.Errorf("copied = %q", copied)
	}
}
