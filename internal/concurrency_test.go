// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package internal contains race detection tests for the ragchat client.
//
// Run with: go test -race -v ./internal/...
//
// The UI goroutine reads snapshots, cancels streams and edits the upload
// selection while send cycles and fetches run elsewhere. These tests drive
// those patterns against a slow in-process backend.
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
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jeranaias/ragchat-tui/internal/app"
	"github.com/jeranaias/ragchat-tui/internal/chat"
	"github.com/jeranaias/ragchat-tui/internal/config"
	"github.com/jeranaias/ragchat-tui/internal/model"
	"github.com/jeranaias/ragchat-tui/internal/upload"
)

// =============================================================================
// TEST CONFIGURATION
// =============================================================================

const (
	// Number of concurrent goroutines for race tests
	raceConcurrency = 100
	// Number of iterations per goroutine
	raceIterations = 50
	// Timeout for race tests
	raceTimeout = 30 * time.Second
)

// slowBackend streams fragments with a delay between them. With
// fragments <= 0 the stream runs until the client goes away.
type slowBackend struct {
	srv       *httptest.Server
	fragments int
	delay     time.Duration

	// messageDelay holds per-conversation latency for message_list.
	messageDelay map[string]time.Duration

	uploadStarted chan struct{}
	uploadRelease chan struct{}
}

func newSlowBackend(t *testing.T, fragments int, delay time.Duration) *slowBackend {
	t.Helper()
	b := &slowBackend{
		fragments:     fragments,
		delay:         delay,
		messageDelay:  map[string]time.Duration{},
		uploadStarted: make(chan struct{}, 1),
		uploadRelease: make(chan struct{}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/openai/chat_list", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `[{"chatId":"1","title":"first"},{"chatId":"2","title":"second"}]`)
	})
	mux.HandleFunc("/api/v1/openai/create_chat", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "42")
	})
	mux.HandleFunc("/api/v1/openai/message_list", func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Query().Get("chatId")
		select {
		case <-time.After(b.messageDelay[id]):
		case <-r.Context().Done():
			return
		}
		fmt.Fprintf(w, `[{"messageId":"m%s","role":"user","content":"from %s"}]`, id, id)
	})
	mux.HandleFunc("/api/v1/openai/generate_stream", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher, _ := w.(http.Flusher)
		for i := 0; b.fragments <= 0 || i < b.fragments; i++ {
			fmt.Fprintf(w, "data:{\"result\":{\"output\":{\"text\":\"t%d \"}}}\n\n", i)
			if flusher != nil {
				flusher.Flush()
			}
			select {
			case <-time.After(b.delay):
			case <-r.Context().Done():
				return
			}
		}
		io.WriteString(w, "data:{\"result\":{\"output\":{\"text\":\"\"},\"metadata\":{\"finishReason\":\"STOP\"}}}\n\n")
	})
	mux.HandleFunc("/api/v1/rag/file/upload", func(w http.ResponseWriter, r *http.Request) {
		select {
		case b.uploadStarted <- struct{}{}:
		default:
		}
		<-b.uploadRelease
		io.WriteString(w, "ok")
	})

	b.srv = httptest.NewServer(mux)
	t.Cleanup(b.srv.Close)
	return b
}

// newRaceApp builds an authenticated app without a cache.
func newRaceApp(t *testing.T, baseURL string) *app.App {
	t.Helper()
	cfg := config.Default()
	cfg.Server.BaseURL = baseURL + "/api/v1"
	cfg.Storage.DataDir = t.TempDir()
	cfg.Storage.CacheEnabled = false
	cfg.Chat.Tag = ""

	a, err := app.New(cfg, nil, app.Options{})
	if err != nil {
		t.Fatalf("app.New() error = %v", err)
	}
	t.Cleanup(func() { a.Close() })
	a.Gate.SetAuthenticated(true)
	return a
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

// =============================================================================
// STORE CONCURRENCY TESTS
// =============================================================================

// TestConcurrency_SnapshotReadersDuringStream reads snapshots from many
// goroutines while fragments are appended.
func TestConcurrency_SnapshotReadersDuringStream(t *testing.T) {
	b := newSlowBackend(t, 40, time.Millisecond)
	a := newRaceApp(t, b.srv.URL)

	ctx, cancel := context.WithTimeout(context.Background(), raceTimeout)
	defer cancel()

	done := make(chan struct{})
	var sendErr error
	var res *chat.Result
	go func() {
		defer close(done)
		res, sendErr = a.Chat.Send(ctx, "stream please")
	}()

	var wg sync.WaitGroup
	var reads atomic.Int64
	for i := 0; i < raceConcurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < raceIterations; j++ {
				snap := a.Store.Snapshot()
				for _, m := range snap.Messages {
					_ = len(m.Content)
					_ = m.Loading
				}
				if c := snap.Current(); c != nil {
					_ = c.Title
				}
				reads.Add(1)
			}
		}()
	}
	wg.Wait()
	<-done

	if sendErr != nil {
		t.Fatalf("Send() error = %v", sendErr)
	}
	if res.Fragments != 40 {
		t.Errorf("fragments = %d, want 40", res.Fragments)
	}
	if reads.Load() != raceConcurrency*raceIterations {
		t.Errorf("reads = %d", reads.Load())
	}
	last := a.Store.Snapshot().Messages
	if len(last) != 2 || last[1].Loading {
		t.Fatalf("final messages = %d, last loading = %v", len(last), len(last) > 1 && last[1].Loading)
	}
}

// TestConcurrency_ChangesNeverBlock checks that a subscriber that never
// drains the change channel cannot stall writers.
func TestConcurrency_ChangesNeverBlock(t *testing.T) {
	b := newSlowBackend(t, 200, 0)
	a := newRaceApp(t, b.srv.URL)

	ctx, cancel := context.WithTimeout(context.Background(), raceTimeout)
	defer cancel()

	_ = a.Store.Changes()
	if _, err := a.Chat.Send(ctx, "lots of fragments"); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	select {
	case <-a.Store.Changes():
	default:
		t.Error("expected a pending change notification")
	}
}

// TestConcurrency_StaleSelectIsDropped selects a slow conversation and then
// a fast one; the slow fetch must not overwrite the later selection.
func TestConcurrency_StaleSelectIsDropped(t *testing.T) {
	b := newSlowBackend(t, 1, 0)
	b.messageDelay["1"] = 150 * time.Millisecond
	a := newRaceApp(t, b.srv.URL)

	ctx, cancel := context.WithTimeout(context.Background(), raceTimeout)
	defer cancel()
	if err := a.Store.Refresh(ctx); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := a.Store.Select(ctx, model.PersistedID("1")); err != nil {
			t.Errorf("Select(1) error = %v", err)
		}
	}()
	waitFor(t, "first selection", func() bool {
		return a.Store.Snapshot().Selected == model.PersistedID("1")
	})
	if err := a.Store.Select(ctx, model.PersistedID("2")); err != nil {
		t.Fatalf("Select(2) error = %v", err)
	}
	wg.Wait()

	snap := a.Store.Snapshot()
	if snap.Selected != model.PersistedID("2") {
		t.Fatalf("selected = %v, want 2", snap.Selected)
	}
	if len(snap.Messages) != 1 || snap.Messages[0].Content != "from 2" {
		t.Errorf("messages = %+v", snap.Messages)
	}
	if snap.Loading {
		t.Error("loading flag left set")
	}
}

// =============================================================================
// CHAT CONCURRENCY TESTS
// =============================================================================

// TestConcurrency_CancelFromManyGoroutines races Cancel calls against an
// open stream. Exactly one call cancels; the partial reply stays.
func TestConcurrency_CancelFromManyGoroutines(t *testing.T) {
	b := newSlowBackend(t, 0, 5*time.Millisecond)
	a := newRaceApp(t, b.srv.URL)

	ctx, cancel := context.WithTimeout(context.Background(), raceTimeout)
	defer cancel()

	type outcome struct {
		res *chat.Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := a.Chat.Send(ctx, "never ending")
		done <- outcome{res, err}
	}()

	waitFor(t, "first fragment", func() bool {
		msgs := a.Store.Snapshot().Messages
		return len(msgs) == 2 && msgs[1].Content != ""
	})

	var wg sync.WaitGroup
	var wins atomic.Int32
	for i := 0; i < raceConcurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if a.Chat.Cancel() {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	out := <-done
	if out.err != nil {
		t.Fatalf("Send() error = %v", out.err)
	}
	if !out.res.Canceled {
		t.Error("result not marked canceled")
	}
	if wins.Load() != 1 {
		t.Errorf("successful cancels = %d, want 1", wins.Load())
	}
	msgs := a.Store.Snapshot().Messages
	if len(msgs) != 2 || msgs[1].Content == "" || msgs[1].Loading {
		t.Errorf("partial reply not kept: %+v", msgs)
	}
	if a.Chat.State() != chat.StateIdle {
		t.Errorf("state = %v, want idle", a.Chat.State())
	}
	if a.Chat.Cancel() {
		t.Error("Cancel() after the stream ended should report false")
	}
}

// TestConcurrency_ConcurrentSendsOneWins starts many sends at once; only
// one may run and the rest are refused.
func TestConcurrency_ConcurrentSendsOneWins(t *testing.T) {
	b := newSlowBackend(t, 10, 2*time.Millisecond)
	a := newRaceApp(t, b.srv.URL)

	ctx, cancel := context.WithTimeout(context.Background(), raceTimeout)
	defer cancel()

	var wg sync.WaitGroup
	var ok, busy atomic.Int32
	errChan := make(chan error, raceConcurrency)
	for i := 0; i < raceConcurrency; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := a.Chat.Send(ctx, fmt.Sprintf("message %d", i))
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, chat.ErrBusy):
				busy.Add(1)
			default:
				errChan <- err
			}
		}(i)
	}
	wg.Wait()
	close(errChan)

	for err := range errChan {
		t.Errorf("unexpected error: %v", err)
	}
	if ok.Load() < 1 || ok.Load()+busy.Load() != raceConcurrency {
		t.Errorf("ok = %d, busy = %d", ok.Load(), busy.Load())
	}
	if n := len(a.Store.Snapshot().Conversations); n != 1 {
		t.Errorf("conversations = %d, want 1", n)
	}
}

// =============================================================================
// UPLOAD CONCURRENCY TESTS
// =============================================================================

// TestConcurrency_AddFilesDuringUpload edits the selection while an upload
// is in flight. Edits are refused until it completes.
func TestConcurrency_AddFilesDuringUpload(t *testing.T) {
	b := newSlowBackend(t, 1, 0)
	a := newRaceApp(t, b.srv.URL)

	path := filepath.Join(t.TempDir(), "notes.md")
	if err := os.WriteFile(path, []byte("# notes"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := a.Upload.AddFiles(path); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), raceTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		_, err := a.Upload.SubmitFiles(ctx, upload.ExistingTag{ID: "7"})
		done <- err
	}()
	<-b.uploadStarted

	var wg sync.WaitGroup
	errChan := make(chan error, raceConcurrency*raceIterations)
	for i := 0; i < raceConcurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < raceIterations; j++ {
				if err := a.Upload.AddFiles(path); !errors.Is(err, upload.ErrBusy) {
					errChan <- fmt.Errorf("AddFiles() during upload = %v, want ErrBusy", err)
				}
				_ = a.Upload.Files()
				_ = a.Upload.Uploading()
			}
		}()
	}
	wg.Wait()
	close(b.uploadRelease)

	if err := <-done; err != nil {
		t.Fatalf("SubmitFiles() error = %v", err)
	}
	close(errChan)
	for err := range errChan {
		t.Error(err)
	}
	if files := a.Upload.Files(); len(files) != 0 {
		t.Errorf("selection after upload = %v, want empty", files)
	}
	if err := a.Upload.AddFiles(path); err != nil {
		t.Errorf("AddFiles() after upload error = %v", err)
	}
}
