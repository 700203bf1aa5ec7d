// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat runs the send-message cycle.
package chat

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/ragchat-tui/internal/api"
	"github.com/jeranaias/ragchat-tui/internal/auth"
	"github.com/jeranaias/ragchat-tui/internal/conversation"
	"github.com/jeranaias/ragchat-tui/internal/model"
)

// =============================================================================
// TEST DOUBLES
// =============================================================================

// chunkReader returns one chunk per Read and then err (io.EOF if nil).
type chunkReader struct {
	chunks [][]byte
	err    error
	closed atomic.Bool
	gate   chan struct{}
}

func (r *chunkReader) Read(p []byte) (int, error) {
	if len(r.chunks) == 0 {
		if r.gate != nil {
			<-r.gate
		}
		if r.err != nil {
			return 0, r.err
		}
		return 0, io.EOF
	}
	n := copy(p, r.chunks[0])
	r.chunks[0] = r.chunks[0][n:]
	if len(r.chunks[0]) == 0 {
		r.chunks = r.chunks[1:]
	}
	return n, nil
}

func (r *chunkReader) Close() error {
	r.closed.Store(true)
	return nil
}

type fakeBackend struct {
	mu         sync.Mutex
	createErr  error
	openErr    error
	nextID     string
	creates    int
	opens      int
	lastReq    api.StreamRequest
	lastPrefix string
	body       *chunkReader
	stream     io.ReadCloser
	openGate   chan struct{}
}

func (f *fakeBackend) CreateConversation(ctx context.Context, prefix string) (model.ID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates++
	f.lastPrefix = prefix
	if f.createErr != nil {
		return model.NoID(), f.createErr
	}
	return model.PersistedID(f.nextID), nil
}

func (f *fakeBackend) OpenStream(ctx context.Context, r api.StreamRequest) (io.ReadCloser, error) {
	f.mu.Lock()
	f.opens++
	f.lastReq = r
	gate := f.openGate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	if f.openErr != nil {
		return nil, f.openErr
	}
	if f.stream != nil {
		return f.stream, nil
	}
	return f.body, nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	errors []string
}

func (n *recordingNotifier) Error(msg string) {
	n.mu.Lock()
	n.errors = append(n.errors, msg)
	n.mu.Unlock()
}

func (n *recordingNotifier) Info(string) {}

// storeBackend satisfies conversation.Backend for tests that never fetch.
type storeBackend struct{}

func (storeBackend) ListConversations(context.Context) ([]*model.Conversation, error) {
	return nil, nil
}
func (storeBackend) ListMessages(context.Context, model.ID) ([]*model.Message, error) {
	return nil, nil
}
func (storeBackend) DeleteConversation(context.Context, model.ID) error { return nil }

type harness struct {
	ctrl    *Controller
	store   *conversation.Store
	backend *fakeBackend
	notes   *recordingNotifier
	gate    *auth.Gate
	states  []State
}

func newHarness(t *testing.T, body string) *harness {
	t.Helper()
	h := &harness{
		backend: &fakeBackend{nextID: "1001", body: &chunkReader{chunks: [][]byte{[]byte(body)}}},
		notes:   &recordingNotifier{},
		gate:    auth.NewGate(true),
	}
	h.store = conversation.NewStore(storeBackend{}, h.gate, nil, nil)
	var mu sync.Mutex
	h.ctrl = NewController(Config{
		Backend:  h.backend,
		Gate:     h.gate,
		Store:    h.store,
		Notifier: h.notes,
		Options:  Options{Model: "deepseek-chat"},
		OnState: func(s State) {
			mu.Lock()
			h.states = append(h.states, s)
			mu.Unlock()
		},
	})
	return h
}

func data(text string) string {
	return `data:{"result":{"output":{"text":"` + text + `"},"metadata":{"finishReason":""}}}` + "\n\n"
}

const stop = `data:{"result":{"output":{"text":""},"metadata":{"finishReason":"STOP"}}}` + "\n\n"

func roles(msgs []*model.Message) []model.Role {
	out := make([]model.Role, len(msgs))
	for i, m := range msgs {
		out[i] = m.Role
	}
	return out
}

// =============================================================================
// HAPPY PATH
// =============================================================================

func TestSend_CreatesConversationAndStreamsReply(t *testing.T) {
	h := newHarness(t, data("Hello")+data(", ")+data("world")+stop)

	res, err := h.ctrl.Send(context.Background(), "  what is RAG, explained in more than thirty characters?  ")
	require.NoError(t, err)

	snap := h.store.Snapshot()
	require.Len(t, snap.Conversations, 1)
	conv := snap.Conversations[0]
	assert.Equal(t, model.PersistedID("1001"), conv.ID)
	assert.Equal(t, conv.ID, snap.Selected)
	assert.Equal(t, "what is RAG, explained in more...", conv.Title)
	assert.Equal(t, "what is RA", h.backend.lastPrefix)

	assert.Equal(t, []model.Role{model.RoleUser, model.RoleAssistant}, roles(snap.Messages))
	assert.Equal(t, []model.Role{model.RoleUser, model.RoleAssistant}, roles(conv.Messages))
	assert.Equal(t, "Hello, world", snap.Messages[1].Content)
	assert.Equal(t, "Hello, world", conv.Messages[1].Content)
	assert.False(t, snap.Messages[1].Loading)

	assert.Equal(t, 3, res.Fragments)
	assert.Equal(t, StateIdle, h.ctrl.State())
	assert.Equal(t, []State{StateSending, StateStreamOpen, StateIdle}, h.states)
	assert.True(t, h.backend.body.closed.Load())
	assert.True(t, snap.Streaming.IsNone())
	assert.Empty(t, h.notes.errors)
}

func TestSend_ExistingConversationSkipsCreate(t *testing.T) {
	h := newHarness(t, data("ok")+stop)
	local := model.NewConversation()
	h.store.InsertLocal(local)
	require.NoError(t, h.store.Bind(local.ID, model.PersistedID("5")))

	_, err := h.ctrl.Send(context.Background(), "second question")
	require.NoError(t, err)
	assert.Zero(t, h.backend.creates)
	assert.Equal(t, model.PersistedID("5"), h.backend.lastReq.ChatID)
}

func TestSend_TagSelectsRAGRoute(t *testing.T) {
	h := newHarness(t, stop)
	h.ctrl.SetTag("9")
	h.ctrl.SetUseTool(true)

	_, err := h.ctrl.Send(context.Background(), "q")
	require.NoError(t, err)
	assert.True(t, h.backend.lastReq.RAG())
	assert.True(t, h.backend.lastReq.UseTool)
	assert.Equal(t, "deepseek-chat", h.backend.lastReq.Model)

	h.ctrl.SetTag("")
	h.backend.body = &chunkReader{chunks: [][]byte{[]byte(stop)}}
	_, err = h.ctrl.Send(context.Background(), "q2")
	require.NoError(t, err)
	assert.False(t, h.backend.lastReq.RAG())
}

func TestSend_ChunkBoundariesDoNotChangeContent(t *testing.T) {
	stream := data("Stre") + data("ámed ") + "data: not json\n\n" + data("tëxt") + stop

	for _, size := range []int{len(stream), 1, 2, 3, 7, 13} {
		h := newHarness(t, "")
		var chunks [][]byte
		for i := 0; i < len(stream); i += size {
			end := i + size
			if end > len(stream) {
				end = len(stream)
			}
			chunks = append(chunks, []byte(stream[i:end]))
		}
		h.backend.body = &chunkReader{chunks: chunks}

		res, err := h.ctrl.Send(context.Background(), "go")
		require.NoError(t, err)
		got := h.store.Snapshot().Messages[1].Content
		assert.Equal(t, "Streámed tëxt", got, "chunk size %d", size)
		assert.Equal(t, 1, res.Malformed, "chunk size %d", size)
	}
}

func TestSend_TrailingBlockWithoutBlankLine(t *testing.T) {
	h := newHarness(t, data("a")+`data:{"content":"b"}`)
	_, err := h.ctrl.Send(context.Background(), "go")
	require.NoError(t, err)
	assert.Equal(t, "ab", h.store.Snapshot().Messages[1].Content)
}

// =============================================================================
// MALFORMED AND ERROR EVENTS
// =============================================================================

func TestSend_MalformedEventsSkipped(t *testing.T) {
	stream := data("one ") + "data: {oops\n\n" + data("two ") + "data: [1,2\n\n" + data("three") + stop
	h := newHarness(t, stream)

	res, err := h.ctrl.Send(context.Background(), "go")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Malformed)
	assert.Equal(t, 3, res.Fragments)
	assert.Equal(t, "one two three", h.store.Snapshot().Messages[1].Content)
}

func TestSend_ErrorEventSurfacedWithoutClosing(t *testing.T) {
	stream := data("before ") + "error: rate limit hit\n\n" + data("after") + stop
	h := newHarness(t, stream)

	res, err := h.ctrl.Send(context.Background(), "go")
	require.NoError(t, err)
	assert.Equal(t, []string{"rate limit hit"}, res.StreamErrors)
	assert.Equal(t, []string{"rate limit hit"}, h.notes.errors)
	assert.Equal(t, "before after", h.store.Snapshot().Messages[1].Content)
}

// =============================================================================
// FAILURE AND ROLLBACK
// =============================================================================

func TestSend_CreateFailureRollsBackEverything(t *testing.T) {
	h := newHarness(t, stop)
	existing := model.NewConversation()
	h.store.InsertLocal(existing)
	require.NoError(t, h.store.Bind(existing.ID, model.PersistedID("7")))
	h.store.AppendMessage(model.PersistedID("7"), model.NewUserMessage("old"))
	h.store.CreateEmpty()
	before := h.store.Snapshot()

	h.backend.createErr = errors.New("500")
	_, err := h.ctrl.Send(context.Background(), "new thread")
	require.Error(t, err)

	after := h.store.Snapshot()
	assert.Equal(t, len(before.Conversations), len(after.Conversations))
	assert.Equal(t, before.Conversations[0].ID, after.Conversations[0].ID)
	assert.Equal(t, before.Selected, after.Selected)
	assert.Equal(t, len(before.Messages), len(after.Messages))
	assert.Zero(t, h.backend.opens)
	assert.Equal(t, []string{msgCreateFailed}, h.notes.errors)
	assert.Equal(t, []State{StateSending, StateFailed, StateIdle}, h.states)
}

func TestSend_OpenFailureRollsBackUserMessage(t *testing.T) {
	h := newHarness(t, "")
	h.backend.openErr = &api.ClientError{Type: api.ErrTypeConnection, Message: "refused"}

	_, err := h.ctrl.Send(context.Background(), "hello")
	require.Error(t, err)

	snap := h.store.Snapshot()
	assert.Empty(t, snap.Messages)
	require.Len(t, snap.Conversations, 1, "the created conversation exists server-side")
	assert.Empty(t, snap.Conversations[0].Messages)
	assert.Equal(t, []string{msgSendFailed}, h.notes.errors)
	assert.Equal(t, StateIdle, h.ctrl.State())
}

func TestSend_MidStreamFailureKeepsPartialReply(t *testing.T) {
	h := newHarness(t, "")
	h.backend.body = &chunkReader{
		chunks: [][]byte{[]byte(data("partial "))},
		err:    errors.New("connection reset by peer"),
	}

	res, err := h.ctrl.Send(context.Background(), "hello")
	require.Error(t, err)
	require.NotNil(t, res)

	snap := h.store.Snapshot()
	assert.Equal(t, []model.Role{model.RoleAssistant}, roles(snap.Messages))
	assert.Equal(t, "partial ", snap.Messages[0].Content)
	assert.True(t, h.backend.body.closed.Load())
	assert.Equal(t, []State{StateSending, StateStreamOpen, StateFailed, StateIdle}, h.states)
}

// =============================================================================
// PRECONDITIONS
// =============================================================================

func TestSend_Preconditions(t *testing.T) {
	t.Run("empty input", func(t *testing.T) {
		h := newHarness(t, stop)
		_, err := h.ctrl.Send(context.Background(), "  \n\t ")
		assert.ErrorIs(t, err, ErrEmptyInput)
		assert.Empty(t, h.states)
		assert.Empty(t, h.store.Snapshot().Conversations)
	})

	t.Run("logged out", func(t *testing.T) {
		h := newHarness(t, stop)
		prompted := false
		h.gate.OnPrompt(func() { prompted = true })
		h.gate.Logout()

		_, err := h.ctrl.Send(context.Background(), "hi")
		assert.ErrorIs(t, err, auth.ErrLoginRequired)
		assert.True(t, prompted)
		assert.Empty(t, h.states)
		assert.Zero(t, h.backend.creates)
	})
}

func TestSend_RepeatedSendsWhileBusyAreIgnored(t *testing.T) {
	h := newHarness(t, "")
	release := make(chan struct{})
	h.backend.body = &chunkReader{chunks: [][]byte{[]byte(data("x"))}, gate: release}

	done := make(chan error, 1)
	go func() {
		_, err := h.ctrl.Send(context.Background(), "first")
		done <- err
	}()
	require.Eventually(t, func() bool { return h.ctrl.State() == StateStreamOpen }, 2*time.Second, 5*time.Millisecond)

	for i := 0; i < 5; i++ {
		_, err := h.ctrl.Send(context.Background(), "again")
		assert.ErrorIs(t, err, ErrBusy)
	}
	close(release)
	require.NoError(t, <-done)

	snap := h.store.Snapshot()
	assert.Equal(t, []model.Role{model.RoleUser, model.RoleAssistant}, roles(snap.Messages))
	assert.Equal(t, 1, h.backend.creates)
	assert.Equal(t, 1, h.backend.opens)
}

func TestSend_StreamingConversationCannotBeDeleted(t *testing.T) {
	h := newHarness(t, "")
	release := make(chan struct{})
	h.backend.body = &chunkReader{chunks: [][]byte{[]byte(data("x"))}, gate: release}

	done := make(chan error, 1)
	go func() {
		_, err := h.ctrl.Send(context.Background(), "first")
		done <- err
	}()
	require.Eventually(t, func() bool { return h.ctrl.State() == StateStreamOpen }, 2*time.Second, 5*time.Millisecond)

	err := h.store.Remove(context.Background(), model.PersistedID("1001"))
	assert.ErrorIs(t, err, conversation.ErrStreaming)
	close(release)
	require.NoError(t, <-done)
}

func TestSend_ReselectingStreamingConversationKeepsReply(t *testing.T) {
	h := newHarness(t, "")
	other := model.NewConversation()
	h.store.InsertLocal(other)
	require.NoError(t, h.store.Bind(other.ID, model.PersistedID("2002")))
	h.store.CreateEmpty()

	pr, pw := io.Pipe()
	h.backend.stream = pr
	resume := make(chan struct{})
	go func() {
		io.WriteString(pw, data("Hello"))
		<-resume
		io.WriteString(pw, data(" world")+stop)
		pw.Close()
	}()

	done := make(chan error, 1)
	go func() {
		_, err := h.ctrl.Send(context.Background(), "go")
		done <- err
	}()
	require.Eventually(t, func() bool {
		msgs := h.store.Snapshot().Messages
		return len(msgs) == 2 && msgs[1].Content == "Hello"
	}, 2*time.Second, 5*time.Millisecond)

	ctx := context.Background()
	require.NoError(t, h.store.Select(ctx, model.PersistedID("2002")))
	require.NoError(t, h.store.Select(ctx, model.PersistedID("1001")))
	snap := h.store.Snapshot()
	assert.False(t, snap.Loading)
	require.Len(t, snap.Messages, 2)
	assert.Equal(t, "Hello", snap.Messages[1].Content)

	close(resume)
	require.NoError(t, <-done)

	snap = h.store.Snapshot()
	require.Len(t, snap.Messages, 2)
	assert.Equal(t, "Hello world", snap.Messages[1].Content)
	assert.False(t, snap.Messages[1].Loading)
	conv := snap.Conversation(model.PersistedID("1001"))
	require.NotNil(t, conv)
	require.Len(t, conv.Messages, 2)
	assert.Equal(t, "Hello world", conv.Messages[1].Content)
}

func TestCancel_KeepsContent(t *testing.T) {
	h := newHarness(t, "")
	block := make(chan struct{})
	h.backend.body = &chunkReader{chunks: [][]byte{[]byte(data("so far"))}, gate: block, err: context.Canceled}

	done := make(chan *Result, 1)
	go func() {
		res, err := h.ctrl.Send(context.Background(), "long one")
		assert.NoError(t, err)
		done <- res
	}()
	require.Eventually(t, func() bool {
		msgs := h.store.Snapshot().Messages
		return len(msgs) == 2 && msgs[1].Content == "so far"
	}, 2*time.Second, 5*time.Millisecond)

	assert.True(t, h.ctrl.Cancel())
	close(block)
	res := <-done
	assert.True(t, res.Canceled)
	assert.Equal(t, []model.Role{model.RoleUser, model.RoleAssistant}, roles(h.store.Snapshot().Messages))
	assert.False(t, h.ctrl.Cancel())
}

// =============================================================================
// END TO END
// =============================================================================

func TestSend_AgainstHTTPBackend(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/openai/create_chat", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "1899871234567890944")
	})
	mux.HandleFunc("/api/v1/openai/generate_stream", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1899871234567890944", r.URL.Query().Get("chatId"))
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for _, part := range []string{"Hi", " there"} {
			io.WriteString(w, data(part))
			flusher.Flush()
		}
		io.WriteString(w, stop)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client, err := api.NewClientWithConfig(&api.ClientConfig{BaseURL: srv.URL + "/api/v1"})
	require.NoError(t, err)

	gate := auth.NewGate(true)
	store := conversation.NewStore(client, gate, nil, nil)
	ctrl := NewController(Config{Backend: client, Gate: gate, Store: store, Options: Options{Model: "deepseek-chat"}})

	_, err = ctrl.Send(context.Background(), "hello")
	require.NoError(t, err)
	snap := store.Snapshot()
	assert.Equal(t, model.PersistedID("1899871234567890944"), snap.Selected)
	require.Len(t, snap.Messages, 2)
	assert.Equal(t, "Hi there", strings.TrimSpace(snap.Messages[1].Content))
}

func TestTruncate_KeepsRunesWhole(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"abcdef", 3, "abc..."},
		{"héllo", 2, "h..."},
		{"字字字", 4, "字..."},
		{"字字字", 1, "..."},
	}
	for _, tc := range tests {
		got := truncate(tc.in, tc.n)
		assert.Equal(t, tc.want, got, "truncate(%q, %d)", tc.in, tc.n)
		assert.True(t, utf8.ValidString(got))
	}
}
