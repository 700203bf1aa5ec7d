// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package sse decodes the generation stream into discrete events.
package sse

import (
	"context"
	"errors"
	"io"
	"math/rand"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func payload(text string) string {
	return `data:{"result":{"output":{"text":"` + text + `"},"metadata":{"finishReason":""}}}` + "\n\n"
}

const stopPayload = `data:{"result":{"output":{"text":""},"metadata":{"finishReason":"STOP"}}}` + "\n\n"

// =============================================================================
// DECODER TESTS
// =============================================================================

func TestDecoder_Feed(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []Event
	}{
		{
			name:  "single data event",
			input: "data: hello\n\n",
			want:  []Event{{Kind: EventData, Data: "hello"}},
		},
		{
			name:  "crlf framing",
			input: "data: a\r\n\r\ndata: b\r\n\r\n",
			want:  []Event{{Kind: EventData, Data: "a"}, {Kind: EventData, Data: "b"}},
		},
		{
			name:  "multi-line data joined",
			input: "data: one\ndata: two\n\n",
			want:  []Event{{Kind: EventData, Data: "one\ntwo"}},
		},
		{
			name:  "error line",
			input: "error: quota exceeded\n\n",
			want:  []Event{{Kind: EventError, Data: "quota exceeded"}},
		},
		{
			name:  "named error event",
			input: "event: error\ndata: boom\n\n",
			want:  []Event{{Kind: EventError, Data: "boom", Name: "error"}},
		},
		{
			name:  "comments and blank runs ignored",
			input: ": keepalive\n\n\n\ndata: x\n\n",
			want:  []Event{{Kind: EventData, Data: "x"}},
		},
		{
			name:  "unterminated block held back",
			input: "data: partial\n",
			want:  nil,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			dec := NewDecoder()
			got, err := dec.Feed([]byte(tc.input))
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestDecoder_FlushTrailingBlock(t *testing.T) {
	dec := NewDecoder()
	events, err := dec.Feed([]byte("data: first\n\ndata: last"))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.True(t, dec.pending())
	assert.Equal(t, 1, dec.blocks)

	tail := dec.Flush()
	require.Len(t, tail, 1)
	assert.Equal(t, "last", tail[0].Data)
	assert.Equal(t, 2, dec.blocks)
	assert.False(t, dec.pending())
	assert.Empty(t, dec.Flush())
}

func TestDecoder_BlockTooLarge(t *testing.T) {
	dec := NewDecoder()
	_, err := dec.Feed([]byte("data: " + strings.Repeat("x", MaxBlockSize+1)))
	assert.ErrorIs(t, err, ErrBlockTooLarge)
}

func TestDecoder_UnterminatedBlockOfManyLines(t *testing.T) {
	dec := NewDecoder()
	line := []byte("data: " + strings.Repeat("y", 1023) + "\n")
	var err error
	for i := 0; i <= MaxBlockSize/1024 && err == nil; i++ {
		_, err = dec.Feed(line)
	}
	assert.ErrorIs(t, err, ErrBlockTooLarge)
}

func TestDecoder_SizeResetsBetweenBlocks(t *testing.T) {
	dec := NewDecoder()
	block := []byte("data: " + strings.Repeat("z", 1023) + "\n\n")
	for i := 0; i < 2*MaxBlockSize/1024; i++ {
		events, err := dec.Feed(block)
		require.NoError(t, err)
		require.Len(t, events, 1)
	}
	assert.Zero(t, dec.size)
}

// decodeAll feeds the stream split at the given offsets and returns the
// concatenated fragment text.
func decodeAll(t *testing.T, stream string, cuts []int) string {
	t.Helper()
	dec := NewDecoder()
	var events []Event
	prev := 0
	for _, c := range append(cuts, len(stream)) {
		evs, err := dec.Feed([]byte(stream[prev:c]))
		require.NoError(t, err)
		events = append(events, evs...)
		prev = c
	}
	events = append(events, dec.Flush()...)

	var b strings.Builder
	for _, ev := range events {
		frag, err := ParseFragment(ev.Data)
		if err != nil {
			continue
		}
		b.WriteString(frag.Text)
	}
	return b.String()
}

func TestDecoder_ChunkBoundaryInvariance(t *testing.T) {
	stream := payload("Hel") + payload("lo, ") + "data: {broken\n\n" + payload("wör") + payload("ld") + stopPayload
	want := decodeAll(t, stream, nil)
	require.Equal(t, "Hello, wörld", want)

	// Every single split point, including inside multi-byte runes and CRLF.
	for i := 0; i <= len(stream); i++ {
		assert.Equal(t, want, decodeAll(t, stream, []int{i}), "split at %d", i)
	}

	rng := rand.New(rand.NewSource(7))
	for iter := 0; iter < 200; iter++ {
		var cuts []int
		for p := 0; p < len(stream); p += 1 + rng.Intn(9) {
			cuts = append(cuts, p)
		}
		assert.Equal(t, want, decodeAll(t, stream, cuts), "iteration %d", iter)
	}
}

// =============================================================================
// PAYLOAD TESTS
// =============================================================================

func TestParseFragment(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    Fragment
		wantErr bool
	}{
		{"chat response envelope", `{"result":{"output":{"text":"hi"}}}`, Fragment{Text: "hi"}, false},
		{"stop marker", `{"result":{"output":{"text":""},"metadata":{"finishReason":"STOP"}}}`, Fragment{FinishReason: "STOP", Done: true}, false},
		{"plain content", `{"content":"yo"}`, Fragment{Text: "yo"}, false},
		{"missing fields are empty", `{"result":{}}`, Fragment{}, false},
		{"null output", `{"result":{"output":null}}`, Fragment{}, false},
		{"done literal", "[DONE]", Fragment{Done: true}, false},
		{"empty payload", "  ", Fragment{}, false},
		{"truncated json", `{"result":{"output":{"text":"hi"`, Fragment{}, true},
		{"not an object", `"just text"`, Fragment{}, true},
		{"garbage", `<html>`, Fragment{}, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseFragment(tc.payload)
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrMalformedPayload)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseFragment_EscapedContent(t *testing.T) {
	got, err := ParseFragment(`{"content":"line\nnext \"quoted\" é"}`)
	require.NoError(t, err)
	assert.Equal(t, "line\nnext \"quoted\" é", got.Text)
}

// =============================================================================
// CONSUME TESTS
// =============================================================================

func TestConsume_OneByteReads(t *testing.T) {
	stream := payload("a") + payload("b") + "data: c"
	var got []string
	err := Consume(context.Background(), iotest.OneByteReader(strings.NewReader(stream)), func(ev Event) error {
		got = append(got, ev.Data)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "c", got[2])
}

func TestConsume_StopEndsEarly(t *testing.T) {
	stream := payload("a") + payload("b")
	calls := 0
	err := Consume(context.Background(), strings.NewReader(stream), func(Event) error {
		calls++
		return ErrStop
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestConsume_ReadErrorAfterData(t *testing.T) {
	boom := errors.New("connection reset")
	r := io.MultiReader(strings.NewReader(payload("kept")), iotest.ErrReader(boom))

	var got []string
	err := Consume(context.Background(), r, func(ev Event) error {
		got = append(got, ev.Data)
		return nil
	})
	assert.ErrorIs(t, err, boom)
	assert.Len(t, got, 1)
}

func TestConsume_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Consume(ctx, strings.NewReader(payload("x")), func(Event) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}
