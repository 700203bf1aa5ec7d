// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package sse decodes the generation stream into discrete events.
package sse

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/buger/jsonparser"
)

// DoneMarker is the literal payload some backends send to end a stream.
const DoneMarker = "[DONE]"

// ErrMalformedPayload is returned for data payloads that are not valid JSON.
var ErrMalformedPayload = errors.New("sse: malformed event payload")

// Fragment is the content extracted from one data event.
type Fragment struct {
	// Text is the content fragment. Missing fields yield "".
	Text string
	// FinishReason is the raw completion marker, if any.
	FinishReason string
	// Done is set when the payload signals the end of generation.
	Done bool
}

// Paths probed for the content fragment, in order. The first is the chat
// response envelope of the backend; the rest cover older and plain shapes.
var contentPaths = [][]string{
	{"result", "output", "text"},
	{"result", "output", "content"},
	{"results", "[0]", "output", "text"},
	{"content"},
	{"choices", "[0]", "delta", "content"},
}

var finishPaths = [][]string{
	{"result", "metadata", "finishReason"},
	{"results", "[0]", "metadata", "finishReason"},
	{"finishReason"},
	{"finish_reason"},
	{"choices", "[0]", "finish_reason"},
}

// ParseFragment extracts the content fragment and completion marker from a
// data payload.
func ParseFragment(payload string) (Fragment, error) {
	trimmed := strings.TrimSpace(payload)
	switch {
	case trimmed == "":
		return Fragment{}, nil
	case trimmed == DoneMarker:
		return Fragment{Done: true}, nil
	}

	data := []byte(trimmed)
	// jsonparser does not validate the whole document, so a truncated
	// object would otherwise yield a partial fragment.
	if !json.Valid(data) || data[0] != '{' {
		return Fragment{}, ErrMalformedPayload
	}

	var frag Fragment
	frag.Text = firstString(data, contentPaths)
	frag.FinishReason = firstString(data, finishPaths)
	frag.Done = isStopReason(frag.FinishReason)
	return frag, nil
}

func firstString(data []byte, paths [][]string) string {
	for _, p := range paths {
		v, err := jsonparser.GetString(data, p...)
		if err == nil {
			return v
		}
	}
	return ""
}

func isStopReason(reason string) bool {
	switch strings.ToLower(reason) {
	case "stop", "end_turn", "finished":
		return true
	}
	return false
}
