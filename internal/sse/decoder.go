// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package sse decodes the generation stream into discrete events.
package sse

import (
	"bytes"
	"errors"
	"strings"
)

// =============================================================================
// CONSTANTS
// =============================================================================

// MaxBlockSize bounds the bytes buffered for a single unfinished event:
// its unterminated line plus the data and error lines collected so far.
const MaxBlockSize = 1 << 20

// ErrBlockTooLarge is returned when an event grows past MaxBlockSize
// without being terminated.
var ErrBlockTooLarge = errors.New("sse: event block exceeds maximum size")

// =============================================================================
// EVENT TYPE
// =============================================================================

// EventKind identifies the kind of a decoded block.
type EventKind int

const (
	// EventData carries a structured payload.
	EventData EventKind = iota

	// EventError carries an out-of-band error message.
	EventError
)

// String returns the kind name.
func (k EventKind) String() string {
	if k == EventError {
		return "error"
	}
	return "data"
}

// Event is one complete blank-line-delimited block.
type Event struct {
	Kind EventKind
	// Data is the payload. Multiple data lines are joined with "\n".
	Data string
	// Name is the optional "event:" field.
	Name string
}

// =============================================================================
// DECODER
// =============================================================================

// Decoder accumulates raw bytes and yields complete events.
// A Decoder is not safe for concurrent use; a single read loop owns it.
type Decoder struct {
	// buf holds bytes not yet terminated by a newline.
	buf []byte

	// Lines of the block currently being assembled.
	data     []string
	errs     []string
	name     string
	hasLines bool
	// size counts the bytes held in data and errs.
	size int

	blocks int
}

// NewDecoder returns an empty decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Feed appends chunk to the accumulator and returns every event completed
// by it, in arrival order.
func (d *Decoder) Feed(chunk []byte) ([]Event, error) {
	d.buf = append(d.buf, chunk...)

	var events []Event
	for {
		idx := bytes.IndexByte(d.buf, '\n')
		if idx < 0 {
			break
		}
		line := d.buf[:idx]
		d.buf = d.buf[idx+1:]
		if ev, ok := d.processLine(string(bytes.TrimSuffix(line, []byte{'\r'}))); ok {
			events = append(events, ev)
		}
		if d.size > MaxBlockSize {
			return events, ErrBlockTooLarge
		}
	}

	// Compact so the backing array does not grow with the whole stream.
	if len(d.buf) == 0 {
		d.buf = d.buf[:0:0]
	} else {
		d.buf = append([]byte(nil), d.buf...)
	}

	if d.size+len(d.buf) > MaxBlockSize {
		return events, ErrBlockTooLarge
	}
	return events, nil
}

// Flush processes whatever remains after the stream ends: an unterminated
// final line and a block that was never followed by a blank line.
func (d *Decoder) Flush() []Event {
	var events []Event
	if len(d.buf) > 0 {
		line := strings.TrimSuffix(string(d.buf), "\r")
		d.buf = nil
		if ev, ok := d.processLine(line); ok {
			events = append(events, ev)
		}
	}
	if ev, ok := d.dispatch(); ok {
		events = append(events, ev)
	}
	return events
}

// pending reports whether bytes or lines are buffered.
func (d *Decoder) pending() bool {
	return len(d.buf) > 0 || d.hasLines
}

// processLine handles one complete line. A blank line completes the block.
func (d *Decoder) processLine(line string) (Event, bool) {
	if line == "" {
		return d.dispatch()
	}
	if strings.HasPrefix(line, ":") {
		return Event{}, false
	}

	field, value, found := strings.Cut(line, ":")
	if !found {
		// Lines without a colon are field names with an empty value.
		field, value = line, ""
	}
	value = strings.TrimPrefix(value, " ")

	switch field {
	case "data":
		d.data = append(d.data, value)
		d.size += len(value) + 1
		d.hasLines = true
	case "error":
		d.errs = append(d.errs, value)
		d.size += len(value) + 1
		d.hasLines = true
	case "event":
		d.name = value
		d.hasLines = true
	}
	return Event{}, false
}

// dispatch emits the assembled block and resets block state.
func (d *Decoder) dispatch() (Event, bool) {
	if !d.hasLines {
		return Event{}, false
	}
	defer d.resetBlock()

	d.blocks++
	switch {
	case len(d.errs) > 0:
		return Event{Kind: EventError, Data: strings.Join(d.errs, "\n"), Name: d.name}, true
	case strings.EqualFold(d.name, "error"):
		return Event{Kind: EventError, Data: strings.Join(d.data, "\n"), Name: d.name}, true
	case len(d.data) > 0:
		return Event{Kind: EventData, Data: strings.Join(d.data, "\n"), Name: d.name}, true
	default:
		d.blocks--
		return Event{}, false
	}
}

func (d *Decoder) resetBlock() {
	d.data = nil
	d.errs = nil
	d.name = ""
	d.hasLines = false
	d.size = 0
}
