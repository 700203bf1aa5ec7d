// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package sse decodes the generation stream into discrete events.
package sse

import (
	"context"
	"errors"
	"io"
)

// ReadBufferSize is the size of each read issued against the stream body.
const ReadBufferSize = 4096

// ErrStop is returned by a Handler to end consumption early without error.
var ErrStop = errors.New("sse: stop")

// Handler is called once per decoded event, in arrival order.
type Handler func(Event) error

// Consume reads r chunk by chunk, feeding a fresh Decoder, and calls fn for
// each event. The next read is issued only after all events of the previous
// chunk were handled. On EOF the decoder is flushed so a trailing block
// without a terminating blank line is still delivered.
//
// Consume returns nil on EOF or when fn returns ErrStop. Read errors are
// returned as-is after events already decoded from the failing read have
// been delivered.
func Consume(ctx context.Context, r io.Reader, fn Handler) error {
	dec := NewDecoder()
	buf := make([]byte, ReadBufferSize)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, readErr := r.Read(buf)
		if n > 0 {
			events, err := dec.Feed(buf[:n])
			if stop, herr := deliver(events, fn); stop || herr != nil {
				return herr
			}
			if err != nil {
				return err
			}
		}

		if readErr == io.EOF {
			_, herr := deliver(dec.Flush(), fn)
			return herr
		}
		if readErr != nil {
			return readErr
		}
	}
}

// deliver hands events to fn. stop reports that fn asked to end the stream.
func deliver(events []Event, fn Handler) (stop bool, err error) {
	for _, ev := range events {
		if err := fn(ev); err != nil {
			if errors.Is(err, ErrStop) {
				return true, nil
			}
			return true, err
		}
	}
	return false, nil
}
