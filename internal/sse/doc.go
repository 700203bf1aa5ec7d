// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package sse decodes the generation stream into discrete events.
//
// The backend frames its output as blank-line-delimited blocks whose lines
// are prefixed "data:" (a JSON payload) or "error:" (an out-of-band error).
// Network chunks may split a block, a line, or even a CRLF pair anywhere,
// so decoding is driven by an explicit accumulator rather than by a line
// scanner bound to the reader.
//
// # Key Types
//
//   - Decoder: Accumulator that turns arbitrary byte chunks into complete events
//   - Event: One decoded block (data or error)
//   - Fragment: Content and completion marker extracted from a data payload
//
// # Usage
//
//	dec := sse.NewDecoder()
//	for _, ev := range dec.Feed(chunk) {
//	    frag, err := sse.ParseFragment(ev.Data)
//	    ...
//	}
//	for _, ev := range dec.Flush() {
//	    ...
//	}
//
// Consume wraps the read loop for an io.Reader and guarantees that the
// next read is not issued until every event of the previous chunk has been
// handled.
package sse
