// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the line-oriented ragchat commands.
package cli

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"

	"github.com/jeranaias/ragchat-tui/internal/conversation"
	"github.com/jeranaias/ragchat-tui/internal/model"
)

// =============================================================================
// STREAM PRINTER
// =============================================================================

// streamPrinter echoes assistant text as it lands in the store. Only
// messages that were absent when the printer started are printed.
type streamPrinter struct {
	w     io.Writer
	store *conversation.Store

	seen    map[model.ID]bool
	printed map[model.ID]int
	wrote   bool
}

func newStreamPrinter(w io.Writer, store *conversation.Store) *streamPrinter {
	p := &streamPrinter{
		w:       w,
		store:   store,
		seen:    make(map[model.ID]bool),
		printed: make(map[model.ID]int),
	}
	for _, m := range store.Snapshot().Messages {
		p.seen[m.ID] = true
	}
	return p
}

// follow prints until the returned stop func is called. stop performs a
// last flush and waits for the goroutine to exit.
func (p *streamPrinter) follow() (stop func()) {
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-p.store.Changes():
				p.flush(p.store.Snapshot())
			case <-done:
				return
			}
		}
	}()
	return func() {
		close(done)
		wg.Wait()
		p.flush(p.store.Snapshot())
		if p.wrote {
			fmt.Fprintln(p.w)
		}
	}
}

func (p *streamPrinter) flush(snap *conversation.Snapshot) {
	for _, m := range snap.Messages {
		if p.seen[m.ID] || !m.IsAssistant() {
			continue
		}
		n := p.printed[m.ID]
		if len(m.Content) <= n {
			continue
		}
		fmt.Fprint(p.w, m.Content[n:])
		p.printed[m.ID] = len(m.Content)
		p.wrote = true
	}
}

// =============================================================================
// INTERRUPTS
// =============================================================================

// cancelOnInterrupt calls cancel on every Ctrl+C until the returned func is
// called. The process keeps running so partial output is kept.
func cancelOnInterrupt(cancel func() bool, w io.Writer) (stop func()) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-sigCh:
				if cancel() {
					fmt.Fprintln(w, "\n"+RenderConditional(WarningStyle, "[Cancelled]"))
				}
			case <-done:
				return
			}
		}
	}()
	return func() {
		signal.Stop(sigCh)
		close(done)
	}
}
