// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package upload manages knowledge-base ingestion.
package upload

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultSettle is how long a dropped file must stay unchanged before it
// joins the selection.
const DefaultSettle = 300 * time.Millisecond

// =============================================================================
// DROP ZONE
// =============================================================================

// DropZone watches a directory and adds every regular file that appears in
// it to the controller's selection. It is the terminal stand-in for
// drag-and-drop: copy or move files into the directory to select them.
type DropZone struct {
	dir    string
	ctrl   *Controller
	settle time.Duration
	logger *zap.Logger

	// OnAdd, if set, is called with each path added to the selection.
	OnAdd func(path string)

	mu      sync.Mutex
	pending map[string]time.Time
}

// NewDropZone creates a drop zone for dir. The directory is created if it
// does not exist.
func NewDropZone(dir string, ctrl *Controller, logger *zap.Logger) (*DropZone, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create drop directory: %w", err)
	}
	return &DropZone{
		dir:     dir,
		ctrl:    ctrl,
		settle:  DefaultSettle,
		logger:  logger.Named("dropzone"),
		pending: make(map[string]time.Time),
	}, nil
}

// Dir returns the watched directory.
func (d *DropZone) Dir() string {
	return d.dir
}

// Run watches until ctx is done.
func (d *DropZone) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(d.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", d.dir, err)
	}

	ticker := time.NewTicker(d.settle / 3)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) {
				d.touch(event.Name)
			}
			if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				d.forget(event.Name)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			d.logger.Warn("watch error", zap.Error(err))

		case now := <-ticker.C:
			d.flush(now)
		}
	}
}

func (d *DropZone) touch(path string) {
	if strings.HasPrefix(filepath.Base(path), ".") {
		return
	}
	d.mu.Lock()
	d.pending[path] = time.Now()
	d.mu.Unlock()
}

func (d *DropZone) forget(path string) {
	d.mu.Lock()
	delete(d.pending, path)
	d.mu.Unlock()
}

// flush adds every pending file that has settled.
func (d *DropZone) flush(now time.Time) {
	d.mu.Lock()
	var ready []string
	for path, last := range d.pending {
		if now.Sub(last) >= d.settle {
			ready = append(ready, path)
			delete(d.pending, path)
		}
	}
	d.mu.Unlock()

	for _, path := range ready {
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		if err := d.ctrl.AddFiles(path); err != nil {
			// Busy: try again once the upload finishes.
			d.touch(path)
			continue
		}
		d.logger.Debug("file dropped", zap.String("path", path))
		if d.OnAdd != nil {
			d.OnAdd(path)
		}
	}
}
