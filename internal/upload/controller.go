// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package upload manages knowledge-base ingestion.
package upload

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/jeranaias/ragchat-tui/internal/api"
	"github.com/jeranaias/ragchat-tui/internal/model"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	ErrNoFiles       = errors.New("please select at least one file")
	ErrEmptyTagName  = errors.New("please enter a tag name")
	ErrNoTagSelected = errors.New("please select a tag")
	ErrGitFields     = errors.New("repository URL, user name and token are required")
	ErrBusy          = errors.New("an upload or analysis is already in progress")
)

// =============================================================================
// COLLABORATORS
// =============================================================================

// Backend is the subset of the API client used for ingestion.
type Backend interface {
	ListTags(ctx context.Context) ([]model.Tag, error)
	CreateTag(ctx context.Context, name string) (string, error)
	UploadFiles(ctx context.Context, tagID string, paths []string) error
	AnalyzeGitRepository(ctx context.Context, r api.GitRequest) error
}

// Gate reports whether backend calls are allowed.
type Gate interface {
	Require() error
}

// Notifier receives transient user-visible notifications.
type Notifier interface {
	Error(msg string)
	Info(msg string)
}

// GitForm is the repository analysis form.
type GitForm struct {
	RepoURL  string
	UserName string
	Token    string
}

func (f GitForm) trimmed() GitForm {
	return GitForm{
		RepoURL:  strings.TrimSpace(f.RepoURL),
		UserName: strings.TrimSpace(f.UserName),
		Token:    strings.TrimSpace(f.Token),
	}
}

// Validate reports whether every field is filled in.
func (f GitForm) Validate() error {
	t := f.trimmed()
	if t.RepoURL == "" || t.UserName == "" || t.Token == "" {
		return ErrGitFields
	}
	return nil
}

// UploadResult describes a successful file upload.
type UploadResult struct {
	TagID      string
	TagCreated bool
	Files      int
}

// =============================================================================
// CONTROLLER
// =============================================================================

// Controller holds the upload dialog state.
type Controller struct {
	backend Backend
	gate    Gate
	notify  Notifier
	logger  *zap.Logger

	mu        sync.Mutex
	files     []string
	git       GitForm
	uploading bool
	analyzing bool
}

// NewController creates an empty upload controller.
func NewController(backend Backend, gate Gate, notify Notifier, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	if notify == nil {
		notify = nopNotifier{}
	}
	return &Controller{
		backend: backend,
		gate:    gate,
		notify:  notify,
		logger:  logger.Named("upload"),
	}
}

// Uploading reports whether a file upload is in flight.
func (c *Controller) Uploading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.uploading
}

// Analyzing reports whether a Git analysis is in flight.
func (c *Controller) Analyzing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.analyzing
}

// Tags fetches the knowledge-base tags.
func (c *Controller) Tags(ctx context.Context) ([]model.Tag, error) {
	if err := c.gate.Require(); err != nil {
		return nil, err
	}
	tags, err := c.backend.ListTags(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch tags: %w", err)
	}
	return tags, nil
}

// =============================================================================
// FILE FLOW
// =============================================================================

// AddFiles appends paths to the selection. Repeated paths are kept.
func (c *Controller) AddFiles(paths ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.uploading {
		return ErrBusy
	}
	for _, p := range paths {
		if p = strings.TrimSpace(p); p != "" {
			c.files = append(c.files, p)
		}
	}
	return nil
}

// RemoveFile drops the file at index i from the selection.
func (c *Controller) RemoveFile(i int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.uploading {
		return ErrBusy
	}
	if i < 0 || i >= len(c.files) {
		return fmt.Errorf("no file at index %d", i)
	}
	c.files = append(c.files[:i:i], c.files[i+1:]...)
	return nil
}

// Files returns a copy of the selection.
func (c *Controller) Files() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.files...)
}

// ClearFiles empties the selection.
func (c *Controller) ClearFiles() {
	c.mu.Lock()
	c.files = nil
	c.mu.Unlock()
}

// SubmitFiles uploads the selection under the tag chosen by mode, creating
// the tag first for NewTag. The selection is cleared only on success.
func (c *Controller) SubmitFiles(ctx context.Context, mode TagMode) (*UploadResult, error) {
	if err := c.gate.Require(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	if c.uploading || c.analyzing {
		c.mu.Unlock()
		return nil, ErrBusy
	}
	if len(c.files) == 0 {
		c.mu.Unlock()
		return nil, ErrNoFiles
	}
	if err := ValidateMode(mode); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	files := append([]string(nil), c.files...)
	c.uploading = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.uploading = false
		c.mu.Unlock()
	}()

	res := &UploadResult{Files: len(files)}
	switch m := mode.(type) {
	case NewTag:
		id, err := c.backend.CreateTag(ctx, strings.TrimSpace(m.Name))
		if err != nil {
			c.logger.Warn("create tag failed", zap.String("tag", m.Name), zap.Error(err))
			c.notify.Error(fmt.Sprintf("Failed to create tag: %v", err))
			return nil, fmt.Errorf("create tag: %w", err)
		}
		res.TagID, res.TagCreated = id, true
	case ExistingTag:
		res.TagID = strings.TrimSpace(m.ID)
	}

	if err := c.backend.UploadFiles(ctx, res.TagID, files); err != nil {
		c.logger.Warn("upload failed", zap.String("tag_id", res.TagID), zap.Int("files", len(files)), zap.Error(err))
		c.notify.Error("Failed to upload files")
		return nil, fmt.Errorf("upload files: %w", err)
	}

	c.mu.Lock()
	c.files = nil
	c.mu.Unlock()
	c.logger.Info("files uploaded", zap.String("tag_id", res.TagID), zap.Int("files", len(files)))
	c.notify.Info(fmt.Sprintf("Uploaded %d file(s)", len(files)))
	return res, nil
}

// =============================================================================
// GIT FLOW
// =============================================================================

// SetGitForm replaces the Git form.
func (c *Controller) SetGitForm(f GitForm) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.analyzing {
		return ErrBusy
	}
	c.git = f
	return nil
}

// GitForm returns the current Git form.
func (c *Controller) GitForm() GitForm {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.git
}

// SubmitGit sends the Git form for analysis. The form is cleared only on
// success.
func (c *Controller) SubmitGit(ctx context.Context) error {
	if err := c.gate.Require(); err != nil {
		return err
	}
	c.mu.Lock()
	if c.uploading || c.analyzing {
		c.mu.Unlock()
		return ErrBusy
	}
	form := c.git.trimmed()
	if err := form.Validate(); err != nil {
		c.mu.Unlock()
		return err
	}
	c.analyzing = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.analyzing = false
		c.mu.Unlock()
	}()

	err := c.backend.AnalyzeGitRepository(ctx, api.GitRequest{
		RepoURL:  form.RepoURL,
		UserName: form.UserName,
		Token:    form.Token,
	})
	if err != nil {
		c.logger.Warn("git analysis failed", zap.String("repo", form.RepoURL), zap.Error(err))
		c.notify.Error("Failed to analyze repository")
		return fmt.Errorf("analyze repository: %w", err)
	}

	c.mu.Lock()
	c.git = GitForm{}
	c.mu.Unlock()
	c.notify.Info("Repository submitted for analysis")
	return nil
}

type nopNotifier struct{}

func (nopNotifier) Error(string) {}
func (nopNotifier) Info(string)  {}
