// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package upload manages knowledge-base ingestion.
package upload

import (
	"strings"

	"github.com/jeranaias/ragchat-tui/internal/model"
)

// =============================================================================
// TAG MODE
// =============================================================================

// TagMode chooses the tag an upload is filed under. The only
// implementations are NewTag and ExistingTag.
type TagMode interface {
	validate() error
	isTagMode()
}

// NewTag creates a tag named Name before uploading.
type NewTag struct {
	Name string
}

func (NewTag) isTagMode() {}

func (m NewTag) validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return ErrEmptyTagName
	}
	return nil
}

// ExistingTag uploads under an already existing tag.
type ExistingTag struct {
	ID string
}

func (ExistingTag) isTagMode() {}

func (m ExistingTag) validate() error {
	if model.IsNoTag(strings.TrimSpace(m.ID)) {
		return ErrNoTagSelected
	}
	return nil
}

// ValidateMode reports whether mode can be submitted.
func ValidateMode(mode TagMode) error {
	if mode == nil {
		return ErrNoTagSelected
	}
	return mode.validate()
}
