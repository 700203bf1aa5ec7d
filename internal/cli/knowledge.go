// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the line-oriented ragchat commands.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/jeranaias/ragchat-tui/internal/app"
	"github.com/jeranaias/ragchat-tui/internal/upload"
	"github.com/jeranaias/ragchat-tui/internal/util"
)

// ErrTagChoice is returned when both or neither of --tag and --new-tag are set.
var ErrTagChoice = errors.New("choose exactly one of --tag and --new-tag")

// ListTags prints the knowledge-base tags.
func ListTags(ctx context.Context, a *app.App, out io.Writer, jsonMode bool) error {
	return OutputJSON(out, jsonMode, "tags", func() (interface{}, error) {
		tags, err := a.Upload.Tags(ctx)
		if err != nil {
			return nil, err
		}
		data := make([]TagData, 0, len(tags))
		for _, t := range tags {
			data = append(data, TagData{ID: t.ID, Name: t.Name})
		}
		if !jsonMode {
			if len(data) == 0 {
				fmt.Fprintln(out, RenderConditional(DimStyle, "No tags yet"))
			}
			for _, t := range data {
				fmt.Fprintf(out, "%s  %s\n", util.PadWidth(t.ID, 20), t.Name)
			}
		}
		return data, nil
	})
}

// UploadOptions configures Upload.
type UploadOptions struct {
	Paths []string
	// TagID files the upload under an existing tag.
	TagID string
	// NewTag creates a tag with this name first.
	NewTag string
	JSON   bool
}

// Mode returns the tag mode selected by the options.
func (o UploadOptions) Mode() (upload.TagMode, error) {
	switch {
	case o.TagID != "" && o.NewTag != "":
		return nil, ErrTagChoice
	case o.NewTag != "":
		return upload.NewTag{Name: o.NewTag}, nil
	case o.TagID != "":
		return upload.ExistingTag{ID: o.TagID}, nil
	default:
		return nil, ErrTagChoice
	}
}

// Upload sends files to the knowledge base.
func Upload(ctx context.Context, a *app.App, out io.Writer, opts UploadOptions) error {
	return OutputJSON(out, opts.JSON, "upload", func() (interface{}, error) {
		mode, err := opts.Mode()
		if err != nil {
			return nil, err
		}
		a.Upload.ClearFiles()
		if err := a.Upload.AddFiles(opts.Paths...); err != nil {
			return nil, err
		}
		res, err := a.Upload.SubmitFiles(ctx, mode)
		if err != nil {
			return nil, err
		}
		return UploadData{TagID: res.TagID, TagCreated: res.TagCreated, Files: res.Files}, nil
	})
}

// AnalyzeGit submits a repository for analysis. An empty token is read
// from the terminal.
func AnalyzeGit(ctx context.Context, a *app.App, out io.Writer, form upload.GitForm) error {
	if form.Token == "" && IsTTY() {
		tok, err := readPassword(out, "Access token: ")
		if err != nil {
			return err
		}
		form.Token = tok
	}
	if err := a.Upload.SetGitForm(form); err != nil {
		return err
	}
	return a.Upload.SubmitGit(ctx)
}
