// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api provides the HTTP client for the chat and knowledge-base backend.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	"github.com/jeranaias/ragchat-tui/internal/model"
)

// =============================================================================
// KNOWLEDGE-BASE ENDPOINTS
// =============================================================================

// ListTags returns the user's knowledge-base tags.
func (c *Client) ListTags(ctx context.Context) ([]model.Tag, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/rag/query_tag_list", nil, nil)
	if err != nil {
		return nil, err
	}
	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var dtos []tagDTO
	if err := json.Unmarshal([]byte(body), &dtos); err != nil {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to decode tag list", Cause: err}
	}
	tags := make([]model.Tag, 0, len(dtos))
	for _, d := range dtos {
		tags = append(tags, model.Tag{ID: string(d.TagID), Name: d.TagName})
	}
	return tags, nil
}

// CreateTag creates a tag and returns its identifier.
func (c *Client) CreateTag(ctx context.Context, name string) (string, error) {
	q := url.Values{}
	q.Set("tagName", name)

	req, err := c.newRequest(ctx, http.MethodPost, "/rag/create_tag", q, nil)
	if err != nil {
		return "", err
	}
	body, err := c.do(req)
	if err != nil {
		return "", err
	}
	return parseRawID(body)
}

// UploadFiles sends every file in paths as one multipart payload under tagID.
// PERFORMANCE: the body is produced through a pipe so files are streamed,
// not buffered in memory.
func (c *Client) UploadFiles(ctx context.Context, tagID string, paths []string) error {
	if len(paths) == 0 {
		return &ClientError{Type: ErrTypeInvalidRequest, Message: "no files to upload"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			return &ClientError{Type: ErrTypeInvalidRequest, Message: "cannot read " + p, Cause: err}
		}
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeUploadBody(mw, tagID, paths))
	}()

	req, err := c.newRequest(ctx, http.MethodPost, "/rag/file/upload", nil, pr)
	if err != nil {
		pr.Close()
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.send(c.uploadClient, req)
	// Unblocks the writer goroutine if the request failed before reading
	// the whole body.
	pr.Close()
	if err != nil {
		return err
	}
	drainAndClose(resp.Body)
	return nil
}

func writeUploadBody(mw *multipart.Writer, tagID string, paths []string) error {
	if err := mw.WriteField("tagId", tagID); err != nil {
		return err
	}
	for _, p := range paths {
		if err := writeFilePart(mw, p); err != nil {
			return err
		}
	}
	return mw.Close()
}

func writeFilePart(mw *multipart.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	part, err := mw.CreateFormFile("files", filepath.Base(path))
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, f); err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	return nil
}

// AnalyzeGitRepository asks the backend to ingest a Git repository.
func (c *Client) AnalyzeGitRepository(ctx context.Context, r GitRequest) error {
	form := url.Values{}
	form.Set("repoUrl", r.RepoURL)
	form.Set("userName", r.UserName)
	form.Set("token", r.Token)

	req, err := c.newFormRequest(ctx, "/rag/analyze_git_repository", form)
	if err != nil {
		return err
	}
	resp, err := c.send(c.uploadClient, req)
	if err != nil {
		return err
	}
	drainAndClose(resp.Body)
	return nil
}
