// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api provides the HTTP client for the chat and knowledge-base backend.
package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

// DefaultBaseURL is the API root of a locally running backend.
const DefaultBaseURL = "http://localhost:8090/api/v1"

// maxErrorBody bounds how much of an error response is kept as the message.
const maxErrorBody = 4 * 1024

// ClientConfig holds configuration options for the backend client.
type ClientConfig struct {
	// BaseURL is the API root (default: http://localhost:8090/api/v1)
	BaseURL string

	// Timeout for non-streaming requests (default: 30s)
	Timeout time.Duration

	// UploadTimeout for multipart uploads and Git analysis (default: 10m)
	UploadTimeout time.Duration

	// UserAgent sent with every request
	UserAgent string

	// CookieFile persists the session cookie between runs. Empty disables
	// persistence.
	CookieFile string

	// Logger receives request diagnostics (default: zap.L())
	Logger *zap.Logger
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() *ClientConfig {
	return &ClientConfig{
		BaseURL:       DefaultBaseURL,
		Timeout:       30 * time.Second,
		UploadTimeout: 10 * time.Minute,
		UserAgent:     "ragchat",
	}
}

// =============================================================================
// CLIENT
// =============================================================================

// Client talks to the chat and knowledge-base backend.
type Client struct {
	config  *ClientConfig
	baseURL *url.URL
	logger  *zap.Logger

	httpClient   *http.Client
	uploadClient *http.Client
	// streamClient has no timeout; the request context bounds the stream.
	streamClient *http.Client

	jar *cookieStore

	mu             sync.RWMutex
	onUnauthorized func()
}

// NewClientWithConfig creates a client, filling in defaults for zero values.
func NewClientWithConfig(config *ClientConfig) (*Client, error) {
	if config == nil {
		config = DefaultConfig()
	}
	cfg := *config

	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.UploadTimeout == 0 {
		cfg.UploadTimeout = 10 * time.Minute
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "ragchat"
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.L()
	}

	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", cfg.BaseURL, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid base URL %q: scheme must be http or https", cfg.BaseURL)
	}

	jar, err := newCookieStore(base, cfg.CookieFile)
	if err != nil {
		return nil, err
	}

	return &Client{
		config:       &cfg,
		baseURL:      base,
		logger:       cfg.Logger.Named("api"),
		httpClient:   &http.Client{Timeout: cfg.Timeout, Jar: jar},
		uploadClient: &http.Client{Timeout: cfg.UploadTimeout, Jar: jar},
		streamClient: &http.Client{Jar: jar},
		jar:          jar,
	}, nil
}

// BaseURL returns the configured API root.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// OnUnauthorized registers a hook called whenever the backend answers 401
// to an authenticated request.
func (c *Client) OnUnauthorized(fn func()) {
	c.mu.Lock()
	c.onUnauthorized = fn
	c.mu.Unlock()
}

// HasSession reports whether a session cookie is held for the backend.
func (c *Client) HasSession() bool {
	return c.jar.hasSession()
}

// Logout drops the session cookie locally. The backend has no logout
// endpoint; the server-side session simply expires.
func (c *Client) Logout() error {
	return c.jar.clear()
}

// =============================================================================
// REQUEST HELPERS
// =============================================================================

// endpoint builds an absolute URL for path with the given query.
func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, query), body)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeInvalidRequest, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("User-Agent", c.config.UserAgent)
	return req, nil
}

// newFormRequest builds a form-encoded POST.
func (c *Client) newFormRequest(ctx context.Context, path string, form url.Values) (*http.Request, error) {
	req, err := c.newRequest(ctx, http.MethodPost, path, nil, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req, nil
}

// send executes req and returns the response if its status is 2xx.
// On any other status the body is consumed into a ClientError.
func (c *Client) send(hc *http.Client, req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := hc.Do(req)
	if err != nil {
		return nil, c.transportError(req, err)
	}

	c.logger.Debug("request",
		zap.String("method", req.Method),
		zap.String("path", req.URL.Path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		c.jar.persist()
		return resp, nil
	}
	defer drainAndClose(resp.Body)

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	cerr := &ClientError{
		Type:    errorTypeForStatus(resp.StatusCode),
		Status:  resp.StatusCode,
		Message: msg,
	}
	if cerr.Type == ErrTypeUnauthorized {
		c.notifyUnauthorized()
	}
	return nil, cerr
}

// do executes a request on the regular client and returns the body text.
func (c *Client) do(req *http.Request) (string, error) {
	resp, err := c.send(c.httpClient, req)
	if err != nil {
		return "", err
	}
	defer drainAndClose(resp.Body)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", c.transportError(req, err)
	}
	return string(body), nil
}

func (c *Client) transportError(req *http.Request, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
		return &ClientError{Type: ErrTypeTimeout, Message: req.Method + " " + req.URL.Path + " timed out", Cause: err}
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return &ClientError{Type: ErrTypeConnection, Message: "cannot reach backend", Cause: err}
}

func (c *Client) notifyUnauthorized() {
	c.mu.RLock()
	fn := c.onUnauthorized
	c.mu.RUnlock()
	if fn != nil {
		fn()
	}
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// parseRawID reads an identifier returned as raw text. The backend may
// send it bare or JSON-quoted; either way it stays a string.
func parseRawID(body string) (string, error) {
	id := strings.TrimSpace(body)
	id = strings.Trim(id, `"`)
	if id == "" {
		return "", &ClientError{Type: ErrTypeInvalidResponse, Message: "empty identifier in response"}
	}
	return id, nil
}

// drainAndClose empties and closes a response body so the connection can
// be reused.
func drainAndClose(r io.ReadCloser) {
	io.Copy(io.Discard, io.LimitReader(r, 64*1024))
	r.Close()
}
