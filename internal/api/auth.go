// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api provides the HTTP client for the chat and knowledge-base backend.
package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// =============================================================================
// USER ENDPOINTS
// =============================================================================

// maxCaptchaSize bounds the captcha image download.
const maxCaptchaSize = 1 << 20

// Login posts the credentials; the backend answers with a session cookie.
func (c *Client) Login(ctx context.Context, email, password string) error {
	form := url.Values{}
	form.Set("email", email)
	form.Set("password", password)

	req, err := c.newFormRequest(ctx, "/user/login", form)
	if err != nil {
		return err
	}
	if _, err := c.do(req); err != nil {
		var cerr *ClientError
		if errors.As(err, &cerr) && cerr.Type == ErrTypeUnauthorized {
			return &ClientError{Type: ErrTypeInvalidCredentials, Status: cerr.Status, Message: ErrInvalidCredentials.Message}
		}
		return err
	}
	return nil
}

// Register creates an account. The captcha answer is checked against the
// image fetched earlier in the same session.
func (c *Client) Register(ctx context.Context, r RegisterRequest) error {
	form := url.Values{}
	form.Set("email", r.Email)
	form.Set("password", r.Password)
	form.Set("verificationCode", r.VerificationCode)
	form.Set("captcha", r.Captcha)

	req, err := c.newFormRequest(ctx, "/user/register", form)
	if err != nil {
		return err
	}
	_, err = c.do(req)
	return err
}

// SendEmailCode asks the backend to mail a registration verification code.
func (c *Client) SendEmailCode(ctx context.Context, email string) error {
	q := url.Values{}
	q.Set("email", email)
	q.Set("type", "register")

	req, err := c.newRequest(ctx, http.MethodGet, "/user/send_email", q, nil)
	if err != nil {
		return err
	}
	_, err = c.do(req)
	return err
}

// FetchCaptcha downloads a fresh captcha image and returns its bytes and
// content type. The timestamp parameter defeats intermediary caches.
func (c *Client) FetchCaptcha(ctx context.Context) ([]byte, string, error) {
	q := url.Values{}
	q.Set("timestamp", strconv.FormatInt(time.Now().UnixMilli(), 10))

	req, err := c.newRequest(ctx, http.MethodGet, "/user/send_captcha", q, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := c.send(c.httpClient, req)
	if err != nil {
		return nil, "", err
	}
	defer drainAndClose(resp.Body)

	img, err := io.ReadAll(io.LimitReader(resp.Body, maxCaptchaSize))
	if err != nil {
		return nil, "", c.transportError(req, err)
	}
	ct := resp.Header.Get("Content-Type")
	if ct == "" {
		ct = http.DetectContentType(img)
	}
	return img, ct, nil
}
