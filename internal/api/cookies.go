// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api provides the HTTP client for the chat and knowledge-base backend.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"sync"
	"time"

	"golang.org/x/net/publicsuffix"

	"github.com/jeranaias/ragchat-tui/internal/util"
)

// =============================================================================
// PERSISTENT COOKIE JAR
// =============================================================================

// savedCookie is the on-disk form of a session cookie.
type savedCookie struct {
	Name     string    `json:"name"`
	Value    string    `json:"value"`
	Path     string    `json:"path,omitempty"`
	Expires  time.Time `json:"expires,omitempty"`
	Secure   bool      `json:"secure,omitempty"`
	HttpOnly bool      `json:"http_only,omitempty"`
}

// cookieStore wraps a cookiejar.Jar and mirrors the cookies of the backend
// origin to a file. cookiejar offers no export, so the cookies the backend
// sets are tracked alongside the jar.
type cookieStore struct {
	base *url.URL
	path string

	mu    sync.Mutex
	jar   *cookiejar.Jar
	seen  map[string]*http.Cookie
	dirty bool
}

func newCookieStore(base *url.URL, path string) (*cookieStore, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}
	s := &cookieStore{
		base: base,
		path: path,
		jar:  jar,
		seen: make(map[string]*http.Cookie),
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// SetCookies implements http.CookieJar.
func (s *cookieStore) SetCookies(u *url.URL, cookies []*http.Cookie) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jar.SetCookies(u, cookies)
	if u.Host != s.base.Host {
		return
	}
	for _, ck := range cookies {
		if ck.MaxAge < 0 {
			delete(s.seen, ck.Name)
		} else {
			s.seen[ck.Name] = ck
		}
		s.dirty = true
	}
}

// Cookies implements http.CookieJar.
func (s *cookieStore) Cookies(u *url.URL) []*http.Cookie {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jar.Cookies(u)
}

func (s *cookieStore) hasSession() bool {
	return len(s.Cookies(s.base)) > 0
}

// persist writes the tracked cookies if they changed since the last write.
func (s *cookieStore) persist() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.dirty || s.path == "" {
		return
	}
	out := make([]savedCookie, 0, len(s.seen))
	for _, ck := range s.seen {
		out = append(out, savedCookie{
			Name:     ck.Name,
			Value:    ck.Value,
			Path:     ck.Path,
			Expires:  ck.Expires,
			Secure:   ck.Secure,
			HttpOnly: ck.HttpOnly,
		})
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return
	}
	// SECURITY: session cookies are credentials, keep them owner-only.
	if err := util.AtomicWriteFile(s.path, data, 0600); err == nil {
		s.dirty = false
	}
}

func (s *cookieStore) load() error {
	if s.path == "" {
		return nil
	}
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read cookie file: %w", err)
	}

	var saved []savedCookie
	if err := json.Unmarshal(data, &saved); err != nil {
		// A corrupt cookie file only costs a re-login.
		return nil
	}

	now := time.Now()
	cookies := make([]*http.Cookie, 0, len(saved))
	for _, sc := range saved {
		if !sc.Expires.IsZero() && sc.Expires.Before(now) {
			continue
		}
		ck := &http.Cookie{
			Name:     sc.Name,
			Value:    sc.Value,
			Path:     sc.Path,
			Expires:  sc.Expires,
			Secure:   sc.Secure,
			HttpOnly: sc.HttpOnly,
		}
		cookies = append(cookies, ck)
		s.seen[ck.Name] = ck
	}
	s.jar.SetCookies(s.base, cookies)
	return nil
}

// clear forgets every cookie and removes the file.
func (s *cookieStore) clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return err
	}
	s.jar = jar
	s.seen = make(map[string]*http.Cookie)
	s.dirty = false
	if s.path == "" {
		return nil
	}
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove cookie file: %w", err)
	}
	return nil
}
