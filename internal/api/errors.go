// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api provides the HTTP client for the chat and knowledge-base backend.
package api

import (
	"errors"
	"fmt"
	"net/http"
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ClientError represents an error from the backend client.
type ClientError struct {
	Type    ErrorType
	Status  int
	Message string
	Cause   error
}

func (e *ClientError) Error() string {
	msg := e.Message
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.Status)
	}
	if e.Cause != nil {
		return msg + ": " + e.Cause.Error()
	}
	return msg
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// Is matches sentinel errors by type so errors.Is(err, ErrUnauthorized)
// works for any 401 response.
func (e *ClientError) Is(target error) bool {
	t, ok := target.(*ClientError)
	if !ok {
		return false
	}
	return t.Type == e.Type && t.Status == 0 && t.Cause == nil
}

// ErrorType categorizes client errors for handling.
type ErrorType int

const (
	ErrTypeUnknown ErrorType = iota
	ErrTypeConnection
	ErrTypeTimeout
	ErrTypeUnauthorized
	ErrTypeInvalidCredentials
	ErrTypeRateLimited
	ErrTypeBadRequest
	ErrTypeNotFound
	ErrTypeServer
	ErrTypeInvalidResponse
	ErrTypeInvalidRequest
)

// String returns a short name for the error type.
func (t ErrorType) String() string {
	switch t {
	case ErrTypeConnection:
		return "connection"
	case ErrTypeTimeout:
		return "timeout"
	case ErrTypeUnauthorized:
		return "unauthorized"
	case ErrTypeInvalidCredentials:
		return "invalid_credentials"
	case ErrTypeRateLimited:
		return "rate_limited"
	case ErrTypeBadRequest:
		return "bad_request"
	case ErrTypeNotFound:
		return "not_found"
	case ErrTypeServer:
		return "server"
	case ErrTypeInvalidResponse:
		return "invalid_response"
	case ErrTypeInvalidRequest:
		return "invalid_request"
	default:
		return "unknown"
	}
}

// Sentinel errors for easy checking.
var (
	ErrUnauthorized       = &ClientError{Type: ErrTypeUnauthorized, Message: "not logged in"}
	ErrInvalidCredentials = &ClientError{Type: ErrTypeInvalidCredentials, Message: "wrong email or password"}
	ErrRateLimited        = &ClientError{Type: ErrTypeRateLimited, Message: "too many requests"}
	ErrTimeout            = &ClientError{Type: ErrTypeTimeout, Message: "request timed out"}
	ErrNotPersisted       = &ClientError{Type: ErrTypeInvalidRequest, Message: "conversation has no backend identifier"}
)

// errorTypeForStatus maps an HTTP status code to an ErrorType.
func errorTypeForStatus(status int) ErrorType {
	switch {
	case status == http.StatusUnauthorized:
		return ErrTypeUnauthorized
	case status == http.StatusTooManyRequests:
		return ErrTypeRateLimited
	case status == http.StatusNotFound:
		return ErrTypeNotFound
	case status >= 500:
		return ErrTypeServer
	case status >= 400:
		return ErrTypeBadRequest
	default:
		return ErrTypeInvalidResponse
	}
}

// IsUnauthorized checks if an error means the session is missing or expired.
func IsUnauthorized(err error) bool {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type == ErrTypeUnauthorized
	}
	return false
}

// IsRateLimited checks if the backend rejected the request as too frequent.
func IsRateLimited(err error) bool {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type == ErrTypeRateLimited
	}
	return false
}

// IsTimeout checks if an error is a timeout error.
func IsTimeout(err error) bool {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type == ErrTypeTimeout
	}
	return false
}

// IsNetwork checks if an error is a transport-level failure rather than a
// response from the backend.
func IsNetwork(err error) bool {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type == ErrTypeConnection || clientErr.Type == ErrTypeTimeout
	}
	return false
}
