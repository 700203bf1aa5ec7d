// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package auth tracks the login state and runs the account flows.
package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/dlclark/regexp2"
)

// =============================================================================
// VALIDATION
// =============================================================================

// The backend rejects anything these patterns reject, so the client checks
// first. The password rule uses lookaheads, which RE2 cannot express.
var (
	emailPattern    = regexp2.MustCompile(`^\s*\w+(?:\.{0,1}[\w-]+)*@[a-zA-Z0-9]+(?:[-.][a-zA-Z0-9]+)*\.[a-zA-Z]+\s*$`, regexp2.None)
	passwordPattern = regexp2.MustCompile(`^(?=.*[A-Za-z])(?=.*\d).{8,}$`, regexp2.None)
)

func init() {
	// Bound backtracking on hostile input.
	emailPattern.MatchTimeout = 100 * time.Millisecond
	passwordPattern.MatchTimeout = 100 * time.Millisecond
}

// ValidationError describes one invalid form field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors collects every invalid field of a form.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	msgs := make([]string, len(e))
	for i, v := range e {
		msgs[i] = v.Error()
	}
	return strings.Join(msgs, "; ")
}

// errOrNil returns nil for an empty list so callers can return it directly.
func (e ValidationErrors) errOrNil() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

// ValidEmail reports whether email has an acceptable format.
func ValidEmail(email string) bool {
	ok, err := emailPattern.MatchString(email)
	return err == nil && ok
}

// ValidPassword reports whether password has at least eight characters
// including a letter and a digit.
func ValidPassword(password string) bool {
	ok, err := passwordPattern.MatchString(password)
	return err == nil && ok
}

// ValidateLogin checks the login form.
func ValidateLogin(email, password string) error {
	var errs ValidationErrors
	errs = append(errs, checkEmail(email)...)
	if password == "" {
		errs = append(errs, ValidationError{"password", "is required"})
	}
	return errs.errOrNil()
}

// ValidateRegister checks the registration form.
func ValidateRegister(r RegisterForm) error {
	var errs ValidationErrors
	errs = append(errs, checkEmail(r.Email)...)
	switch {
	case r.Password == "":
		errs = append(errs, ValidationError{"password", "is required"})
	case !ValidPassword(r.Password):
		errs = append(errs, ValidationError{"password", "needs at least 8 characters with a letter and a digit"})
	}
	if r.Confirm != r.Password {
		errs = append(errs, ValidationError{"confirm", "passwords do not match"})
	}
	if strings.TrimSpace(r.VerificationCode) == "" {
		errs = append(errs, ValidationError{"verification_code", "is required"})
	}
	if strings.TrimSpace(r.Captcha) == "" {
		errs = append(errs, ValidationError{"captcha", "is required"})
	}
	return errs.errOrNil()
}

func checkEmail(email string) []ValidationError {
	switch {
	case strings.TrimSpace(email) == "":
		return []ValidationError{{"email", "is required"}}
	case !ValidEmail(email):
		return []ValidationError{{"email", "is not a valid address"}}
	}
	return nil
}
