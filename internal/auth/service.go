// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package auth tracks the login state and runs the account flows.
package auth

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/jeranaias/ragchat-tui/internal/api"
	"github.com/jeranaias/ragchat-tui/internal/util"
)

// EmailCodeInterval is the minimum time between verification code requests.
const EmailCodeInterval = 60 * time.Second

// =============================================================================
// BACKEND INTERFACE
// =============================================================================

// Backend is the subset of the API client used by the account flows.
type Backend interface {
	Login(ctx context.Context, email, password string) error
	Register(ctx context.Context, r api.RegisterRequest) error
	SendEmailCode(ctx context.Context, email string) error
	FetchCaptcha(ctx context.Context) ([]byte, string, error)
	Logout() error
}

// RegisterForm is the registration form as entered by the user.
type RegisterForm struct {
	Email            string
	Password         string
	Confirm          string
	VerificationCode string
	Captcha          string
}

// CooldownError is returned when a verification code was requested too
// recently.
type CooldownError struct {
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("please wait %ds before requesting another code", int(math.Ceil(e.Remaining.Seconds())))
}

// =============================================================================
// SERVICE
// =============================================================================

// Service runs login, registration and their helper requests, keeping the
// Gate in sync with the outcome.
type Service struct {
	backend Backend
	gate    *Gate
	logger  *zap.Logger

	emailLimiter *rate.Limiter
	now          func() time.Time
}

// NewService creates the account service.
func NewService(backend Backend, gate *Gate, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		backend:      backend,
		gate:         gate,
		logger:       logger.Named("auth"),
		emailLimiter: rate.NewLimiter(rate.Every(EmailCodeInterval), 1),
		now:          time.Now,
	}
}

// Gate returns the gate this service updates.
func (s *Service) Gate() *Gate {
	return s.gate
}

// Login validates the form, authenticates, and opens the gate on success.
func (s *Service) Login(ctx context.Context, email, password string) error {
	email = strings.TrimSpace(email)
	if err := ValidateLogin(email, password); err != nil {
		return err
	}
	if err := s.backend.Login(ctx, email, password); err != nil {
		s.logger.Info("login failed", zap.String("email", email), zap.Error(err))
		return err
	}
	s.gate.SetAuthenticated(true)
	s.logger.Info("logged in", zap.String("email", email))
	return nil
}

// Register validates and submits the registration form. Registration does
// not log the user in.
func (s *Service) Register(ctx context.Context, form RegisterForm) error {
	form.Email = strings.TrimSpace(form.Email)
	if err := ValidateRegister(form); err != nil {
		return err
	}
	return s.backend.Register(ctx, api.RegisterRequest{
		Email:            form.Email,
		Password:         form.Password,
		VerificationCode: strings.TrimSpace(form.VerificationCode),
		Captcha:          strings.TrimSpace(form.Captcha),
	})
}

// SendEmailCode requests a verification code, at most once per
// EmailCodeInterval. A failed request does not start the cooldown.
func (s *Service) SendEmailCode(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if errs := checkEmail(email); len(errs) > 0 {
		return ValidationErrors(errs)
	}

	now := s.now()
	res := s.emailLimiter.ReserveN(now, 1)
	if delay := res.DelayFrom(now); delay > 0 {
		res.CancelAt(now)
		return &CooldownError{Remaining: delay}
	}

	if err := s.backend.SendEmailCode(ctx, email); err != nil {
		res.CancelAt(now)
		return err
	}
	return nil
}

// CodeCooldown returns how long until another code may be requested.
func (s *Service) CodeCooldown() time.Duration {
	tokens := s.emailLimiter.TokensAt(s.now())
	if tokens >= 1 {
		return 0
	}
	return time.Duration((1 - tokens) * float64(EmailCodeInterval))
}

// SaveCaptcha downloads a fresh captcha image to path.
func (s *Service) SaveCaptcha(ctx context.Context, path string) error {
	img, _, err := s.backend.FetchCaptcha(ctx)
	if err != nil {
		return err
	}
	if err := util.AtomicWriteFile(path, img, 0600); err != nil {
		return fmt.Errorf("failed to save captcha: %w", err)
	}
	return nil
}

// Logout drops the local session and closes the gate.
func (s *Service) Logout() error {
	err := s.backend.Logout()
	s.gate.Logout()
	return err
}
