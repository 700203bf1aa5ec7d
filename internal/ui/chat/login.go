// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the root screen of the ragchat TUI.
package chat

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/ragchat-tui/internal/auth"
	"github.com/jeranaias/ragchat-tui/internal/ui/styles"
)

// =============================================================================
// LOGIN FORM
// =============================================================================

type formMode int

const (
	modeLogin formMode = iota
	modeRegister
)

const (
	fieldEmail = iota
	fieldPassword
	fieldConfirm
	fieldCode
	fieldCaptcha
	fieldCount
)

var fieldLabels = [fieldCount]string{"Email", "Password", "Confirm", "Email code", "Captcha"}

// loginForm is the login and registration dialog.
type loginForm struct {
	mode   formMode
	inputs [fieldCount]textinput.Model
	focus  int
	err    string
	info   string
	busy   bool
}

func newLoginForm() *loginForm {
	f := &loginForm{}
	for i := range f.inputs {
		ti := textinput.New()
		ti.CharLimit = 128
		ti.Width = 32
		ti.Prompt = ""
		f.inputs[i] = ti
	}
	f.inputs[fieldEmail].Placeholder = "you@example.com"
	f.inputs[fieldPassword].EchoMode = textinput.EchoPassword
	f.inputs[fieldPassword].EchoCharacter = '*'
	f.inputs[fieldConfirm].EchoMode = textinput.EchoPassword
	f.inputs[fieldConfirm].EchoCharacter = '*'
	f.inputs[fieldCode].CharLimit = 16
	f.inputs[fieldCaptcha].CharLimit = 16
	return f
}

// fields returns the visible field indexes for the current mode.
func (f *loginForm) fields() []int {
	if f.mode == modeLogin {
		return []int{fieldEmail, fieldPassword}
	}
	return []int{fieldEmail, fieldPassword, fieldConfirm, fieldCode, fieldCaptcha}
}

func (f *loginForm) open() {
	f.err, f.info = "", ""
	f.busy = false
	f.focusField(0)
}

func (f *loginForm) setMode(mode formMode) {
	f.mode = mode
	f.err, f.info = "", ""
	f.inputs[fieldPassword].Reset()
	f.inputs[fieldConfirm].Reset()
	f.focusField(0)
}

// focusField focuses the i-th visible field, wrapping around.
func (f *loginForm) focusField(i int) {
	visible := f.fields()
	i = (i%len(visible) + len(visible)) % len(visible)
	f.focus = i
	for j := range f.inputs {
		f.inputs[j].Blur()
	}
	f.inputs[visible[i]].Focus()
}

func (f *loginForm) value(field int) string {
	return f.inputs[field].Value()
}

func (f *loginForm) registerForm() auth.RegisterForm {
	return auth.RegisterForm{
		Email:            f.value(fieldEmail),
		Password:         f.value(fieldPassword),
		Confirm:          f.value(fieldConfirm),
		VerificationCode: f.value(fieldCode),
		Captcha:          f.value(fieldCaptcha),
	}
}

func (f *loginForm) update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	field := f.fields()[f.focus]
	f.inputs[field], cmd = f.inputs[field].Update(msg)
	return cmd
}

func (f *loginForm) view(theme *styles.Theme, cooldown time.Duration, captcha string) string {
	title := "Log in"
	if f.mode == modeRegister {
		title = "Create an account"
	}

	var b strings.Builder
	b.WriteString(theme.ModalTitle.Render(title) + "\n")
	for i, field := range f.fields() {
		label := theme.FormLabel
		if i == f.focus {
			label = theme.FormLabelFocused
		}
		b.WriteString(label.Render(fieldLabels[field]) + f.inputs[field].View() + "\n")
	}

	if f.mode == modeRegister {
		codeHint := "C-e send email code"
		if cooldown > 0 {
			codeHint = "email code available in " + cooldownText(cooldown)
		}
		b.WriteString("\n" + theme.FormHint.Render(codeHint))
		b.WriteString("\n" + theme.FormHint.Render("C-g save captcha image to "+captcha))
	}

	switch {
	case f.busy:
		b.WriteString("\n\n" + theme.FormHint.Render("Working..."))
	case f.err != "":
		b.WriteString("\n\n" + theme.FormError.Render(f.err))
	case f.info != "":
		b.WriteString("\n\n" + theme.StatusOK.Render(f.info))
	}

	other := "C-o register"
	if f.mode == modeRegister {
		other = "C-o back to login"
	}
	b.WriteString("\n\n" + theme.FormHint.Render("Enter submit  Tab next field  "+other+"  Esc close"))
	return theme.Modal.Render(b.String())
}

func cooldownText(d time.Duration) string {
	return d.Round(time.Second).String()
}

// =============================================================================
// LOGIN KEYS AND RESULTS
// =============================================================================

func (m Model) handleLoginKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	f := m.login
	switch msg.String() {
	case "esc":
		m.closeOverlay()
		return m, nil
	case "tab", "down":
		f.focusField(f.focus + 1)
		return m, nil
	case "shift+tab", "up":
		f.focusField(f.focus - 1)
		return m, nil
	case "ctrl+o":
		if f.mode == modeLogin {
			f.setMode(modeRegister)
		} else {
			f.setMode(modeLogin)
		}
		return m, nil
	}

	if f.busy {
		return m, nil
	}

	switch msg.String() {
	case "enter":
		return m.submitLogin()
	case "ctrl+e":
		if f.mode != modeRegister {
			return m, nil
		}
		f.busy = true
		svc, email := m.app.Auth, f.value(fieldEmail)
		return m, func() tea.Msg {
			return codeSentMsg{err: svc.SendEmailCode(m.ctx, email)}
		}
	case "ctrl+g":
		if f.mode != modeRegister {
			return m, nil
		}
		f.busy = true
		svc, path := m.app.Auth, captchaPath(m.app.Config.DataDir())
		return m, func() tea.Msg {
			return captchaSavedMsg{path: path, err: svc.SaveCaptcha(m.ctx, path)}
		}
	}
	return m, f.update(msg)
}

func (m Model) submitLogin() (tea.Model, tea.Cmd) {
	f := m.login
	f.err, f.info = "", ""

	ctx, svc := m.ctx, m.app.Auth
	if f.mode == modeLogin {
		email, password := f.value(fieldEmail), f.value(fieldPassword)
		if err := auth.ValidateLogin(strings.TrimSpace(email), password); err != nil {
			f.err = describeError(err)
			return m, nil
		}
		f.busy = true
		return m, func() tea.Msg {
			return loginDoneMsg{err: svc.Login(ctx, email, password)}
		}
	}

	form := f.registerForm()
	if err := auth.ValidateRegister(form); err != nil {
		f.err = describeError(err)
		return m, nil
	}
	f.busy = true
	return m, func() tea.Msg {
		return registerDoneMsg{err: svc.Register(ctx, form)}
	}
}

func (m Model) handleLoginResult(msg tea.Msg) (tea.Model, tea.Cmd) {
	f := m.login
	switch msg := msg.(type) {
	case loginDoneMsg:
		f.busy = false
		if msg.err != nil {
			f.err = loginFailure(msg.err)
			return m, nil
		}
		f.inputs[fieldPassword].Reset()
		m.closeOverlay()
		return m, tea.Batch(
			m.toastSuccess("Logged in"),
			refreshCmd(m.ctx, m.app.Store),
			loadTagsCmd(m.ctx, m.app.Upload),
		)

	case registerDoneMsg:
		f.busy = false
		if msg.err != nil {
			f.err = "Registration failed: " + describeError(msg.err)
			return m, nil
		}
		email := f.value(fieldEmail)
		f.setMode(modeLogin)
		f.inputs[fieldEmail].SetValue(email)
		f.focusField(1)
		f.info = "Registration complete, please log in"
		return m, nil

	case codeSentMsg:
		f.busy = false
		if msg.err != nil {
			f.err = describeError(msg.err)
			return m, nil
		}
		f.info = "Verification code sent"
		return m, cooldownTick()

	case captchaSavedMsg:
		f.busy = false
		if msg.err != nil {
			f.err = "Failed to fetch captcha: " + describeError(msg.err)
			return m, nil
		}
		f.info = "Captcha saved to " + msg.path
		return m, nil

	case cooldownTickMsg:
		// Re-render the countdown until it runs out.
		if m.overlay == overlayLogin && m.app.Auth.CodeCooldown() > 0 {
			return m, cooldownTick()
		}
	}
	return m, nil
}

func cooldownTick() tea.Cmd {
	return tea.Tick(time.Second, func(time.Time) tea.Msg { return cooldownTickMsg{} })
}

// loginFailure maps a login error to form text.
func loginFailure(err error) string {
	if errors.Is(err, context.Canceled) {
		return "Login canceled"
	}
	return "Login failed: " + describeError(err)
}
