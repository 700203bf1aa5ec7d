// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the root screen of the ragchat TUI.
package chat

import (
	"errors"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/ragchat-tui/internal/auth"
	"github.com/jeranaias/ragchat-tui/internal/model"
	"github.com/jeranaias/ragchat-tui/internal/ui/styles"
	"github.com/jeranaias/ragchat-tui/internal/upload"
	"github.com/jeranaias/ragchat-tui/internal/util"
)

// =============================================================================
// UPLOAD DIALOG
// =============================================================================

type uploadTab int

const (
	tabFiles uploadTab = iota
	tabGit
)

// Focus stops on the Files tab.
const (
	stopPath = iota
	stopFiles
	stopTag
	stopCount
)

const (
	gitURL = iota
	gitUser
	gitToken
	gitFieldCount
)

var gitLabels = [gitFieldCount]string{"Repository", "User name", "Token"}

// uploadDialog holds the form state of the upload overlay. The file
// selection and Git form themselves live in upload.Controller.
type uploadDialog struct {
	tab  uploadTab
	stop int

	path    textinput.Model
	tagName textinput.Model

	// existing selects ExistingTag mode.
	existing   bool
	tags       []model.Tag
	tagCursor  int
	fileCursor int

	git      [gitFieldCount]textinput.Model
	gitFocus int

	err string
}

func newUploadDialog() *uploadDialog {
	d := &uploadDialog{}
	d.path = textinput.New()
	d.path.Placeholder = "path or glob, Enter to add"
	d.path.Prompt = ""
	d.path.Width = 40
	d.tagName = textinput.New()
	d.tagName.Placeholder = "new tag name"
	d.tagName.Prompt = ""
	d.tagName.Width = 30
	for i := range d.git {
		ti := textinput.New()
		ti.Prompt = ""
		ti.Width = 40
		d.git[i] = ti
	}
	d.git[gitURL].Placeholder = "https://github.com/owner/repo.git"
	d.git[gitToken].EchoMode = textinput.EchoPassword
	d.git[gitToken].EchoCharacter = '*'
	return d
}

// open resets transient state and loads the Git fields from form.
func (d *uploadDialog) open(form upload.GitForm) {
	d.err = ""
	d.tab = tabFiles
	d.git[gitURL].SetValue(form.RepoURL)
	d.git[gitUser].SetValue(form.UserName)
	d.git[gitToken].SetValue(form.Token)
	d.setStop(stopPath)
	d.setGitFocus(0)
}

func (d *uploadDialog) setTags(tags []model.Tag) {
	d.tags = tags
	if d.tagCursor >= len(tags) {
		d.tagCursor = 0
	}
}

func (d *uploadDialog) setStop(stop int) {
	d.stop = (stop%stopCount + stopCount) % stopCount
	d.path.Blur()
	d.tagName.Blur()
	switch {
	case d.stop == stopPath:
		d.path.Focus()
	case d.stop == stopTag && !d.existing:
		d.tagName.Focus()
	}
}

func (d *uploadDialog) setGitFocus(i int) {
	d.gitFocus = (i%gitFieldCount + gitFieldCount) % gitFieldCount
	for j := range d.git {
		d.git[j].Blur()
	}
	if d.tab == tabGit {
		d.git[d.gitFocus].Focus()
	}
}

func (d *uploadDialog) switchTab() {
	if d.tab == tabFiles {
		d.tab = tabGit
		d.path.Blur()
		d.tagName.Blur()
		d.setGitFocus(0)
	} else {
		d.tab = tabFiles
		d.setGitFocus(0)
		d.setStop(stopPath)
	}
	d.err = ""
}

// mode builds the tag mode from the form.
func (d *uploadDialog) mode() upload.TagMode {
	if !d.existing {
		return upload.NewTag{Name: d.tagName.Value()}
	}
	if d.tagCursor < 0 || d.tagCursor >= len(d.tags) {
		return upload.ExistingTag{}
	}
	return upload.ExistingTag{ID: d.tags[d.tagCursor].ID}
}

func (d *uploadDialog) gitForm() upload.GitForm {
	return upload.GitForm{
		RepoURL:  d.git[gitURL].Value(),
		UserName: d.git[gitUser].Value(),
		Token:    d.git[gitToken].Value(),
	}
}

// expandPaths resolves a typed path into files. Globs are expanded and a
// leading "~" points at the home directory.
func expandPaths(input string) ([]string, error) {
	p := util.ExpandHome(strings.TrimSpace(input))
	if p == "" {
		return nil, nil
	}
	if !strings.ContainsAny(p, "*?[") {
		return []string{p}, nil
	}
	matches, err := filepath.Glob(p)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, errors.New("no files match " + input)
	}
	return matches, nil
}

// =============================================================================
// RENDERING
// =============================================================================

func (d *uploadDialog) view(theme *styles.Theme, ctrl *upload.Controller, dropDir string) string {
	var b strings.Builder
	b.WriteString(theme.ModalTitle.Render("Knowledge base") + "\n")

	files, git := theme.Tab, theme.Tab
	if d.tab == tabFiles {
		files = theme.TabActive
	} else {
		git = theme.TabActive
	}
	b.WriteString(files.Render("Files") + " " + git.Render("Git repository") + "\n\n")

	if d.tab == tabFiles {
		d.filesView(&b, theme, ctrl, dropDir)
	} else {
		d.gitView(&b, theme, ctrl)
	}

	if d.err != "" {
		b.WriteString("\n" + theme.FormError.Render(d.err) + "\n")
	}
	b.WriteString("\n" + theme.FormHint.Render("C-s submit  Tab next  C-o switch tab  Esc close"))
	return theme.Modal.Render(b.String())
}

func (d *uploadDialog) filesView(b *strings.Builder, theme *styles.Theme, ctrl *upload.Controller, dropDir string) {
	label := func(stop int, text string) string {
		if d.stop == stop {
			return theme.FormLabelFocused.Render(text)
		}
		return theme.FormLabel.Render(text)
	}

	b.WriteString(label(stopPath, "Add file") + d.path.View() + "\n")
	if dropDir != "" {
		b.WriteString(theme.FormHint.Render("or copy files into "+dropDir) + "\n")
	}

	selected := ctrl.Files()
	b.WriteString("\n" + label(stopFiles, "Selected ("+strconv.Itoa(len(selected))+")") + "\n")
	if len(selected) == 0 {
		b.WriteString(theme.FormHint.Render("  no files selected") + "\n")
	}
	for i, f := range selected {
		line := "  " + util.TruncateWidth(f, 56)
		if d.stop == stopFiles && i == d.fileCursor {
			line = theme.SidebarItemCursor.Render("> " + util.TruncateWidth(f, 56))
		}
		b.WriteString(line + "\n")
	}

	b.WriteString("\n" + label(stopTag, "Tag"))
	if !d.existing {
		b.WriteString("new: " + d.tagName.View() + "\n")
	} else {
		b.WriteString("existing\n")
		if len(d.tags) == 0 {
			b.WriteString(theme.FormHint.Render("  no tags yet") + "\n")
		}
		for i, t := range d.tags {
			line := "  " + t.Name
			if i == d.tagCursor {
				line = theme.SidebarItemSelected.Render("> " + t.Name)
			}
			b.WriteString(line + "\n")
		}
	}
	b.WriteString(theme.FormHint.Render("C-e toggle new/existing tag, d removes a selected file"))
	if ctrl.Uploading() {
		b.WriteString("\n" + theme.StatusWarn.Render("Uploading..."))
	}
}

func (d *uploadDialog) gitView(b *strings.Builder, theme *styles.Theme, ctrl *upload.Controller) {
	for i := range d.git {
		label := theme.FormLabel
		if i == d.gitFocus {
			label = theme.FormLabelFocused
		}
		b.WriteString(label.Render(gitLabels[i]) + d.git[i].View() + "\n")
	}
	if ctrl.Analyzing() {
		b.WriteString("\n" + theme.StatusWarn.Render("Submitting repository..."))
	}
}

// =============================================================================
// UPLOAD KEYS AND RESULTS
// =============================================================================

func (m Model) handleUploadKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	d := m.upload
	switch msg.String() {
	case "esc":
		if d.tab == tabGit {
			// Keep what was typed for the next time the dialog opens.
			_ = m.app.Upload.SetGitForm(d.gitForm())
		}
		m.closeOverlay()
		return m, nil
	case "ctrl+o":
		d.switchTab()
		return m, nil
	case "ctrl+s":
		return m.submitUpload()
	}

	if d.tab == tabGit {
		return m.handleGitKey(msg)
	}
	return m.handleFilesKey(msg)
}

func (m Model) handleFilesKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	d := m.upload
	switch msg.String() {
	case "tab":
		d.setStop(d.stop + 1)
		return m, nil
	case "shift+tab":
		d.setStop(d.stop - 1)
		return m, nil
	case "ctrl+e":
		d.existing = !d.existing
		d.setStop(d.stop)
		return m, nil
	}

	switch d.stop {
	case stopPath:
		if msg.String() == "enter" {
			paths, err := expandPaths(d.path.Value())
			if err == nil {
				err = m.app.Upload.AddFiles(paths...)
			}
			if err != nil {
				d.err = capitalize(err.Error())
				return m, nil
			}
			d.err = ""
			d.path.Reset()
			return m, nil
		}
		var cmd tea.Cmd
		d.path, cmd = d.path.Update(msg)
		return m, cmd

	case stopFiles:
		n := len(m.app.Upload.Files())
		switch msg.String() {
		case "up", "k":
			if d.fileCursor > 0 {
				d.fileCursor--
			}
		case "down", "j":
			if d.fileCursor < n-1 {
				d.fileCursor++
			}
		case "d", "delete", "backspace":
			if err := m.app.Upload.RemoveFile(d.fileCursor); err != nil {
				d.err = capitalize(err.Error())
			}
			if d.fileCursor >= n-1 && d.fileCursor > 0 {
				d.fileCursor--
			}
		}
		return m, nil

	case stopTag:
		if d.existing {
			switch msg.String() {
			case "up", "k":
				if d.tagCursor > 0 {
					d.tagCursor--
				}
			case "down", "j":
				if d.tagCursor < len(d.tags)-1 {
					d.tagCursor++
				}
			case "enter":
				return m.submitUpload()
			}
			return m, nil
		}
		if msg.String() == "enter" {
			return m.submitUpload()
		}
		var cmd tea.Cmd
		d.tagName, cmd = d.tagName.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleGitKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	d := m.upload
	switch msg.String() {
	case "tab", "down":
		d.setGitFocus(d.gitFocus + 1)
		return m, nil
	case "shift+tab", "up":
		d.setGitFocus(d.gitFocus - 1)
		return m, nil
	case "enter":
		if d.gitFocus == gitToken {
			return m.submitUpload()
		}
		d.setGitFocus(d.gitFocus + 1)
		return m, nil
	}
	var cmd tea.Cmd
	d.git[d.gitFocus], cmd = d.git[d.gitFocus].Update(msg)
	return m, cmd
}

func (m Model) submitUpload() (tea.Model, tea.Cmd) {
	d := m.upload
	d.err = ""
	ctrl := m.app.Upload

	if d.tab == tabGit {
		form := d.gitForm()
		if err := ctrl.SetGitForm(form); err != nil {
			d.err = capitalize(err.Error())
			return m, nil
		}
		if err := form.Validate(); err != nil {
			d.err = capitalize(err.Error())
			return m, nil
		}
		return m, gitCmd(m.ctx, ctrl)
	}

	mode := d.mode()
	if len(ctrl.Files()) == 0 {
		d.err = capitalize(upload.ErrNoFiles.Error())
		return m, nil
	}
	if err := upload.ValidateMode(mode); err != nil {
		d.err = capitalize(err.Error())
		return m, nil
	}
	return m, uploadCmd(m.ctx, ctrl, mode)
}

func (m Model) handleUploadDone(msg uploadDoneMsg) (tea.Model, tea.Cmd) {
	d := m.upload
	if msg.err != nil {
		if !errors.Is(msg.err, auth.ErrLoginRequired) {
			d.err = capitalize(msg.err.Error())
		}
		return m, nil
	}
	d.fileCursor = 0
	d.tagName.Reset()
	if m.overlay == overlayUpload {
		m.closeOverlay()
	}
	if msg.res != nil && msg.res.TagCreated {
		return m, loadTagsCmd(m.ctx, m.app.Upload)
	}
	return m, nil
}

func (m Model) handleGitDone(msg gitDoneMsg) (tea.Model, tea.Cmd) {
	d := m.upload
	if msg.err != nil {
		if !errors.Is(msg.err, auth.ErrLoginRequired) {
			d.err = capitalize(msg.err.Error())
		}
		return m, nil
	}
	d.open(m.app.Upload.GitForm())
	if m.overlay == overlayUpload {
		m.closeOverlay()
	}
	return m, nil
}
