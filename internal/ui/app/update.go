// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// Update is the single event loop entry point.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case storesChangedMsg:
		m.clampRepoIndex()
		m.refreshTranscript()
		return m, nil

	case authSettledMsg:
		if m.auth.IsAuthenticated() {
			m.screen = screenMain
			return m, m.loadReposCmd()
		}
		m.screen = screenLogin
		return m, nil

	case loginDoneMsg:
		if m.auth.IsAuthenticated() {
			m.screen = screenMain
			m.passwordInput.SetValue("")
			return m, m.loadReposCmd()
		}
		return m, nil

	case reposReadyMsg:
		m.clampRepoIndex()
		if id := m.selectedRepoID(); id != 0 {
			return m, m.openRepoCmd(id)
		}
		return m, nil

	case chatOpenedMsg, sendDoneMsg:
		m.refreshTranscript()
		return m, nil

	case indexStartedMsg:
		if msg.err == nil {
			m.repoIndex = 0
			return m, m.openRepoCmd(m.selectedRepoID())
		}
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, m.keyMap.Quit) {
			m.quitting = true
			m.repos.Dispose()
			return m, tea.Quit
		}
		switch m.screen {
		case screenLogin:
			return m.updateLogin(msg)
		case screenMain:
			return m.updateMain(msg)
		}
	}
	return m, nil
}

// =============================================================================
// LOGIN SCREEN
// =============================================================================

func (m *Model) updateLogin(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "tab", "shift+tab":
		if m.loginFocus == fieldEmail {
			m.loginFocus = fieldPassword
			m.emailInput.Blur()
			m.passwordInput.Focus()
		} else {
			m.loginFocus = fieldEmail
			m.passwordInput.Blur()
			m.emailInput.Focus()
		}
		return m, nil

	case "ctrl+r":
		m.registering = !m.registering
		return m, nil

	case "enter":
		if m.auth.Loading() {
			return m, nil
		}
		return m, m.loginCmd(m.emailInput.Value(), m.passwordInput.Value(), m.registering)
	}

	var cmd tea.Cmd
	if m.loginFocus == fieldEmail {
		m.emailInput, cmd = m.emailInput.Update(msg)
	} else {
		m.passwordInput, cmd = m.passwordInput.Update(msg)
	}
	return m, cmd
}

// =============================================================================
// MAIN SCREEN
// =============================================================================

func (m *Model) updateMain(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.addingRepo {
		return m.updateAddRepo(msg)
	}

	switch {
	case key.Matches(msg, m.keyMap.Logout):
		m.auth.Logout()
		m.chat.Reset()
		m.repos.Dispose()
		m.screen = screenLogin
		m.loginFocus = fieldEmail
		m.emailInput.Focus()
		m.passwordInput.Blur()
		return m, nil

	case key.Matches(msg, m.keyMap.AddRepo):
		m.addingRepo = true
		m.input.Blur()
		m.repoInput.SetValue("")
		m.repoInput.Focus()
		return m, nil

	case key.Matches(msg, m.keyMap.Up):
		if m.repoIndex > 0 {
			m.repoIndex--
			return m, m.openRepoCmd(m.selectedRepoID())
		}
		return m, nil

	case key.Matches(msg, m.keyMap.Down):
		if m.repoIndex < len(m.repos.Repos())-1 {
			m.repoIndex++
			return m, m.openRepoCmd(m.selectedRepoID())
		}
		return m, nil

	case key.Matches(msg, m.keyMap.PageUp):
		m.viewport.HalfViewUp()
		return m, nil

	case key.Matches(msg, m.keyMap.PageDown):
		m.viewport.HalfViewDown()
		return m, nil

	case key.Matches(msg, m.keyMap.Submit):
		content := strings.TrimSpace(m.input.Value())
		if content == "" || m.chat.Sending() {
			return m, nil
		}
		m.input.SetValue("")
		return m, m.sendCmd(content)
	}

	if !m.input.Focused() {
		m.input.Focus()
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) updateAddRepo(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keyMap.Cancel):
		m.addingRepo = false
		m.repoInput.Blur()
		return m, nil

	case key.Matches(msg, m.keyMap.Submit):
		url := strings.TrimSpace(m.repoInput.Value())
		m.addingRepo = false
		m.repoInput.Blur()
		if url == "" {
			return m, nil
		}
		return m, m.indexCmd(url)
	}

	var cmd tea.Cmd
	m.repoInput, cmd = m.repoInput.Update(msg)
	return m, cmd
}
