// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/repochat-tui/internal/store"
	"github.com/jeranaias/repochat-tui/internal/ui/components"
)

// View renders the active screen.
func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	switch m.screen {
	case screenStartup:
		return m.viewStartup()
	case screenLogin:
		return m.viewLogin()
	default:
		return m.viewMain()
	}
}

func (m *Model) viewStartup() string {
	body := m.spinner.View() + " " + m.theme.Thinking.Render("Restoring session…")
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, body)
}

// =============================================================================
// LOGIN SCREEN
// =============================================================================

func (m *Model) viewLogin() string {
	var b strings.Builder

	title := "Sign in"
	action := "register"
	if m.registering {
		title = "Create account"
		action = "sign in"
	}
	b.WriteString(m.theme.Title.Render(title))
	b.WriteString("\n\n")
	b.WriteString(m.theme.LoginLabel.Render("Email"))
	b.WriteString("\n")
	b.WriteString(m.emailInput.View())
	b.WriteString("\n\n")
	b.WriteString(m.theme.LoginLabel.Render("Password"))
	b.WriteString("\n")
	b.WriteString(m.passwordInput.View())
	b.WriteString("\n\n")

	if m.auth.Loading() {
		b.WriteString(m.spinner.View() + " " + m.theme.Thinking.Render("Signing in…"))
	} else if errMsg := m.auth.Err(); errMsg != "" {
		b.WriteString(m.theme.ErrorText.Render(errMsg))
	} else {
		b.WriteString(m.theme.ShortcutDesc.Render(
			m.theme.ShortcutKey.Render("enter") + " submit  " +
				m.theme.ShortcutKey.Render("ctrl+r") + " " + action,
		))
	}

	box := m.theme.LoginBox.Render(b.String())
	header := m.theme.Brand.Render("repochat") + " " + m.theme.ShortcutDesc.Render("— chat with your codebase")
	body := lipgloss.JoinVertical(lipgloss.Center, header, "", box)
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, body)
}

// =============================================================================
// MAIN SCREEN
// =============================================================================

func (m *Model) viewMain() string {
	header := m.viewHeader()
	sidebar := m.theme.Sidebar.
		Width(m.theme.SidebarWidth()).
		Height(m.viewport.Height + 3).
		Render(components.RepoList(m.theme, m.repos.Repos(), m.repoIndex, m.theme.SidebarWidth()))

	chat := lipgloss.JoinVertical(lipgloss.Left,
		m.viewTranscript(),
		m.viewInput(),
	)

	body := lipgloss.JoinHorizontal(lipgloss.Top, sidebar, " ", chat)
	status := components.StatusBar(m.theme, m.auth.Email(), m.shortcuts(), m.width)

	return lipgloss.JoinVertical(lipgloss.Left, header, body, status)
}

func (m *Model) viewHeader() string {
	left := m.theme.Brand.Render("repochat")
	if repo := m.chat.Repo(); repo != nil {
		left += "  " + m.theme.Title.Render(repo.Slug)
	}
	if m.repos.LoadingStatuses() {
		left += "  " + m.spinner.View()
	}
	return m.theme.Header.Width(m.width).Render(left)
}

func (m *Model) viewTranscript() string {
	switch m.chat.State() {
	case store.ChatIdle:
		hint := "Select a repository to start chatting."
		if errMsg := m.chat.Err(); errMsg != "" {
			return m.theme.ErrorBox.Render(m.theme.ErrorText.Render(errMsg))
		}
		return lipgloss.Place(m.viewport.Width, m.viewport.Height,
			lipgloss.Center, lipgloss.Center, m.theme.Thinking.Render(hint))
	case store.ChatLoading:
		return lipgloss.Place(m.viewport.Width, m.viewport.Height,
			lipgloss.Center, lipgloss.Center,
			m.spinner.View()+" "+m.theme.Thinking.Render("Opening chat…"))
	default:
		return m.viewport.View()
	}
}

func (m *Model) viewInput() string {
	if m.addingRepo {
		prompt := m.theme.InputPrompt.Render("repo> ")
		return m.theme.InputContainer.Render(prompt + m.repoInput.View())
	}
	prompt := m.theme.InputPrompt.Render("> ")
	line := prompt + m.input.View()
	if m.chat.Sending() {
		line = fmt.Sprintf("%s %s", m.spinner.View(), line)
	}
	return m.theme.InputContainer.Render(line)
}

func (m *Model) shortcuts() []components.Shortcut {
	if m.addingRepo {
		return []components.Shortcut{
			{Key: "enter", Desc: "index"},
			{Key: "esc", Desc: "cancel"},
		}
	}
	return []components.Shortcut{
		{Key: "ctrl+p/n", Desc: "repos"},
		{Key: "ctrl+a", Desc: "add"},
		{Key: "ctrl+l", Desc: "logout"},
		{Key: "ctrl+c", Desc: "quit"},
	}
}
