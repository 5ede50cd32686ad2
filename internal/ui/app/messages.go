// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
)

// =============================================================================
// MESSAGES
// =============================================================================

// storesChangedMsg is sent whenever any store publishes a state change. The
// model re-reads store snapshots on receipt; the message carries no payload.
type storesChangedMsg struct{}

// authSettledMsg signals that the startup silent refresh finished.
type authSettledMsg struct{}

// loginDoneMsg signals that a login or registration attempt finished. The
// store already holds the outcome.
type loginDoneMsg struct{}

// reposReadyMsg signals that the initial repository load finished.
type reposReadyMsg struct{ err error }

// chatOpenedMsg signals that an openRepo attempt settled.
type chatOpenedMsg struct{}

// sendDoneMsg signals that a sendMessage attempt settled.
type sendDoneMsg struct{}

// indexStartedMsg signals that an ingestion request settled.
type indexStartedMsg struct{ err error }

// =============================================================================
// COMMANDS
// =============================================================================

func (m *Model) initAuthCmd() tea.Cmd {
	return func() tea.Msg {
		m.auth.Init(context.Background())
		return authSettledMsg{}
	}
}

func (m *Model) loginCmd(email, password string, register bool) tea.Cmd {
	return func() tea.Msg {
		if register {
			m.auth.Register(context.Background(), email, password)
		} else {
			m.auth.Login(context.Background(), email, password)
		}
		return loginDoneMsg{}
	}
}

func (m *Model) loadReposCmd() tea.Cmd {
	return func() tea.Msg {
		return reposReadyMsg{err: m.repos.Init(context.Background())}
	}
}

func (m *Model) openRepoCmd(repoID int64) tea.Cmd {
	return func() tea.Msg {
		m.chat.OpenRepo(context.Background(), repoID)
		return chatOpenedMsg{}
	}
}

func (m *Model) sendCmd(content string) tea.Cmd {
	return func() tea.Msg {
		m.chat.SendMessage(context.Background(), content)
		return sendDoneMsg{}
	}
}

func (m *Model) indexCmd(url string) tea.Cmd {
	return func() tea.Msg {
		_, err := m.repos.StartIndexing(context.Background(), url, "")
		return indexStartedMsg{err: err}
	}
}
