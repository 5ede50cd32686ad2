// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/repochat-tui/internal/store"
)

// Run starts the TUI and blocks until the user quits. Store notifications
// are bridged into the Bubble Tea loop so every state change repaints.
func Run(auth *store.AuthStore, repos *store.RepoStore, chat *store.ChatStore) error {
	model := NewModel(auth, repos, chat)

	p := tea.NewProgram(
		model,
		tea.WithAltScreen(),
	)

	forward := func() { p.Send(storesChangedMsg{}) }
	for _, cancel := range []func(){
		auth.Subscribe(forward),
		repos.Subscribe(forward),
		chat.Subscribe(forward),
	} {
		defer cancel()
	}

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("ui error: %w", err)
	}
	return nil
}
