// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/repochat-tui/internal/store"
	"github.com/jeranaias/repochat-tui/internal/ui/components"
	"github.com/jeranaias/repochat-tui/internal/ui/styles"
)

// =============================================================================
// SCREENS
// =============================================================================

// screen selects which top-level view is active.
type screen int

const (
	screenStartup screen = iota // waiting for the silent refresh
	screenLogin
	screenMain
)

// loginField indexes the focusable login form inputs.
type loginField int

const (
	fieldEmail loginField = iota
	fieldPassword
)

// =============================================================================
// MODEL
// =============================================================================

// Model is the root Bubble Tea model. It renders snapshots of the stores and
// never holds domain state of its own; store notifications arrive as
// storesChangedMsg and trigger a re-read.
type Model struct {
	theme  *styles.Theme
	keyMap KeyMap

	auth  *store.AuthStore
	repos *store.RepoStore
	chat  *store.ChatStore

	screen screen
	width  int
	height int

	// Login form
	emailInput    textinput.Model
	passwordInput textinput.Model
	loginFocus    loginField
	registering   bool

	// Main view
	repoIndex  int
	viewport   viewport.Model
	input      textinput.Model
	repoInput  textinput.Model
	addingRepo bool
	spinner    spinner.Model
	renderer   *components.MessageRenderer

	quitting bool
}

// NewModel wires the root model to the stores.
func NewModel(auth *store.AuthStore, repos *store.RepoStore, chat *store.ChatStore) *Model {
	theme := styles.NewTheme()

	email := textinput.New()
	email.Placeholder = "email"
	email.CharLimit = 254
	email.Focus()

	password := textinput.New()
	password.Placeholder = "password"
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '•'

	input := textinput.New()
	input.Placeholder = "Ask about this codebase…"
	input.CharLimit = 4000

	repoInput := textinput.New()
	repoInput.Placeholder = "https://github.com/owner/repo"
	repoInput.CharLimit = 500

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = theme.Spinner

	return &Model{
		theme:         theme,
		keyMap:        DefaultKeyMap(),
		auth:          auth,
		repos:         repos,
		chat:          chat,
		screen:        screenStartup,
		emailInput:    email,
		passwordInput: password,
		input:         input,
		repoInput:     repoInput,
		spinner:       sp,
		repoIndex:     -1,
	}
}

// Init starts the silent refresh and the spinner.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.initAuthCmd(), m.spinner.Tick)
}

// selectedRepoID returns the id under the cursor, 0 when none.
func (m *Model) selectedRepoID() int64 {
	repos := m.repos.Repos()
	if m.repoIndex < 0 || m.repoIndex >= len(repos) {
		return 0
	}
	return repos[m.repoIndex].ID
}

// clampRepoIndex keeps the cursor within the current list.
func (m *Model) clampRepoIndex() {
	n := len(m.repos.Repos())
	switch {
	case n == 0:
		m.repoIndex = -1
	case m.repoIndex < 0:
		m.repoIndex = 0
	case m.repoIndex >= n:
		m.repoIndex = n - 1
	}
}

// resize propagates terminal dimensions to the theme and widgets.
func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height
	m.theme.SetSize(width, height)

	sidebar := m.theme.SidebarWidth()
	chatWidth := width - sidebar - 3
	if chatWidth < 20 {
		chatWidth = 20
	}
	chatHeight := height - 6
	if chatHeight < 5 {
		chatHeight = 5
	}
	if m.viewport.Width == 0 {
		m.viewport = viewport.New(chatWidth, chatHeight)
	} else {
		m.viewport.Width = chatWidth
		m.viewport.Height = chatHeight
	}
	m.input.Width = chatWidth - 4
	m.repoInput.Width = chatWidth - 4

	if m.renderer == nil || m.renderer.Width() != chatWidth-2 {
		if r, err := components.NewMessageRenderer(m.theme, chatWidth-2); err == nil {
			m.renderer = r
		}
	}
	m.refreshTranscript()
}

// refreshTranscript re-renders the chat viewport from the store snapshot and
// keeps the view pinned to the bottom.
func (m *Model) refreshTranscript() {
	if m.renderer == nil {
		return
	}
	msgs := m.chat.Messages()
	blocks := make([]string, 0, len(msgs))
	for _, msg := range msgs {
		blocks = append(blocks, m.renderer.Render(msg))
	}
	m.viewport.SetContent(joinBlocks(blocks))
	m.viewport.GotoBottom()
}

func joinBlocks(blocks []string) string {
	out := ""
	for i, b := range blocks {
		if i > 0 {
			out += "\n\n"
		}
		out += b
	}
	return out
}
