// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme holds all the styled components for the application.
// It detects the terminal's color capability and adjusts accordingly.
type Theme struct {
	// Terminal capabilities
	IsDark       bool
	HasTrueColor bool
	ColorProfile termenv.Profile

	// Layout dimensions
	Width  int
	Height int

	// ==========================================================================
	// APPLICATION CONTAINER STYLES
	// ==========================================================================

	App    lipgloss.Style
	Header lipgloss.Style
	Title  lipgloss.Style
	Brand  lipgloss.Style

	// ==========================================================================
	// REPOSITORY SIDEBAR STYLES
	// ==========================================================================

	Sidebar      lipgloss.Style
	RepoItem     lipgloss.Style
	RepoSelected lipgloss.Style
	RepoMeta     lipgloss.Style

	BadgeQueued     lipgloss.Style
	BadgeProcessing lipgloss.Style
	BadgeDone       lipgloss.Style
	BadgeFailed     lipgloss.Style

	// ==========================================================================
	// MESSAGE STYLES
	// ==========================================================================

	UserLabel      lipgloss.Style
	AssistantLabel lipgloss.Style
	UserBubble     lipgloss.Style
	Assistant      lipgloss.Style
	SourceRef      lipgloss.Style
	Thinking       lipgloss.Style

	// ==========================================================================
	// INPUT AND STATUS STYLES
	// ==========================================================================

	InputContainer lipgloss.Style
	InputPrompt    lipgloss.Style
	StatusBar      lipgloss.Style
	ShortcutKey    lipgloss.Style
	ShortcutDesc   lipgloss.Style
	Spinner        lipgloss.Style

	// ==========================================================================
	// LOGIN FORM AND ERROR STYLES
	// ==========================================================================

	LoginBox   lipgloss.Style
	LoginLabel lipgloss.Style
	ErrorBox   lipgloss.Style
	ErrorText  lipgloss.Style
}

// NewTheme creates a new theme with all styles configured.
func NewTheme() *Theme {
	colorProfile := termenv.ColorProfile()
	t := &Theme{
		IsDark:       termenv.HasDarkBackground(),
		HasTrueColor: colorProfile == termenv.TrueColor,
		ColorProfile: colorProfile,
	}
	t.initStyles()
	return t
}

func (t *Theme) initStyles() {
	t.App = lipgloss.NewStyle().
		Background(Surface).
		Foreground(Text)

	t.Header = lipgloss.NewStyle().
		Background(SurfaceDim).
		Padding(0, 1)
	t.Title = lipgloss.NewStyle().
		Foreground(Text).
		Bold(true)
	t.Brand = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true)

	t.Sidebar = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderRight(true).
		BorderForeground(TextFaint).
		PaddingRight(1)
	t.RepoItem = lipgloss.NewStyle().
		Foreground(Text).
		Padding(0, 1)
	t.RepoSelected = lipgloss.NewStyle().
		Foreground(Cyan).
		Background(SurfaceBright).
		Bold(true).
		Padding(0, 1)
	t.RepoMeta = lipgloss.NewStyle().
		Foreground(TextMuted)

	t.BadgeQueued = lipgloss.NewStyle().Foreground(TextMuted)
	t.BadgeProcessing = lipgloss.NewStyle().Foreground(Amber)
	t.BadgeDone = lipgloss.NewStyle().Foreground(Emerald)
	t.BadgeFailed = lipgloss.NewStyle().Foreground(Rose)

	t.UserLabel = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true)
	t.AssistantLabel = lipgloss.NewStyle().
		Foreground(Purple).
		Bold(true)
	t.UserBubble = lipgloss.NewStyle().
		Foreground(Text).
		PaddingLeft(2)
	t.Assistant = lipgloss.NewStyle().
		Foreground(Text).
		PaddingLeft(2)
	t.SourceRef = lipgloss.NewStyle().
		Foreground(TextMuted).
		PaddingLeft(2)
	t.Thinking = lipgloss.NewStyle().
		Foreground(TextMuted).
		Italic(true)

	t.InputContainer = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(TextFaint).
		Padding(0, 1)
	t.InputPrompt = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true)
	t.StatusBar = lipgloss.NewStyle().
		Background(SurfaceDim).
		Foreground(TextMuted).
		Padding(0, 1)
	t.ShortcutKey = lipgloss.NewStyle().
		Foreground(Cyan)
	t.ShortcutDesc = lipgloss.NewStyle().
		Foreground(TextMuted)
	t.Spinner = lipgloss.NewStyle().
		Foreground(Purple)

	t.LoginBox = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Purple).
		Padding(1, 3)
	t.LoginLabel = lipgloss.NewStyle().
		Foreground(TextMuted)
	t.ErrorBox = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(Rose).
		Padding(0, 1)
	t.ErrorText = lipgloss.NewStyle().
		Foreground(Rose)
}

// SetSize stores the terminal dimensions for layout decisions.
func (t *Theme) SetSize(width, height int) {
	t.Width = width
	t.Height = height
}

// SidebarWidth returns the repository sidebar width for the current
// terminal size.
func (t *Theme) SidebarWidth() int {
	if t.Width < 80 {
		return 24
	}
	return 32
}
