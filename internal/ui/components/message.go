// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/jeranaias/repochat-tui/internal/api"
	"github.com/jeranaias/repochat-tui/internal/store"
	"github.com/jeranaias/repochat-tui/internal/ui/styles"
)

// MessageRenderer turns chat messages into styled terminal output. Assistant
// markdown goes through glamour; user text is printed verbatim.
type MessageRenderer struct {
	theme    *styles.Theme
	markdown *glamour.TermRenderer
	width    int
}

// NewMessageRenderer creates a renderer wrapping at the given width.
func NewMessageRenderer(theme *styles.Theme, width int) (*MessageRenderer, error) {
	md, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create markdown renderer: %w", err)
	}
	return &MessageRenderer{theme: theme, markdown: md, width: width}, nil
}

// Width returns the wrap width the renderer was built for.
func (r *MessageRenderer) Width() int {
	return r.width
}

// Render returns the styled block for one message, including its citation
// footer for assistant messages.
func (r *MessageRenderer) Render(m api.Message) string {
	var b strings.Builder

	if m.Role == api.RoleAssistant {
		b.WriteString(r.theme.AssistantLabel.Render("Assistant"))
		b.WriteString("\n")
		b.WriteString(r.renderAssistantBody(m.Content))
		if footer := r.renderSources(m.Sources); footer != "" {
			b.WriteString("\n")
			b.WriteString(footer)
		}
		return b.String()
	}

	b.WriteString(r.theme.UserLabel.Render("You"))
	b.WriteString("\n")
	b.WriteString(r.theme.UserBubble.Render(m.Content))
	return b.String()
}

func (r *MessageRenderer) renderAssistantBody(content string) string {
	if content == store.ThinkingPlaceholder {
		return r.theme.Thinking.Render(content)
	}
	out, err := r.markdown.Render(content)
	if err != nil {
		// Glamour chokes on rare inputs; fall back to plain text.
		return r.theme.Assistant.Render(content)
	}
	return strings.TrimRight(out, "\n")
}

func (r *MessageRenderer) renderSources(sources []api.Source) string {
	if len(sources) == 0 {
		return ""
	}
	refs := make([]string, 0, len(sources))
	for _, s := range sources {
		refs = append(refs, fmt.Sprintf("%s:%d-%d", s.Path, s.StartLine, s.EndLine))
	}
	return r.theme.SourceRef.Render("⎘ " + strings.Join(refs, "  "))
}
