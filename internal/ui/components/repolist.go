// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/jeranaias/repochat-tui/internal/store"
	"github.com/jeranaias/repochat-tui/internal/ui/styles"
	"github.com/jeranaias/repochat-tui/internal/util"
)

// RepoList renders the repository sidebar with status badges. selected is an
// index into repos, -1 for none.
func RepoList(theme *styles.Theme, repos []store.RepositoryView, selected, width int) string {
	if len(repos) == 0 {
		return theme.RepoMeta.Render("No repositories yet.\nPress ctrl+a to index one.")
	}

	var b strings.Builder
	for i, repo := range repos {
		name := repo.Slug
		if name == "" {
			name = repo.URL
		}
		name = util.TruncateWidth(name, width-4)

		style := theme.RepoItem
		if i == selected {
			style = theme.RepoSelected
		}
		b.WriteString(style.Render(name))
		b.WriteString("\n")
		b.WriteString("  " + StatusBadge(theme, repo.IndexState))
		if i < len(repos)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}
