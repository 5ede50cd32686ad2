// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"
	"testing"

	"github.com/jeranaias/repochat-tui/internal/api"
	"github.com/jeranaias/repochat-tui/internal/store"
	"github.com/jeranaias/repochat-tui/internal/ui/styles"
)

func TestStatusBadgeStates(t *testing.T) {
	theme := styles.NewTheme()

	cases := []struct {
		state *api.IndexState
		want  string
	}{
		{nil, "pending"},
		{&api.IndexState{Status: api.IndexQueued}, "queued"},
		{&api.IndexState{Status: api.IndexProcessing}, "indexing"},
		{&api.IndexState{Status: api.IndexDone}, "ready"},
		{&api.IndexState{Status: api.IndexFailed}, "failed"},
	}
	for _, tc := range cases {
		got := StatusBadge(theme, tc.state)
		if !strings.Contains(got, tc.want) {
			t.Errorf("StatusBadge(%+v) = %q, want substring %q", tc.state, got, tc.want)
		}
	}
}

func TestRepoListShowsSlugAndBadge(t *testing.T) {
	theme := styles.NewTheme()
	repos := []store.RepositoryView{
		{Repository: api.Repository{ID: 1, Slug: "acme/widgets"}},
		{Repository: api.Repository{ID: 2, Slug: "acme/gears"}, IndexState: &api.IndexState{Status: api.IndexDone}},
	}

	out := RepoList(theme, repos, 1, 32)
	for _, want := range []string{"acme/widgets", "acme/gears", "pending", "ready"} {
		if !strings.Contains(out, want) {
			t.Errorf("sidebar missing %q:\n%s", want, out)
		}
	}
}

func TestRepoListEmpty(t *testing.T) {
	theme := styles.NewTheme()
	out := RepoList(theme, nil, -1, 32)
	if !strings.Contains(out, "No repositories") {
		t.Errorf("empty sidebar = %q", out)
	}
	// The hint must name the actual add-repo binding.
	if !strings.Contains(out, "ctrl+a") {
		t.Errorf("empty-state hint does not mention ctrl+a: %q", out)
	}
}

func TestMessageRendererSources(t *testing.T) {
	theme := styles.NewTheme()
	r, err := NewMessageRenderer(theme, 80)
	if err != nil {
		t.Fatalf("NewMessageRenderer failed: %v", err)
	}

	out := r.Render(api.Message{
		Role:    api.RoleAssistant,
		Content: "The parser lives in `parser.go`.",
		Sources: []api.Source{{Path: "internal/parser.go", StartLine: 12, EndLine: 80}},
	})
	if !strings.Contains(out, "internal/parser.go:12-80") {
		t.Errorf("citation footer missing:\n%s", out)
	}

	out = r.Render(api.Message{Role: api.RoleUser, Content: "where is the parser?"})
	if !strings.Contains(out, "where is the parser?") {
		t.Errorf("user content missing:\n%s", out)
	}
}
