// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/jeranaias/repochat-tui/internal/store"
)

// RunStatus prints the session state.
func RunStatus(auth *store.AuthStore, baseURL string) error {
	fmt.Printf("Backend:  %s\n", baseURL)
	if auth.IsAuthenticated() {
		fmt.Printf("Session:  signed in as %s (user %d)\n", auth.Email(), auth.UserID())
	} else {
		fmt.Println("Session:  signed out")
	}
	return nil
}

// RunRepos prints the repository list with index states.
func RunRepos(ctx context.Context, repos *store.RepoStore, jsonOut bool) error {
	if err := repos.LoadList(ctx); err != nil {
		return err
	}
	repos.RefreshStatuses(ctx, true)
	views := repos.Repos()

	if jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(views)
	}

	if len(views) == 0 {
		fmt.Println("No repositories. Use 'repochat index <url>' to add one.")
		return nil
	}
	for _, v := range views {
		status := "pending"
		if v.IndexState != nil {
			status = string(v.IndexState.Status)
			if v.IndexState.LastError != "" {
				status += " (" + v.IndexState.LastError + ")"
			}
		}
		name := v.Slug
		if name == "" {
			name = v.URL
		}
		fmt.Printf("%-40s %-12s %s\n", name, status, v.DefaultBranch)
	}
	return nil
}

// RunIndex submits a repository for ingestion and reports the initial state.
func RunIndex(ctx context.Context, repos *store.RepoStore, url, branch string) error {
	view, err := repos.StartIndexing(ctx, url, branch)
	if err != nil {
		return err
	}
	defer repos.Dispose()

	status := "queued"
	if view.IndexState != nil {
		status = string(view.IndexState.Status)
	}
	fmt.Printf("Indexing %s (%s)\n", view.Slug, status)
	fmt.Println("Run 'repochat repos' to watch progress.")
	return nil
}
