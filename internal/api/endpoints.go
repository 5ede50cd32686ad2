// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import "fmt"

// All endpoint paths live here so backend route changes are edited in one
// place. Paths are relative to the client base URL.

const (
	pathLogin    = "/v1/auth/login"
	pathRegister = "/v1/auth/register"
	pathRefresh  = "/v1/auth/refresh"

	pathIngest      = "/ingest/repo"
	pathIndexStates = "/repo-index-states"
	pathChats       = "/chats"
)

func pathRepoList(userID int64) string {
	return fmt.Sprintf("/repos/%d/list", userID)
}

func pathRepo(repoID int64) string {
	return fmt.Sprintf("/repos/%d", repoID)
}

func pathIndexState(stateID int64) string {
	return fmt.Sprintf("/repo-index-states/%d", stateID)
}

func pathChatMessages(chatID string) string {
	return fmt.Sprintf("/chats/%s/messages", chatID)
}

// isAuthTerminal reports whether a 401 on this path must not trigger a
// refresh-and-retry: failing to log in or to refresh is final.
func isAuthTerminal(path string) bool {
	return path == pathLogin || path == pathRefresh
}
