// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import "time"

// =============================================================================
// AUTH
// =============================================================================

// LoginRequest is the credential payload for login and registration.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is returned by login, register, and refresh.
type AuthResponse struct {
	AccessToken string `json:"access_token"`
	UserID      int64  `json:"user_id"`
	Email       string `json:"email"`
}

// =============================================================================
// REPOSITORIES
// =============================================================================

// Repository is the immutable metadata of an ingested repository.
type Repository struct {
	ID            int64     `json:"id"`
	URL           string    `json:"url"`
	Slug          string    `json:"slug"`
	DefaultBranch string    `json:"default_branch"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// IndexStatus is the ingestion progress of a repository branch.
type IndexStatus string

const (
	IndexQueued     IndexStatus = "queued"
	IndexProcessing IndexStatus = "processing"
	IndexDone       IndexStatus = "done"
	IndexFailed     IndexStatus = "failed"
)

// Terminal reports whether the status can no longer change.
func (s IndexStatus) Terminal() bool {
	return s == IndexDone || s == IndexFailed
}

// IndexState tracks backend ingestion progress for one (repository, branch)
// pair. The client never transitions it locally; it only mirrors the last
// polled value.
type IndexState struct {
	ID              int64       `json:"id"`
	UserID          int64       `json:"user_id"`
	RepositoryID    int64       `json:"repository_id"`
	Branch          string      `json:"branch"`
	Collection      string      `json:"collection"`
	Status          IndexStatus `json:"status"`
	VectorsUpserted int64       `json:"vectors_upserted"`
	LastError       string      `json:"last_error"`
	IndexedAt       *time.Time  `json:"indexed_at"`
}

// IngestRequest submits a repository for cloning and indexing.
type IngestRequest struct {
	RepoURL string `json:"repo_url"`
	Branch  string `json:"branch,omitempty"`
	UserID  int64  `json:"user_id"`
}

// IngestResponse identifies the repository and index state created (or
// reused) for an ingestion request.
type IngestResponse struct {
	RepositoryID int64       `json:"repository_id"`
	IndexStateID int64       `json:"repo_index_state_id"`
	Status       IndexStatus `json:"status"`
}

// IndexStateCreateRequest creates or looks up the index state for a
// (user, repository, branch, collection) tuple.
type IndexStateCreateRequest struct {
	UserID       int64  `json:"user_id"`
	RepositoryID int64  `json:"repository_id"`
	Branch       string `json:"branch,omitempty"`
	Collection   string `json:"collection"`
}

// =============================================================================
// CHAT
// =============================================================================

// Chat is one conversation bound to a (user, repository) pair.
type Chat struct {
	ID     string `json:"id"`
	RepoID int64  `json:"repo_id"`
	UserID int64  `json:"user_id"`
}

// ChatCreateRequest creates a chat for a (user, repository) pair.
type ChatCreateRequest struct {
	UserID int64 `json:"user_id"`
	RepoID int64 `json:"repo_id"`
}

// Role is the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Source is a read-only code citation attached to an assistant message. An
// empty slice of sources is valid and distinct from "not yet loaded".
type Source struct {
	Path      string `json:"path"`
	StartLine int    `json:"start_line"`
	EndLine   int    `json:"end_line"`
}

// Message is one chat message. Server-assigned ids are UUIDs; the chat store
// uses a disjoint "tmp-" id format for optimistic placeholders.
type Message struct {
	ID      string   `json:"id"`
	ChatID  string   `json:"chat_id"`
	Role    Role     `json:"role"`
	Content string   `json:"content"`
	Sources []Source `json:"sources,omitempty"`
}

// SendMessageRequest posts new user content to a chat.
type SendMessageRequest struct {
	Content string `json:"content"`
}

// SendMessageResponse carries the server-confirmed user message and the
// generated assistant reply.
type SendMessageResponse struct {
	UserMessage      Message `json:"user_message"`
	AssistantMessage Message `json:"assistant_message"`
	Model            string  `json:"model"`
	Provider         string  `json:"provider"`
	FinishReason     string  `json:"finish_reason,omitempty"`
}
