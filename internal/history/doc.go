// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package history persists chat metadata between sessions: the repository to
// chat-id directory and a cached copy of each chat's transcript, backed by a
// local SQLite database.
package history
