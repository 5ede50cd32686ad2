// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package history

const (
	// SchemaVersion tracks the database schema version for migrations
	SchemaVersion = 1
)

// SQLite schema for the local chat history database
const Schema = `
-- Metadata table for schema version
CREATE TABLE IF NOT EXISTS metadata (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
) WITHOUT ROWID;

-- Chat directory: which chat belongs to which repository
CREATE TABLE IF NOT EXISTS chats (
    repo_id INTEGER PRIMARY KEY,
    chat_id TEXT NOT NULL,
    updated_at INTEGER NOT NULL  -- Unix timestamp
);

-- Cached transcript messages, one row per message
CREATE TABLE IF NOT EXISTS messages (
    id TEXT PRIMARY KEY,
    chat_id TEXT NOT NULL,
    position INTEGER NOT NULL,   -- insertion order within the chat
    role TEXT NOT NULL,
    content TEXT NOT NULL,
    sources TEXT,                -- JSON array of citations, may be NULL
    cached_at INTEGER NOT NULL   -- Unix timestamp
);

CREATE INDEX IF NOT EXISTS idx_messages_chat ON messages(chat_id, position);
`

// InitMetadata seeds the metadata table
const InitMetadata = `
INSERT OR IGNORE INTO metadata (key, value) VALUES ('schema_version', '1');
`
