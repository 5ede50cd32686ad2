// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package history

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/jeranaias/repochat-tui/internal/api"
)

var ErrClosed = errors.New("history: store closed")

// =============================================================================
// STORE
// =============================================================================

// Store is the local chat history database. It remembers which chat belongs
// to which repository, so reopening a repository skips a backend round trip,
// and caches the last loaded transcript per chat for instant first paint.
// It satisfies the chat store's directory interface.
type Store struct {
	mu     sync.Mutex
	db     *sql.DB
	closed bool
}

// Open opens (or creates) the history database under dir.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	db, err := sql.Open("sqlite", filepath.Join(dir, "history.db"))
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA temp_store=MEMORY",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	if _, err := db.Exec(InitMetadata); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to seed metadata: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database. Further calls return ErrClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

// =============================================================================
// CHAT DIRECTORY
// =============================================================================

// ChatID returns the cached chat id for a repository.
func (s *Store) ChatID(repoID int64) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", false
	}

	var id string
	err := s.db.QueryRow("SELECT chat_id FROM chats WHERE repo_id = ?", repoID).Scan(&id)
	if err != nil {
		return "", false
	}
	return id, true
}

// SetChatID records the chat id for a repository, replacing any previous
// mapping.
func (s *Store) SetChatID(repoID int64, chatID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	_, err := s.db.Exec(
		"INSERT INTO chats (repo_id, chat_id, updated_at) VALUES (?, ?, ?) "+
			"ON CONFLICT(repo_id) DO UPDATE SET chat_id = excluded.chat_id, updated_at = excluded.updated_at",
		repoID, chatID, time.Now().Unix(),
	)
	return err
}

// ForgetRepo drops the directory entry and cached transcript for a
// repository.
func (s *Store) ForgetRepo(repoID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	var chatID string
	err := s.db.QueryRow("SELECT chat_id FROM chats WHERE repo_id = ?", repoID).Scan(&chatID)
	if err == nil {
		if _, err := s.db.Exec("DELETE FROM messages WHERE chat_id = ?", chatID); err != nil {
			return err
		}
	}
	_, err = s.db.Exec("DELETE FROM chats WHERE repo_id = ?", repoID)
	return err
}

// =============================================================================
// TRANSCRIPT CACHE
// =============================================================================

// SaveMessages replaces the cached transcript for a chat. Optimistic
// placeholder messages (temporary "tmp-" ids) are skipped; only confirmed
// messages are worth keeping across sessions.
func (s *Store) SaveMessages(chatID string, messages []api.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM messages WHERE chat_id = ?", chatID); err != nil {
		return err
	}

	now := time.Now().Unix()
	stmt, err := tx.Prepare(
		"INSERT INTO messages (id, chat_id, position, role, content, sources, cached_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, m := range messages {
		if len(m.ID) >= 4 && m.ID[:4] == "tmp-" {
			continue
		}
		var sources sql.NullString
		if m.Sources != nil {
			raw, err := json.Marshal(m.Sources)
			if err != nil {
				return err
			}
			sources = sql.NullString{String: string(raw), Valid: true}
		}
		if _, err := stmt.Exec(m.ID, chatID, i, string(m.Role), m.Content, sources, now); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// Messages returns the cached transcript for a chat in insertion order.
func (s *Store) Messages(chatID string) ([]api.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}

	rows, err := s.db.Query(
		"SELECT id, role, content, sources FROM messages WHERE chat_id = ? ORDER BY position",
		chatID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []api.Message
	for rows.Next() {
		var m api.Message
		var role string
		var sources sql.NullString
		if err := rows.Scan(&m.ID, &role, &m.Content, &sources); err != nil {
			return nil, err
		}
		m.ChatID = chatID
		m.Role = api.Role(role)
		if sources.Valid {
			if err := json.Unmarshal([]byte(sources.String), &m.Sources); err != nil {
				return nil, err
			}
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
