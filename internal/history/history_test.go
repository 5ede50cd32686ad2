// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package history

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jeranaias/repochat-tui/internal/api"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestChatDirectoryRoundTrip(t *testing.T) {
	s := openTestStore(t)

	_, ok := s.ChatID(10)
	require.False(t, ok, "unexpected directory hit on empty store")

	require.NoError(t, s.SetChatID(10, "c1"))
	id, ok := s.ChatID(10)
	require.True(t, ok)
	require.Equal(t, "c1", id)

	// Remapping replaces, never duplicates.
	require.NoError(t, s.SetChatID(10, "c2"))
	id, _ = s.ChatID(10)
	require.Equal(t, "c2", id)
}

func TestTranscriptCacheRoundTrip(t *testing.T) {
	s := openTestStore(t)

	in := []api.Message{
		{ID: "m1", Role: api.RoleUser, Content: "how does the parser work?"},
		{ID: "m2", Role: api.RoleAssistant, Content: "it tokenizes first", Sources: []api.Source{{Path: "parser.go", StartLine: 10, EndLine: 40}}},
		{ID: "tmp-user-abc", Role: api.RoleUser, Content: "pending"},
	}
	require.NoError(t, s.SaveMessages("c1", in))

	out, err := s.Messages("c1")
	require.NoError(t, err)
	require.Len(t, out, 2, "optimistic placeholder must be skipped")
	require.Equal(t, "m1", out[0].ID)
	require.Equal(t, "m2", out[1].ID)
	require.Equal(t, []api.Source{{Path: "parser.go", StartLine: 10, EndLine: 40}}, out[1].Sources)
	require.Nil(t, out[0].Sources)
}

func TestSaveMessagesReplacesPrevious(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.SaveMessages("c1", []api.Message{{ID: "old", Role: api.RoleUser, Content: "x"}}))
	require.NoError(t, s.SaveMessages("c1", []api.Message{{ID: "new", Role: api.RoleUser, Content: "y"}}))

	out, err := s.Messages("c1")
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, "new", out[0].ID)
}

func TestForgetRepo(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.SetChatID(10, "c1"))
	require.NoError(t, s.SaveMessages("c1", []api.Message{{ID: "m1", Role: api.RoleUser, Content: "x"}}))

	require.NoError(t, s.ForgetRepo(10))
	_, ok := s.ChatID(10)
	require.False(t, ok, "directory entry survived ForgetRepo")
	out, err := s.Messages("c1")
	require.NoError(t, err)
	require.Empty(t, out, "cached transcript survived ForgetRepo")
}

func TestClosedStoreErrors(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Close())

	require.ErrorIs(t, s.SetChatID(10, "c1"), ErrClosed)
	_, err := s.Messages("c1")
	require.ErrorIs(t, err, ErrClosed)
}
