// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/jeranaias/repochat-tui/internal/api"
)

// User-facing chat strings.
const (
	ThinkingPlaceholder = "Thinking…"
	AnswerFailedText    = "Failed to get a response"
	openChatFailedText  = "Failed to open chat"
)

// ErrNoActiveChat is returned by SendMessage when no chat is open.
var ErrNoActiveChat = errors.New("store: no active chat")

// ChatState is the lifecycle of the active conversation.
type ChatState int

const (
	// ChatIdle means no repository is selected.
	ChatIdle ChatState = iota
	// ChatLoading means the chat and its history are being resolved.
	ChatLoading
	// ChatReady means messages are loaded and input is accepted.
	ChatReady
)

// String implements fmt.Stringer.
func (s ChatState) String() string {
	switch s {
	case ChatIdle:
		return "idle"
	case ChatLoading:
		return "loading"
	case ChatReady:
		return "ready"
	default:
		return "unknown"
	}
}

// ChatDirectory remembers which chat id belongs to a repository, so
// reopening a repository skips the chat-list round trip. Implementations
// must be safe for concurrent use. A nil directory disables the cache.
type ChatDirectory interface {
	ChatID(repoID int64) (string, bool)
	SetChatID(repoID int64, chatID string) error
}

// TranscriptCache is optionally implemented by a ChatDirectory that can also
// persist transcripts. Cached messages are shown while the fresh history is
// fetched; reads and writes are best effort and failures never surface.
type TranscriptCache interface {
	SaveMessages(chatID string, messages []api.Message) error
	Messages(chatID string) ([]api.Message, error)
}

// =============================================================================
// CHAT STORE
// =============================================================================

// ChatStore holds the active conversation. Every load and send is stamped
// with a sequence number captured at entry; results arriving after the user
// has switched repositories carry a stale stamp and are dropped without
// touching state and without surfacing an error.
type ChatStore struct {
	notifier

	client *api.Client
	auth   *AuthStore
	dir    ChatDirectory

	historyLimit int

	mu       sync.Mutex
	state    ChatState
	repoID   int64
	repo     *api.Repository
	chat     *api.Chat
	messages []api.Message
	sending  bool
	errMsg   string

	loadSeq uint64
	sendSeq uint64
}

// NewChatStore creates the store. dir may be nil. limit <= 0 selects the
// server maximum of 200 history messages.
func NewChatStore(client *api.Client, auth *AuthStore, dir ChatDirectory, limit int) *ChatStore {
	if limit <= 0 || limit > 200 {
		limit = 200
	}
	return &ChatStore{
		client:       client,
		auth:         auth,
		dir:          dir,
		historyLimit: limit,
	}
}

// current reports whether a load stamped seq for repoID is still the active
// one. Callers must hold s.mu.
func (s *ChatStore) current(seq uint64, repoID int64) bool {
	return s.loadSeq == seq && s.repoID == repoID
}

// =============================================================================
// OPENING
// =============================================================================

// OpenRepo switches the conversation to the given repository: it resolves
// the repository, finds or creates its chat, and loads recent history.
// repoID 0 closes the active chat. Opening supersedes any in-flight open or
// send; their late results are discarded.
func (s *ChatStore) OpenRepo(ctx context.Context, repoID int64) error {
	s.mu.Lock()
	s.loadSeq++
	seq := s.loadSeq
	s.repoID = repoID
	s.repo = nil
	s.chat = nil
	s.messages = nil
	s.sending = false
	s.errMsg = ""
	if repoID == 0 {
		s.state = ChatIdle
		s.mu.Unlock()
		s.notify()
		return nil
	}
	s.state = ChatLoading
	s.mu.Unlock()
	s.notify()

	repo, err := s.client.GetRepo(ctx, repoID)
	if err != nil {
		return s.failOpen(seq, repoID, err)
	}

	chat, err := s.resolveChat(ctx, repoID)
	if err != nil {
		return s.failOpen(seq, repoID, err)
	}
	s.showCachedTranscript(seq, repoID, chat.ID)

	messages, err := s.client.ListMessages(ctx, chat.ID, s.historyLimit, 0)
	if err != nil {
		return s.failOpen(seq, repoID, err)
	}
	for i := range messages {
		// The generation pipeline can emit system or tool roles; the
		// transcript renders everything non-assistant as the user's side.
		if messages[i].Role != api.RoleAssistant {
			messages[i].Role = api.RoleUser
		}
	}

	s.mu.Lock()
	if !s.current(seq, repoID) {
		s.mu.Unlock()
		return nil
	}
	s.repo = repo
	s.chat = chat
	s.messages = messages
	s.state = ChatReady
	s.mu.Unlock()
	s.notify()
	s.cacheTranscript()
	return nil
}

// showCachedTranscript publishes the last persisted transcript so the chat
// paints before the fresh history arrives. The state stays ChatLoading; the
// network result replaces the cached messages.
func (s *ChatStore) showCachedTranscript(seq uint64, repoID int64, chatID string) {
	tc, ok := s.dir.(TranscriptCache)
	if !ok {
		return
	}
	cached, err := tc.Messages(chatID)
	if err != nil || len(cached) == 0 {
		return
	}

	s.mu.Lock()
	if !s.current(seq, repoID) {
		s.mu.Unlock()
		return
	}
	s.messages = cached
	s.mu.Unlock()
	s.notify()
}

// cacheTranscript persists the current transcript when the directory can
// hold one. Placeholder handling is the cache's concern.
func (s *ChatStore) cacheTranscript() {
	tc, ok := s.dir.(TranscriptCache)
	if !ok {
		return
	}

	s.mu.Lock()
	if s.chat == nil {
		s.mu.Unlock()
		return
	}
	chatID := s.chat.ID
	snapshot := make([]api.Message, len(s.messages))
	copy(snapshot, s.messages)
	s.mu.Unlock()

	_ = tc.SaveMessages(chatID, snapshot)
}

// resolveChat returns the repository's chat: the cached id if the directory
// knows one, otherwise the first listed chat, otherwise a newly created one.
func (s *ChatStore) resolveChat(ctx context.Context, repoID int64) (*api.Chat, error) {
	if s.dir != nil {
		if id, ok := s.dir.ChatID(repoID); ok {
			return &api.Chat{ID: id, RepoID: repoID, UserID: s.auth.UserID()}, nil
		}
	}

	chats, err := s.client.ListChats(ctx, s.auth.UserID(), repoID)
	if err != nil {
		return nil, err
	}
	var chat *api.Chat
	if len(chats) > 0 {
		chat = &chats[0]
	} else {
		chat, err = s.client.CreateChat(ctx, s.auth.UserID(), repoID)
		if err != nil {
			return nil, err
		}
	}

	if s.dir != nil {
		// Cache write failures never block opening a chat.
		_ = s.dir.SetChatID(repoID, chat.ID)
	}
	return chat, nil
}

// failOpen records an open failure unless the attempt has been superseded.
func (s *ChatStore) failOpen(seq uint64, repoID int64, err error) error {
	s.mu.Lock()
	if !s.current(seq, repoID) {
		s.mu.Unlock()
		return nil
	}
	s.state = ChatIdle
	s.repo = nil
	s.chat = nil
	s.messages = nil
	s.errMsg = openChatFailedText
	s.mu.Unlock()
	s.notify()
	return err
}

// =============================================================================
// SENDING
// =============================================================================

// SendMessage posts content to the active chat. The user message and a
// "Thinking…" assistant placeholder appear immediately; the server's
// confirmed pair replaces them in place when the reply arrives. On failure
// the placeholder becomes an error message and the user's text stays in the
// transcript. Blank content is a no-op. A result arriving after the user
// has switched repositories is dropped silently.
func (s *ChatStore) SendMessage(ctx context.Context, content string) error {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil
	}

	s.mu.Lock()
	if s.chat == nil || s.state != ChatReady {
		s.errMsg = "No chat is open"
		s.mu.Unlock()
		s.notify()
		return ErrNoActiveChat
	}
	s.sendSeq++
	seq := s.sendSeq
	repoID := s.repoID
	chatID := s.chat.ID

	userTempID := "tmp-user-" + uuid.NewString()
	asstTempID := "tmp-assistant-" + uuid.NewString()
	s.messages = append(s.messages,
		api.Message{ID: userTempID, ChatID: chatID, Role: api.RoleUser, Content: content},
		api.Message{ID: asstTempID, ChatID: chatID, Role: api.RoleAssistant, Content: ThinkingPlaceholder},
	)
	s.sending = true
	s.errMsg = ""
	s.mu.Unlock()
	s.notify()

	resp, err := s.client.SendMessage(ctx, chatID, content)

	s.mu.Lock()
	if s.sendSeq != seq || s.repoID != repoID {
		s.mu.Unlock()
		return nil
	}
	s.sending = false

	if err != nil {
		s.replaceMessage(asstTempID, api.Message{
			ID:      asstTempID,
			ChatID:  chatID,
			Role:    api.RoleAssistant,
			Content: AnswerFailedText,
			Sources: []api.Source{},
		})
		s.errMsg = AnswerFailedText
		s.mu.Unlock()
		s.notify()
		return err
	}

	user := resp.UserMessage
	asst := resp.AssistantMessage
	if user.Role != api.RoleAssistant {
		user.Role = api.RoleUser
	}
	asst.Role = api.RoleAssistant
	s.replaceMessage(userTempID, user)
	s.replaceMessage(asstTempID, asst)
	s.mu.Unlock()
	s.notify()
	s.cacheTranscript()
	return nil
}

// replaceMessage swaps the message with the given id in place, preserving
// transcript order. Callers must hold s.mu.
func (s *ChatStore) replaceMessage(id string, msg api.Message) {
	for i := range s.messages {
		if s.messages[i].ID == id {
			s.messages[i] = msg
			return
		}
	}
}

// =============================================================================
// RESET AND SNAPSHOT ACCESS
// =============================================================================

// Reset closes the active chat, invalidates any in-flight work, and zeroes
// both sequence counters. Used on sign-out and teardown.
func (s *ChatStore) Reset() {
	s.mu.Lock()
	s.loadSeq = 0
	s.sendSeq = 0
	s.repoID = 0
	s.repo = nil
	s.chat = nil
	s.messages = nil
	s.sending = false
	s.errMsg = ""
	s.state = ChatIdle
	s.mu.Unlock()
	s.notify()
}

// State returns the conversation lifecycle state.
func (s *ChatStore) State() ChatState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// RepoID returns the selected repository id, 0 when none.
func (s *ChatStore) RepoID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repoID
}

// Repo returns the resolved repository, nil until the chat is ready.
func (s *ChatStore) Repo() *api.Repository {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repo
}

// Messages returns a copy of the transcript.
func (s *ChatStore) Messages() []api.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]api.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Sending reports whether a send is awaiting its reply.
func (s *ChatStore) Sending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sending
}

// Err returns the user-facing error message, or "".
func (s *ChatStore) Err() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errMsg
}
