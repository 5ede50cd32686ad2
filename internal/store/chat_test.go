// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/jeranaias/repochat-tui/internal/api"
)

// memDirectory is an in-memory ChatDirectory for tests.
type memDirectory struct {
	mu sync.Mutex
	m  map[int64]string
}

func (d *memDirectory) ChatID(repoID int64) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	id, ok := d.m[repoID]
	return id, ok
}

func (d *memDirectory) SetChatID(repoID int64, chatID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.m == nil {
		d.m = make(map[int64]string)
	}
	d.m[repoID] = chatID
	return nil
}

// chatBackend wires the minimal chat endpoints for one repository. Register
// it at most once per mux; it claims the chat-list route.
func chatBackend(mux *http.ServeMux, repoID int64, chatID string, history []api.Message) {
	mux.HandleFunc("GET /repos/"+strconv.FormatInt(repoID, 10), func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, api.Repository{ID: repoID, Slug: "acme/widgets", DefaultBranch: "main"})
	})
	mux.HandleFunc("GET /chats", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []api.Chat{{ID: chatID, RepoID: repoID, UserID: 1}})
	})
	mux.HandleFunc("GET /chats/"+chatID+"/messages", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, history)
	})
}

func newChatFixture(t *testing.T, mux *http.ServeMux, dir ChatDirectory) *ChatStore {
	t.Helper()
	client, cache := newFixture(t, mux)
	auth := signedInAuth(t, client, cache)
	return NewChatStore(client, auth, dir, 0)
}

func TestOpenRepoLoadsHistoryAndNormalizesRoles(t *testing.T) {
	mux := http.NewServeMux()
	chatBackend(mux, 10, "c1", []api.Message{
		{ID: "m1", ChatID: "c1", Role: "system", Content: "hello"},
		{ID: "m2", ChatID: "c1", Role: api.RoleAssistant, Content: "hi"},
	})
	s := newChatFixture(t, mux, nil)

	if err := s.OpenRepo(context.Background(), 10); err != nil {
		t.Fatalf("OpenRepo failed: %v", err)
	}
	if s.State() != ChatReady {
		t.Fatalf("state = %v, want ready", s.State())
	}
	msgs := s.Messages()
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want 2", len(msgs))
	}
	if msgs[0].Role != api.RoleUser {
		t.Errorf("system role not normalized to user: %v", msgs[0].Role)
	}
	if msgs[1].Role != api.RoleAssistant {
		t.Errorf("assistant role changed: %v", msgs[1].Role)
	}
}

func TestOpenRepoCreatesChatWhenNoneExists(t *testing.T) {
	var created atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/10", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, api.Repository{ID: 10})
	})
	mux.HandleFunc("GET /chats", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []api.Chat{})
	})
	mux.HandleFunc("POST /chats", func(w http.ResponseWriter, r *http.Request) {
		created.Add(1)
		writeJSON(w, api.Chat{ID: "c-new", RepoID: 10, UserID: 1})
	})
	mux.HandleFunc("GET /chats/c-new/messages", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []api.Message{})
	})
	dir := &memDirectory{}
	s := newChatFixture(t, mux, dir)

	if err := s.OpenRepo(context.Background(), 10); err != nil {
		t.Fatalf("OpenRepo failed: %v", err)
	}
	if created.Load() != 1 {
		t.Errorf("chat created %d times, want 1", created.Load())
	}
	if id, ok := dir.ChatID(10); !ok || id != "c-new" {
		t.Errorf("directory entry = (%q, %v), want c-new", id, ok)
	}
}

func TestOpenRepoUsesDirectoryAndSkipsList(t *testing.T) {
	var listed atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/10", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, api.Repository{ID: 10})
	})
	mux.HandleFunc("GET /chats", func(w http.ResponseWriter, r *http.Request) {
		listed.Add(1)
		writeJSON(w, []api.Chat{})
	})
	mux.HandleFunc("GET /chats/c-cached/messages", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []api.Message{})
	})
	dir := &memDirectory{m: map[int64]string{10: "c-cached"}}
	s := newChatFixture(t, mux, dir)

	if err := s.OpenRepo(context.Background(), 10); err != nil {
		t.Fatalf("OpenRepo failed: %v", err)
	}
	if listed.Load() != 0 {
		t.Errorf("chat list fetched %d times despite cached id", listed.Load())
	}
}

// memTranscriptDir adds transcript persistence on top of memDirectory.
type memTranscriptDir struct {
	memDirectory
	tmu         sync.Mutex
	transcripts map[string][]api.Message
}

func (d *memTranscriptDir) SaveMessages(chatID string, messages []api.Message) error {
	d.tmu.Lock()
	defer d.tmu.Unlock()
	if d.transcripts == nil {
		d.transcripts = make(map[string][]api.Message)
	}
	d.transcripts[chatID] = append([]api.Message(nil), messages...)
	return nil
}

func (d *memTranscriptDir) Messages(chatID string) ([]api.Message, error) {
	d.tmu.Lock()
	defer d.tmu.Unlock()
	return append([]api.Message(nil), d.transcripts[chatID]...), nil
}

func TestOpenRepoShowsCachedTranscriptFirst(t *testing.T) {
	mux := http.NewServeMux()
	chatBackend(mux, 10, "c1", []api.Message{
		{ID: "m1", ChatID: "c1", Role: api.RoleUser, Content: "fresh"},
	})
	dir := &memTranscriptDir{memDirectory: memDirectory{m: map[int64]string{10: "c1"}}}
	dir.SaveMessages("c1", []api.Message{
		{ID: "m0", ChatID: "c1", Role: api.RoleUser, Content: "cached"},
	})
	s := newChatFixture(t, mux, dir)

	// Record the transcript at each change to see the cached paint.
	var paints [][]api.Message
	cancel := s.Subscribe(func() { paints = append(paints, s.Messages()) })
	defer cancel()

	if err := s.OpenRepo(context.Background(), 10); err != nil {
		t.Fatalf("OpenRepo failed: %v", err)
	}

	var sawCached bool
	for _, p := range paints {
		if len(p) == 1 && p[0].ID == "m0" {
			sawCached = true
		}
	}
	if !sawCached {
		t.Error("cached transcript never shown before fresh history")
	}
	msgs := s.Messages()
	if len(msgs) != 1 || msgs[0].ID != "m1" {
		t.Fatalf("final transcript = %+v, want fresh m1", msgs)
	}
	if got := dir.transcripts["c1"]; len(got) != 1 || got[0].ID != "m1" {
		t.Errorf("cache not refreshed with fresh history: %+v", got)
	}
}

func TestOpenRepoStalenessGuard(t *testing.T) {
	releaseA := make(chan struct{})
	aEntered := make(chan struct{})
	var once sync.Once

	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/10", func(w http.ResponseWriter, r *http.Request) {
		once.Do(func() { close(aEntered) })
		<-releaseA
		writeJSON(w, api.Repository{ID: 10, Slug: "stale/repo"})
	})
	mux.HandleFunc("GET /chats/ca/messages", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []api.Message{{ID: "ma", ChatID: "ca", Role: api.RoleUser, Content: "old"}})
	})
	chatBackend(mux, 20, "cb", []api.Message{
		{ID: "mb", ChatID: "cb", Role: api.RoleUser, Content: "new"},
	})
	dir := &memDirectory{m: map[int64]string{10: "ca", 20: "cb"}}
	s := newChatFixture(t, mux, dir)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		// The result of this open must be discarded, so err is nil.
		if err := s.OpenRepo(context.Background(), 10); err != nil {
			t.Errorf("superseded OpenRepo returned %v, want nil", err)
		}
	}()
	<-aEntered

	if err := s.OpenRepo(context.Background(), 20); err != nil {
		t.Fatalf("OpenRepo(20) failed: %v", err)
	}
	close(releaseA)
	wg.Wait()

	if s.RepoID() != 20 {
		t.Fatalf("RepoID = %d, want 20", s.RepoID())
	}
	msgs := s.Messages()
	if len(msgs) != 1 || msgs[0].ID != "mb" {
		t.Errorf("transcript shows stale data: %+v", msgs)
	}
	if s.Repo() == nil || s.Repo().ID != 20 {
		t.Errorf("repo snapshot = %+v, want id 20", s.Repo())
	}
}

func TestOpenRepoZeroSettlesIdle(t *testing.T) {
	mux := http.NewServeMux()
	chatBackend(mux, 10, "c1", []api.Message{})
	s := newChatFixture(t, mux, nil)

	if err := s.OpenRepo(context.Background(), 10); err != nil {
		t.Fatalf("OpenRepo failed: %v", err)
	}
	if err := s.OpenRepo(context.Background(), 0); err != nil {
		t.Fatalf("OpenRepo(0) failed: %v", err)
	}
	if s.State() != ChatIdle || len(s.Messages()) != 0 || s.Repo() != nil {
		t.Errorf("state not cleared: %v %d", s.State(), len(s.Messages()))
	}
}

func TestOpenRepoFailureSurfacesGenericError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/10", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"gone"}`, http.StatusNotFound)
	})
	s := newChatFixture(t, mux, nil)

	err := s.OpenRepo(context.Background(), 10)
	if !errors.Is(err, api.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if s.State() != ChatIdle {
		t.Errorf("state = %v, want idle after failure", s.State())
	}
	if s.Err() == "" {
		t.Error("expected a user-facing error message")
	}
}

func TestSendMessageOptimisticThenConfirmed(t *testing.T) {
	mux := http.NewServeMux()
	chatBackend(mux, 10, "c1", []api.Message{
		{ID: "m1", ChatID: "c1", Role: api.RoleUser, Content: "earlier"},
	})
	mux.HandleFunc("POST /chats/c1/messages", func(w http.ResponseWriter, r *http.Request) {
		var req api.SendMessageRequest
		readJSON(t, r, &req)
		writeJSON(w, api.SendMessageResponse{
			UserMessage:      api.Message{ID: "u-9", ChatID: "c1", Role: api.RoleUser, Content: req.Content},
			AssistantMessage: api.Message{ID: "a-9", ChatID: "c1", Role: api.RoleAssistant, Content: "answer", Sources: []api.Source{{Path: "main.go", StartLine: 1, EndLine: 3}}},
		})
	})
	s := newChatFixture(t, mux, nil)
	if err := s.OpenRepo(context.Background(), 10); err != nil {
		t.Fatalf("OpenRepo failed: %v", err)
	}

	if err := s.SendMessage(context.Background(), "how does parsing work?"); err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}

	msgs := s.Messages()
	if len(msgs) != 3 {
		t.Fatalf("got %d messages, want 3", len(msgs))
	}
	if msgs[1].ID != "u-9" || msgs[2].ID != "a-9" {
		t.Errorf("confirmed ids = %q, %q; placeholders not replaced in place", msgs[1].ID, msgs[2].ID)
	}
	for _, m := range msgs {
		if strings.HasPrefix(m.ID, "tmp-") {
			t.Errorf("temporary id %q survived reconciliation", m.ID)
		}
	}
	if len(msgs[2].Sources) != 1 {
		t.Errorf("assistant sources = %+v, want one citation", msgs[2].Sources)
	}
	if s.Sending() {
		t.Error("sending flag still set")
	}
}

func TestSendMessageShowsOptimisticPairWhilePending(t *testing.T) {
	release := make(chan struct{})
	arrived := make(chan struct{})
	var once sync.Once
	mux := http.NewServeMux()
	chatBackend(mux, 10, "c1", []api.Message{})
	mux.HandleFunc("POST /chats/c1/messages", func(w http.ResponseWriter, r *http.Request) {
		once.Do(func() { close(arrived) })
		<-release
		writeJSON(w, api.SendMessageResponse{
			UserMessage:      api.Message{ID: "u-1", ChatID: "c1", Role: api.RoleUser, Content: "hello"},
			AssistantMessage: api.Message{ID: "a-1", ChatID: "c1", Role: api.RoleAssistant, Content: "hi there"},
		})
	})
	s := newChatFixture(t, mux, nil)
	if err := s.OpenRepo(context.Background(), 10); err != nil {
		t.Fatalf("OpenRepo failed: %v", err)
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := s.SendMessage(context.Background(), "hello"); err != nil {
			t.Errorf("SendMessage failed: %v", err)
		}
	}()

	// The server is holding the reply; the optimistic pair must already be
	// in the transcript.
	<-arrived
	msgs := s.Messages()
	if len(msgs) != 2 {
		t.Fatalf("got %d pending messages, want 2", len(msgs))
	}
	if msgs[0].Role != api.RoleUser || msgs[0].Content != "hello" {
		t.Errorf("pending user message = %+v", msgs[0])
	}
	if msgs[1].Role != api.RoleAssistant || msgs[1].Content != ThinkingPlaceholder {
		t.Errorf("pending assistant message = %+v, want %q", msgs[1], ThinkingPlaceholder)
	}
	if !strings.HasPrefix(msgs[0].ID, "tmp-") || !strings.HasPrefix(msgs[1].ID, "tmp-") {
		t.Errorf("pending ids = %q, %q; want tmp- prefixes", msgs[0].ID, msgs[1].ID)
	}
	if !s.Sending() {
		t.Error("sending flag not set while reply pending")
	}

	close(release)
	wg.Wait()

	msgs = s.Messages()
	if len(msgs) != 2 || msgs[0].ID != "u-1" || msgs[1].ID != "a-1" {
		t.Fatalf("confirmed transcript = %+v, want u-1/a-1", msgs)
	}
	if msgs[1].Content != "hi there" {
		t.Errorf("assistant content = %q", msgs[1].Content)
	}
	if s.Sending() {
		t.Error("sending flag still set after reply")
	}
}

func TestSendMessageFailureKeepsUserMessage(t *testing.T) {
	mux := http.NewServeMux()
	chatBackend(mux, 10, "c1", []api.Message{})
	mux.HandleFunc("POST /chats/c1/messages", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"model overloaded"}`, http.StatusServiceUnavailable)
	})
	s := newChatFixture(t, mux, nil)
	if err := s.OpenRepo(context.Background(), 10); err != nil {
		t.Fatalf("OpenRepo failed: %v", err)
	}

	if err := s.SendMessage(context.Background(), "hello"); err == nil {
		t.Fatal("expected send error")
	}

	msgs := s.Messages()
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want 2", len(msgs))
	}
	if msgs[0].Content != "hello" || msgs[0].Role != api.RoleUser {
		t.Errorf("user message altered: %+v", msgs[0])
	}
	if msgs[1].Content != AnswerFailedText || msgs[1].Role != api.RoleAssistant {
		t.Errorf("assistant placeholder = %+v, want failure text", msgs[1])
	}
	if len(msgs[1].Sources) != 0 {
		t.Errorf("failure message carries sources: %+v", msgs[1].Sources)
	}
	if s.Err() != AnswerFailedText {
		t.Errorf("Err() = %q, want %q", s.Err(), AnswerFailedText)
	}
}

func TestSendMessageBlankIsNoOp(t *testing.T) {
	mux := http.NewServeMux()
	chatBackend(mux, 10, "c1", []api.Message{})
	s := newChatFixture(t, mux, nil)
	if err := s.OpenRepo(context.Background(), 10); err != nil {
		t.Fatalf("OpenRepo failed: %v", err)
	}

	if err := s.SendMessage(context.Background(), "   \n\t"); err != nil {
		t.Fatalf("blank send returned %v", err)
	}
	if len(s.Messages()) != 0 {
		t.Error("blank send appended messages")
	}
}

func TestSendMessageWithoutChat(t *testing.T) {
	s := newChatFixture(t, http.NewServeMux(), nil)
	if err := s.SendMessage(context.Background(), "hi"); !errors.Is(err, ErrNoActiveChat) {
		t.Errorf("err = %v, want ErrNoActiveChat", err)
	}
}

func TestStaleSendResultDiscarded(t *testing.T) {
	release := make(chan struct{})
	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/10", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, api.Repository{ID: 10})
	})
	mux.HandleFunc("GET /repos/20", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, api.Repository{ID: 20})
	})
	mux.HandleFunc("GET /chats/ca/messages", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []api.Message{})
	})
	mux.HandleFunc("GET /chats/cb/messages", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []api.Message{})
	})
	arrived := make(chan struct{})
	var once sync.Once
	mux.HandleFunc("POST /chats/ca/messages", func(w http.ResponseWriter, r *http.Request) {
		once.Do(func() { close(arrived) })
		<-release
		writeJSON(w, api.SendMessageResponse{
			UserMessage:      api.Message{ID: "u-9", ChatID: "ca", Role: api.RoleUser, Content: "late"},
			AssistantMessage: api.Message{ID: "a-9", ChatID: "ca", Role: api.RoleAssistant, Content: "late answer"},
		})
	})
	dir := &memDirectory{m: map[int64]string{10: "ca", 20: "cb"}}
	s := newChatFixture(t, mux, dir)
	if err := s.OpenRepo(context.Background(), 10); err != nil {
		t.Fatalf("OpenRepo failed: %v", err)
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := s.SendMessage(context.Background(), "late"); err != nil {
			t.Errorf("stale send returned %v, want nil", err)
		}
	}()

	// Navigate away once the send is holding at the server, then let it
	// finish against the superseded repo.
	<-arrived
	if err := s.OpenRepo(context.Background(), 20); err != nil {
		t.Fatalf("OpenRepo(20) failed: %v", err)
	}
	close(release)
	wg.Wait()

	if s.RepoID() != 20 {
		t.Fatalf("RepoID = %d, want 20", s.RepoID())
	}
	for _, m := range s.Messages() {
		if m.ChatID == "ca" {
			t.Errorf("stale chat message leaked into transcript: %+v", m)
		}
	}
	if s.Err() != "" {
		t.Errorf("stale send surfaced an error: %q", s.Err())
	}
}

func TestResetClearsEverything(t *testing.T) {
	mux := http.NewServeMux()
	chatBackend(mux, 10, "c1", []api.Message{
		{ID: "m1", ChatID: "c1", Role: api.RoleUser, Content: "hello"},
	})
	s := newChatFixture(t, mux, nil)
	if err := s.OpenRepo(context.Background(), 10); err != nil {
		t.Fatalf("OpenRepo failed: %v", err)
	}

	s.Reset()
	if s.State() != ChatIdle || s.RepoID() != 0 || len(s.Messages()) != 0 || s.Repo() != nil || s.Err() != "" {
		t.Error("reset left residual state")
	}
}
