// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jeranaias/repochat-tui/internal/api"
)

// DefaultPollInterval is the index-status polling cadence.
const DefaultPollInterval = 4 * time.Second

// RepositoryView is a repository annotated with its latest known index
// state. IndexState stays nil until a status fetch resolves it.
type RepositoryView struct {
	api.Repository
	IndexState *api.IndexState
}

// =============================================================================
// REPO STORE
// =============================================================================

// RepoStore maintains the repositories visible to the signed-in user and
// drives asynchronous index-status polling. Polling is started explicitly
// and runs until StopPolling or Dispose; it does not self-terminate when
// repositories reach a terminal status.
type RepoStore struct {
	notifier

	client *api.Client
	auth   *AuthStore

	mu              sync.Mutex
	repos           []RepositoryView
	loadingList     bool
	loadingStatuses bool
	errMsg          string

	statusesInFlight atomic.Bool

	pollInterval time.Duration
	pollMu       sync.Mutex
	pollStop     chan struct{}
	pollWG       sync.WaitGroup
}

// NewRepoStore creates the store. interval <= 0 selects the default.
func NewRepoStore(client *api.Client, auth *AuthStore, interval time.Duration) *RepoStore {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &RepoStore{
		client:       client,
		auth:         auth,
		pollInterval: interval,
	}
}

// Init loads the list, starts polling, and resolves missing index-state ids
// once in the background. Call it when the repositories view mounts.
func (s *RepoStore) Init(ctx context.Context) error {
	if err := s.LoadList(ctx); err != nil {
		return err
	}
	s.StartPolling()
	go s.RefreshStatuses(ctx, true)
	return nil
}

// =============================================================================
// LIST LOADING
// =============================================================================

// LoadList fetches the repository list and merges it by id, preserving each
// repository's previously known index state: the list endpoint does not
// return fresh index state, and wiping it would blank status badges on every
// reload.
func (s *RepoStore) LoadList(ctx context.Context) error {
	s.mu.Lock()
	s.loadingList = true
	s.errMsg = ""
	s.mu.Unlock()
	s.notify()

	repos, err := s.client.ListRepos(ctx, s.auth.UserID())

	s.mu.Lock()
	s.loadingList = false
	if err != nil {
		s.errMsg = "Failed to load repositories"
		s.mu.Unlock()
		s.notify()
		return err
	}

	prev := make(map[int64]*api.IndexState, len(s.repos))
	for _, r := range s.repos {
		prev[r.ID] = r.IndexState
	}
	merged := make([]RepositoryView, 0, len(repos))
	for _, repo := range repos {
		merged = append(merged, RepositoryView{Repository: repo, IndexState: prev[repo.ID]})
	}
	s.repos = merged
	s.mu.Unlock()

	s.notify()
	return nil
}

// =============================================================================
// STATUS REFRESH
// =============================================================================

// RefreshStatuses fetches the current index state of every tracked
// repository concurrently. One repository's failure leaves the others
// untouched. When ensureStateID is set, repositories with no known state id
// get one created (or looked up); routine polling passes false to stay free
// of side effects. A refresh already in flight makes the call a no-op.
func (s *RepoStore) RefreshStatuses(ctx context.Context, ensureStateID bool) {
	if !s.statusesInFlight.CompareAndSwap(false, true) {
		return
	}
	defer s.statusesInFlight.Store(false)

	s.mu.Lock()
	snapshot := make([]RepositoryView, len(s.repos))
	copy(snapshot, s.repos)
	s.mu.Unlock()

	if len(snapshot) == 0 {
		return
	}

	s.mu.Lock()
	s.loadingStatuses = true
	s.mu.Unlock()
	s.notify()

	type update struct {
		repoID int64
		state  *api.IndexState
	}
	results := make(chan update, len(snapshot))

	var wg sync.WaitGroup
	for _, repo := range snapshot {
		wg.Add(1)
		go func(repo RepositoryView) {
			defer wg.Done()

			if repo.IndexState == nil || repo.IndexState.ID == 0 {
				if !ensureStateID {
					return
				}
				state, err := s.createOrGetIndexState(ctx, repo.Repository)
				if err != nil {
					log.Printf("repo %d: index state lookup failed: %v", repo.ID, err)
					return
				}
				results <- update{repoID: repo.ID, state: state}
				return
			}

			state, err := s.client.GetIndexState(ctx, repo.IndexState.ID)
			if err != nil {
				log.Printf("repo %d: status fetch failed: %v", repo.ID, err)
				return
			}
			results <- update{repoID: repo.ID, state: state}
		}(repo)
	}
	wg.Wait()
	close(results)

	byRepo := make(map[int64]*api.IndexState)
	for u := range results {
		byRepo[u.repoID] = u.state
	}

	s.mu.Lock()
	for i := range s.repos {
		if state, ok := byRepo[s.repos[i].ID]; ok {
			s.repos[i].IndexState = state
		}
	}
	s.loadingStatuses = false
	s.mu.Unlock()
	s.notify()
}

// createOrGetIndexState resolves the authoritative index state for a
// repository's default branch.
func (s *RepoStore) createOrGetIndexState(ctx context.Context, repo api.Repository) (*api.IndexState, error) {
	return s.client.CreateOrGetIndexState(ctx, api.IndexStateCreateRequest{
		UserID:       s.auth.UserID(),
		RepositoryID: repo.ID,
		Branch:       repo.DefaultBranch,
		Collection:   collectionFor(repo.ID),
	})
}

// collectionFor names the vector collection holding a repository's
// embeddings. The ingestion service uses the same scheme.
func collectionFor(repoID int64) string {
	return fmt.Sprintf("rag_repo_%d", repoID)
}

// =============================================================================
// POLLING LIFECYCLE
// =============================================================================

// StartPolling starts the periodic status refresh. Starting twice is a
// no-op; exactly one timer runs.
func (s *RepoStore) StartPolling() {
	s.pollMu.Lock()
	defer s.pollMu.Unlock()
	if s.pollStop != nil {
		return
	}

	stop := make(chan struct{})
	s.pollStop = stop
	s.pollWG.Add(1)

	go func() {
		defer s.pollWG.Done()
		ticker := time.NewTicker(s.pollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				s.RefreshStatuses(context.Background(), false)
			}
		}
	}()
}

// StopPolling stops the periodic refresh and waits for the loop to exit.
// Stopping an idle store is a no-op.
func (s *RepoStore) StopPolling() {
	s.pollMu.Lock()
	stop := s.pollStop
	s.pollStop = nil
	s.pollMu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	s.pollWG.Wait()
}

// Polling reports whether the status timer is running.
func (s *RepoStore) Polling() bool {
	s.pollMu.Lock()
	defer s.pollMu.Unlock()
	return s.pollStop != nil
}

// Dispose stops polling. The owner that started polling must call it on
// teardown; it is idempotent.
func (s *RepoStore) Dispose() {
	s.StopPolling()
}

// =============================================================================
// INDEXING
// =============================================================================

// StartIndexing submits a repository URL for ingestion, then fetches the
// resulting repository and index state and moves the view to the front of
// the list. Polling is (re)started so the new state's transitions are
// observed. Failures propagate to the caller.
func (s *RepoStore) StartIndexing(ctx context.Context, url, branch string) (*RepositoryView, error) {
	s.mu.Lock()
	s.errMsg = ""
	s.mu.Unlock()

	ingest, err := s.client.IngestRepo(ctx, api.IngestRequest{
		RepoURL: url,
		Branch:  branch,
		UserID:  s.auth.UserID(),
	})
	if err != nil {
		return nil, err
	}

	repo, err := s.client.GetRepo(ctx, ingest.RepositoryID)
	if err != nil {
		return nil, err
	}
	state, err := s.client.GetIndexState(ctx, ingest.IndexStateID)
	if err != nil {
		return nil, err
	}

	view := RepositoryView{Repository: *repo, IndexState: state}

	s.mu.Lock()
	rest := make([]RepositoryView, 0, len(s.repos)+1)
	rest = append(rest, view)
	for _, r := range s.repos {
		if r.ID != view.ID {
			rest = append(rest, r)
		}
	}
	s.repos = rest
	s.mu.Unlock()
	s.notify()

	s.StartPolling()
	return &view, nil
}

// =============================================================================
// SNAPSHOT ACCESS
// =============================================================================

// Repos returns a copy of the current repository views.
func (s *RepoStore) Repos() []RepositoryView {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]RepositoryView, len(s.repos))
	copy(out, s.repos)
	return out
}

// LoadingList reports whether a list fetch is in flight.
func (s *RepoStore) LoadingList() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadingList
}

// LoadingStatuses reports whether a status refresh cycle is in flight.
func (s *RepoStore) LoadingStatuses() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadingStatuses
}

// Err returns the user-facing error message, or "".
func (s *RepoStore) Err() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errMsg
}
