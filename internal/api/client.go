// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/jeranaias/repochat-tui/internal/authcache"
)

// Configuration constants for the backend API.
const (
	// DefaultTimeout is the fixed per-request timeout.
	DefaultTimeout = 30 * time.Second

	// MaxResponseSize is the maximum allowed response body size.
	MaxResponseSize = 10 * 1024 * 1024 // 10MB
)

// =============================================================================
// CLIENT
// =============================================================================

// Client talks to the repochat backend. It is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	cache      *authcache.Cache
	limiter    *rate.Limiter

	// refreshGroup collapses concurrent 401 recoveries into one refresh
	// call. Entries are removed once the shared call settles, so the next
	// 401 after that starts a fresh refresh.
	refreshGroup singleflight.Group

	mu             sync.Mutex
	onUnauthorized func()
}

// NewClient creates a client for the given base URL. The auth cache supplies
// the bearer token for outgoing requests and receives session updates from
// refresh. The cookie jar carries the http-only refresh token cookie set by
// the auth service.
func NewClient(baseURL string, cache *authcache.Cache) *Client {
	jar, _ := cookiejar.New(nil)
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
			Jar:     jar,
		},
		cache:   cache,
		limiter: rate.NewLimiter(rate.Limit(20), 40),
	}
}

// WithTimeout sets the per-request timeout.
func (c *Client) WithTimeout(timeout time.Duration) *Client {
	c.httpClient.Timeout = timeout
	return c
}

// WithRateLimit sets the outbound request limiter.
func (c *Client) WithRateLimit(perSecond float64, burst int) *Client {
	c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	return c
}

// SetOnUnauthorized registers the callback fired when the session is cleared
// because authentication could not be recovered. The UI uses it to return to
// the login surface.
func (c *Client) SetOnUnauthorized(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onUnauthorized = fn
}

// =============================================================================
// REQUEST PIPELINE
// =============================================================================

// do issues one API request, recovering from a single 401 via refresh.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	var body []byte
	if in != nil {
		var err error
		body, err = json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
	}
	return c.send(ctx, method, path, query, body, out, false)
}

// send performs the request. retried marks a request already re-issued after
// a refresh, which must not trigger a second recovery.
func (c *Client) send(ctx context.Context, method, path string, query url.Values, body []byte, out any, retried bool) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("User-Agent", "repochat/0.1.0")
	if token := c.cache.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := readResponse(resp)
	if err != nil {
		return err
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out != nil && len(data) > 0 {
			if err := json.Unmarshal(data, out); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}
		}
		return nil
	}

	apiErr := parseAPIError(resp.StatusCode, data)
	if resp.StatusCode != http.StatusUnauthorized {
		return apiErr
	}

	// 401 on the auth endpoints themselves, or after the one retry, is
	// final: clear the session and hand control to the unauthorized hook.
	if isAuthTerminal(path) || retried {
		c.failSession()
		return apiErr
	}

	token, err := c.refreshToken(ctx)
	if err != nil || token == "" {
		return apiErr
	}
	return c.send(ctx, method, path, query, body, out, true)
}

// readResponse reads the body with a size cap.
func readResponse(resp *http.Response) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(data)) == MaxResponseSize {
		return nil, fmt.Errorf("response exceeded maximum size of %d bytes", MaxResponseSize)
	}
	return data, nil
}

// parseAPIError converts an error response body into an APIError. The
// gateway services emit either {"detail": "..."} or {"message": "..."}.
func parseAPIError(status int, body []byte) *APIError {
	var payload struct {
		Detail  string `json:"detail"`
		Message string `json:"message"`
	}
	msg := ""
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Detail != "" {
			msg = payload.Detail
		} else {
			msg = payload.Message
		}
	}
	if msg == "" {
		msg = strings.TrimSpace(string(body))
	}
	return &APIError{Status: status, Message: msg}
}

// failSession clears the cached session and fires the unauthorized callback.
func (c *Client) failSession() {
	c.cache.Clear()

	c.mu.Lock()
	fn := c.onUnauthorized
	c.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// refreshToken obtains a fresh access token. Concurrent callers share one
// in-flight refresh; the shared entry is dropped when it settles.
func (c *Client) refreshToken(ctx context.Context) (string, error) {
	v, err, _ := c.refreshGroup.Do("refresh", func() (any, error) {
		res, err := c.Refresh(ctx)
		if err != nil {
			// A 401 on the refresh endpoint already cleared the
			// session inside send; clear for other failures too.
			if !errors.Is(err, ErrUnauthorized) {
				c.failSession()
			}
			return "", err
		}
		c.cache.Set(authcache.Session{
			Token:  res.AccessToken,
			UserID: res.UserID,
			Email:  res.Email,
		})
		return res.AccessToken, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// =============================================================================
// AUTH ENDPOINTS
// =============================================================================

// Login authenticates with email and password.
func (c *Client) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	var res AuthResponse
	if err := c.do(ctx, http.MethodPost, pathLogin, nil, req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Register creates an account and returns its first session.
func (c *Client) Register(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	var res AuthResponse
	if err := c.do(ctx, http.MethodPost, pathRegister, nil, req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Refresh exchanges the refresh-token cookie for a new access token. No body
// is required.
func (c *Client) Refresh(ctx context.Context) (*AuthResponse, error) {
	var res AuthResponse
	if err := c.do(ctx, http.MethodPost, pathRefresh, nil, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// =============================================================================
// REPOSITORY ENDPOINTS
// =============================================================================

// ListRepos fetches the repositories visible to a user.
func (c *Client) ListRepos(ctx context.Context, userID int64) ([]Repository, error) {
	var res []Repository
	if err := c.do(ctx, http.MethodGet, pathRepoList(userID), nil, nil, &res); err != nil {
		return nil, err
	}
	return res, nil
}

// GetRepo fetches one repository by id.
func (c *Client) GetRepo(ctx context.Context, repoID int64) (*Repository, error) {
	var res Repository
	if err := c.do(ctx, http.MethodGet, pathRepo(repoID), nil, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// IngestRepo submits a repository URL for cloning and indexing.
func (c *Client) IngestRepo(ctx context.Context, req IngestRequest) (*IngestResponse, error) {
	var res IngestResponse
	if err := c.do(ctx, http.MethodPost, pathIngest, nil, req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// CreateOrGetIndexState creates or looks up the index state for a
// (user, repository, branch, collection) tuple.
func (c *Client) CreateOrGetIndexState(ctx context.Context, req IndexStateCreateRequest) (*IndexState, error) {
	var res IndexState
	if err := c.do(ctx, http.MethodPost, pathIndexStates, nil, req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// GetIndexState fetches the current index state by id.
func (c *Client) GetIndexState(ctx context.Context, stateID int64) (*IndexState, error) {
	var res IndexState
	if err := c.do(ctx, http.MethodGet, pathIndexState(stateID), nil, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// =============================================================================
// CHAT ENDPOINTS
// =============================================================================

// ListChats fetches the chats of a user, optionally filtered to one
// repository (repoID > 0).
func (c *Client) ListChats(ctx context.Context, userID, repoID int64) ([]Chat, error) {
	query := url.Values{}
	query.Set("user_id", strconv.FormatInt(userID, 10))
	if repoID > 0 {
		query.Set("repo_id", strconv.FormatInt(repoID, 10))
	}

	var res []Chat
	if err := c.do(ctx, http.MethodGet, pathChats, query, nil, &res); err != nil {
		return nil, err
	}
	return res, nil
}

// CreateChat creates a chat for a (user, repository) pair.
func (c *Client) CreateChat(ctx context.Context, userID, repoID int64) (*Chat, error) {
	var res Chat
	req := ChatCreateRequest{UserID: userID, RepoID: repoID}
	if err := c.do(ctx, http.MethodPost, pathChats, nil, req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// ListMessages fetches one page of a chat's message history in insertion
// order.
func (c *Client) ListMessages(ctx context.Context, chatID string, limit, offset int) ([]Message, error) {
	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))
	query.Set("offset", strconv.Itoa(offset))

	var res []Message
	if err := c.do(ctx, http.MethodGet, pathChatMessages(chatID), query, nil, &res); err != nil {
		return nil, err
	}
	return res, nil
}

// SendMessage posts user content to a chat and returns the confirmed user
// message together with the assistant reply.
func (c *Client) SendMessage(ctx context.Context, chatID, content string) (*SendMessageResponse, error) {
	var res SendMessageResponse
	req := SendMessageRequest{Content: content}
	if err := c.do(ctx, http.MethodPost, pathChatMessages(chatID), nil, req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}
