// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package authcache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/jeranaias/repochat-tui/internal/util"
)

// cacheFileName is the session file inside the data directory.
const cacheFileName = "auth.json"

// =============================================================================
// SESSION DOCUMENT
// =============================================================================

// Session is the persisted authentication state. A zero Session means
// signed out.
type Session struct {
	Token  string `json:"token"`
	UserID int64  `json:"user_id"`
	Email  string `json:"email"`
}

// IsZero reports whether the session holds no credentials.
func (s Session) IsZero() bool {
	return s.Token == "" && s.UserID == 0 && s.Email == ""
}

// =============================================================================
// CACHE
// =============================================================================

// Cache is the key-value store for the session. All methods are safe for
// concurrent use. Change listeners run without the cache lock held.
type Cache struct {
	mu   sync.Mutex
	path string // empty means memory-only
	cur  Session

	subs    map[int]func()
	nextSub int

	watcher   *fsnotify.Watcher
	watchDone chan struct{}
}

// New creates a cache rooted at dir and loads any persisted session. If dir
// is empty or unusable the cache operates in memory only.
func New(dir string) *Cache {
	c := &Cache{subs: make(map[int]func())}

	if dir == "" {
		return c
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return c
	}
	c.path = filepath.Join(dir, cacheFileName)
	c.cur = readSessionFile(c.path)
	return c
}

// readSessionFile loads a session document, returning a zero session for any
// missing or corrupt file.
func readSessionFile(path string) Session {
	data, err := os.ReadFile(path)
	if err != nil {
		return Session{}
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return Session{}
	}
	return s
}

// =============================================================================
// READ ACCESS
// =============================================================================

// Session returns a copy of the current session.
func (c *Cache) Session() Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cur
}

// Token returns the current access token, or "" when signed out.
func (c *Cache) Token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cur.Token
}

// UserID returns the current user id, or 0 when signed out.
func (c *Cache) UserID() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cur.UserID
}

// Email returns the current user email, or "" when signed out.
func (c *Cache) Email() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cur.Email
}

// =============================================================================
// MUTATION
// =============================================================================

// Set replaces the stored session and notifies listeners. The write to disk
// is best-effort; a failed write leaves the in-memory session updated.
func (c *Cache) Set(s Session) {
	c.mu.Lock()
	c.cur = s
	c.persistLocked()
	c.mu.Unlock()

	c.notify()
}

// Clear removes the stored session and notifies listeners.
func (c *Cache) Clear() {
	c.Set(Session{})
}

// persistLocked writes the current session to disk. Caller holds c.mu.
func (c *Cache) persistLocked() {
	if c.path == "" {
		return
	}
	data, err := json.Marshal(c.cur)
	if err != nil {
		return
	}
	// Token at rest is readable by the owner only.
	_ = util.AtomicWriteFile(c.path, data, 0600)
}

// =============================================================================
// CHANGE NOTIFICATION
// =============================================================================

// OnChange registers fn to run after every session mutation, local or
// observed from another process. The returned function cancels the
// registration.
func (c *Cache) OnChange(fn func()) (cancel func()) {
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

// notify invokes all listeners outside the lock.
func (c *Cache) notify() {
	c.mu.Lock()
	fns := make([]func(), 0, len(c.subs))
	for _, fn := range c.subs {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// =============================================================================
// CROSS-PROCESS WATCH
// =============================================================================

// Watch starts observing the cache file for mutations made by other
// processes. Watching a memory-only cache is a no-op.
func (c *Cache) Watch() error {
	c.mu.Lock()
	if c.path == "" || c.watcher != nil {
		c.mu.Unlock()
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		c.mu.Unlock()
		return err
	}
	// Watch the directory, not the file: atomic renames replace the inode.
	if err := watcher.Add(filepath.Dir(c.path)); err != nil {
		watcher.Close()
		c.mu.Unlock()
		return err
	}

	c.watcher = watcher
	c.watchDone = make(chan struct{})
	done := c.watchDone
	c.mu.Unlock()

	go c.watchLoop(watcher, done)
	return nil
}

// watchLoop reloads the session file on relevant filesystem events.
func (c *Cache) watchLoop(watcher *fsnotify.Watcher, done chan struct{}) {
	defer close(done)

	for {
		select {
		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) != cacheFileName {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			c.reload()
		case _, ok := <-watcher.Errors:
			if !ok {
				return
			}
			// Watch errors degrade to in-process notification only.
		}
	}
}

// reload re-reads the file and notifies listeners if the session actually
// changed. Skipping identical content suppresses the echo of our own writes.
func (c *Cache) reload() {
	c.mu.Lock()
	next := readSessionFile(c.path)
	if next == c.cur {
		c.mu.Unlock()
		return
	}
	c.cur = next
	c.mu.Unlock()

	c.notify()
}

// Close stops the cross-process watch. The cache itself remains usable.
func (c *Cache) Close() error {
	c.mu.Lock()
	watcher := c.watcher
	done := c.watchDone
	c.watcher = nil
	c.watchDone = nil
	c.mu.Unlock()

	if watcher == nil {
		return nil
	}
	err := watcher.Close()
	<-done
	return err
}
