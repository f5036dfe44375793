package httptransport

import (
	"sync"
	"time"
)

// Session is one HTTP-transport session, created by a successful
// initialize call and torn down by DELETE, inactivity expiry, or process
// stop.
type Session struct {
	ID              string
	ProtocolVersion string
	CreatedAt       time.Time
	LastActivity    time.Time
	Initialized     bool
	Active          bool
}

type sessionTable struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	max      int
	timeout  time.Duration
}

func newSessionTable(max int, timeout time.Duration) *sessionTable {
	return &sessionTable{sessions: make(map[string]*Session), max: max, timeout: timeout}
}

// Create inserts a new session, reaping expired entries first if the table
// is at capacity.
func (t *sessionTable) Create(id, protocolVersion string) *Session {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.sessions) >= t.max {
		t.reapExpiredLocked()
	}

	now := time.Now()
	s := &Session{ID: id, ProtocolVersion: protocolVersion, CreatedAt: now, LastActivity: now, Active: true}
	t.sessions[id] = s
	return s
}

// Get returns the session for id, or nil if unknown or expired (expired
// sessions are reaped on read).
func (t *sessionTable) Get(id string) *Session {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.sessions[id]
	if !ok {
		return nil
	}
	if time.Since(s.LastActivity) > t.timeout {
		delete(t.sessions, id)
		return nil
	}
	return s
}

// Touch updates last-activity for id to now. No-op if id is unknown.
func (t *sessionTable) Touch(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if s, ok := t.sessions[id]; ok {
		s.LastActivity = time.Now()
	}
}

// MarkInitialized flags id as having received notifications/initialized.
func (t *sessionTable) MarkInitialized(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if s, ok := t.sessions[id]; ok {
		s.Initialized = true
	}
}

// Delete removes id unconditionally. Returns true if it existed.
func (t *sessionTable) Delete(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.sessions[id]
	delete(t.sessions, id)
	return ok
}

// Count returns the number of tracked sessions (including possibly-expired
// ones not yet reaped).
func (t *sessionTable) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.sessions)
}

func (t *sessionTable) reapExpiredLocked() {
	now := time.Now()
	for id, s := range t.sessions {
		if now.Sub(s.LastActivity) > t.timeout {
			delete(t.sessions, id)
		}
	}
}

// ReapExpired removes every session whose inactivity exceeds the
// configured timeout and returns their ids, so callers can also drop
// associated SSE connections.
func (t *sessionTable) ReapExpired() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	var expired []string
	now := time.Now()
	for id, s := range t.sessions {
		if now.Sub(s.LastActivity) > t.timeout {
			expired = append(expired, id)
			delete(t.sessions, id)
		}
	}
	return expired
}
