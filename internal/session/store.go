package session

import (
	"sync"
	"time"
)

// Store is the concurrent session registry. Grounded on the teacher's
// mutex-protected-map idiom (catalog_cache.go's
// CatalogCache{mu sync.RWMutex, ...}) — this is a
// single-writer-dominant register/deregister shape, not the hot-read
// path the catalog cache is, so a plain map + RWMutex is the right
// tool rather than a third-party concurrent map.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	windowSecs int
}

func NewStore(windowSecs int) *Store {
	return &Store{
		sessions:   make(map[string]*Session),
		windowSecs: windowSecs,
	}
}

// GetOrCreate is idempotent: it refreshes expiry on a hit, and only
// creates on a miss — matching
// original_source/crates/api-snowflake-rest-sessions/src/session.rs's
// get_or_create_session (update_session_expiry first, create only on
// miss).
func (s *Store) GetOrCreate(id string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions[id]; ok {
		sess.Refresh(s.windowSecs)
		return sess
	}
	sess := New(id, s.windowSecs)
	s.sessions[id] = sess
	return sess
}

// Get returns the session for id, or (nil, false) if unknown or
// expired as of now.
func (s *Store) Get(id string) (*Session, bool) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if sess.Expired(time.Now()) {
		return nil, false
	}
	return sess, true
}

// UpdateExpiry refreshes id's expiry, returning true iff the session
// existed (spec §4.3 update_session_expiry).
func (s *Store) UpdateExpiry(id string) bool {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return false
	}
	sess.Refresh(s.windowSecs)
	return true
}

// DeleteExpired removes all sessions with expiry <= now, returning the
// count evicted (sweeper driver, spec §4.8).
func (s *Store) DeleteExpired() int {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for id, sess := range s.sessions {
		if now.Unix() >= sess.ExpiryUnix() {
			delete(s.sessions, id)
			evicted++
		}
	}
	return evicted
}

// Sessions returns a snapshot view of all registered sessions.
func (s *Store) Sessions() []*Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, sess)
	}
	return out
}

func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}
