package browser

import (
	"container/list"
	"fmt"
	"sync"

	"github.com/demon2036/browser-mcp/pkg/logging"
)

// ErrSessionNotFound is returned when an operation references a session id
// the store has no entry for and implicit creation is not valid, e.g. a
// click without a prior navigate.
var ErrSessionNotFound = fmt.Errorf("no active session")

// SessionStore is a capacity-bounded, LRU-ordered registry of browser
// sessions. It is the single synchronization point for session bookkeeping:
// lookup-and-refresh, insert, evict and remove all run under one mutex so an
// eviction can never interleave with an insertion.
//
// The LRU order lives in a doubly-linked list (front = least recently
// touched) with a hashmap from session id to list element. A session counts
// as "touched" when it is looked up for use by navigate or click, not
// merely created.
type SessionStore struct {
	mu       sync.Mutex
	engine   Engine
	capacity int
	order    *list.List
	entries  map[string]*list.Element
	log      *logging.Logger
}

type storeEntry struct {
	id      string
	session Session
}

// NewSessionStore creates a store backed by engine with the given capacity.
// A capacity below one falls back to DefaultMaxSessions.
func NewSessionStore(engine Engine, capacity int) *SessionStore {
	if capacity < 1 {
		capacity = DefaultMaxSessions
	}
	logger, _ := logging.NewLogger("store")
	return &SessionStore{
		engine:   engine,
		capacity: capacity,
		order:    list.New(),
		entries:  make(map[string]*list.Element),
		log:      logger,
	}
}

// GetOrCreate returns the session for id, refreshed to most-recently-used,
// creating it if absent. When the store is at capacity the least-recently
// touched session is evicted and its resources released before the new
// entry is admitted; eviction and admission are atomic with respect to
// other store operations.
func (s *SessionStore) GetOrCreate(id string) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if elem, ok := s.entries[id]; ok {
		s.order.MoveToBack(elem)
		return elem.Value.(*storeEntry).session, nil
	}

	if s.order.Len() >= s.capacity {
		s.evictOldestLocked()
	}

	session, err := s.engine.NewSession(id)
	if err != nil {
		return nil, fmt.Errorf("failed to create session %q: %w", id, err)
	}

	s.entries[id] = s.order.PushBack(&storeEntry{id: id, session: session})
	s.log.Infof("created session: %s", id)
	return session, nil
}

// Get returns the session for id, refreshed to most-recently-used, or
// ErrSessionNotFound if the store has no entry for it.
func (s *SessionStore) Get(id string) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	elem, ok := s.entries[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	s.order.MoveToBack(elem)
	return elem.Value.(*storeEntry).session, nil
}

// Remove closes and drops the session for id, if present.
func (s *SessionStore) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	elem, ok := s.entries[id]
	if !ok {
		return
	}
	entry := elem.Value.(*storeEntry)
	s.order.Remove(elem)
	delete(s.entries, id)
	entry.session.Close()
	s.log.Infof("closed session: %s", id)
}

// Len returns the number of live sessions.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.order.Len()
}

// CloseAll closes every session, then the engine. It is idempotent and safe
// to call even if no session was ever created. Close errors are logged and
// swallowed so shutdown never fails a caller.
func (s *SessionStore) CloseAll() {
	s.mu.Lock()
	for s.order.Len() > 0 {
		elem := s.order.Front()
		entry := elem.Value.(*storeEntry)
		s.order.Remove(elem)
		delete(s.entries, entry.id)
		entry.session.Close()
	}
	s.mu.Unlock()

	if err := s.engine.Close(); err != nil {
		s.log.Warnf("error closing engine: %v", err)
	}
}

// evictOldestLocked removes the least-recently-touched session and releases
// its resources. Callers must hold s.mu.
func (s *SessionStore) evictOldestLocked() {
	elem := s.order.Front()
	if elem == nil {
		return
	}
	entry := elem.Value.(*storeEntry)
	s.order.Remove(elem)
	delete(s.entries, entry.id)
	entry.session.Close()
	s.log.Infof("evicted session: %s", entry.id)
}
