package sessions

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	mu        sync.Mutex
	sess      Session
	expiresAt time.Time
	removed   bool
}

// MemoryStore is a process-local Store. Each key has its own lock so
// handlers for different calls never contend.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
	ttl     time.Duration
	clock   func() time.Time
}

// NewMemoryStore returns a store whose sessions expire after ttl of inactivity.
// A zero ttl disables expiry.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{entries: map[string]*memoryEntry{}, ttl: ttl, clock: time.Now}
}

func (m *MemoryStore) expired(e *memoryEntry, now time.Time) bool {
	return m.ttl > 0 && now.After(e.expiresAt)
}

func (m *MemoryStore) Create(ctx context.Context, s Session) error {
	if s.CallID == "" {
		return ErrNotFound
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.clock()
	if e, ok := m.entries[s.CallID]; ok && !m.expired(e, now) {
		return ErrExists
	}
	m.entries[s.CallID] = &memoryEntry{sess: s.clone(), expiresAt: now.Add(m.ttl)}
	return nil
}

// lookup returns the live entry for callID, locked. Callers must unlock.
func (m *MemoryStore) lookup(callID string) (*memoryEntry, bool) {
	m.mu.Lock()
	e, ok := m.entries[callID]
	if ok && m.expired(e, m.clock()) {
		delete(m.entries, callID)
		ok = false
	}
	m.mu.Unlock()
	if !ok {
		return nil, false
	}
	e.mu.Lock()
	if e.removed {
		e.mu.Unlock()
		return nil, false
	}
	return e, true
}

func (m *MemoryStore) Get(ctx context.Context, callID string) (Session, error) {
	e, ok := m.lookup(callID)
	if !ok {
		return Session{}, ErrNotFound
	}
	defer e.mu.Unlock()
	return e.sess.clone(), nil
}

func (m *MemoryStore) Update(ctx context.Context, callID string, fn func(*Session) error) (Session, error) {
	e, ok := m.lookup(callID)
	if !ok {
		return Session{}, ErrNotFound
	}
	defer e.mu.Unlock()

	next := e.sess.clone()
	if err := fn(&next); err != nil {
		return Session{}, err
	}
	e.sess = next
	e.expiresAt = m.clock().Add(m.ttl)
	return next.clone(), nil
}

func (m *MemoryStore) Take(ctx context.Context, callID string) (Session, bool, error) {
	m.mu.Lock()
	e, ok := m.entries[callID]
	if ok {
		delete(m.entries, callID)
	}
	m.mu.Unlock()
	if !ok {
		return Session{}, false, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.removed || m.expired(e, m.clock()) {
		return Session{}, false, nil
	}
	e.removed = true
	return e.sess.clone(), true, nil
}

// Len reports the number of live sessions.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
