package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"
)

// MemoryStore keeps sessions in-memory with TTL-based cleanup.
// It is thread-safe; a single mutex serializes all writes, which also
// serializes writes per session key.
type MemoryStore struct {
	mu            sync.RWMutex
	sessions      map[string]*Session // sessionID -> Session
	ttl           time.Duration
	now           func() time.Time
	cleanupTicker *time.Ticker
	stopCleanup   chan struct{}
	stopOnce      sync.Once
}

// NewMemoryStore creates a new in-memory store with the specified TTL.
// It automatically starts a background cleanup goroutine that runs every minute.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	m := &MemoryStore{
		sessions:      make(map[string]*Session),
		ttl:           ttl,
		now:           time.Now,
		cleanupTicker: time.NewTicker(1 * time.Minute),
		stopCleanup:   make(chan struct{}),
	}

	// Start cleanup goroutine
	go m.cleanupLoop()

	return m
}

// Stop stops the store's cleanup goroutine.
// Call this when shutting down the server.
func (m *MemoryStore) Stop() {
	m.stopOnce.Do(func() {
		m.cleanupTicker.Stop()
		close(m.stopCleanup)
	})
}

// Create creates a new anonymous session.
// The session ID is generated using crypto/rand (64 hex characters).
func (m *MemoryStore) Create(_ context.Context) (*Session, error) {
	sessionID, err := generateSessionID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	now := m.now()
	session := &Session{
		ID:        sessionID,
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}

	m.mu.Lock()
	m.sessions[sessionID] = session
	m.mu.Unlock()

	return session.clone(), nil
}

// Get retrieves a copy of a session by its ID.
// Returns an error if the session is not found or has expired.
func (m *MemoryStore) Get(_ context.Context, id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, err := m.lookup(id)
	if err != nil {
		return nil, err
	}

	return session.clone(), nil
}

// Update applies fn to a working copy of the session and stores the result
// if fn succeeds. The ID and timestamps cannot be changed by fn.
func (m *MemoryStore) Update(_ context.Context, id string, fn func(*Session) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, err := m.lookup(id)
	if err != nil {
		return err
	}

	working := session.clone()
	if err := fn(working); err != nil {
		return err
	}

	working.ID = session.ID
	working.CreatedAt = session.CreatedAt
	working.ExpiresAt = session.ExpiresAt
	m.sessions[id] = working

	return nil
}

// Destroy removes a session from the store.
func (m *MemoryStore) Destroy(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, id)
	return nil
}

// Count returns the current number of stored sessions.
// Useful for monitoring and testing.
func (m *MemoryStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.sessions)
}

// lookup must be called with mu held.
func (m *MemoryStore) lookup(id string) (*Session, error) {
	session, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}

	// Check expiry
	if m.now().After(session.ExpiresAt) {
		return nil, ErrExpired
	}

	return session, nil
}

// generateSessionID generates a cryptographically secure random session ID.
// The ID is 64 hex characters (32 random bytes).
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
