package session

import (
	"log/slog"
)

// cleanupLoop runs in a background goroutine and periodically cleans up expired sessions.
// It runs every minute (configured by cleanupTicker) and stops when the stopCleanup channel is closed.
func (m *MemoryStore) cleanupLoop() {
	for {
		select {
		case <-m.cleanupTicker.C:
			m.cleanup()
		case <-m.stopCleanup:
			return
		}
	}
}

// cleanup removes all expired sessions from the store.
// Expired sessions are destroyed whole, including any tokens they hold.
func (m *MemoryStore) cleanup() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	expiredCount := 0

	for sessionID, session := range m.sessions {
		if now.After(session.ExpiresAt) {
			if session.Flow != nil {
				slog.Debug("session expired with a pending login")
			}

			delete(m.sessions, sessionID)
			expiredCount++
		}
	}

	if expiredCount > 0 {
		slog.Info("cleaned up expired sessions", "count", expiredCount)
	}
}
