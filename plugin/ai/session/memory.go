package session

import (
	"context"
	"sync"
	"time"

	"github.com/hrygo/tutorvoice/plugin/ai"
)

// MemoryStore keeps sessions in process memory. Everything is lost on restart.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*memorySession
	now      func() time.Time
}

type memorySession struct {
	history   ai.History
	updatedAt time.Time
}

// NewMemoryStore creates an empty in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*memorySession),
		now:      time.Now,
	}
}

func (m *MemoryStore) LoadHistory(_ context.Context, sessionID string) (ai.History, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[sessionID]
	if !ok {
		return ai.History{}, nil
	}
	return s.history.Clone(), nil
}

func (m *MemoryStore) SaveHistory(_ context.Context, sessionID string, history ai.History) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sessions[sessionID] = &memorySession{
		history:   history.Clone(),
		updatedAt: m.now(),
	}
	return nil
}

func (m *MemoryStore) ResetHistory(ctx context.Context, sessionID string) error {
	return m.DeleteSession(ctx, sessionID)
}

func (m *MemoryStore) DeleteSession(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, sessionID)
	return nil
}

func (m *MemoryStore) CleanupExpired(_ context.Context, retention time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.now().Add(-retention)
	var deleted int64
	for id, s := range m.sessions {
		if s.updatedAt.Before(cutoff) {
			delete(m.sessions, id)
			deleted++
		}
	}
	return deleted, nil
}

// Len returns the number of live sessions.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

var _ SessionService = (*MemoryStore)(nil)
