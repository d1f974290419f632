package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/pkg/errors"

	"github.com/hrygo/tutorvoice/plugin/ai"
	"github.com/hrygo/tutorvoice/plugin/ai/cache"
	"github.com/hrygo/tutorvoice/store"
)

const (
	cachePrefix = "session:"
	cacheTTL    = 30 * time.Minute
)

// sessionStore implements SessionService with SQL persistence and caching.
type sessionStore struct {
	store *store.Store
	cache cache.CacheService
}

// NewSessionStore creates a new session store with database and cache.
// cache may be nil.
func NewSessionStore(store *store.Store, cache cache.CacheService) SessionService {
	return &sessionStore{
		store: store,
		cache: cache,
	}
}

// LoadHistory loads the conversation history.
func (s *sessionStore) LoadHistory(ctx context.Context, sessionID string) (ai.History, error) {
	if cached, ok := s.loadFromCache(ctx, sessionID); ok {
		return cached, nil
	}

	row, err := s.store.GetConversationSession(ctx, &store.FindConversationSession{SessionID: sessionID})
	if err != nil {
		return nil, errors.Wrap(err, "failed to load history")
	}
	if row == nil {
		return ai.History{}, nil // New session
	}

	history, err := decodeHistory(row.History)
	if err != nil {
		// A corrupt row starts the learner over rather than wedging the session.
		slog.Warn("failed to decode stored history", "session_id", sessionID, "error", err)
		return ai.History{}, nil
	}

	s.updateCache(ctx, sessionID, row.History)
	return history, nil
}

// SaveHistory saves the conversation history.
func (s *sessionStore) SaveHistory(ctx context.Context, sessionID string, history ai.History) error {
	data, err := encodeHistory(history)
	if err != nil {
		return err
	}

	if _, err := s.store.UpsertConversationSession(ctx, &store.UpsertConversationSession{
		SessionID: sessionID,
		History:   data,
	}); err != nil {
		s.invalidateCache(ctx, sessionID)
		return errors.Wrap(err, "failed to save history")
	}

	s.updateCache(ctx, sessionID, data)
	return nil
}

// ResetHistory empties the conversation history. An absent row already loads
// as an empty history, so the row is dropped rather than rewritten.
func (s *sessionStore) ResetHistory(ctx context.Context, sessionID string) error {
	if err := s.DeleteSession(ctx, sessionID); err != nil {
		return errors.Wrap(err, "failed to reset history")
	}
	return nil
}

// DeleteSession deletes a session.
func (s *sessionStore) DeleteSession(ctx context.Context, sessionID string) error {
	if err := s.store.DeleteConversationSession(ctx, &store.DeleteConversationSession{SessionID: sessionID}); err != nil {
		return errors.Wrap(err, "failed to delete session")
	}

	// Clear cache (idempotent - ok if not exists)
	s.invalidateCache(ctx, sessionID)
	return nil
}

// CleanupExpired removes sessions not updated within retention.
// Cached copies of removed sessions age out through the cache TTL.
func (s *sessionStore) CleanupExpired(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention).Unix()

	deleted, err := s.store.DeleteExpiredConversationSessions(ctx, &store.DeleteExpiredConversationSessions{
		UpdatedBefore: cutoff,
	})
	if err != nil {
		return 0, errors.Wrap(err, "failed to cleanup expired sessions")
	}
	return deleted, nil
}

// loadFromCache retrieves history from cache.
func (s *sessionStore) loadFromCache(ctx context.Context, sessionID string) (ai.History, bool) {
	if s.cache == nil {
		return nil, false
	}

	data, ok := s.cache.Get(ctx, cachePrefix+sessionID)
	if !ok {
		return nil, false
	}

	history, err := decodeHistory(string(data))
	if err != nil {
		s.invalidateCache(ctx, sessionID)
		return nil, false
	}
	return history, true
}

// updateCache stores the encoded history in cache.
func (s *sessionStore) updateCache(ctx context.Context, sessionID, data string) {
	if s.cache == nil {
		return
	}

	key := cachePrefix + sessionID
	if err := s.cache.Set(ctx, key, []byte(data), cacheTTL); err != nil {
		slog.Warn("failed to cache history", "key", key, "error", err)
	}
}

// invalidateCache removes history from cache.
func (s *sessionStore) invalidateCache(ctx context.Context, sessionID string) {
	if s.cache == nil {
		return
	}

	key := cachePrefix + sessionID
	if err := s.cache.Invalidate(ctx, key); err != nil {
		slog.Warn("failed to invalidate cache", "key", key, "error", err)
	}
}

// Ensure sessionStore implements SessionService
var _ SessionService = (*sessionStore)(nil)
