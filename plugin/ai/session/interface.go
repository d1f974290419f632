// Package session persists per-session conversation history.
package session

import (
	"context"
	"time"

	"github.com/hrygo/tutorvoice/plugin/ai"
)

// SessionService defines the session persistence service interface.
type SessionService interface {
	// LoadHistory returns the stored history for a session.
	// An unknown session yields an empty history and no error.
	LoadHistory(ctx context.Context, sessionID string) (ai.History, error)

	// SaveHistory replaces the stored history for a session.
	SaveHistory(ctx context.Context, sessionID string, history ai.History) error

	// ResetHistory sets the stored history to empty. Nothing is stored for a
	// session whose history is empty.
	ResetHistory(ctx context.Context, sessionID string) error

	// DeleteSession removes the session entirely. Deleting an unknown session is not an error.
	DeleteSession(ctx context.Context, sessionID string) error

	// CleanupExpired removes sessions idle for longer than retention and reports how many were removed.
	CleanupExpired(ctx context.Context, retention time.Duration) (int64, error)
}
