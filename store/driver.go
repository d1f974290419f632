package store

import (
	"context"
	"database/sql"
)

// Driver is an interface for store driver.
// It contains all methods that store database driver should implement.
type Driver interface {
	GetDB() *sql.DB
	Close() error

	IsInitialized(ctx context.Context) (bool, error)

	// ConversationSession model related methods.
	UpsertConversationSession(ctx context.Context, upsert *UpsertConversationSession) (*ConversationSession, error)
	GetConversationSession(ctx context.Context, find *FindConversationSession) (*ConversationSession, error)
	DeleteConversationSession(ctx context.Context, delete *DeleteConversationSession) error
	DeleteExpiredConversationSessions(ctx context.Context, delete *DeleteExpiredConversationSessions) (int64, error)
}
