package store

import (
	"context"

	"github.com/hrygo/tutorvoice/internal/profile"
)

// Store provides database access to all raw objects.
type Store struct {
	profile *profile.Profile
	driver  Driver
}

// New creates a new instance of Store.
func New(driver Driver, profile *profile.Profile) *Store {
	return &Store{
		driver:  driver,
		profile: profile,
	}
}

func (s *Store) GetDriver() Driver {
	return s.driver
}

func (s *Store) Close() error {
	return s.driver.Close()
}

func (s *Store) UpsertConversationSession(ctx context.Context, upsert *UpsertConversationSession) (*ConversationSession, error) {
	return s.driver.UpsertConversationSession(ctx, upsert)
}

func (s *Store) GetConversationSession(ctx context.Context, find *FindConversationSession) (*ConversationSession, error) {
	return s.driver.GetConversationSession(ctx, find)
}

func (s *Store) DeleteConversationSession(ctx context.Context, delete *DeleteConversationSession) error {
	return s.driver.DeleteConversationSession(ctx, delete)
}

func (s *Store) DeleteExpiredConversationSessions(ctx context.Context, delete *DeleteExpiredConversationSessions) (int64, error) {
	return s.driver.DeleteExpiredConversationSessions(ctx, delete)
}
