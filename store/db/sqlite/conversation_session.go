package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hrygo/tutorvoice/store"
)

func (d *DB) UpsertConversationSession(ctx context.Context, upsert *store.UpsertConversationSession) (*store.ConversationSession, error) {
	now := time.Now().Unix()

	stmt := `INSERT INTO conversation_session (session_id, history, created_ts, updated_ts)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (session_id) DO UPDATE SET
			history = excluded.history,
			updated_ts = excluded.updated_ts
		RETURNING session_id, history, created_ts, updated_ts`

	result := &store.ConversationSession{}
	err := d.db.QueryRowContext(ctx, stmt, upsert.SessionID, upsert.History, now, now).Scan(
		&result.SessionID,
		&result.History,
		&result.CreatedTs,
		&result.UpdatedTs,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert conversation_session: %w", err)
	}

	return result, nil
}

func (d *DB) GetConversationSession(ctx context.Context, find *store.FindConversationSession) (*store.ConversationSession, error) {
	if find.SessionID == "" {
		return nil, fmt.Errorf("session_id is required")
	}

	query := `SELECT session_id, history, created_ts, updated_ts FROM conversation_session WHERE session_id = ?`

	result := &store.ConversationSession{}
	err := d.db.QueryRowContext(ctx, query, find.SessionID).Scan(
		&result.SessionID,
		&result.History,
		&result.CreatedTs,
		&result.UpdatedTs,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get conversation_session: %w", err)
	}

	return result, nil
}

func (d *DB) DeleteConversationSession(ctx context.Context, delete *store.DeleteConversationSession) error {
	if _, err := d.db.ExecContext(ctx, `DELETE FROM conversation_session WHERE session_id = ?`, delete.SessionID); err != nil {
		return fmt.Errorf("failed to delete conversation_session: %w", err)
	}
	return nil
}

func (d *DB) DeleteExpiredConversationSessions(ctx context.Context, delete *store.DeleteExpiredConversationSessions) (int64, error) {
	result, err := d.db.ExecContext(ctx, `DELETE FROM conversation_session WHERE updated_ts < ?`, delete.UpdatedBefore)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired conversation_session: %w", err)
	}
	return result.RowsAffected()
}
