package session

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/tutorvoice/internal/profile"
	"github.com/hrygo/tutorvoice/plugin/ai"
	"github.com/hrygo/tutorvoice/plugin/ai/cache"
	"github.com/hrygo/tutorvoice/store"
	"github.com/hrygo/tutorvoice/store/db/sqlite"
)

func newSQLiteStore(t *testing.T) *store.Store {
	t.Helper()

	p := &profile.Profile{
		Mode:   "dev",
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "sessions.db"),
	}
	driver, err := sqlite.NewDB(p)
	require.NoError(t, err)

	s := store.New(driver, p)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func newCache(t *testing.T) *cache.Service {
	t.Helper()
	c := cache.NewService(cache.DefaultServiceConfig())
	t.Cleanup(c.Close)
	return c
}

func sampleHistory() ai.History {
	return ai.History{
		ai.UserMessage("안녕하세요"),
		ai.AssistantMessage("안녕하세요! 오늘 기분 어때요?"),
	}
}

// implementations runs the same contract against every SessionService.
func implementations(t *testing.T) map[string]SessionService {
	return map[string]SessionService{
		"memory":       NewMemoryStore(),
		"sqlite":       NewSessionStore(newSQLiteStore(t), nil),
		"sqlite+cache": NewSessionStore(newSQLiteStore(t), newCache(t)),
	}
}

func TestSessionService_Contract(t *testing.T) {
	for name, svc := range implementations(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			t.Run("UnknownSessionIsEmpty", func(t *testing.T) {
				h, err := svc.LoadHistory(ctx, "unknown")
				require.NoError(t, err)
				assert.NotNil(t, h)
				assert.Empty(t, h)
			})

			t.Run("SaveThenLoad", func(t *testing.T) {
				require.NoError(t, svc.SaveHistory(ctx, "s1", sampleHistory()))

				h, err := svc.LoadHistory(ctx, "s1")
				require.NoError(t, err)
				assert.Equal(t, sampleHistory(), h)
			})

			t.Run("SaveReplaces", func(t *testing.T) {
				longer := sampleHistory().Append(ai.UserMessage("배고파요"), ai.AssistantMessage("뭐 먹고 싶어요?"))
				require.NoError(t, svc.SaveHistory(ctx, "s1", longer))

				h, err := svc.LoadHistory(ctx, "s1")
				require.NoError(t, err)
				assert.Len(t, h, 4)
				last, ok := h.Last()
				require.True(t, ok)
				assert.Equal(t, "뭐 먹고 싶어요?", last.Content)
			})

			t.Run("SessionsAreIsolated", func(t *testing.T) {
				require.NoError(t, svc.SaveHistory(ctx, "s2", ai.History{ai.UserMessage("other")}))

				h, err := svc.LoadHistory(ctx, "s1")
				require.NoError(t, err)
				assert.Len(t, h, 4)
			})

			t.Run("Reset", func(t *testing.T) {
				require.NoError(t, svc.ResetHistory(ctx, "s1"))

				h, err := svc.LoadHistory(ctx, "s1")
				require.NoError(t, err)
				assert.Empty(t, h)
			})

			t.Run("Delete", func(t *testing.T) {
				require.NoError(t, svc.DeleteSession(ctx, "s2"))
				require.NoError(t, svc.DeleteSession(ctx, "s2"))

				h, err := svc.LoadHistory(ctx, "s2")
				require.NoError(t, err)
				assert.Empty(t, h)
			})

			t.Run("LoadedHistoryIsACopy", func(t *testing.T) {
				require.NoError(t, svc.SaveHistory(ctx, "s3", sampleHistory()))

				h, err := svc.LoadHistory(ctx, "s3")
				require.NoError(t, err)
				h[0].Content = "mutated"

				again, err := svc.LoadHistory(ctx, "s3")
				require.NoError(t, err)
				assert.Equal(t, sampleHistory(), again)
			})
		})
	}
}

func TestSessionStore_CacheHit(t *testing.T) {
	ctx := context.Background()
	c := newCache(t)
	svc := NewSessionStore(newSQLiteStore(t), c)

	require.NoError(t, svc.SaveHistory(ctx, "cached", sampleHistory()))

	_, err := svc.LoadHistory(ctx, "cached")
	require.NoError(t, err)
	assert.Equal(t, int64(1), c.Stats().Hits)
}

func TestSessionStore_CorruptRowStartsOver(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStore(t)
	svc := NewSessionStore(s, nil)

	_, err := s.UpsertConversationSession(ctx, &store.UpsertConversationSession{SessionID: "bad", History: "{not json"})
	require.NoError(t, err)

	h, err := svc.LoadHistory(ctx, "bad")
	require.NoError(t, err)
	assert.Empty(t, h)
}

func TestSessionStore_CleanupExpired(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStore(t)
	svc := NewSessionStore(s, nil)

	require.NoError(t, svc.SaveHistory(ctx, "old", sampleHistory()))
	require.NoError(t, svc.SaveHistory(ctx, "fresh", sampleHistory()))
	_, err := s.GetDriver().GetDB().ExecContext(ctx,
		`UPDATE conversation_session SET updated_ts = ? WHERE session_id = ?`,
		time.Now().Add(-72*time.Hour).Unix(), "old")
	require.NoError(t, err)

	deleted, err := svc.CleanupExpired(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
}

func TestMemoryStore_CleanupExpired(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	start := time.Unix(1_700_000_000, 0)
	m.now = func() time.Time { return start }

	require.NoError(t, m.SaveHistory(ctx, "old", sampleHistory()))

	m.now = func() time.Time { return start.Add(48 * time.Hour) }
	require.NoError(t, m.SaveHistory(ctx, "fresh", sampleHistory()))

	deleted, err := m.CleanupExpired(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
	assert.Equal(t, 1, m.Len())
}

func TestResetHistory_StoresNothing(t *testing.T) {
	ctx := context.Background()

	t.Run("sqlite", func(t *testing.T) {
		s := newSQLiteStore(t)
		svc := NewSessionStore(s, newCache(t))

		require.NoError(t, svc.ResetHistory(ctx, "visitor"))
		row, err := s.GetConversationSession(ctx, &store.FindConversationSession{SessionID: "visitor"})
		require.NoError(t, err)
		assert.Nil(t, row)

		require.NoError(t, svc.SaveHistory(ctx, "learner", sampleHistory()))
		require.NoError(t, svc.ResetHistory(ctx, "learner"))
		row, err = s.GetConversationSession(ctx, &store.FindConversationSession{SessionID: "learner"})
		require.NoError(t, err)
		assert.Nil(t, row)

		h, err := svc.LoadHistory(ctx, "learner")
		require.NoError(t, err)
		assert.Empty(t, h)
	})

	t.Run("memory", func(t *testing.T) {
		m := NewMemoryStore()
		require.NoError(t, m.SaveHistory(ctx, "learner", sampleHistory()))
		require.NoError(t, m.ResetHistory(ctx, "learner"))
		require.NoError(t, m.ResetHistory(ctx, "visitor"))
		assert.Zero(t, m.Len())
	})
}
