package observability

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestContextLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	reqCtx := NewRequestContextWithID(logger, "req-1", "turn", "sess-1")
	reqCtx.Info("turn started", slog.Int(LogFieldMessageLen, 5))
	reqCtx.Error("turn failed", errors.New("boom"))

	out := buf.String()
	assert.Contains(t, out, `"request_id":"req-1"`)
	assert.Contains(t, out, `"session_id":"sess-1"`)
	assert.Contains(t, out, `"operation":"turn"`)
	assert.Contains(t, out, `"message_length":5`)
	assert.Contains(t, out, `"error":"boom"`)
}

func TestRequestContextOmitsEmptySession(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	NewRequestContext(logger, "translate", "").Info("translated")
	assert.NotContains(t, buf.String(), LogFieldSessionID)
}

func TestContextRoundTrip(t *testing.T) {
	reqCtx := NewRequestContext(slog.Default(), "http", "")
	ctx := WithRequestContext(context.Background(), reqCtx)

	got, ok := FromContext(ctx)
	require.True(t, ok)
	assert.Same(t, reqCtx, got)

	derived := FromContextOrNew(ctx, "turn", "sess-9")
	assert.Equal(t, reqCtx.RequestID, derived.RequestID)
	assert.Equal(t, "turn", derived.Operation)
	assert.Equal(t, "sess-9", derived.SessionID)
	assert.Equal(t, "http", reqCtx.Operation, "the stored context is not mutated")

	fresh := FromContextOrNew(context.Background(), "translate", "")
	assert.NotEmpty(t, fresh.RequestID)
	assert.NotEqual(t, reqCtx.RequestID, fresh.RequestID)
}

func TestMetrics(t *testing.T) {
	m := NewMetrics()

	m.RecordTurn(OutcomeSuccess)
	m.RecordTurn(OutcomeSuccess)
	m.RecordTurn(OutcomeFailure)
	m.RecordTranslation(OutcomeSuccess)
	m.ObserveUpstream(UpstreamCompletion, nil, 120*time.Millisecond)
	m.ObserveUpstream(UpstreamSpeech, errors.New("boom"), time.Second)
	m.ObserveHistory(4)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.turns.WithLabelValues(OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.turns.WithLabelValues(OutcomeFailure)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.translations.WithLabelValues(OutcomeSuccess)))
	assert.Equal(t, 2, testutil.CollectAndCount(m.upstreamDuration))

	families, err := m.Registry().Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordTurn(OutcomeSuccess)
		m.RecordTranslation(OutcomeFailure)
		m.ObserveUpstream(UpstreamSpeech, nil, time.Millisecond)
		m.ObserveHistory(2)
	})
}
