package tutor

import (
	"context"
	"encoding/base64"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/tutorvoice/plugin/ai"
	"github.com/hrygo/tutorvoice/plugin/ai/session"
	"github.com/hrygo/tutorvoice/plugin/ai/window"
	aierrors "github.com/hrygo/tutorvoice/server/internal/errors"
	"github.com/hrygo/tutorvoice/server/internal/observability"
)

type turnFixture struct {
	llm      *fakeLLM
	speech   *fakeSpeech
	sessions session.SessionService
	metrics  *observability.Metrics
	svc      *TurnService
}

func newTurnFixture(t *testing.T, sessions session.SessionService) *turnFixture {
	t.Helper()
	if sessions == nil {
		sessions = session.NewMemoryStore()
	}
	f := &turnFixture{
		llm:      &fakeLLM{reply: "안녕하세요! 반가워요."},
		speech:   &fakeSpeech{audio: []byte{0xff, 0xfb, 0x90, 0x00, 0x01}},
		sessions: sessions,
		metrics:  observability.NewMetrics(),
	}
	svc, err := NewTurnService(TurnServiceConfig{
		LLM:      f.llm,
		Speech:   f.speech,
		Sessions: sessions,
		Window:   window.NewBuilder(DefaultPersona, window.DefaultMaxMessages),
		Metrics:  f.metrics,
	})
	require.NoError(t, err)
	f.svc = svc
	return f
}

func TestNewTurnService_Validation(t *testing.T) {
	_, err := NewTurnService(TurnServiceConfig{})
	assert.Error(t, err)

	_, err = NewTurnService(TurnServiceConfig{LLM: &fakeLLM{}})
	assert.Error(t, err)

	_, err = NewTurnService(TurnServiceConfig{LLM: &fakeLLM{}, Speech: &fakeSpeech{}})
	assert.Error(t, err)

	svc, err := NewTurnService(TurnServiceConfig{LLM: &fakeLLM{}, Speech: &fakeSpeech{}, Sessions: session.NewMemoryStore()})
	require.NoError(t, err)
	assert.Equal(t, DefaultPersona, svc.window.System().Content)
}

func TestHandleTurn_FirstMessage(t *testing.T) {
	ctx := context.Background()
	f := newTurnFixture(t, nil)

	result, err := f.svc.HandleTurn(ctx, "s1", "안녕")
	require.NoError(t, err)
	assert.Equal(t, "안녕하세요! 반가워요.", result.Message)

	// The request is the persona plus the new message.
	assert.Equal(t, []ai.Message{ai.SystemPrompt(DefaultPersona), ai.UserMessage("안녕")}, f.llm.lastRequest())

	history, err := f.sessions.LoadHistory(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, ai.History{ai.UserMessage("안녕"), ai.AssistantMessage("안녕하세요! 반가워요.")}, history)

	assert.Equal(t, 1.0, counterValue(t, f.metrics, "tutorvoice_turns_total", observability.OutcomeSuccess))
}

func TestHandleTurn_AudioRoundTrip(t *testing.T) {
	f := newTurnFixture(t, nil)
	audio := make([]byte, 1021)
	for i := range audio {
		audio[i] = byte(i * 7)
	}
	f.speech.audio = audio

	result, err := f.svc.HandleTurn(context.Background(), "s1", "노래해 줘")
	require.NoError(t, err)

	decoded, err := base64.StdEncoding.DecodeString(result.Audio)
	require.NoError(t, err)
	assert.Equal(t, audio, decoded)
}

func TestHandleTurn_WindowAfterManyTurns(t *testing.T) {
	ctx := context.Background()
	f := newTurnFixture(t, nil)

	for i := 0; i < 5; i++ {
		f.llm.reply = fmt.Sprintf("reply-%d", i)
		_, err := f.svc.HandleTurn(ctx, "s1", fmt.Sprintf("msg-%d", i))
		require.NoError(t, err)
	}

	f.llm.reply = "reply-5"
	_, err := f.svc.HandleTurn(ctx, "s1", "msg-5")
	require.NoError(t, err)

	req := f.llm.lastRequest()
	require.Len(t, req, 10)
	assert.Equal(t, ai.RoleSystem, req[0].Role)
	assert.Equal(t, "msg-1", req[1].Content)
	assert.Equal(t, "msg-5", req[9].Content)

	// The stored transcript is never truncated.
	history, err := f.sessions.LoadHistory(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, history, 12)
}

func TestHandleTurn_CompletionFailureLeavesSession(t *testing.T) {
	ctx := context.Background()
	f := newTurnFixture(t, nil)
	prior := ai.History{ai.UserMessage("이전"), ai.AssistantMessage("네")}
	require.NoError(t, f.sessions.SaveHistory(ctx, "s1", prior))
	f.llm.err = errUpstream

	result, err := f.svc.HandleTurn(ctx, "s1", "안녕")
	require.Error(t, err)
	assert.Nil(t, result)
	assert.True(t, aierrors.IsCode(err, aierrors.ErrCodeExternalAPIFailure))
	assert.ErrorIs(t, err, errUpstream)
	assert.Zero(t, f.speech.calls)

	history, err := f.sessions.LoadHistory(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, prior, history)

	assert.Equal(t, 1.0, counterValue(t, f.metrics, "tutorvoice_turns_total", observability.OutcomeFailure))
}

func TestHandleTurn_SpeechFailureKeepsReply(t *testing.T) {
	ctx := context.Background()
	f := newTurnFixture(t, nil)
	f.speech.err = errUpstream

	result, err := f.svc.HandleTurn(ctx, "s1", "안녕")
	require.Error(t, err)
	assert.Nil(t, result)
	assert.True(t, aierrors.IsCode(err, aierrors.ErrCodeExternalAPIFailure))

	history, err := f.sessions.LoadHistory(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestHandleTurn_EmptyAudioFailsTurn(t *testing.T) {
	ctx := context.Background()
	f := newTurnFixture(t, nil)
	f.speech.err = ai.ErrEmptyAudio

	result, err := f.svc.HandleTurn(ctx, "s1", "안녕")
	require.Error(t, err)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, ai.ErrEmptyAudio)
	assert.True(t, aierrors.IsCode(err, aierrors.ErrCodeExternalAPIFailure))

	history, err := f.sessions.LoadHistory(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestHandleTurn_CompletionTimeout(t *testing.T) {
	f := newTurnFixture(t, nil)
	f.llm.delay = time.Second
	svc, err := NewTurnService(TurnServiceConfig{
		LLM:               f.llm,
		Speech:            f.speech,
		Sessions:          f.sessions,
		CompletionTimeout: 20 * time.Millisecond,
	})
	require.NoError(t, err)

	_, err = svc.HandleTurn(context.Background(), "s1", "안녕")
	require.Error(t, err)
	assert.True(t, aierrors.IsCode(err, aierrors.ErrCodeTimeout))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestHandleTurn_StorageFailures(t *testing.T) {
	t.Run("Load", func(t *testing.T) {
		f := newTurnFixture(t, &failingSessions{SessionService: session.NewMemoryStore(), loadErr: errUpstream})

		_, err := f.svc.HandleTurn(context.Background(), "s1", "안녕")
		require.Error(t, err)
		assert.True(t, aierrors.IsCode(err, aierrors.ErrCodeStorageFailure))
		assert.Empty(t, f.llm.requests)
	})

	t.Run("Save", func(t *testing.T) {
		f := newTurnFixture(t, &failingSessions{SessionService: session.NewMemoryStore(), saveErr: errUpstream})

		_, err := f.svc.HandleTurn(context.Background(), "s1", "안녕")
		require.Error(t, err)
		assert.True(t, aierrors.IsCode(err, aierrors.ErrCodeStorageFailure))
		assert.Zero(t, f.speech.calls)
	})
}

func TestHandleTurn_RequiresSession(t *testing.T) {
	f := newTurnFixture(t, nil)

	_, err := f.svc.HandleTurn(context.Background(), "", "안녕")
	require.Error(t, err)
	assert.True(t, aierrors.IsCode(err, aierrors.ErrCodeInvalidArgument))
}

func TestHandleTurn_SessionsAreIsolated(t *testing.T) {
	ctx := context.Background()
	f := newTurnFixture(t, nil)

	_, err := f.svc.HandleTurn(ctx, "a", "하나")
	require.NoError(t, err)
	_, err = f.svc.HandleTurn(ctx, "b", "둘")
	require.NoError(t, err)

	assert.Equal(t, []ai.Message{ai.SystemPrompt(DefaultPersona), ai.UserMessage("둘")}, f.llm.lastRequest())
}

// counterValue reads one outcome of a counter from the metrics registry.
func counterValue(t *testing.T, m *observability.Metrics, name, outcome string) float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.GetMetric() {
			for _, label := range metric.GetLabel() {
				if label.GetName() == "outcome" && label.GetValue() == outcome {
					return metric.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}
