package tutor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/tutorvoice/plugin/ai"
	aierrors "github.com/hrygo/tutorvoice/server/internal/errors"
	"github.com/hrygo/tutorvoice/server/internal/observability"
)

func TestNewTranslator_RequiresLLM(t *testing.T) {
	_, err := NewTranslator(nil, nil, 0)
	assert.Error(t, err)
}

func TestTranslate(t *testing.T) {
	llm := &fakeLLM{reply: "Thank you."}
	metrics := observability.NewMetrics()
	tr, err := NewTranslator(llm, metrics, 0)
	require.NoError(t, err)

	got, err := tr.Translate(context.Background(), "감사합니다")
	require.NoError(t, err)
	assert.Equal(t, "Thank you.", got)

	assert.Equal(t, []ai.Message{
		{Role: ai.RoleSystem, Content: "You are a translator. Translate the given Korean text to English."},
		{Role: ai.RoleUser, Content: "Translate this to English: 감사합니다"},
	}, llm.lastRequest())
	assert.Equal(t, 1.0, counterValue(t, metrics, "tutorvoice_translations_total", observability.OutcomeSuccess))
}

func TestTranslate_IsStateless(t *testing.T) {
	llm := &fakeLLM{reply: "ok"}
	tr, err := NewTranslator(llm, nil, 0)
	require.NoError(t, err)

	_, err = tr.Translate(context.Background(), "하나")
	require.NoError(t, err)
	_, err = tr.Translate(context.Background(), "둘")
	require.NoError(t, err)

	assert.Len(t, llm.lastRequest(), 2)
	assert.Equal(t, "Translate this to English: 둘", llm.lastRequest()[1].Content)
}

func TestTranslate_Failure(t *testing.T) {
	llm := &fakeLLM{err: errUpstream}
	metrics := observability.NewMetrics()
	tr, err := NewTranslator(llm, metrics, 0)
	require.NoError(t, err)

	got, err := tr.Translate(context.Background(), "감사합니다")
	require.Error(t, err)
	assert.Empty(t, got)
	assert.True(t, aierrors.IsCode(err, aierrors.ErrCodeExternalAPIFailure))
	assert.Equal(t, 1.0, counterValue(t, metrics, "tutorvoice_translations_total", observability.OutcomeFailure))
}

func TestTranslate_Timeout(t *testing.T) {
	llm := &fakeLLM{reply: "late", delay: time.Second}
	tr, err := NewTranslator(llm, nil, 10*time.Millisecond)
	require.NoError(t, err)

	_, err = tr.Translate(context.Background(), "감사합니다")
	require.Error(t, err)
	assert.True(t, aierrors.IsCode(err, aierrors.ErrCodeTimeout))
}
