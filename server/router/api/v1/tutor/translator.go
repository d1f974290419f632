package tutor

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hrygo/tutorvoice/plugin/ai"
	"github.com/hrygo/tutorvoice/plugin/ai/timeout"
	"github.com/hrygo/tutorvoice/server/internal/observability"
)

const operationTranslate = "translate"

// Translator turns Korean text into English with a single completion.
// It keeps no state between calls.
type Translator struct {
	llm     ai.LLMService
	metrics *observability.Metrics
	timeout time.Duration
}

// NewTranslator creates a Translator. metrics may be nil.
func NewTranslator(llm ai.LLMService, metrics *observability.Metrics, callTimeout time.Duration) (*Translator, error) {
	if llm == nil {
		return nil, errors.New("llm service is required")
	}
	return &Translator{
		llm:     llm,
		metrics: metrics,
		timeout: timeout.Or(callTimeout, timeout.TranslateTimeout),
	}, nil
}

// Messages returns the request sent for text.
func (t *Translator) Messages(text string) []ai.Message {
	return []ai.Message{
		ai.SystemPrompt(TranslatorInstruction),
		ai.UserMessage(TranslatePrompt(text)),
	}
}

// Translate returns the English translation of text.
func (t *Translator) Translate(ctx context.Context, text string) (string, error) {
	rc := observability.FromContextOrNew(ctx, operationTranslate, "")

	callCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	start := time.Now()
	translation, err := t.llm.Chat(callCtx, t.Messages(text))
	t.metrics.ObserveUpstream(observability.UpstreamTranslate, err, time.Since(start))
	if err != nil {
		t.metrics.RecordTranslation(observability.OutcomeFailure)
		wrapped := upstreamError("translation failed", err).WithContext(observability.LogFieldUpstream, observability.UpstreamTranslate)
		rc.Error("translation failed", wrapped,
			slog.String("text", timeout.Truncate(text)),
			slog.String(observability.LogFieldErrorCode, string(wrapped.GetCode())),
			slog.Int64(observability.LogFieldDuration, rc.DurationMs()),
		)
		return "", wrapped
	}

	t.metrics.RecordTranslation(observability.OutcomeSuccess)
	rc.Info("translation completed",
		slog.Int(observability.LogFieldMessageLen, len([]rune(text))),
		slog.Int64(observability.LogFieldDuration, rc.DurationMs()),
	)
	return translation, nil
}
