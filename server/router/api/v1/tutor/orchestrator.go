package tutor

import (
	"context"
	"encoding/base64"
	"errors"
	"log/slog"
	"time"

	"github.com/hrygo/tutorvoice/plugin/ai"
	"github.com/hrygo/tutorvoice/plugin/ai/session"
	"github.com/hrygo/tutorvoice/plugin/ai/timeout"
	"github.com/hrygo/tutorvoice/plugin/ai/window"
	aierrors "github.com/hrygo/tutorvoice/server/internal/errors"
	"github.com/hrygo/tutorvoice/server/internal/observability"
)

const operationTurn = "turn"

// TurnResult is the outcome of a successful turn.
type TurnResult struct {
	// Message is the tutor's reply.
	Message string
	// Audio is the spoken reply, base64 encoded with standard padding.
	Audio string
}

// TurnServiceConfig wires a TurnService.
type TurnServiceConfig struct {
	LLM      ai.LLMService
	Speech   ai.SpeechService
	Sessions session.SessionService
	Window   *window.Builder
	Metrics  *observability.Metrics // optional

	// Per-call timeouts. Zero means the package defaults.
	CompletionTimeout time.Duration
	SpeechTimeout     time.Duration
}

// TurnService runs one learner turn: completion, persistence, then speech.
type TurnService struct {
	llm      ai.LLMService
	speech   ai.SpeechService
	sessions session.SessionService
	window   *window.Builder
	metrics  *observability.Metrics

	completionTimeout time.Duration
	speechTimeout     time.Duration
}

// NewTurnService creates a TurnService.
func NewTurnService(cfg TurnServiceConfig) (*TurnService, error) {
	if cfg.LLM == nil {
		return nil, errors.New("llm service is required")
	}
	if cfg.Speech == nil {
		return nil, errors.New("speech service is required")
	}
	if cfg.Sessions == nil {
		return nil, errors.New("session service is required")
	}
	if cfg.Window == nil {
		cfg.Window = window.NewBuilder(DefaultPersona, window.DefaultMaxMessages)
	}

	return &TurnService{
		llm:               cfg.LLM,
		speech:            cfg.Speech,
		sessions:          cfg.Sessions,
		window:            cfg.Window,
		metrics:           cfg.Metrics,
		completionTimeout: timeout.Or(cfg.CompletionTimeout, timeout.CompletionTimeout),
		speechTimeout:     timeout.Or(cfg.SpeechTimeout, timeout.SpeechTimeout),
	}, nil
}

// HandleTurn answers userMessage within sessionID's conversation.
//
// History is written after the completion and before speech synthesis: a
// completion failure leaves the session untouched, a speech failure leaves
// the reply in history.
func (s *TurnService) HandleTurn(ctx context.Context, sessionID, userMessage string) (*TurnResult, error) {
	rc := observability.FromContextOrNew(ctx, operationTurn, sessionID)

	result, err := s.handleTurn(ctx, rc, sessionID, userMessage)
	if err != nil {
		s.metrics.RecordTurn(observability.OutcomeFailure)
		rc.Error("turn failed", err,
			slog.String(observability.LogFieldErrorCode, string(aierrors.GetCodeFromError(err, aierrors.ErrCodeExternalAPIFailure))),
			slog.Int64(observability.LogFieldDuration, rc.DurationMs()),
		)
		return nil, err
	}

	s.metrics.RecordTurn(observability.OutcomeSuccess)
	rc.Info("turn completed",
		slog.Int(observability.LogFieldMessageLen, len([]rune(result.Message))),
		slog.Int64(observability.LogFieldDuration, rc.DurationMs()),
	)
	return result, nil
}

func (s *TurnService) handleTurn(ctx context.Context, rc *observability.RequestContext, sessionID, userMessage string) (*TurnResult, error) {
	if sessionID == "" {
		return nil, aierrors.InvalidArgument("session id is required")
	}

	history, err := s.loadHistory(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	request := s.window.Build(history, userMessage)
	rc.Debug("requesting completion",
		slog.String("message", timeout.Truncate(userMessage)),
		slog.Int(observability.LogFieldHistoryLen, len(history)),
		slog.Int("request_messages", len(request)),
	)

	reply, err := s.complete(ctx, request)
	if err != nil {
		return nil, err
	}

	updated := history.Append(ai.UserMessage(userMessage), ai.AssistantMessage(reply))
	if err := s.saveHistory(ctx, sessionID, updated); err != nil {
		return nil, err
	}
	s.metrics.ObserveHistory(len(updated))

	audio, err := s.synthesize(ctx, reply)
	if err != nil {
		return nil, err
	}

	return &TurnResult{
		Message: reply,
		Audio:   base64.StdEncoding.EncodeToString(audio),
	}, nil
}

func (s *TurnService) loadHistory(ctx context.Context, sessionID string) (ai.History, error) {
	storeCtx, cancel := context.WithTimeout(ctx, timeout.StorageTimeout)
	defer cancel()

	history, err := s.sessions.LoadHistory(storeCtx, sessionID)
	if err != nil {
		return nil, aierrors.StorageFailure("failed to load history", err)
	}
	return history, nil
}

func (s *TurnService) saveHistory(ctx context.Context, sessionID string, history ai.History) error {
	storeCtx, cancel := context.WithTimeout(ctx, timeout.StorageTimeout)
	defer cancel()

	if err := s.sessions.SaveHistory(storeCtx, sessionID, history); err != nil {
		return aierrors.StorageFailure("failed to save history", err)
	}
	return nil
}

func (s *TurnService) complete(ctx context.Context, request []ai.Message) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.completionTimeout)
	defer cancel()

	start := time.Now()
	reply, err := s.llm.Chat(callCtx, request)
	s.metrics.ObserveUpstream(observability.UpstreamCompletion, err, time.Since(start))
	if err != nil {
		return "", upstreamError("completion failed", err).WithContext(observability.LogFieldUpstream, observability.UpstreamCompletion)
	}
	return reply, nil
}

func (s *TurnService) synthesize(ctx context.Context, text string) ([]byte, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.speechTimeout)
	defer cancel()

	start := time.Now()
	audio, err := s.speech.Synthesize(callCtx, text)
	s.metrics.ObserveUpstream(observability.UpstreamSpeech, err, time.Since(start))
	if err != nil {
		return nil, upstreamError("speech synthesis failed", err).WithContext(observability.LogFieldUpstream, observability.UpstreamSpeech)
	}
	return audio, nil
}

// upstreamError classifies a provider call failure.
func upstreamError(msg string, err error) *aierrors.AIError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return aierrors.Timeout(msg, err)
	case errors.Is(err, context.Canceled):
		return aierrors.ContextCanceled(err)
	default:
		return aierrors.ExternalAPIFailure(msg, err)
	}
}
