package tutor

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/hrygo/tutorvoice/plugin/ai"
	"github.com/hrygo/tutorvoice/plugin/ai/session"
)

var errUpstream = errors.New("upstream exploded")

// fakeLLM records the requests it receives and answers with reply or err.
type fakeLLM struct {
	mu       sync.Mutex
	reply    string
	err      error
	delay    time.Duration
	requests [][]ai.Message
}

func (f *fakeLLM) Chat(ctx context.Context, messages []ai.Message) (string, error) {
	f.mu.Lock()
	f.requests = append(f.requests, append([]ai.Message(nil), messages...))
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func (f *fakeLLM) lastRequest() []ai.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) == 0 {
		return nil
	}
	return f.requests[len(f.requests)-1]
}

type fakeSpeech struct {
	audio []byte
	err   error
	calls int
}

func (f *fakeSpeech) Synthesize(_ context.Context, _ string) ([]byte, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.audio, nil
}

// failingSessions fails loads or saves on demand.
type failingSessions struct {
	session.SessionService
	loadErr error
	saveErr error
}

func (f *failingSessions) LoadHistory(ctx context.Context, id string) (ai.History, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return f.SessionService.LoadHistory(ctx, id)
}

func (f *failingSessions) SaveHistory(ctx context.Context, id string, h ai.History) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	return f.SessionService.SaveHistory(ctx, id, h)
}
