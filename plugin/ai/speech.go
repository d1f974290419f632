package ai

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/sashabaranov/go-openai"
)

// ErrEmptyAudio is returned when the provider answers with no audio bytes.
var ErrEmptyAudio = errors.New("empty speech response")

// SpeechService synthesizes speech from text.
type SpeechService interface {
	// Synthesize returns the raw audio (mp3) for the given text.
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

type speechService struct {
	client *openai.Client
	model  openai.SpeechModel
	voice  openai.SpeechVoice
}

// NewSpeechService creates a new SpeechService with a fixed model and voice.
func NewSpeechService(client *openai.Client, cfg SpeechConfig) (SpeechService, error) {
	if client == nil {
		return nil, errors.New("client is required")
	}
	if cfg.Model == "" || cfg.Voice == "" {
		return nil, errors.New("speech model and voice are required")
	}
	return &speechService{
		client: client,
		model:  openai.SpeechModel(cfg.Model),
		voice:  openai.SpeechVoice(cfg.Voice),
	}, nil
}

func (s *speechService) Synthesize(ctx context.Context, text string) ([]byte, error) {
	resp, err := s.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          s.model,
		Input:          text,
		Voice:          s.voice,
		ResponseFormat: openai.SpeechResponseFormatMp3,
	})
	if err != nil {
		return nil, fmt.Errorf("speech synthesis with %s: %w", s.model, err)
	}
	defer resp.Close()

	audio, err := io.ReadAll(resp)
	if err != nil {
		return nil, fmt.Errorf("read speech response: %w", err)
	}
	if len(audio) == 0 {
		return nil, ErrEmptyAudio
	}
	return audio, nil
}
