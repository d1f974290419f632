package ai

import (
	"errors"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/hrygo/tutorvoice/internal/profile"
)

// Config represents AI provider configuration.
type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration

	Chat      LLMConfig
	Translate LLMConfig
	Speech    SpeechConfig
}

// LLMConfig represents one completion model.
type LLMConfig struct {
	Model string // gpt-4o
}

// SpeechConfig represents text-to-speech configuration.
type SpeechConfig struct {
	Model string // tts-1
	Voice string // alloy
}

// NewConfigFromProfile creates AI config from profile.
func NewConfigFromProfile(p *profile.Profile) *Config {
	return &Config{
		APIKey:    p.OpenAIAPIKey,
		BaseURL:   p.OpenAIBaseURL,
		Timeout:   p.UpstreamTimeout,
		Chat:      LLMConfig{Model: p.ChatModel},
		Translate: LLMConfig{Model: p.TranslateModel},
		Speech: SpeechConfig{
			Model: p.SpeechModel,
			Voice: p.Voice,
		},
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return errors.New("API key is required")
	}
	if c.Chat.Model == "" {
		return errors.New("chat model is required")
	}
	if c.Translate.Model == "" {
		return errors.New("translate model is required")
	}
	if c.Speech.Model == "" || c.Speech.Voice == "" {
		return errors.New("speech model and voice are required")
	}
	return nil
}

// NewClient builds the provider client shared by every service of the process.
// The HTTP client timeout bounds each call even when the caller's context has
// no deadline.
func NewClient(c *Config) *openai.Client {
	clientConfig := openai.DefaultConfig(c.APIKey)
	if c.BaseURL != "" {
		clientConfig.BaseURL = c.BaseURL
	}
	if c.Timeout > 0 {
		clientConfig.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	return openai.NewClientWithConfig(clientConfig)
}
