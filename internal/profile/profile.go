package profile

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const (
	// DefaultPort matches the port the tutor has always listened on.
	DefaultPort = 5001

	DefaultOpenAIBaseURL   = "https://api.openai.com/v1"
	DefaultChatModel       = "gpt-4o"
	DefaultTranslateModel  = "gpt-4-turbo"
	DefaultSpeechModel     = "tts-1"
	DefaultVoice           = "alloy"
	DefaultUpstreamTimeout = 30 * time.Second
	DefaultSessionTTL      = 24 * time.Hour
	DefaultRetention       = 30 * 24 * time.Hour
	DefaultCleanupSchedule = "@every 1h"
	DefaultRateLimit       = 5.0
	DefaultRateBurst       = 10
	DefaultWindowSize      = 10
)

// Profile is the configuration to start main server.
type Profile struct {
	// Mode can be "prod" or "dev" or "demo"
	Mode string
	// Addr is the binding address for server
	Addr string
	// Port is the binding port for server
	Port int
	// Data is the data directory
	Data string
	// Driver is the session storage driver (sqlite, postgres or memory)
	Driver string
	// DSN points to where tutorvoice stores its sessions
	DSN string
	// Version is the current version of server
	Version string

	// OpenAI-compatible provider
	OpenAIAPIKey    string
	OpenAIBaseURL   string
	ChatModel       string
	TranslateModel  string
	SpeechModel     string
	Voice           string
	UpstreamTimeout time.Duration

	// Persona is the system instruction prepended to every chat request.
	// Empty means the built-in tutor persona.
	Persona     string
	PersonaFile string

	// Sessions
	SessionSecret    string
	SessionTTL       time.Duration
	SessionRetention time.Duration
	CleanupSchedule  string
	WindowSize       int

	// Rate limiting, per session
	RateLimit float64
	RateBurst int
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// HasCredential reports whether a provider credential is configured.
func (p *Profile) HasCredential() bool {
	return strings.TrimSpace(p.OpenAIAPIKey) != ""
}

// UsesDatabase reports whether sessions are persisted through a SQL driver.
func (p *Profile) UsesDatabase() bool {
	return p.Driver == "sqlite" || p.Driver == "postgres"
}

func ensureDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		absDir, err := filepath.Abs(dataDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if err := os.MkdirAll(dataDir, 0o770); err != nil {
		return "", errors.Wrapf(err, "unable to create data folder %s", dataDir)
	}
	return dataDir, nil
}

func (p *Profile) applyDefaults() {
	if p.Port == 0 {
		p.Port = DefaultPort
	}
	if p.Driver == "" {
		p.Driver = "sqlite"
	}
	if p.Data == "" {
		p.Data = "data"
	}
	if p.OpenAIBaseURL == "" {
		p.OpenAIBaseURL = DefaultOpenAIBaseURL
	}
	if p.ChatModel == "" {
		p.ChatModel = DefaultChatModel
	}
	if p.TranslateModel == "" {
		p.TranslateModel = DefaultTranslateModel
	}
	if p.SpeechModel == "" {
		p.SpeechModel = DefaultSpeechModel
	}
	if p.Voice == "" {
		p.Voice = DefaultVoice
	}
	if p.UpstreamTimeout <= 0 {
		p.UpstreamTimeout = DefaultUpstreamTimeout
	}
	if p.SessionTTL <= 0 {
		p.SessionTTL = DefaultSessionTTL
	}
	if p.SessionRetention <= 0 {
		p.SessionRetention = DefaultRetention
	}
	if p.CleanupSchedule == "" {
		p.CleanupSchedule = DefaultCleanupSchedule
	}
	if p.WindowSize < 2 {
		p.WindowSize = DefaultWindowSize
	}
	if p.RateLimit <= 0 {
		p.RateLimit = DefaultRateLimit
	}
	if p.RateBurst <= 0 {
		p.RateBurst = DefaultRateBurst
	}
}

func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}
	p.applyDefaults()

	switch p.Driver {
	case "sqlite", "postgres", "memory":
	default:
		return errors.Errorf("unknown driver %q: expected sqlite, postgres or memory", p.Driver)
	}

	if !p.HasCredential() {
		return errors.New("an OpenAI API key is required (--openai-api-key or OPENAI_API_KEY)")
	}

	if p.PersonaFile != "" {
		content, err := os.ReadFile(p.PersonaFile)
		if err != nil {
			return errors.Wrapf(err, "failed to read persona file %s", p.PersonaFile)
		}
		p.Persona = strings.TrimSpace(string(content))
	}

	if p.SessionSecret == "" {
		secret, err := randomSecret(24)
		if err != nil {
			return errors.Wrap(err, "failed to generate session secret")
		}
		p.SessionSecret = secret
		slog.Warn("no session secret configured, sessions will not survive a restart")
	}

	if p.Driver == "sqlite" {
		dataDir, err := ensureDataDir(p.Data)
		if err != nil {
			slog.Error("failed to prepare data directory", slog.String("data", p.Data), slog.String("error", err.Error()))
			return err
		}
		p.Data = dataDir
		if p.DSN == "" {
			p.DSN = filepath.Join(dataDir, fmt.Sprintf("tutorvoice_%s.db", p.Mode))
		}
	}

	if p.Driver == "postgres" && p.DSN == "" {
		return errors.New("postgres driver requires --dsn")
	}

	return nil
}

func randomSecret(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
