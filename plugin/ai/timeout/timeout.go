// Package timeout defines centralized timeout constants for upstream AI calls.
package timeout

import "time"

// Upstream call timeout constants.
const (
	// CompletionTimeout bounds a single chat completion.
	CompletionTimeout = 30 * time.Second

	// SpeechTimeout bounds a single speech synthesis call.
	SpeechTimeout = 30 * time.Second

	// TranslateTimeout bounds a single translation call.
	TranslateTimeout = 30 * time.Second

	// StorageTimeout bounds history load and save.
	StorageTimeout = 5 * time.Second

	// ShutdownTimeout is how long in-flight requests get to drain.
	ShutdownTimeout = 10 * time.Second

	// MaxTruncateLength is the maximum length for truncating strings in logs.
	MaxTruncateLength = 200
)

// Or returns d when it is positive and fallback otherwise.
func Or(d, fallback time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return fallback
}

// Truncate shortens s to MaxTruncateLength runes for logging.
func Truncate(s string) string {
	r := []rune(s)
	if len(r) <= MaxTruncateLength {
		return s
	}
	return string(r[:MaxTruncateLength]) + "..."
}
