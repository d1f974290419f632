// Package window builds the bounded message sequence sent to the completion API.
package window

import (
	"github.com/hrygo/tutorvoice/plugin/ai"
)

// DefaultMaxMessages caps the outbound request, system instruction included.
const DefaultMaxMessages = 10

// Builder applies the sliding-window policy with a fixed system instruction.
type Builder struct {
	system      ai.Message
	maxMessages int
}

// NewBuilder creates a Builder. maxMessages below 2 falls back to
// DefaultMaxMessages, since the window must hold the system instruction and
// the new user message.
func NewBuilder(systemPrompt string, maxMessages int) *Builder {
	if maxMessages < 2 {
		maxMessages = DefaultMaxMessages
	}
	return &Builder{
		system:      ai.SystemPrompt(systemPrompt),
		maxMessages: maxMessages,
	}
}

// System returns the system instruction prepended to every request.
func (b *Builder) System() ai.Message {
	return b.system
}

// MaxMessages returns the request cap.
func (b *Builder) MaxMessages() int {
	return b.maxMessages
}

// Build returns the request for history plus userMessage.
func (b *Builder) Build(history ai.History, userMessage string) []ai.Message {
	return BuildRequestMessages(history, userMessage, b.system, b.maxMessages)
}

// BuildRequestMessages returns [system] ++ history ++ [user], keeping only the
// system message and the newest maxMessages-1 entries when the full sequence
// is longer than maxMessages. history is never modified.
func BuildRequestMessages(history ai.History, userMessage string, system ai.Message, maxMessages int) []ai.Message {
	appended := history.Append(ai.UserMessage(userMessage))

	keep := len(appended)
	if keep+1 > maxMessages {
		keep = maxMessages - 1
	}

	out := make([]ai.Message, 0, keep+1)
	out = append(out, system)
	return append(out, appended[len(appended)-keep:]...)
}
