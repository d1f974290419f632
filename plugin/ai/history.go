package ai

// History is the ordered user/assistant transcript of one session.
// The system instruction is never part of it.
type History []Message

// Append returns a new History with msgs added. The receiver is never
// modified and the result never shares its backing array.
func (h History) Append(msgs ...Message) History {
	out := make(History, 0, len(h)+len(msgs))
	out = append(out, h...)
	return append(out, msgs...)
}

// Clone returns a copy of the history. A nil history clones to an empty one.
func (h History) Clone() History {
	out := make(History, len(h))
	copy(out, h)
	return out
}

// Last returns the most recent message, if any.
func (h History) Last() (Message, bool) {
	if len(h) == 0 {
		return Message{}, false
	}
	return h[len(h)-1], true
}
