package store

// ConversationSession is the persisted transcript of one browser session.
type ConversationSession struct {
	SessionID string
	History   string // JSON array of {role, content}
	CreatedTs int64
	UpdatedTs int64
}

// FindConversationSession specifies the conditions for finding a session.
type FindConversationSession struct {
	SessionID string
}

// UpsertConversationSession specifies the data for upserting a session.
type UpsertConversationSession struct {
	SessionID string
	History   string // JSON array of {role, content}
}

// DeleteConversationSession specifies the session to delete.
type DeleteConversationSession struct {
	SessionID string
}

// DeleteExpiredConversationSessions deletes sessions not updated since UpdatedBefore.
type DeleteExpiredConversationSessions struct {
	UpdatedBefore int64 // unix seconds
}
