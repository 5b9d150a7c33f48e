package model

import "time"

// Entry kinds. Log entries are synthesized by the daily summarizer and are
// never user-authored.
const (
	KindUser      = "user"
	KindAssistant = "assistant"
	KindLog       = "log"
)

// ValidKinds contains all valid entry kind values.
var ValidKinds = []string{KindUser, KindAssistant, KindLog}

// Entry is one record in a user's append-only conversation ledger.
type Entry struct {
	ID        string    `json:"-"`
	UserID    string    `json:"-"`
	Body      string    `json:"body"`
	Kind      string    `json:"kind"`
	CreatedAt time.Time `json:"timestamp"`
}

// IsPromptKind reports whether the entry participates in the completion
// prompt. Log entries are excluded from prompt context.
func (e *Entry) IsPromptKind() bool {
	return e.Kind == KindUser || e.Kind == KindAssistant
}
