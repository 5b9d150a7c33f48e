// Package ai provides clients for the remote model provider.
package ai

import "context"

// Message is one turn of a completion prompt.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Prompt roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// CompletionRequest describes one completion call.
type CompletionRequest struct {
	Messages    []Message
	MaxTokens   int
	Temperature float64
}

// SpeechRequest describes one text-to-speech call.
type SpeechRequest struct {
	Text         string
	Instructions string
}

// Client is the remote capability the orchestrator and voice bridge depend
// on. All calls are blocking, potentially slow network operations; callers
// must not hold store-level locks while a call is in flight.
type Client interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
	Transcribe(ctx context.Context, filename string, audio []byte) (string, error)
	Synthesize(ctx context.Context, req SpeechRequest) ([]byte, error)
}
