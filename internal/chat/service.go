// Package chat implements the conversation orchestrator.
package chat

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/moreai/moreai/internal/ai"
	"github.com/moreai/moreai/internal/metrics"
	"github.com/moreai/moreai/internal/model"
)

// personaPrompt is the fixed system instruction for every completion call.
const personaPrompt = "You are an emotionally supportive AI psychologist. " +
	"Provide compassionate, understanding responses that help users process " +
	"their feelings and find clarity. CRITICAL: You must respond in exactly " +
	"the same language that the user wrote their message in. If they write " +
	"in English, respond in English. If they write in Spanish, respond in " +
	"Spanish. If they write in Russian, respond in Russian. Never switch " +
	"languages unless the user explicitly asks you to."

// FallbackReply is stored and returned when the remote completion fails.
// The chat surface always gets a reply; remote errors never propagate.
const FallbackReply = "I'm sorry, I'm having trouble responding right now. Please try again."

const (
	maxReplyTokens   = 500
	replyTemperature = 0.7
)

// Store is the persistence the orchestrator depends on.
type Store interface {
	// BeginTurn atomically runs the duplicate guard, returns prior history
	// and appends the user entry. inserted is false on a guarded duplicate.
	BeginTurn(ctx context.Context, entry *model.Entry, window time.Duration) (history []*model.Entry, inserted bool, err error)
	InsertEntry(ctx context.Context, entry *model.Entry) error
	ListEntries(ctx context.Context, userID string) ([]*model.Entry, error)
	ListJournal(ctx context.Context, userID string) ([]*model.Entry, error)
}

// Service orchestrates chat turns.
type Service struct {
	store         Store
	client        ai.Client
	logger        *slog.Logger
	metrics       metrics.Recorder
	window        time.Duration
	remoteTimeout time.Duration
	now           func() time.Time
}

// NewService creates a chat Service.
func NewService(store Store, client ai.Client, logger *slog.Logger, recorder metrics.Recorder, window, remoteTimeout time.Duration) *Service {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if window <= 0 {
		window = 30 * time.Second
	}
	if remoteTimeout <= 0 {
		remoteTimeout = 60 * time.Second
	}
	return &Service{
		store:         store,
		client:        client,
		logger:        logger.With("component", "chat.service"),
		metrics:       recorder,
		window:        window,
		remoteTimeout: remoteTimeout,
		now:           time.Now,
	}
}

// SetNow overrides the clock. Used by tests.
func (s *Service) SetNow(now func() time.Time) {
	s.now = now
}

// SendMessage runs one chat turn for the user: duplicate guard, history
// load and user-turn append under one transaction, then the remote
// completion without holding any store lock, then the assistant append
// under a fresh transaction. A guarded duplicate is a silent no-op.
func (s *Service) SendMessage(ctx context.Context, userID, body string) error {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil
	}

	userEntry := &model.Entry{
		ID:        model.NewID(),
		UserID:    userID,
		Body:      body,
		Kind:      model.KindUser,
		CreatedAt: s.now(),
	}

	history, inserted, err := s.store.BeginTurn(ctx, userEntry, s.window)
	if err != nil {
		return err
	}
	if !inserted {
		s.metrics.IncChatTurn("duplicate")
		s.logger.Info("duplicate message discarded", "user_id", userID)
		return nil
	}

	reply := s.complete(ctx, buildPrompt(history, body))

	assistantEntry := &model.Entry{
		ID:        model.NewID(),
		UserID:    userID,
		Body:      reply,
		Kind:      model.KindAssistant,
		CreatedAt: s.now(),
	}
	if err := s.store.InsertEntry(ctx, assistantEntry); err != nil {
		return err
	}

	s.metrics.IncChatTurn("completed")
	return nil
}

// History returns the user's full conversation in timestamp order.
func (s *Service) History(ctx context.Context, userID string) ([]*model.Entry, error) {
	return s.store.ListEntries(ctx, userID)
}

// Journal returns the user's log-kind entries, newest first.
func (s *Service) Journal(ctx context.Context, userID string) ([]*model.Entry, error) {
	return s.store.ListJournal(ctx, userID)
}

// complete calls the remote capability with a bounded timeout and a single
// retry. The fallback string is the exhausted-retry outcome.
func (s *Service) complete(ctx context.Context, messages []ai.Message) string {
	req := ai.CompletionRequest{
		Messages:    messages,
		MaxTokens:   maxReplyTokens,
		Temperature: replyTemperature,
	}

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, s.remoteTimeout)
		start := s.now()
		reply, err := s.client.Complete(callCtx, req)
		cancel()

		s.metrics.ObserveCompletionDuration(s.now().Sub(start))

		if err == nil {
			return reply
		}
		lastErr = err
	}

	s.metrics.IncChatTurn("fallback")
	s.logger.Warn("completion failed, using fallback reply", "error", lastErr)
	return FallbackReply
}

// buildPrompt maps stored history into the completion message list. Log
// entries never enter the prompt context.
func buildPrompt(history []*model.Entry, body string) []ai.Message {
	messages := make([]ai.Message, 0, len(history)+2)
	messages = append(messages, ai.Message{Role: ai.RoleSystem, Content: personaPrompt})

	for _, e := range history {
		if !e.IsPromptKind() {
			continue
		}
		role := ai.RoleUser
		if e.Kind == model.KindAssistant {
			role = ai.RoleAssistant
		}
		messages = append(messages, ai.Message{Role: role, Content: e.Body})
	}

	messages = append(messages, ai.Message{Role: ai.RoleUser, Content: body})
	return messages
}
