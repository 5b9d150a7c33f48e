// Package summary runs the daily conversation summarizer.
package summary

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/moreai/moreai/internal/ai"
	"github.com/moreai/moreai/internal/metrics"
	"github.com/moreai/moreai/internal/model"
)

const (
	// DefaultCheckInterval is how often the worker checks the clock.
	DefaultCheckInterval = 60 * time.Second

	summaryMaxTokens   = 300
	summaryTemperature = 0.3
)

// summaryPrompt instructs the model to write a short third-person log of
// the day's dialogue, grounded only in what was actually said.
const summaryPrompt = "Ты — эмоционально поддерживающий ИИ, который ведёт краткий лог " +
	"взаимодействия с пользователем. Ты должен составить краткий, но информативный лог, " +
	"отражающий следующее:\n\n" +
	"1. Основные трудности или переживания, с которыми обратился пользователь " +
	"(например, тревога, одиночество, выгорание, утрата, неуверенность и т.д.).\n\n" +
	"2. Какие шаги ты предпринял для оказания эмоциональной поддержки " +
	"(например, выслушал, дал возможность выразить чувства, помог переосмыслить ситуацию, " +
	"напомнил о ресурсе, порекомендовал обратиться к специалисту и т.д.).\n\n" +
	"3. Возможный эффект взаимодействия на пользователя, если он был выражен или замечен " +
	"(например, \"пользователь стал спокойнее\", \"выразил благодарность\", " +
	"\"сказал, что почувствовал облегчение\" и т.д.).\n\n" +
	"Не выдумывай информацию — лог должен быть основан только на реальном содержании диалога. " +
	"Стиль лога — нейтрально-доброжелательный, без оценок, коротко и по делу. " +
	"Не используй конкретные имена, просто 'пользователь'."

const summaryRequest = "Составь краткий лог этого взаимодействия на основе диалога выше."

// Store defines the persistence the summarizer depends on.
type Store interface {
	ListActiveUserIDs(ctx context.Context, from, to time.Time) ([]string, error)
	ListEntriesBetween(ctx context.Context, userID string, from, to time.Time) ([]*model.Entry, error)
	InsertEntry(ctx context.Context, entry *model.Entry) error
}

// Worker wakes every check interval and, once per calendar day at local
// midnight, writes one log entry per user active during the day that ended.
type Worker struct {
	store         Store
	client        ai.Client
	logger        *slog.Logger
	metrics       metrics.Recorder
	checkInterval time.Duration
	remoteTimeout time.Duration
	now           func() time.Time
	lastRunDate   string

	started  bool
	draining bool
	cancel   context.CancelFunc
	done     chan struct{}
	mu       sync.Mutex
}

// NewWorker creates a summarizer worker.
func NewWorker(store Store, client ai.Client, logger *slog.Logger, recorder metrics.Recorder, remoteTimeout time.Duration) *Worker {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if remoteTimeout <= 0 {
		remoteTimeout = 60 * time.Second
	}
	return &Worker{
		store:         store,
		client:        client,
		logger:        logger.With("component", "summary.worker"),
		metrics:       recorder,
		checkInterval: DefaultCheckInterval,
		remoteTimeout: remoteTimeout,
		now:           time.Now,
	}
}

// SetCheckInterval overrides the default clock check interval.
func (w *Worker) SetCheckInterval(interval time.Duration) {
	if interval > 0 {
		w.checkInterval = interval
	}
}

// SetNow overrides the clock. Used by tests.
func (w *Worker) SetNow(now func() time.Time) {
	w.now = now
}

// Run starts the worker loop. Blocks until context is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return errors.New("worker already started")
	}
	w.started = true
	w.done = make(chan struct{})
	ctx, w.cancel = context.WithCancel(ctx)
	w.mu.Unlock()

	defer close(w.done)

	w.logger.Info("summary worker started", "check_interval", w.checkInterval)

	ticker := time.NewTicker(w.checkInterval)
	defer ticker.Stop()

	for {
		w.mu.Lock()
		draining := w.draining
		w.mu.Unlock()

		if draining {
			w.logger.Info("summary worker draining, stopping")
			return nil
		}

		select {
		case <-ctx.Done():
			w.logger.Info("summary worker stopping")
			return ctx.Err()
		case <-ticker.C:
			w.checkOnce(ctx)
		}
	}
}

// Shutdown gracefully stops the worker, completing any in-flight pass.
// It implements server.ShutdownFunc for integration with graceful shutdown.
func (w *Worker) Shutdown(ctx context.Context) error {
	w.mu.Lock()
	if !w.started {
		w.mu.Unlock()
		return nil
	}
	w.draining = true
	cancel := w.cancel
	done := w.done
	w.mu.Unlock()

	w.logger.Info("summary worker shutdown initiated")

	if cancel != nil {
		cancel()
	}

	if done != nil {
		select {
		case <-done:
			w.logger.Info("summary worker shutdown complete")
			return nil
		case <-ctx.Done():
			w.logger.Warn("summary worker shutdown timed out")
			return ctx.Err()
		}
	}
	return nil
}

// checkOnce fires the daily pass when the local clock is inside the
// midnight minute and no pass has run for that date yet. A restart later
// in the same minute is still deduplicated by lastRunDate.
func (w *Worker) checkOnce(ctx context.Context) {
	now := w.now()
	if now.Hour() != 0 || now.Minute() != 0 {
		return
	}
	date := now.Format("2006-01-02")
	if date == w.lastRunDate {
		return
	}
	w.lastRunDate = date
	w.runPass(ctx, now)
}

// runPass summarizes the calendar day that just ended for every user who
// spoke during it. One user's failure never blocks the others.
func (w *Worker) runPass(ctx context.Context, now time.Time) {
	to := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	from := to.Add(-24 * time.Hour)

	w.metrics.IncSummaryRun()

	userIDs, err := w.store.ListActiveUserIDs(ctx, from, to)
	if err != nil {
		w.logger.Error("failed to list active users", "error", err)
		return
	}

	w.logger.Info("summary pass started",
		"date", from.Format("2006-01-02"),
		"users", len(userIDs),
	)

	written := 0
	for _, userID := range userIDs {
		if ctx.Err() != nil {
			w.logger.Warn("summary pass interrupted", "error", ctx.Err())
			return
		}
		if err := w.summarizeUser(ctx, userID, from, to); err != nil {
			w.metrics.IncSummaryEntry("failed")
			w.logger.Error("failed to summarize user", "user_id", userID, "error", err)
			continue
		}
		w.metrics.IncSummaryEntry("written")
		written++
	}

	w.logger.Info("summary pass complete", "users", len(userIDs), "written", written)
}

// summarizeUser builds the day's dialogue into a summarization prompt,
// asks for the log text and appends it as a log-kind entry.
func (w *Worker) summarizeUser(ctx context.Context, userID string, from, to time.Time) error {
	entries, err := w.store.ListEntriesBetween(ctx, userID, from, to)
	if err != nil {
		return fmt.Errorf("load entries: %w", err)
	}
	if len(entries) == 0 {
		return nil
	}

	messages := make([]ai.Message, 0, len(entries)+2)
	messages = append(messages, ai.Message{Role: ai.RoleSystem, Content: summaryPrompt})
	for _, e := range entries {
		role := ai.RoleUser
		if e.Kind == model.KindAssistant {
			role = ai.RoleAssistant
		}
		messages = append(messages, ai.Message{Role: role, Content: e.Body})
	}
	messages = append(messages, ai.Message{Role: ai.RoleUser, Content: summaryRequest})

	callCtx, cancel := context.WithTimeout(ctx, w.remoteTimeout)
	defer cancel()

	text, err := w.client.Complete(callCtx, ai.CompletionRequest{
		Messages:    messages,
		MaxTokens:   summaryMaxTokens,
		Temperature: summaryTemperature,
	})
	if err != nil {
		return fmt.Errorf("completion: %w", err)
	}

	entry := &model.Entry{
		ID:        model.NewID(),
		UserID:    userID,
		Body:      text,
		Kind:      model.KindLog,
		CreatedAt: w.now(),
	}
	if err := w.store.InsertEntry(ctx, entry); err != nil {
		return fmt.Errorf("insert log entry: %w", err)
	}
	return nil
}
