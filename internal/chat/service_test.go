package chat

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/moreai/moreai/internal/ai"
	"github.com/moreai/moreai/internal/metrics"
	"github.com/moreai/moreai/internal/model"
)

type fakeStore struct {
	history   []*model.Entry
	duplicate bool
	beginErr  error

	turnEntries     []*model.Entry
	inserted        []*model.Entry
	insertEntryErr  error
	listEntriesResp []*model.Entry
	listJournalResp []*model.Entry
}

func (f *fakeStore) BeginTurn(ctx context.Context, entry *model.Entry, window time.Duration) ([]*model.Entry, bool, error) {
	if f.beginErr != nil {
		return nil, false, f.beginErr
	}
	if f.duplicate {
		return nil, false, nil
	}
	f.turnEntries = append(f.turnEntries, entry)
	return f.history, true, nil
}

func (f *fakeStore) InsertEntry(ctx context.Context, entry *model.Entry) error {
	if f.insertEntryErr != nil {
		return f.insertEntryErr
	}
	f.inserted = append(f.inserted, entry)
	return nil
}

func (f *fakeStore) ListEntries(ctx context.Context, userID string) ([]*model.Entry, error) {
	return f.listEntriesResp, nil
}

func (f *fakeStore) ListJournal(ctx context.Context, userID string) ([]*model.Entry, error) {
	return f.listJournalResp, nil
}

type fakeClient struct {
	requests []ai.CompletionRequest
	replies  []string
	errs     []error
	calls    int
}

func (f *fakeClient) Complete(ctx context.Context, req ai.CompletionRequest) (string, error) {
	f.requests = append(f.requests, req)
	i := f.calls
	f.calls++
	var err error
	if i < len(f.errs) {
		err = f.errs[i]
	}
	var reply string
	if i < len(f.replies) {
		reply = f.replies[i]
	}
	return reply, err
}

func (f *fakeClient) Transcribe(ctx context.Context, filename string, audio []byte) (string, error) {
	return "", errors.New("not implemented")
}

func (f *fakeClient) Synthesize(ctx context.Context, req ai.SpeechRequest) ([]byte, error) {
	return nil, errors.New("not implemented")
}

func newTestService(store *fakeStore, client *fakeClient, rec metrics.Recorder) *Service {
	logger := slog.New(slog.NewTextHandler(discardWriter{}, nil))
	return NewService(store, client, logger, rec, 30*time.Second, time.Second)
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

func TestSendMessage_PersistsTurn(t *testing.T) {
	store := &fakeStore{}
	client := &fakeClient{replies: []string{"that sounds difficult"}}
	svc := newTestService(store, client, nil)

	if err := svc.SendMessage(context.Background(), "user-1", "I had a rough day"); err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}

	if len(store.turnEntries) != 1 {
		t.Fatalf("expected 1 user entry, got %d", len(store.turnEntries))
	}
	user := store.turnEntries[0]
	if user.Kind != model.KindUser || user.Body != "I had a rough day" {
		t.Errorf("unexpected user entry %+v", user)
	}

	if len(store.inserted) != 1 {
		t.Fatalf("expected 1 assistant entry, got %d", len(store.inserted))
	}
	assistant := store.inserted[0]
	if assistant.Kind != model.KindAssistant || assistant.Body != "that sounds difficult" {
		t.Errorf("unexpected assistant entry %+v", assistant)
	}
	if assistant.UserID != "user-1" {
		t.Errorf("unexpected user id %q", assistant.UserID)
	}
}

func TestSendMessage_Duplicate(t *testing.T) {
	store := &fakeStore{duplicate: true}
	client := &fakeClient{}
	rec := metrics.NewInMemory()
	svc := newTestService(store, client, rec)

	if err := svc.SendMessage(context.Background(), "user-1", "same message"); err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}
	if client.calls != 0 {
		t.Errorf("expected no completion call on duplicate, got %d", client.calls)
	}
	if len(store.inserted) != 0 {
		t.Errorf("expected no assistant entry on duplicate, got %d", len(store.inserted))
	}
	if got := rec.Snapshot().ChatTurns["duplicate"]; got != 1 {
		t.Errorf("expected duplicate counter 1, got %d", got)
	}
}

func TestSendMessage_PromptShape(t *testing.T) {
	store := &fakeStore{history: []*model.Entry{
		{Kind: model.KindUser, Body: "hello"},
		{Kind: model.KindAssistant, Body: "hi, how are you feeling?"},
		{Kind: model.KindLog, Body: "daily summary text"},
	}}
	client := &fakeClient{replies: []string{"ok"}}
	svc := newTestService(store, client, nil)

	if err := svc.SendMessage(context.Background(), "user-1", "a bit anxious"); err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}
	if client.calls != 1 {
		t.Fatalf("expected 1 completion call, got %d", client.calls)
	}

	req := client.requests[0]
	if req.MaxTokens != 500 {
		t.Errorf("unexpected max tokens %d", req.MaxTokens)
	}
	if req.Temperature != 0.7 {
		t.Errorf("unexpected temperature %v", req.Temperature)
	}

	msgs := req.Messages
	if len(msgs) != 4 {
		t.Fatalf("expected 4 messages (system + 2 history + new), got %d", len(msgs))
	}
	if msgs[0].Role != ai.RoleSystem {
		t.Errorf("expected system message first, got %q", msgs[0].Role)
	}
	if msgs[1].Role != ai.RoleUser || msgs[1].Content != "hello" {
		t.Errorf("unexpected history message %+v", msgs[1])
	}
	if msgs[2].Role != ai.RoleAssistant {
		t.Errorf("unexpected history role %q", msgs[2].Role)
	}
	for _, m := range msgs {
		if m.Content == "daily summary text" {
			t.Error("log entry leaked into prompt")
		}
	}
	last := msgs[len(msgs)-1]
	if last.Role != ai.RoleUser || last.Content != "a bit anxious" {
		t.Errorf("unexpected final message %+v", last)
	}
}

func TestSendMessage_FallbackAfterRetries(t *testing.T) {
	store := &fakeStore{}
	client := &fakeClient{errs: []error{errors.New("boom"), errors.New("boom")}}
	rec := metrics.NewInMemory()
	svc := newTestService(store, client, rec)

	if err := svc.SendMessage(context.Background(), "user-1", "help"); err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}
	if client.calls != 2 {
		t.Errorf("expected 2 completion attempts, got %d", client.calls)
	}
	if len(store.inserted) != 1 {
		t.Fatalf("expected assistant entry with fallback, got %d entries", len(store.inserted))
	}
	if store.inserted[0].Body != FallbackReply {
		t.Errorf("expected fallback reply, got %q", store.inserted[0].Body)
	}
	if got := rec.Snapshot().ChatTurns["fallback"]; got != 1 {
		t.Errorf("expected fallback counter 1, got %d", got)
	}
}

func TestSendMessage_RetrySucceeds(t *testing.T) {
	store := &fakeStore{}
	client := &fakeClient{
		errs:    []error{errors.New("transient"), nil},
		replies: []string{"", "recovered"},
	}
	svc := newTestService(store, client, nil)

	if err := svc.SendMessage(context.Background(), "user-1", "still there?"); err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}
	if client.calls != 2 {
		t.Errorf("expected 2 completion attempts, got %d", client.calls)
	}
	if store.inserted[0].Body != "recovered" {
		t.Errorf("expected retried reply, got %q", store.inserted[0].Body)
	}
}

func TestSendMessage_EmptyBody(t *testing.T) {
	store := &fakeStore{}
	client := &fakeClient{}
	svc := newTestService(store, client, nil)

	if err := svc.SendMessage(context.Background(), "user-1", "   "); err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}
	if len(store.turnEntries) != 0 || client.calls != 0 {
		t.Error("expected empty message to be a no-op")
	}
}

func TestSendMessage_StorageError(t *testing.T) {
	store := &fakeStore{beginErr: errors.New("db down")}
	client := &fakeClient{}
	svc := newTestService(store, client, nil)

	if err := svc.SendMessage(context.Background(), "user-1", "hello"); err == nil {
		t.Fatal("expected storage error to propagate")
	}
	if client.calls != 0 {
		t.Errorf("expected no completion call, got %d", client.calls)
	}
}
