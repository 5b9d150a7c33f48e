package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/moreai/moreai/internal/ai"
	"github.com/moreai/moreai/internal/chat"
	"github.com/moreai/moreai/internal/middleware"
	"github.com/moreai/moreai/internal/model"
	"github.com/moreai/moreai/internal/repository"
	"github.com/moreai/moreai/internal/service"
	"github.com/moreai/moreai/internal/voice"
)

// --- in-memory stores ---

type memUserStore struct {
	mu    sync.Mutex
	users map[string]*model.User
}

func newMemUserStore() *memUserStore {
	return &memUserStore{users: make(map[string]*model.User)}
}

func (s *memUserStore) CreateUser(ctx context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Handle == user.Handle {
			return repository.ErrHandleExists
		}
	}
	s.users[user.ID] = user
	return nil
}

func (s *memUserStore) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return user, nil
}

func (s *memUserStore) GetUserByHandle(ctx context.Context, handle string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Handle == handle {
			return u, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (s *memUserStore) UpdateHandle(ctx context.Context, id, handle string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Handle == handle && u.ID != id {
			return repository.ErrHandleExists
		}
	}
	user, ok := s.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	user.Handle = handle
	return nil
}

func (s *memUserStore) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	user.PasswordHash = hash
	return nil
}

type memSessionStore struct {
	mu       sync.Mutex
	sessions map[string]*model.Session
	users    *memUserStore
}

func newMemSessionStore(users *memUserStore) *memSessionStore {
	return &memSessionStore{sessions: make(map[string]*model.Session), users: users}
}

func (s *memSessionStore) CreateSessionWithLogin(ctx context.Context, session *model.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = session
	if user, ok := s.users.users[session.UserID]; ok {
		t := session.CreatedAt
		user.LastLogin = &t
	}
	return nil
}

func (s *memSessionStore) GetSession(ctx context.Context, id string) (*model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, repository.ErrSessionNotFound
	}
	return session, nil
}

func (s *memSessionStore) RevokeSession(ctx context.Context, id, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok || session.UserID != userID || !session.IsActive {
		return false, nil
	}
	session.IsActive = false
	return true, nil
}

func (s *memSessionStore) ListActiveSessions(ctx context.Context, userID string, now time.Time) ([]*model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.Session
	for _, session := range s.sessions {
		if session.UserID == userID && session.IsValid(now) {
			out = append(out, session)
		}
	}
	return out, nil
}

type memChatStore struct {
	mu      sync.Mutex
	entries []*model.Entry
}

func (s *memChatStore) BeginTurn(ctx context.Context, entry *model.Entry, window time.Duration) ([]*model.Entry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := len(s.entries) - 1; i >= 0; i-- {
		e := s.entries[i]
		if e.UserID != entry.UserID || e.Kind != model.KindUser {
			continue
		}
		if e.Body == entry.Body && entry.CreatedAt.Sub(e.CreatedAt) <= window {
			return nil, false, nil
		}
		break
	}

	var history []*model.Entry
	for _, e := range s.entries {
		if e.UserID == entry.UserID {
			history = append(history, e)
		}
	}
	s.entries = append(s.entries, entry)
	return history, true, nil
}

func (s *memChatStore) InsertEntry(ctx context.Context, entry *model.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return nil
}

func (s *memChatStore) ListEntries(ctx context.Context, userID string) ([]*model.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.Entry
	for _, e := range s.entries {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *memChatStore) ListJournal(ctx context.Context, userID string) ([]*model.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.Entry
	for i := len(s.entries) - 1; i >= 0; i-- {
		if e := s.entries[i]; e.UserID == userID && e.Kind == model.KindLog {
			out = append(out, e)
		}
	}
	return out, nil
}

type fakeAIClient struct {
	mu             sync.Mutex
	reply          string
	completeErr    error
	transcribeText string
	transcribeErr  error
	audio          []byte
	synthesizeErr  error
	completeCalls  int
}

func (f *fakeAIClient) Complete(ctx context.Context, req ai.CompletionRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completeCalls++
	return f.reply, f.completeErr
}

func (f *fakeAIClient) Transcribe(ctx context.Context, filename string, audio []byte) (string, error) {
	return f.transcribeText, f.transcribeErr
}

func (f *fakeAIClient) Synthesize(ctx context.Context, req ai.SpeechRequest) ([]byte, error) {
	return f.audio, f.synthesizeErr
}

// --- test server ---

type testEnv struct {
	router    *chi.Mux
	users     *memUserStore
	sessions  *memSessionStore
	chatStore *memChatStore
	aiClient  *fakeAIClient
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(discardWriter{}, nil))

	users := newMemUserStore()
	sessionStore := newMemSessionStore(users)
	chatStore := &memChatStore{}
	aiClient := &fakeAIClient{reply: "I hear you", transcribeText: "hello", audio: []byte{0xFF, 0xFB}}

	accounts := service.NewAccountService(users, logger)
	sessions := service.NewSessionService(sessionStore, nil, logger, time.Hour, 24*time.Hour)
	chatSvc := chat.NewService(chatStore, aiClient, logger, nil, 30*time.Second, time.Second)
	voiceSvc := voice.NewService(aiClient, logger, nil, time.Second)

	authHandler := NewAuthHandler(accounts, sessions, logger)
	chatHandler := NewChatHandler(chatSvc, logger)
	voiceHandler := NewVoiceHandler(voiceSvc, logger, 1<<20)

	requireAuth := middleware.Auth(logger, sessions)

	r := chi.NewRouter()
	r.NotFound(NotFound)
	r.MethodNotAllowed(MethodNotAllowed)
	r.Get("/", Hello)
	r.Post("/auth/register", authHandler.Register)
	r.Post("/auth/login", authHandler.Login)
	r.Group(func(r chi.Router) {
		r.Use(requireAuth)
		r.Post("/auth/logout", authHandler.Logout)
		r.Get("/auth/profile", authHandler.Profile)
		r.Put("/auth/profile", authHandler.UpdateProfile)
		r.Post("/auth/change-password", authHandler.ChangePassword)
		r.Get("/auth/sessions", authHandler.ListSessions)
		r.Delete("/auth/sessions/{id}", authHandler.RevokeSession)
		r.Get("/chat", chatHandler.Chat)
		r.Get("/journal", chatHandler.Journal)
		r.Get("/tts", voiceHandler.Synthesize)
		r.Post("/stt", voiceHandler.Transcribe)
	})

	return &testEnv{
		router:    r,
		users:     users,
		sessions:  sessionStore,
		chatStore: chatStore,
		aiClient:  aiClient,
	}
}

func (env *testEnv) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	return rec
}

var errRemoteDown = errors.New("remote down")
