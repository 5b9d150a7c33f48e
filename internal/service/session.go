package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/moreai/moreai/internal/model"
	"github.com/moreai/moreai/internal/repository"
)

// ErrSessionInvalid is returned for missing, expired or revoked sessions.
var ErrSessionInvalid = errors.New("session invalid or expired")

// SessionStore defines the persistence the session service depends on.
type SessionStore interface {
	CreateSessionWithLogin(ctx context.Context, session *model.Session) error
	GetSession(ctx context.Context, id string) (*model.Session, error)
	RevokeSession(ctx context.Context, id, userID string) (bool, error)
	ListActiveSessions(ctx context.Context, userID string, now time.Time) ([]*model.Session, error)
}

// SessionCache caches validated sessions. Cache failures degrade to
// database lookups, never to auth failures.
type SessionCache interface {
	GetSession(ctx context.Context, token string) (*model.AuthContext, error)
	SetSession(ctx context.Context, session *model.Session) error
	DeleteSession(ctx context.Context, token string) error
}

// SessionService manages the session token lifecycle.
type SessionService struct {
	store       SessionStore
	cache       SessionCache
	logger      *slog.Logger
	ttl         time.Duration
	rememberTTL time.Duration
	now         func() time.Time
}

// NewSessionService creates a SessionService. cache may be nil.
func NewSessionService(store SessionStore, cache SessionCache, logger *slog.Logger, ttl, rememberTTL time.Duration) *SessionService {
	if ttl <= 0 {
		ttl = time.Hour
	}
	if rememberTTL <= 0 {
		rememberTTL = 24 * time.Hour
	}
	return &SessionService{
		store:       store,
		cache:       cache,
		logger:      logger.With("component", "service.session"),
		ttl:         ttl,
		rememberTTL: rememberTTL,
		now:         time.Now,
	}
}

// SetNow overrides the clock. Used by tests.
func (s *SessionService) SetNow(now func() time.Time) {
	s.now = now
}

// Create opens a session for an authenticated user. The session insert and
// the user's last_login update commit together. remember extends the
// lifetime from the short TTL to the long one.
func (s *SessionService) Create(ctx context.Context, userID string, remember bool, ipAddress, userAgent string) (*model.Session, error) {
	ttl := s.ttl
	if remember {
		ttl = s.rememberTTL
	}

	now := s.now().UTC()
	session := &model.Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
		IsActive:  true,
		IPAddress: ipAddress,
		UserAgent: userAgent,
	}

	if err := s.store.CreateSessionWithLogin(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.SetSession(ctx, session); err != nil {
			s.logger.Warn("failed to cache session", "error", err)
		}
	}

	return session, nil
}

// Validate resolves a token to the authenticated user, cache-first.
func (s *SessionService) Validate(ctx context.Context, token string) (*model.AuthContext, error) {
	if token == "" {
		return nil, ErrSessionInvalid
	}

	if s.cache != nil {
		cached, err := s.cache.GetSession(ctx, token)
		if err != nil {
			s.logger.Warn("session cache lookup failed", "error", err)
		} else if cached != nil {
			return cached, nil
		}
	}

	session, err := s.store.GetSession(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil, ErrSessionInvalid
		}
		return nil, err
	}
	if !session.IsValid(s.now()) {
		return nil, ErrSessionInvalid
	}

	if s.cache != nil {
		if err := s.cache.SetSession(ctx, session); err != nil {
			s.logger.Warn("failed to cache session", "error", err)
		}
	}

	return &model.AuthContext{UserID: session.UserID, SessionID: session.ID}, nil
}

// Revoke deactivates one of the user's sessions. The cache entry is
// removed even when the row was already inactive.
func (s *SessionService) Revoke(ctx context.Context, token, userID string) error {
	revoked, err := s.store.RevokeSession(ctx, token, userID)

	if s.cache != nil {
		if cerr := s.cache.DeleteSession(ctx, token); cerr != nil {
			s.logger.Warn("failed to evict cached session", "error", cerr)
		}
	}

	if err != nil {
		return err
	}
	if !revoked {
		return ErrSessionInvalid
	}
	return nil
}

// ListActive returns the user's unexpired active sessions.
func (s *SessionService) ListActive(ctx context.Context, userID string) ([]*model.Session, error) {
	return s.store.ListActiveSessions(ctx, userID, s.now())
}
