package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/moreai/moreai/internal/model"
)

// ErrSessionNotFound indicates the session does not exist or is not visible
// to the requesting user.
var ErrSessionNotFound = errors.New("session not found")

// CreateSessionWithLogin inserts a new session and stamps the owning user's
// last_login in a single transaction, so a successful login is recorded
// atomically with its session.
func (r *Repository) CreateSessionWithLogin(ctx context.Context, session *model.Session) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	insertQuery := `
		INSERT INTO sessions (id, user_id, created_at, expires_at, is_active, ip_address, user_agent)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	if _, err := tx.Exec(ctx, insertQuery,
		session.ID,
		session.UserID,
		session.CreatedAt,
		session.ExpiresAt,
		session.IsActive,
		session.IPAddress,
		session.UserAgent,
	); err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	loginQuery := `UPDATE users SET last_login = $2 WHERE id = $1`
	if _, err := tx.Exec(ctx, loginQuery, session.UserID, session.CreatedAt); err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit session: %w", err)
	}
	return nil
}

// GetSession retrieves a session by its token ID.
func (r *Repository) GetSession(ctx context.Context, id string) (*model.Session, error) {
	query := `
		SELECT id, user_id, created_at, expires_at, is_active, ip_address, user_agent
		FROM sessions
		WHERE id = $1
	`

	var s model.Session
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&s.ID,
		&s.UserID,
		&s.CreatedAt,
		&s.ExpiresAt,
		&s.IsActive,
		&s.IPAddress,
		&s.UserAgent,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return &s, nil
}

// RevokeSession sets is_active=false for a session owned by userID.
// Returns true if a row was updated. A missing token or one owned by a
// different user updates nothing, so session existence is never leaked.
func (r *Repository) RevokeSession(ctx context.Context, id, userID string) (bool, error) {
	query := `
		UPDATE sessions
		SET is_active = FALSE
		WHERE id = $1 AND user_id = $2 AND is_active = TRUE
	`

	result, err := r.pool.Exec(ctx, query, id, userID)
	if err != nil {
		return false, fmt.Errorf("failed to revoke session: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

// ListActiveSessions returns the user's active, unexpired sessions.
func (r *Repository) ListActiveSessions(ctx context.Context, userID string, now time.Time) ([]*model.Session, error) {
	query := `
		SELECT id, user_id, created_at, expires_at, is_active, ip_address, user_agent
		FROM sessions
		WHERE user_id = $1 AND is_active = TRUE AND expires_at > $2
		ORDER BY created_at DESC
	`

	rows, err := r.pool.Query(ctx, query, userID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*model.Session
	for rows.Next() {
		var s model.Session
		if err := rows.Scan(
			&s.ID,
			&s.UserID,
			&s.CreatedAt,
			&s.ExpiresAt,
			&s.IsActive,
			&s.IPAddress,
			&s.UserAgent,
		); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, &s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sessions: %w", err)
	}

	return sessions, nil
}
