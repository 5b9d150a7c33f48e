package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/moreai/moreai/internal/model"
)

// Common errors for user repository operations.
var (
	ErrUserNotFound = errors.New("user not found")
	ErrHandleExists = errors.New("handle already exists")
)

// CreateUser inserts a new user into the database.
func (r *Repository) CreateUser(ctx context.Context, user *model.User) error {
	query := `
		INSERT INTO users (id, handle, password_hash, is_active, is_admin, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.pool.Exec(ctx, query,
		user.ID,
		user.Handle,
		user.PasswordHash,
		user.IsActive,
		user.IsAdmin,
		user.CreatedAt,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return ErrHandleExists
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetUserByID retrieves a user by their ID.
func (r *Repository) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	query := `
		SELECT id, handle, password_hash, is_active, is_admin, created_at, last_login
		FROM users
		WHERE id = $1
	`

	return r.scanUser(r.pool.QueryRow(ctx, query, id))
}

// GetUserByHandle retrieves a user by their unique handle.
func (r *Repository) GetUserByHandle(ctx context.Context, handle string) (*model.User, error) {
	query := `
		SELECT id, handle, password_hash, is_active, is_admin, created_at, last_login
		FROM users
		WHERE handle = $1
	`

	return r.scanUser(r.pool.QueryRow(ctx, query, handle))
}

// UpdateHandle changes a user's handle. Uniqueness is enforced by the
// database constraint.
func (r *Repository) UpdateHandle(ctx context.Context, id, handle string) error {
	query := `UPDATE users SET handle = $2 WHERE id = $1`

	result, err := r.pool.Exec(ctx, query, id, handle)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrHandleExists
		}
		return fmt.Errorf("failed to update handle: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}

	return nil
}

// UpdatePasswordHash replaces a user's stored credential hash.
func (r *Repository) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	query := `UPDATE users SET password_hash = $2 WHERE id = $1`

	result, err := r.pool.Exec(ctx, query, id, hash)
	if err != nil {
		return fmt.Errorf("failed to update password hash: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}

	return nil
}

func (r *Repository) scanUser(row pgx.Row) (*model.User, error) {
	var user model.User
	err := row.Scan(
		&user.ID,
		&user.Handle,
		&user.PasswordHash,
		&user.IsActive,
		&user.IsAdmin,
		&user.CreatedAt,
		&user.LastLogin,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}
