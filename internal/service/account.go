// Package service provides business logic for the application.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/moreai/moreai/internal/auth"
	"github.com/moreai/moreai/internal/model"
	"github.com/moreai/moreai/internal/repository"
)

// Service errors.
var (
	ErrInvalidCredentials = errors.New("invalid handle or password")
	ErrAccountDeactivated = errors.New("account is deactivated")
	ErrHandleTaken        = errors.New("handle already taken")
	ErrUserNotFound       = errors.New("user not found")
)

// UserStore defines the persistence the account service depends on.
type UserStore interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByHandle(ctx context.Context, handle string) (*model.User, error)
	UpdateHandle(ctx context.Context, id, handle string) error
	UpdatePasswordHash(ctx context.Context, id, hash string) error
}

// AccountService handles registration, login and profile changes.
type AccountService struct {
	store  UserStore
	logger *slog.Logger
	now    func() time.Time
}

// NewAccountService creates an AccountService.
func NewAccountService(store UserStore, logger *slog.Logger) *AccountService {
	return &AccountService{
		store:  store,
		logger: logger.With("component", "service.account"),
		now:    time.Now,
	}
}

// Register creates a new user account. The handle and password policies
// are enforced before anything is stored; each violation surfaces as its
// own sentinel error so callers can name the failing property.
func (s *AccountService) Register(ctx context.Context, handle, password string) (*model.User, error) {
	handle = strings.TrimSpace(handle)
	if err := auth.CheckHandle(handle); err != nil {
		return nil, err
	}
	if err := auth.CheckPasswordStrength(password); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		ID:           model.NewID(),
		Handle:       handle,
		PasswordHash: hash,
		IsActive:     true,
		CreatedAt:    s.now().UTC(),
	}

	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrHandleExists) {
			return nil, ErrHandleTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info("user registered", "user_id", user.ID, "handle", user.Handle)
	return user, nil
}

// Authenticate verifies handle and password. An unknown handle and a wrong
// password produce the same error so the response never leaks which one it
// was. Deactivated accounts are rejected after the password check.
func (s *AccountService) Authenticate(ctx context.Context, handle, password string) (*model.User, error) {
	user, err := s.store.GetUserByHandle(ctx, strings.TrimSpace(handle))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	ok, err := auth.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	if !user.IsActive {
		return nil, ErrAccountDeactivated
	}

	return user, nil
}

// GetProfile returns the user record for a profile view.
func (s *AccountService) GetProfile(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// UpdateHandle changes the user's handle, subject to the handle policy and
// uniqueness.
func (s *AccountService) UpdateHandle(ctx context.Context, userID, handle string) (*model.User, error) {
	handle = strings.TrimSpace(handle)
	if err := auth.CheckHandle(handle); err != nil {
		return nil, err
	}

	if err := s.store.UpdateHandle(ctx, userID, handle); err != nil {
		switch {
		case errors.Is(err, repository.ErrHandleExists):
			return nil, ErrHandleTaken
		case errors.Is(err, repository.ErrUserNotFound):
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	return s.GetProfile(ctx, userID)
}

// ChangePassword replaces the user's password after verifying the current
// one. The new password must satisfy the strength policy.
func (s *AccountService) ChangePassword(ctx context.Context, userID, current, next string) error {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	ok, err := auth.VerifyPassword(current, user.PasswordHash)
	if err != nil {
		return fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return ErrInvalidCredentials
	}

	if err := auth.CheckPasswordStrength(next); err != nil {
		return err
	}

	hash, err := auth.HashPassword(next)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if err := s.store.UpdatePasswordHash(ctx, userID, hash); err != nil {
		return err
	}

	s.logger.Info("password changed", "user_id", userID)
	return nil
}

// EnsureAdmin creates the bootstrap admin account if it does not exist.
// A no-op when the handle is unset or the account is already present.
func (s *AccountService) EnsureAdmin(ctx context.Context, handle, password string) error {
	if handle == "" {
		return nil
	}

	_, err := s.store.GetUserByHandle(ctx, handle)
	if err == nil {
		return nil
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	admin := &model.User{
		ID:           model.NewID(),
		Handle:       handle,
		PasswordHash: hash,
		IsActive:     true,
		IsAdmin:      true,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.store.CreateUser(ctx, admin); err != nil {
		if errors.Is(err, repository.ErrHandleExists) {
			// Lost the race to another instance.
			return nil
		}
		return fmt.Errorf("create admin: %w", err)
	}

	s.logger.Info("admin account created", "handle", handle)
	return nil
}
