// Package testutil provides helpers for integration tests.
package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/moreai/moreai/internal/model"
)

// RequireEnv returns an environment variable or skips the test if missing.
func RequireEnv(t testing.TB, key string) string {
	t.Helper()
	value := os.Getenv(key)
	if value == "" {
		t.Skipf("%s not set", key)
	}
	return value
}

const advisoryLockID int64 = 271828

// AcquireDBLock grabs a global advisory lock to serialize DB tests.
func AcquireDBLock(ctx context.Context, pool *pgxpool.Pool) (func() error, error) {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}

	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", advisoryLockID); err != nil {
		conn.Release()
		return nil, fmt.Errorf("acquire advisory lock: %w", err)
	}

	unlock := func() error {
		defer conn.Release()
		if _, err := conn.Exec(ctx, "SELECT pg_advisory_unlock($1)", advisoryLockID); err != nil {
			return fmt.Errorf("release advisory lock: %w", err)
		}
		return nil
	}

	return unlock, nil
}

// migrations in dependency order. Down migrations run in reverse.
var migrations = []string{
	"000001_users",
	"000002_sessions",
	"000003_conversations",
}

// ResetSchema drops and recreates the full schema for tests.
func ResetSchema(ctx context.Context, pool *pgxpool.Pool) error {
	root, err := ProjectRoot()
	if err != nil {
		return err
	}

	for i := len(migrations) - 1; i >= 0; i-- {
		if err := applyMigration(ctx, pool, root, migrations[i]+".down.sql"); err != nil {
			return err
		}
	}
	for _, name := range migrations {
		if err := applyMigration(ctx, pool, root, name+".up.sql"); err != nil {
			return err
		}
	}
	return nil
}

func applyMigration(ctx context.Context, pool *pgxpool.Pool, root, file string) error {
	sql, err := os.ReadFile(filepath.Join(root, "migrations", file))
	if err != nil {
		return fmt.Errorf("read migration %s: %w", file, err)
	}
	if _, err := pool.Exec(ctx, string(sql)); err != nil {
		return fmt.Errorf("apply migration %s: %w", file, err)
	}
	return nil
}

// FlushRedis clears the current Redis database.
func FlushRedis(ctx context.Context, client *redis.Client) error {
	return client.FlushDB(ctx).Err()
}

// ProjectRoot returns the project root directory.
func ProjectRoot() (string, error) {
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		return "", fmt.Errorf("failed to resolve testutil path")
	}
	root := filepath.Clean(filepath.Join(filepath.Dir(filename), "..", ".."))
	return root, nil
}

// ============================================================================
// Test Data Factories
// ============================================================================

// NewTestUser creates a test user with sensible defaults.
func NewTestUser(t testing.TB, handle string) *model.User {
	t.Helper()
	return &model.User{
		ID:           model.NewID(),
		Handle:       handle,
		PasswordHash: "$argon2id$v=19$m=65536,t=3,p=4$dGVzdHNhbHQ$dGVzdGhhc2g",
		IsActive:     true,
		CreatedAt:    time.Now().UTC(),
	}
}

// NewTestSession creates a test session for a user. The token is a real
// UUID because the sessions table stores it in a uuid column.
func NewTestSession(t testing.TB, userID string, ttl time.Duration) *model.Session {
	t.Helper()
	now := time.Now().UTC()
	return &model.Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
		IsActive:  true,
	}
}

// NewTestEntry creates a test conversation entry.
func NewTestEntry(t testing.TB, userID, body, kind string) *model.Entry {
	t.Helper()
	return &model.Entry{
		ID:        model.NewID(),
		UserID:    userID,
		Body:      body,
		Kind:      kind,
		CreatedAt: time.Now().UTC(),
	}
}

// UniqueHandle generates a unique handle for tests.
func UniqueHandle(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}

// UniqueID generates a unique ID for tests.
func UniqueID(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}
