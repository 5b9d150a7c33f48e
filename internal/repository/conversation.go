package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/moreai/moreai/internal/model"
)

// BeginTurn runs the first half of a chat turn inside one transaction,
// serialized per user by an advisory lock:
//
//  1. duplicate guard - if the identical body is the most recent user-kind
//     entry within the window, nothing is inserted;
//  2. the user's full prior history is read in timestamp order;
//  3. the new user entry is appended.
//
// The advisory lock is transaction-scoped, so two concurrent identical
// requests cannot both pass the guard. The remote completion call happens
// outside this transaction; the assistant reply is appended later with
// InsertEntry.
func (r *Repository) BeginTurn(ctx context.Context, entry *model.Entry, window time.Duration) (history []*model.Entry, inserted bool, err error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// Serialize turn starts per user for the duration of this transaction.
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, entry.UserID); err != nil {
		return nil, false, fmt.Errorf("failed to acquire turn lock: %w", err)
	}

	guardQuery := `
		SELECT body, created_at
		FROM conversation_entries
		WHERE user_id = $1 AND kind = $2
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`
	var lastBody string
	var lastAt time.Time
	err = tx.QueryRow(ctx, guardQuery, entry.UserID, model.KindUser).Scan(&lastBody, &lastAt)
	switch {
	case err == nil:
		if lastBody == entry.Body && entry.CreatedAt.Sub(lastAt) <= window {
			// Resubmission of the same message: silent no-op.
			return nil, false, tx.Commit(ctx)
		}
	case errors.Is(err, pgx.ErrNoRows):
		// First message ever for this user.
	default:
		return nil, false, fmt.Errorf("failed to check duplicate guard: %w", err)
	}

	historyQuery := `
		SELECT id, user_id, body, kind, created_at
		FROM conversation_entries
		WHERE user_id = $1
		ORDER BY created_at ASC, id ASC
	`
	rows, err := tx.Query(ctx, historyQuery, entry.UserID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to load history: %w", err)
	}
	history, err = scanEntries(rows)
	if err != nil {
		return nil, false, err
	}

	if err := insertEntry(ctx, tx, entry); err != nil {
		return nil, false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, false, fmt.Errorf("failed to commit turn: %w", err)
	}
	return history, true, nil
}

// InsertEntry appends a single conversation entry.
func (r *Repository) InsertEntry(ctx context.Context, entry *model.Entry) error {
	return insertEntry(ctx, r.pool, entry)
}

// execer covers both pgxpool.Pool and pgx.Tx.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func insertEntry(ctx context.Context, db execer, entry *model.Entry) error {
	query := `
		INSERT INTO conversation_entries (id, user_id, body, kind, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := db.Exec(ctx, query,
		entry.ID,
		entry.UserID,
		entry.Body,
		entry.Kind,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert entry: %w", err)
	}
	return nil
}

// ListEntries returns all of a user's entries in ascending timestamp order.
func (r *Repository) ListEntries(ctx context.Context, userID string) ([]*model.Entry, error) {
	query := `
		SELECT id, user_id, body, kind, created_at
		FROM conversation_entries
		WHERE user_id = $1
		ORDER BY created_at ASC, id ASC
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}
	return scanEntries(rows)
}

// ListJournal returns the user's log-kind entries, newest first.
func (r *Repository) ListJournal(ctx context.Context, userID string) ([]*model.Entry, error) {
	query := `
		SELECT id, user_id, body, kind, created_at
		FROM conversation_entries
		WHERE user_id = $1 AND kind = $2
		ORDER BY created_at DESC, id DESC
	`

	rows, err := r.pool.Query(ctx, query, userID, model.KindLog)
	if err != nil {
		return nil, fmt.Errorf("failed to list journal: %w", err)
	}
	return scanEntries(rows)
}

// ListActiveUserIDs returns the IDs of users with user/assistant entries in
// the [from, to) interval. Used by the daily summarizer.
func (r *Repository) ListActiveUserIDs(ctx context.Context, from, to time.Time) ([]string, error) {
	query := `
		SELECT DISTINCT user_id
		FROM conversation_entries
		WHERE kind IN ($1, $2) AND created_at >= $3 AND created_at < $4
	`

	rows, err := r.pool.Query(ctx, query, model.KindUser, model.KindAssistant, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list active users: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan user id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating user ids: %w", err)
	}
	return ids, nil
}

// ListEntriesBetween returns a user's user/assistant entries in [from, to),
// ascending. Log entries are excluded because summaries never feed on
// earlier summaries.
func (r *Repository) ListEntriesBetween(ctx context.Context, userID string, from, to time.Time) ([]*model.Entry, error) {
	query := `
		SELECT id, user_id, body, kind, created_at
		FROM conversation_entries
		WHERE user_id = $1 AND kind IN ($2, $3) AND created_at >= $4 AND created_at < $5
		ORDER BY created_at ASC, id ASC
	`

	rows, err := r.pool.Query(ctx, query, userID, model.KindUser, model.KindAssistant, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list entries between: %w", err)
	}
	return scanEntries(rows)
}

func scanEntries(rows pgx.Rows) ([]*model.Entry, error) {
	defer rows.Close()

	var entries []*model.Entry
	for rows.Next() {
		var e model.Entry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Body, &e.Kind, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		entries = append(entries, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating entries: %w", err)
	}
	return entries, nil
}
