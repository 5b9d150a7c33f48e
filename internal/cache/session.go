package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/moreai/moreai/internal/model"
)

const (
	// sessionCachePrefix is the Redis key prefix for validated sessions.
	sessionCachePrefix = "session:"
	// sessionCacheTTL bounds staleness of the cached validation result.
	// Revocation deletes the key immediately; expiry is re-checked on read.
	sessionCacheTTL = 5 * time.Minute
)

// cachedSession is the session record stored in Redis.
type cachedSession struct {
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// GetSession retrieves a cached validated session by token.
// Returns nil on cache miss or if the cached session has since expired.
func (c *Cache) GetSession(ctx context.Context, token string) (*model.AuthContext, error) {
	data, err := c.client.Get(ctx, sessionCachePrefix+token).Bytes()
	if err != nil {
		// Cache miss is not an error
		return nil, nil //nolint:nilerr
	}

	var cached cachedSession
	if err := json.Unmarshal(data, &cached); err != nil {
		// Corrupted cache entry - treat as miss
		return nil, nil //nolint:nilerr
	}

	if !time.Now().Before(cached.ExpiresAt) {
		_ = c.client.Del(ctx, sessionCachePrefix+token).Err()
		return nil, nil
	}

	return &model.AuthContext{UserID: cached.UserID, SessionID: token}, nil
}

// SetSession caches a validated session.
func (c *Cache) SetSession(ctx context.Context, session *model.Session) error {
	cached := cachedSession{
		UserID:    session.UserID,
		ExpiresAt: session.ExpiresAt,
	}

	data, err := json.Marshal(cached)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	ttl := sessionCacheTTL
	if remaining := time.Until(session.ExpiresAt); remaining < ttl {
		ttl = remaining
	}
	if ttl <= 0 {
		return nil
	}

	return c.client.Set(ctx, sessionCachePrefix+session.ID, data, ttl).Err()
}

// DeleteSession removes a cached session. Used on logout and revocation so a
// revoked token stops validating immediately.
func (c *Cache) DeleteSession(ctx context.Context, token string) error {
	return c.client.Del(ctx, sessionCachePrefix+token).Err()
}
