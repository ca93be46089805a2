package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/quochai/cookflow/internal/domain"
)

const (
	statusCachePrefix = "status:"
	statusCacheTTL    = 10 * time.Second
)

// StatusCache caches session status projections in Redis. Entries are
// short-lived and invalidated on every session write, so stale reads are
// bounded to the TTL even if an invalidation is lost.
type StatusCache struct {
	client *Client
}

// NewStatusCache creates a new status cache
func NewStatusCache(client *Client) *StatusCache {
	return &StatusCache{client: client}
}

// Get retrieves a cached status for a session
func (c *StatusCache) Get(ctx context.Context, sessionID uuid.UUID) (*domain.SessionStatus, error) {
	key := fmt.Sprintf("%s%s", statusCachePrefix, sessionID.String())

	data, err := c.client.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return nil, nil // Cache miss
	}

	var status domain.SessionStatus
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, fmt.Errorf("failed to unmarshal status: %w", err)
	}

	return &status, nil
}

// Set caches a status projection for a session
func (c *StatusCache) Set(ctx context.Context, sessionID uuid.UUID, status *domain.SessionStatus) error {
	key := fmt.Sprintf("%s%s", statusCachePrefix, sessionID.String())

	data, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("failed to marshal status: %w", err)
	}

	return c.client.rdb.Set(ctx, key, data, statusCacheTTL).Err()
}

// Invalidate removes a cached status for a session
func (c *StatusCache) Invalidate(ctx context.Context, sessionID uuid.UUID) error {
	key := fmt.Sprintf("%s%s", statusCachePrefix, sessionID.String())
	return c.client.rdb.Del(ctx, key).Err()
}
