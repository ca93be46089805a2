package redis

import (
	"context"
	"fmt"

	"github.com/quochai/cookflow/internal/config"
	"github.com/redis/go-redis/v9"
)

// Client owns the shared connection used by the rate limiter and the
// status cache. Redis is optional for this service; callers only construct
// a Client when redis.enabled is set.
type Client struct {
	rdb *redis.Client
}

// NewClient connects to Redis and verifies the connection with a ping, so
// a misconfigured address fails at startup rather than on first request.
func NewClient(cfg config.RedisConfig) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

func (c *Client) Close() error {
	return c.rdb.Close()
}

// Client exposes the underlying connection for health checks.
func (c *Client) Client() *redis.Client {
	return c.rdb
}
