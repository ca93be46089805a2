package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const rateLimitPrefix = "ratelimit:"

// RateLimiter counts requests per caller in fixed one-minute windows. The
// suggestion and recipe stages each burn an LLM completion, so the detect
// endpoint is the main thing this protects.
type RateLimiter struct {
	client            *Client
	requestsPerMinute int
	burst             int
}

func NewRateLimiter(client *Client, requestsPerMinute, burst int) *RateLimiter {
	return &RateLimiter{
		client:            client,
		requestsPerMinute: requestsPerMinute,
		burst:             burst,
	}
}

// Allow records one request against key and reports whether it fits the
// current window. Returns the requests left in the window and the time the
// window resets. The counter key expires with the window, so idle callers
// leave nothing behind.
func (r *RateLimiter) Allow(ctx context.Context, key string) (bool, int, time.Time, error) {
	bucket := rateLimitPrefix + key
	windowEnd := time.Now().Truncate(time.Minute).Add(time.Minute)

	pipe := r.client.rdb.Pipeline()
	incrCmd := pipe.Incr(ctx, bucket)
	pipe.ExpireNX(ctx, bucket, time.Minute)

	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return false, 0, time.Time{}, fmt.Errorf("failed to execute rate limit check: %w", err)
	}

	limit := int64(r.requestsPerMinute + r.burst)
	count := incrCmd.Val()

	remaining := int(limit - count)
	if remaining < 0 {
		remaining = 0
	}

	return count <= limit, remaining, windowEnd, nil
}
