// Package ratelimit provides a Redis-backed, TTL-windowed counter so
// per-visitor limits hold across horizontally scaled instances.
// In-process maps would reset on deploy and undercount behind a load
// balancer.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter counts hits per key in fixed windows.
type Limiter struct {
	client *redis.Client
}

// New connects to Redis and verifies the connection.
func New(ctx context.Context, redisURL string) (*Limiter, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return &Limiter{client: client}, nil
}

// Allow increments the key's window counter and reports whether the hit
// is within limit. The window key embeds its start time so expiry and
// key identity always agree.
func (l *Limiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	bucket := time.Now().UTC().Truncate(window).Unix()
	redisKey := fmt.Sprintf("ratelimit:%s:%d", key, bucket)

	count, err := l.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return false, err
	}

	if count == 1 {
		l.client.Expire(ctx, redisKey, window)
	}

	return count <= int64(limit), nil
}

// Ping checks Redis liveness for readiness probes.
func (l *Limiter) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}

// Close releases the client.
func (l *Limiter) Close() error {
	return l.client.Close()
}
