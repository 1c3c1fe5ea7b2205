package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter shares counters across instances through Redis. Each window is one
// key incremented with INCR and expired after the window.
type RedisLimiter struct {
	client redis.Cmdable
	prefix string
	limit  int
	window time.Duration
	now    func() time.Time
}

// NewRedisLimiter allows limit hits per key per window. Keys are stored under prefix.
func NewRedisLimiter(client redis.Cmdable, prefix string, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{client: client, prefix: prefix, limit: limit, window: window, now: time.Now}
}

// Allow counts a hit for key. Redis errors are returned; callers decide whether to fail open.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (Result, error) {
	now := l.now()
	windowStart := now.Truncate(l.window)
	redisKey := fmt.Sprintf("%s:%s:%d", l.prefix, key, windowStart.Unix())

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return Result{}, fmt.Errorf("ratelimit: %w", err)
	}
	if incr.Val() > int64(l.limit) {
		return Result{Allowed: false, RetryAfter: windowStart.Add(l.window).Sub(now)}, nil
	}
	return Result{Allowed: true}, nil
}

// NewRedisClient parses url (redis://host:port/db) and pings the server.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis url: %w", err)
	}
	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}
