package middleware

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisFixedWindowLimiter shares one counter per key across API replicas.
// The window is opened by SET NX PX and counted by INCR inside a single
// MULTI block, so the expiry is never lost when a replica dies mid-request.
type RedisFixedWindowLimiter struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisFixedWindowLimiter(client redis.UniversalClient, prefix string) *RedisFixedWindowLimiter {
	if prefix == "" {
		prefix = "catalog:rl"
	}
	return &RedisFixedWindowLimiter{client: client, prefix: prefix}
}

func (l *RedisFixedWindowLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (Decision, error) {
	if l.client == nil {
		return Decision{}, errors.New("rate limit redis client not configured")
	}
	if key == "" {
		key = "unknown"
	}
	limit = max(limit, 1)
	if window < time.Millisecond {
		window = time.Second
	}

	storeKey := l.prefix + ":" + key
	var (
		incr *redis.IntCmd
		pttl *redis.DurationCmd
	)
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SetNX(ctx, storeKey, 0, window)
		incr = pipe.Incr(ctx, storeKey)
		pttl = pipe.PTTL(ctx, storeKey)
		return nil
	})
	if err != nil {
		return Decision{}, err
	}

	count := incr.Val()
	ttl := pttl.Val()
	if ttl <= 0 {
		ttl = window
	}
	d := Decision{
		Allowed:   count <= int64(limit),
		Remaining: int(max(int64(limit)-count, 0)),
		ResetAt:   time.Now().Add(ttl),
	}
	if !d.Allowed {
		d.RetryAfter = ttl
	}
	return d, nil
}
