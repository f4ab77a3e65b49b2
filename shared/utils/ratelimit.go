package utils

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RateLimitResult is the admission-control decision for one request.
type RateLimitResult struct {
	Allowed bool
	// Remaining requests in the current window (0 when denied).
	Remaining int64
	// RetryAfter is how long until the window resets; only meaningful on deny.
	RetryAfter time.Duration
	// Failed marks a limiter transport failure. Allowed reflects the
	// configured isolation mode in that case.
	Failed bool
}

// RateLimiter is a fixed-window per-tenant counter backed by Redis. The
// increment is atomic on the Redis side, so concurrent gateway instances
// share one budget without coordination.
type RateLimiter struct {
	client *redis.Client
	// DefaultLimit applies when a tenant has no quota override.
	defaultLimit int64
	window       time.Duration
	// failOpen treats limiter transport failures as Allow.
	failOpen bool
}

// NewRateLimiter creates a limiter. failOpen selects the permissive failure
// mode; strict deployments pass false and reject on limiter failure.
func NewRateLimiter(client *redis.Client, defaultLimit int64, window time.Duration, failOpen bool) *RateLimiter {
	return &RateLimiter{
		client:       client,
		defaultLimit: defaultLimit,
		window:       window,
		failOpen:     failOpen,
	}
}

// Allow records one request for the tenant and decides admission. limit <= 0
// selects the system default budget.
func (rl *RateLimiter) Allow(ctx context.Context, tenantID string, limit int64) RateLimitResult {
	if limit <= 0 {
		limit = rl.defaultLimit
	}

	if rl.client == nil {
		return RateLimitResult{Allowed: rl.failOpen, Failed: true}
	}

	windowStart := time.Now().Truncate(rl.window)
	key := fmt.Sprintf("ratelimit:tenant:%s:%d", tenantID, windowStart.Unix())

	pipe := rl.client.TxPipeline()
	count := pipe.Incr(ctx, key)
	// Expire a window past the boundary so a slow clock never loses the key
	// before the window ends.
	pipe.Expire(ctx, key, rl.window*2)
	if _, err := pipe.Exec(ctx); err != nil {
		return RateLimitResult{Allowed: rl.failOpen, Failed: true}
	}

	used := count.Val()
	if used > limit {
		retryAfter := time.Until(windowStart.Add(rl.window))
		if retryAfter < time.Second {
			retryAfter = time.Second
		}
		return RateLimitResult{Allowed: false, Remaining: 0, RetryAfter: retryAfter}
	}

	return RateLimitResult{Allowed: true, Remaining: limit - used}
}

// Exceeded reports whether the tenant's budget is already spent in the
// current window, without consuming a request. Used by the administrative
// resolve operation; transport failures read as not-exceeded.
func (rl *RateLimiter) Exceeded(ctx context.Context, tenantID string, limit int64) (bool, time.Duration) {
	if limit <= 0 {
		limit = rl.defaultLimit
	}
	if rl.client == nil {
		return false, 0
	}

	windowStart := time.Now().Truncate(rl.window)
	key := fmt.Sprintf("ratelimit:tenant:%s:%d", tenantID, windowStart.Unix())

	used, err := rl.client.Get(ctx, key).Int64()
	if err != nil {
		return false, 0
	}
	if used >= limit {
		retryAfter := time.Until(windowStart.Add(rl.window))
		if retryAfter < time.Second {
			retryAfter = time.Second
		}
		return true, retryAfter
	}
	return false, 0
}

// Window returns the configured window length.
func (rl *RateLimiter) Window() time.Duration {
	return rl.window
}

// DefaultLimit returns the system default request budget per window.
func (rl *RateLimiter) DefaultLimit() int64 {
	return rl.defaultLimit
}
