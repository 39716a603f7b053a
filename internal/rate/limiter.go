package rate

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "rate_limit:"

// KeyFor derives the counter key for a protected operation and a caller
// identity. Distinct operations and distinct callers never collide.
//
// The caller identity is a connection-level address. Behind shared NAT or
// proxies this under-distinguishes clients; switching to a forwarded-header
// scheme is a deployment decision, not one this package makes silently.
func KeyFor(operation, clientID string) string {
	return keyPrefix + operation + ":" + clientID
}

// Limiter counts requests per key within a fixed window using a shared
// Redis counter, so concurrent admit calls across many service instances
// see one consistent count.
type Limiter struct {
	redis     redis.UniversalClient
	opTimeout time.Duration
}

// New creates a [Limiter] backed by the given Redis client. opTimeout
// bounds each admission round-trip; zero disables the bound.
func New(client redis.UniversalClient, opTimeout time.Duration) *Limiter {
	return &Limiter{
		redis:     client,
		opTimeout: opTimeout,
	}
}

// Admit atomically increments the counter for key and decides admission.
// The increment is a single INCR round-trip, never read-modify-write, so
// concurrent callers cannot under-count. The TTL is set only on the
// increment that creates the key; a narrow window where the TTL is not yet
// set merely lets the key outlive the nominal window slightly.
//
// Returns nil when admitted, [ErrRateLimited] when the post-increment
// count strictly exceeds limit, and [ErrRedisUnavailable] on store
// failure (the engine fails open in that case).
func (l *Limiter) Admit(ctx context.Context, key string, limit int, window time.Duration) error {
	if limit <= 0 || window <= 0 {
		return fmt.Errorf("invalid limiter parameters: limit=%d window=%s", limit, window)
	}

	ctx, cancel := l.bound(ctx)
	defer cancel()

	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	if count == 1 {
		if err := l.redis.Expire(ctx, key, window).Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	if count > int64(limit) {
		return ErrRateLimited
	}
	return nil
}

func (l *Limiter) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if l.opTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, l.opTimeout)
}
