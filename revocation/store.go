package revocation

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable wraps every transport-level failure so callers can
// apply a single fail-open/fail-closed policy instead of inspecting raw
// client errors per call site.
var ErrRedisUnavailable = errors.New("redis unavailable")

const revokedSentinel = "revoked"

// Store is the Redis-backed revocation registry. Presence of a key means
// "reject this exact token string unconditionally", regardless of whether
// the token would otherwise still verify.
//
// Entries carry a TTL equal to the token's remaining lifetime, so the
// registry reclaims itself once a revoked token would have expired anyway.
type Store struct {
	redis     redis.UniversalClient
	prefix    string
	opTimeout time.Duration
	now       func() time.Time
}

// NewStore creates a revocation [Store]. prefix namespaces the Redis keys;
// opTimeout bounds every store round-trip (zero disables the bound); now
// supplies the clock and falls back to time.Now when nil.
func NewStore(client redis.UniversalClient, prefix string, opTimeout time.Duration, now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{
		redis:     client,
		prefix:    prefix,
		opTimeout: opTimeout,
		now:       now,
	}
}

// key hashes the raw token so arbitrarily long bearer strings map to a
// fixed-size Redis key and the token material itself never lands in the store.
func (s *Store) key(token string) string {
	sum := sha256.Sum256([]byte(token))
	return s.prefix + hex.EncodeToString(sum[:])
}

// Revoke inserts token into the registry with TTL = expiresAt - now.
// Idempotent: revoking an already revoked token refreshes the same entry.
// Tokens already past expiresAt are skipped, they are unusable regardless.
func (s *Store) Revoke(ctx context.Context, token string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(s.now())
	if ttl <= 0 {
		return nil
	}

	ctx, cancel := s.bound(ctx)
	defer cancel()

	if err := s.redis.Set(ctx, s.key(token), revokedSentinel, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// IsRevoked reports whether token is present in the registry. A store
// failure is returned as [ErrRedisUnavailable]; the engine decides whether
// that fails open or closed.
func (s *Store) IsRevoked(ctx context.Context, token string) (bool, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	n, err := s.redis.Exists(ctx, s.key(token)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return n > 0, nil
}

func (s *Store) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.opTimeout)
}
