package session

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrRedisUnavailable wraps every transport-level failure.
	ErrRedisUnavailable = errors.New("redis unavailable")
	// ErrSessionNotFound is returned by Refresh when no session exists for
	// the user. Refresh never creates a session.
	ErrSessionNotFound = errors.New("session not found")
)

const (
	fieldToken  = "token"
	fieldExpiry = "expiry"
)

// refreshScript extends the expiry field and key TTL only when the session
// hash already exists. The existence check and the write must be one atomic
// step so a concurrent logout cannot resurrect a deleted session.
const refreshScript = `
if redis.call("EXISTS", KEYS[1]) == 0 then
  return 0
end
redis.call("HSET", KEYS[1], "expiry", ARGV[1])
redis.call("PEXPIRE", KEYS[1], ARGV[2])
return 1
`

var refreshLua = redis.NewScript(refreshScript)

// Store is the Redis-backed session registry. One hash per username under
// prefix, fields "token" (current active token string) and "expiry"
// (absolute epoch millis). Writing a session overwrites the prior one in
// place: a second login silently supersedes the first session's refresh
// capability. That single-session-per-user policy is deliberate.
type Store struct {
	redis     redis.UniversalClient
	prefix    string
	opTimeout time.Duration
	now       func() time.Time
}

// NewStore creates a session [Store] backed by the given Redis client.
// prefix sets the key namespace (the conventional value is "session:");
// opTimeout bounds each round-trip; now supplies the clock, defaulting to
// time.Now when nil.
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

func (s *Store) key(username string) string {
	return s.prefix + username
}

// Save unconditionally overwrites the user's session record with token and
// an expiry ttl from now, and mirrors ttl onto the key itself.
//
//	Performance: 1 Redis round-trip (transactional pipeline).
func (s *Store) Save(ctx context.Context, username, token string, ttl time.Duration) error {
	key := s.key(username)
	expiry := s.now().Add(ttl).UnixMilli()

	ctx, cancel := s.bound(ctx)
	defer cancel()

	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, fieldToken, token, fieldExpiry, strconv.FormatInt(expiry, 10))
		pipe.Expire(ctx, key, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// IsValid reports whether a session exists for username and its stored
// token equals the supplied token exactly. A missing key (including one
// evicted by TTL) is simply not valid, never an error.
func (s *Store) IsValid(ctx context.Context, username, token string) (bool, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	stored, err := s.redis.HGet(ctx, s.key(username), fieldToken).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return subtle.ConstantTimeCompare([]byte(stored), []byte(token)) == 1, nil
}

// IsExpired compares the stored expiry field against the clock. This is an
// application-level check independent of Redis TTL eviction, guarding
// against skew between the store's clock and ours. A missing or mangled
// expiry field counts as expired.
func (s *Store) IsExpired(ctx context.Context, username string) (bool, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	raw, err := s.redis.HGet(ctx, s.key(username), fieldExpiry).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return true, nil
		}
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	expiry, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return true, nil
	}

	return s.now().UnixMilli() > expiry, nil
}

// Refresh extends the session's expiry and TTL by ttl without changing the
// stored token. Returns [ErrSessionNotFound] when no session exists; a
// refresh must never silently create one.
//
//	Performance: 1 Lua EVALSHA (atomic exists-then-extend).
func (s *Store) Refresh(ctx context.Context, username string, ttl time.Duration) error {
	key := s.key(username)
	expiry := s.now().Add(ttl).UnixMilli()

	ctx, cancel := s.bound(ctx)
	defer cancel()

	res, err := refreshLua.Run(ctx, s.redis, []string{key},
		strconv.FormatInt(expiry, 10),
		strconv.FormatInt(ttl.Milliseconds(), 10),
	).Int64()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if res == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// Remove deletes the user's session record. Idempotent: removing a
// nonexistent session is not an error.
func (s *Store) Remove(ctx context.Context, username string) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	if err := s.redis.Del(ctx, s.key(username)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func (s *Store) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.opTimeout)
}
