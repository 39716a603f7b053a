package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis, *fakeClock) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	clock := &fakeClock{t: time.Now()}
	return NewStore(rdb, "session:", 0, clock.now), mr, clock
}

func TestSaveThenIsValid(t *testing.T) {
	store, _, _ := newTestStore(t)
	ctx := context.Background()

	if err := store.Save(ctx, "alice", "tok-1", time.Hour); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	valid, err := store.IsValid(ctx, "alice", "tok-1")
	if err != nil {
		t.Fatalf("IsValid failed: %v", err)
	}
	if !valid {
		t.Fatal("expected session to be valid for the saved token")
	}
}

func TestIsValidRequiresExactTokenMatch(t *testing.T) {
	store, _, _ := newTestStore(t)
	ctx := context.Background()

	if err := store.Save(ctx, "alice", "tok-1", time.Hour); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	valid, err := store.IsValid(ctx, "alice", "tok-other")
	if err != nil {
		t.Fatalf("IsValid failed: %v", err)
	}
	if valid {
		t.Fatal("different token must not validate")
	}
}

func TestSecondLoginSupersedesFirst(t *testing.T) {
	store, _, _ := newTestStore(t)
	ctx := context.Background()

	if err := store.Save(ctx, "alice", "tok-1", time.Hour); err != nil {
		t.Fatalf("Save #1 failed: %v", err)
	}
	if err := store.Save(ctx, "alice", "tok-2", time.Hour); err != nil {
		t.Fatalf("Save #2 failed: %v", err)
	}

	if valid, _ := store.IsValid(ctx, "alice", "tok-1"); valid {
		t.Fatal("superseded token must no longer validate")
	}
	if valid, _ := store.IsValid(ctx, "alice", "tok-2"); !valid {
		t.Fatal("current token must validate")
	}
}

func TestIsValidAfterTTLEviction(t *testing.T) {
	store, mr, _ := newTestStore(t)
	ctx := context.Background()

	if err := store.Save(ctx, "alice", "tok-1", time.Minute); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	mr.FastForward(61 * time.Second)

	if valid, err := store.IsValid(ctx, "alice", "tok-1"); err != nil || valid {
		t.Fatalf("evicted session: valid=%v err=%v", valid, err)
	}
}

func TestIsExpiredUsesStoredExpiryField(t *testing.T) {
	store, _, clock := newTestStore(t)
	ctx := context.Background()

	if err := store.Save(ctx, "alice", "tok-1", time.Minute); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	expired, err := store.IsExpired(ctx, "alice")
	if err != nil {
		t.Fatalf("IsExpired failed: %v", err)
	}
	if expired {
		t.Fatal("fresh session reported expired")
	}

	// Advance only the application clock; the Redis key still exists.
	clock.t = clock.t.Add(2 * time.Minute)

	expired, err = store.IsExpired(ctx, "alice")
	if err != nil {
		t.Fatalf("IsExpired failed: %v", err)
	}
	if !expired {
		t.Fatal("session past its stored expiry must report expired")
	}
}

func TestIsExpiredMissingSession(t *testing.T) {
	store, _, _ := newTestStore(t)

	expired, err := store.IsExpired(context.Background(), "ghost")
	if err != nil {
		t.Fatalf("IsExpired failed: %v", err)
	}
	if !expired {
		t.Fatal("missing session must count as expired")
	}
}

func TestRefreshExtendsWithoutRotatingToken(t *testing.T) {
	store, mr, clock := newTestStore(t)
	ctx := context.Background()

	if err := store.Save(ctx, "alice", "tok-1", time.Minute); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := store.Refresh(ctx, "alice", time.Hour); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}

	// Past the original minute, the refreshed session must still be live
	// and still hold the same token.
	mr.FastForward(2 * time.Minute)
	clock.t = clock.t.Add(2 * time.Minute)

	if valid, _ := store.IsValid(ctx, "alice", "tok-1"); !valid {
		t.Fatal("refreshed session must outlive the original TTL")
	}
	if expired, _ := store.IsExpired(ctx, "alice"); expired {
		t.Fatal("refreshed session must not report expired")
	}
}

func TestRefreshNonexistentSessionFails(t *testing.T) {
	store, _, _ := newTestStore(t)

	err := store.Refresh(context.Background(), "ghost", time.Hour)
	if !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestRefreshDoesNotResurrectRemovedSession(t *testing.T) {
	store, _, _ := newTestStore(t)
	ctx := context.Background()

	if err := store.Save(ctx, "alice", "tok-1", time.Hour); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := store.Remove(ctx, "alice"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}

	if err := store.Refresh(ctx, "alice", time.Hour); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	if valid, _ := store.IsValid(ctx, "alice", "tok-1"); valid {
		t.Fatal("refresh must not recreate a removed session")
	}
}

func TestRemoveIsIdempotent(t *testing.T) {
	store, _, _ := newTestStore(t)
	ctx := context.Background()

	if err := store.Save(ctx, "alice", "tok-1", time.Hour); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := store.Remove(ctx, "alice"); err != nil {
			t.Fatalf("Remove #%d failed: %v", i+1, err)
		}
	}
}

func TestStoreUnavailableSurfaced(t *testing.T) {
	store, mr, _ := newTestStore(t)
	ctx := context.Background()
	mr.Close()

	if err := store.Save(ctx, "alice", "tok", time.Hour); !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("Save: expected ErrRedisUnavailable, got %v", err)
	}
	if _, err := store.IsValid(ctx, "alice", "tok"); !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("IsValid: expected ErrRedisUnavailable, got %v", err)
	}
	if _, err := store.IsExpired(ctx, "alice"); !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("IsExpired: expected ErrRedisUnavailable, got %v", err)
	}
	if err := store.Refresh(ctx, "alice", time.Hour); !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("Refresh: expected ErrRedisUnavailable, got %v", err)
	}
	if err := store.Remove(ctx, "alice"); !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("Remove: expected ErrRedisUnavailable, got %v", err)
	}
}
