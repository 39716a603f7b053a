package revocation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return NewStore(rdb, "revoked:", 0, nil), mr
}

func TestRevokeThenIsRevoked(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	token := "header.payload.signature"
	if revoked, err := store.IsRevoked(ctx, token); err != nil || revoked {
		t.Fatalf("fresh token: revoked=%v err=%v", revoked, err)
	}

	if err := store.Revoke(ctx, token, time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("Revoke failed: %v", err)
	}

	revoked, err := store.IsRevoked(ctx, token)
	if err != nil {
		t.Fatalf("IsRevoked failed: %v", err)
	}
	if !revoked {
		t.Fatal("expected token to be revoked")
	}
}

func TestRevokeIsIdempotent(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	exp := time.Now().Add(time.Hour)
	for i := 0; i < 3; i++ {
		if err := store.Revoke(ctx, "tok", exp); err != nil {
			t.Fatalf("Revoke #%d failed: %v", i+1, err)
		}
	}

	if revoked, _ := store.IsRevoked(ctx, "tok"); !revoked {
		t.Fatal("expected token to remain revoked")
	}
}

func TestRevokeSkipsAlreadyExpiredToken(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	if err := store.Revoke(ctx, "stale", time.Now().Add(-time.Minute)); err != nil {
		t.Fatalf("Revoke failed: %v", err)
	}

	// Nothing should have been written at all.
	if got := len(mr.Keys()); got != 0 {
		t.Fatalf("expected no keys, found %d", got)
	}
}

func TestRevocationEntryExpiresWithToken(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	if err := store.Revoke(ctx, "tok", time.Now().Add(time.Minute)); err != nil {
		t.Fatalf("Revoke failed: %v", err)
	}

	mr.FastForward(61 * time.Second)

	revoked, err := store.IsRevoked(ctx, "tok")
	if err != nil {
		t.Fatalf("IsRevoked failed: %v", err)
	}
	if revoked {
		t.Fatal("entry should have been reclaimed after the token's own expiry")
	}
}

func TestDistinctTokensDoNotCollide(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	if err := store.Revoke(ctx, "tok-a", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("Revoke failed: %v", err)
	}

	if revoked, _ := store.IsRevoked(ctx, "tok-b"); revoked {
		t.Fatal("unrelated token reported revoked")
	}
}

func TestStoreUnavailableSurfaced(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()
	mr.Close()

	if err := store.Revoke(ctx, "tok", time.Now().Add(time.Hour)); !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("expected ErrRedisUnavailable, got %v", err)
	}
	if _, err := store.IsRevoked(ctx, "tok"); !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("expected ErrRedisUnavailable, got %v", err)
	}
}
