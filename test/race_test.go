//go:build integration
// +build integration

package test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/taskvault/authkit/internal/rate"
	"github.com/taskvault/authkit/session"
)

func TestRefreshVsRemoveRace(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	ctx := context.Background()
	store := newSessionStore(rdb)

	if err := store.Save(ctx, "alice", "token-r", time.Hour); err != nil {
		t.Fatalf("save: %v", err)
	}

	start := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(2)

	var refreshErr, removeErr error
	go func() {
		defer wg.Done()
		<-start
		refreshErr = store.Refresh(ctx, "alice", time.Hour)
	}()
	go func() {
		defer wg.Done()
		<-start
		removeErr = store.Remove(ctx, "alice")
	}()

	close(start)
	wg.Wait()

	if removeErr != nil {
		t.Fatalf("remove: %v", removeErr)
	}
	if refreshErr != nil && !errors.Is(refreshErr, session.ErrSessionNotFound) {
		t.Fatalf("unexpected refresh error: %v", refreshErr)
	}

	// Whichever order won, the refresh must not have recreated the key:
	// the extend script refuses to touch a missing session.
	if refreshErr != nil && mr.Exists("session:alice") {
		t.Fatal("lost refresh resurrected a removed session")
	}
}

func TestConcurrentAdmitExactBudget(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	ctx := context.Background()
	limiter := rate.New(rdb, 5*time.Second)
	key := rate.KeyFor("login", "198.51.100.4")

	const workers = 48
	const limit = 32

	start := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(workers)

	results := make(chan error, workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			<-start
			results <- limiter.Admit(ctx, key, limit, time.Minute)
		}()
	}

	close(start)
	wg.Wait()
	close(results)

	admitted, rejected := 0, 0
	for err := range results {
		switch {
		case err == nil:
			admitted++
		case errors.Is(err, rate.ErrRateLimited):
			rejected++
		default:
			t.Fatalf("unexpected admit error: %v", err)
		}
	}

	// INCR hands out distinct counts, so exactly limit callers win.
	if admitted != limit {
		t.Fatalf("admitted %d, want exactly %d", admitted, limit)
	}
	if rejected != workers-limit {
		t.Fatalf("rejected %d, want %d", rejected, workers-limit)
	}
}
