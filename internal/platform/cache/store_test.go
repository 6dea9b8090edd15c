package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestLoad_SharesConcurrentMisses(t *testing.T) {
	t.Parallel()

	store := NewStore(time.Minute)
	var calls atomic.Int32
	loader := func(context.Context) (string, error) {
		calls.Add(1)
		time.Sleep(20 * time.Millisecond)
		return "value", nil
	}

	const workers = 32
	start := make(chan struct{})
	errCh := make(chan error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			got, err := Load(context.Background(), store, "team:list", loader)
			if err == nil && got != "value" {
				err = errUnexpectedValue
			}
			errCh <- err
		}()
	}
	close(start)
	wg.Wait()
	close(errCh)

	for err := range errCh {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("loader called %d times, want 1", got)
	}
}

func TestLoad_ExpiresAfterTTL(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.March, 1, 18, 0, 0, 0, time.UTC)
	store := NewStore(time.Minute)
	store.now = func() time.Time { return now }

	var calls int
	loader := func(context.Context) (int, error) {
		calls++
		return calls, nil
	}
	ctx := context.Background()

	first, _ := Load(ctx, store, "scores:team-red", loader)
	again, _ := Load(ctx, store, "scores:team-red", loader)
	if first != 1 || again != 1 {
		t.Fatalf("expected cached value 1, got %d then %d", first, again)
	}

	now = now.Add(time.Minute)
	if store.Len() != 0 {
		t.Fatalf("expired entry still counted")
	}
	if got, _ := Load(ctx, store, "scores:team-red", loader); got != 2 {
		t.Fatalf("expected reload after ttl, got %d", got)
	}
}

func TestStore_DeletePrefix(t *testing.T) {
	t.Parallel()

	store := NewStore(0)
	ctx := context.Background()
	for _, key := range []string{"scores:red", "scores:blue", "team:list"} {
		if _, err := Load(ctx, store, key, func(context.Context) (string, error) { return key, nil }); err != nil {
			t.Fatalf("load %s: %v", key, err)
		}
	}

	store.DeletePrefix(ctx, "scores:")

	if n := store.Len(); n != 1 {
		t.Fatalf("expected only team:list to survive, have %d entries", n)
	}
	if _, ok := store.lookup("team:list"); !ok {
		t.Fatalf("team:list should survive prefix delete")
	}
}

func TestLoad_DropsResultInvalidatedMidFlight(t *testing.T) {
	t.Parallel()

	store := NewStore(time.Minute)
	ctx := context.Background()

	_, err := Load(ctx, store, "team:list", func(context.Context) (string, error) {
		store.DeletePrefix(ctx, "team:")
		return "stale", nil
	})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, ok := store.lookup("team:list"); ok {
		t.Fatalf("a load that raced an invalidation must not be cached")
	}
}

func TestLoad_TypeMismatch(t *testing.T) {
	t.Parallel()

	store := NewStore(time.Minute)
	ctx := context.Background()
	if _, err := Load(ctx, store, "answer", func(context.Context) (string, error) { return "seven", nil }); err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, err := Load(ctx, store, "answer", func(context.Context) (int, error) { return 7, nil }); err == nil {
		t.Fatalf("expected type mismatch error")
	}
}

func TestLoad_PropagatesLoaderError(t *testing.T) {
	t.Parallel()

	store := NewStore(time.Minute)
	boom := errors.New("boom")
	_, err := Load(context.Background(), store, "k", func(context.Context) (string, error) {
		return "", boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Load error = %v, want %v", err, boom)
	}
	if _, ok := store.lookup("k"); ok {
		t.Fatalf("failed loads must not be cached")
	}
}

func TestLoad_NilStoreCallsLoader(t *testing.T) {
	t.Parallel()

	got, err := Load(context.Background(), nil, "k", func(context.Context) (int, error) { return 3, nil })
	if err != nil || got != 3 {
		t.Fatalf("Load(nil) = %d, %v", got, err)
	}
}

var errUnexpectedValue = errors.New("unexpected loaded value")
