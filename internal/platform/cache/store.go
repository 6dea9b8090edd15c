package cache

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

type entry struct {
	value     any
	expiresAt time.Time
}

func (e entry) live(now time.Time) bool {
	return e.expiresAt.IsZero() || now.Before(e.expiresAt)
}

// Store is an in-process TTL cache keyed by strings such as "team:list".
// Concurrent misses on one key share a single load, and a load that started
// before an invalidation is never written back.
type Store struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	entries map[string]entry
	epoch   uint64
	group   singleflight.Group
}

// NewStore builds a Store. A ttl <= 0 keeps entries until invalidated.
func NewStore(ttl time.Duration) *Store {
	return &Store{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]entry),
	}
}

func (s *Store) lookup(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return nil, false
	}
	if !e.live(s.now()) {
		delete(s.entries, key)
		return nil, false
	}
	return e.value, true
}

// store writes value unless an invalidation happened after epoch was read.
func (s *Store) store(key string, value any, epoch uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if epoch != s.epoch {
		return
	}
	e := entry{value: value}
	if s.ttl > 0 {
		e.expiresAt = s.now().Add(s.ttl)
	}
	s.entries[key] = e
}

func (s *Store) currentEpoch() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.epoch
}

// DeletePrefix drops every key starting with prefix. An empty prefix clears
// the store.
func (s *Store) DeletePrefix(_ context.Context, prefix string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.epoch++
	for key := range s.entries {
		if strings.HasPrefix(key, prefix) {
			delete(s.entries, key)
			s.group.Forget(key)
		}
	}
}

// Len counts live entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	n := 0
	for _, e := range s.entries {
		if e.live(now) {
			n++
		}
	}
	return n
}

// Load returns the cached value for key or runs loader once per concurrent
// miss. Errors are not cached. A nil Store always calls loader.
func Load[T any](ctx context.Context, s *Store, key string, loader func(context.Context) (T, error)) (T, error) {
	var zero T
	if s == nil || key == "" {
		return loader(ctx)
	}

	if v, ok := s.lookup(key); ok {
		return typed[T](key, v)
	}

	v, err, _ := s.group.Do(key, func() (any, error) {
		if v, ok := s.lookup(key); ok {
			return v, nil
		}
		epoch := s.currentEpoch()
		loaded, err := loader(ctx)
		if err != nil {
			return nil, err
		}
		s.store(key, loaded, epoch)
		return loaded, nil
	})
	if err != nil {
		return zero, err
	}
	return typed[T](key, v)
}

func typed[T any](key string, v any) (T, error) {
	out, ok := v.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("cache key %q holds %T", key, v)
	}
	return out, nil
}
