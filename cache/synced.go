package cache

import (
	"context"
	"errors"
	"strconv"
	"sync"

	"github.com/mitchellh/hashstructure/v2"
	"golang.org/x/sync/singleflight"
)

// Synced wraps the single-threaded cache with one mutex, so every public
// operation runs as a single critical section. It also offers QueryOrLoad,
// which coalesces concurrent loads for the same key.
type Synced[K comparable, V any] struct {
	mu sync.Mutex
	c  *lru[K, V]

	loader func(ctx context.Context, k K) (V, error)
	sf     singleflight.Group
}

// NewSynced constructs a cache that is safe for concurrent use.
// Options are interpreted exactly as in New.
func NewSynced[K comparable, V any](opt Options[K, V]) *Synced[K, V] {
	return &Synced[K, V]{c: newLRU(opt), loader: opt.Loader}
}

// Insert stores v under k as the most recently used entry. See Cache.Insert.
func (s *Synced[K, V]) Insert(k K, v V) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.c.Insert(k, v)
}

// Query returns the value for k and promotes it. See Cache.Query.
func (s *Synced[K, V]) Query(k K) (V, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.c.Query(k)
}

// Peek returns the value for k without touching recency.
func (s *Synced[K, V]) Peek(k K) (V, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.c.Peek(k)
}

// Contains reports whether k is resident.
func (s *Synced[K, V]) Contains(k K) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.c.Contains(k)
}

// Remove deletes k and returns its value.
func (s *Synced[K, V]) Remove(k K) (V, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.c.Remove(k)
}

// Retire drops expired entries. See Cache.Retire.
func (s *Synced[K, V]) Retire() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.c.Retire()
}

// Len returns the number of entries.
func (s *Synced[K, V]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.c.Len()
}

// Cap returns the number of reserved slots.
func (s *Synced[K, V]) Cap() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.c.Cap()
}

// Reserve adds room for n more entries.
func (s *Synced[K, V]) Reserve(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.c.Reserve(n)
}

// Keys returns keys from most to least recently used.
func (s *Synced[K, V]) Keys() []K {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.c.Keys()
}

// Check verifies that the index and the list agree.
func (s *Synced[K, V]) Check() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.c.Check()
}

// flight is the shared result of one load; key lets followers detect a
// fingerprint collision with a different key.
type flight[K comparable, V any] struct {
	key K
	val V
}

// QueryOrLoad returns the value for k; on miss it loads via Options.Loader
// and inserts the result. Concurrent loads for the same key share one
// Loader call. If no Loader is configured, returns ErrNoLoader.
//
// Cancelling ctx unblocks only this caller. The shared load runs with a
// context detached from the starting caller's cancellation (values are
// kept), so one caller giving up never fails the others waiting on it.
func (s *Synced[K, V]) QueryOrLoad(ctx context.Context, k K) (V, error) {
	var zero V
	// fast path
	v, err := s.Query(k)
	if err == nil {
		return v, nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		return zero, err
	}
	if s.loader == nil {
		return zero, ErrNoLoader
	}

	key, ok := fingerprint(k)
	if !ok {
		// unhashable key: load without coalescing
		return s.load(ctx, k)
	}

	lctx := context.WithoutCancel(ctx)
	ch := s.sf.DoChan(key, func() (any, error) {
		// double-check after flight join
		if v, err := s.Query(k); err == nil {
			return flight[K, V]{key: k, val: v}, nil
		}
		v, err := s.load(lctx, k)
		return flight[K, V]{key: k, val: v}, err
	})

	select {
	case r := <-ch:
		if r.Err != nil {
			return zero, r.Err
		}
		f := r.Val.(flight[K, V])
		if f.key != k {
			return s.load(ctx, k)
		}
		return f.val, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

func (s *Synced[K, V]) load(ctx context.Context, k K) (V, error) {
	v, err := s.loader(ctx, k)
	if err != nil {
		var zero V
		return zero, err
	}
	if err := s.Insert(k, v); err != nil {
		var zero V
		return zero, err
	}
	return v, nil
}

// fingerprint turns any comparable key into a singleflight key.
func fingerprint[K comparable](k K) (string, bool) {
	h, err := hashstructure.Hash(k, hashstructure.FormatV2, nil)
	if err != nil {
		return "", false
	}
	return strconv.FormatUint(h, 16), true
}

// Compile-time check: Synced satisfies the Cache interface.
var _ Cache[string, int] = (*Synced[string, int])(nil)
