package cache

import (
	"context"
	"time"
)

// EvictReason explains why an entry was removed.
type EvictReason int

const (
	// EvictCapacity: least recently used entry dropped to make room.
	EvictCapacity EvictReason = iota
	// EvictTTL: expired entry removed by a sweep.
	EvictTTL
)

// String returns a stable label for the reason.
func (r EvictReason) String() string {
	switch r {
	case EvictTTL:
		return "ttl"
	case EvictCapacity:
		return "capacity"
	default:
		return "unknown"
	}
}

// Metrics exposes cache-level observability hooks.
// A NoopMetrics implementation is provided and used by default.
type Metrics interface {
	Hit()
	Miss()
	Evict(reason EvictReason)
	Size(entries, capacity int)
}

// Clock provides time in UnixNano; useful for deterministic tests.
type Clock interface{ NowUnixNano() int64 }

// Options configures the cache. Zero values are safe; defaults are
// applied in New:
//   - nil Metrics => NoopMetrics
//   - nil Clock   => time.Now()
//   - TTL <= 0    => entries never expire
type Options[K comparable, V any] struct {
	// Capacity is the number of arena slots reserved up front.
	// Zero is allowed; such a cache rejects every insert until Reserve.
	Capacity int

	// TTL is stamped on every entry when it is inserted, overwritten or
	// touched by Query. Expired entries are swept lazily at the start of
	// each Insert and on Retire.
	TTL time.Duration

	// Loader fetches a value on miss. Used by Synced.QueryOrLoad.
	Loader func(ctx context.Context, k K) (V, error)

	// OnEvict is called for capacity and TTL evictions, not for Remove.
	OnEvict func(k K, v V, reason EvictReason)
	Metrics Metrics

	// Clock allows overriding time source (tests). Nil => time.Now().
	Clock Clock
}
