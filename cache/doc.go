// Package cache provides a generic, fixed-capacity in-memory cache with
// least-recently-used eviction and optional time-based expiry.
//
// Design
//
//   - Storage: entries live in a generational arena (internal/arena). Slots
//     are addressed by (slot, generation) indices, so a freed and reused slot
//     is never mistaken for its previous occupant.
//
//   - Ordering: a doubly linked list (internal/list) whose links are arena
//     indices keeps entries from MRU (head) to LRU (tail). A map from key to
//     arena index gives O(1) lookup. Promoting an entry re-pushes its node,
//     which issues a new index; the cache rewrites the map entry every time.
//
//   - Capacity: fixed by the slots reserved at construction (Options.Capacity)
//     plus any later Reserve calls. It never shrinks. When a new key arrives
//     and every slot is used, the LRU entry is evicted.
//
//   - TTL: with Options.TTL set, each entry gets a deadline when it is
//     inserted, overwritten or queried. Expiry is lazy: Insert sweeps expired
//     entries from the LRU end first, and Retire runs the same sweep on
//     demand. Until a sweep runs, an expired entry can still be queried.
//
//   - Errors: ErrCacheMiss for absent keys, ErrOutOfMemory when a zero
//     capacity cache is asked to store something, ErrCacheBroken when the
//     index and the list disagree (a bug). Lower-level errors stay reachable
//     via errors.Is.
//
//   - Metrics: Options.Metrics receives Hit/Miss/Evict/Size signals.
//     By default NoopMetrics is used; plug the metrics/prom adapter to export
//     them to Prometheus.
//
// Basic usage
//
//	c := cache.New[string, []byte](cache.Options[string, []byte]{Capacity: 1024})
//	if err := c.Insert("a", []byte("1")); err != nil {
//	    // only possible with zero capacity or a broken cache
//	}
//	v, err := c.Query("a")
//	if errors.Is(err, cache.ErrCacheMiss) {
//	    // not cached
//	}
//	_ = v
//
// With TTL
//
//	c := cache.New[int, int](cache.Options[int, int]{Capacity: 5, TTL: time.Second})
//	_ = c.Insert(1, 1)
//	time.Sleep(time.Second)
//	_, _ = c.Retire() // 1 is gone
//
// Thread-safety
//
// A cache returned by New must be confined to one goroutine. NewSynced
// returns a mutex-guarded wrapper that also provides QueryOrLoad with
// singleflight load coalescing.
package cache
