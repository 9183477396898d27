package cache

import (
	"errors"
	"fmt"

	"github.com/IvanBrykalov/arenalru/internal/arena"
	"github.com/IvanBrykalov/arenalru/internal/list"
)

// lru keeps a key index and an arena-backed recency list in lock-step:
// index[k] is always the arena index of k's current list node.
// Head is MRU, tail is LRU.
type lru[K comparable, V any] struct {
	index map[K]arena.Index
	list  *list.List[entry[K, V]]
	opt   Options[K, V]
}

// New constructs a single-threaded cache with the provided Options.
// Defaults:
//   - nil Metrics -> NoopMetrics
//   - nil Clock   -> time.Now()
//
// A negative Capacity panics.
func New[K comparable, V any](opt Options[K, V]) Cache[K, V] {
	return newLRU(opt)
}

func newLRU[K comparable, V any](opt Options[K, V]) *lru[K, V] {
	if opt.Capacity < 0 {
		panic("Capacity must be >= 0")
	}
	if opt.Metrics == nil {
		opt.Metrics = NoopMetrics{}
	}
	var now func() int64
	if opt.Clock != nil {
		now = opt.Clock.NowUnixNano
	}
	return &lru[K, V]{
		index: make(map[K]arena.Index, opt.Capacity),
		list:  list.New[entry[K, V]](opt.Capacity, opt.TTL, now),
		opt:   opt,
	}
}

// Insert adds or overwrites k→v at MRU, sweeping expired entries first.
func (c *lru[K, V]) Insert(k K, v V) error {
	if _, err := c.Retire(); err != nil {
		return err
	}

	if idx, ok := c.index[k]; ok {
		// Existing key: promote and overwrite, no eviction needed.
		e, err := c.touch(k, idx)
		if err != nil {
			return err
		}
		e.val = v
		return nil
	}

	// A zero-capacity list is full and empty at once; nothing to evict then.
	if c.list.IsFull() && !c.list.IsEmpty() {
		e, err := c.list.PopBack()
		if err != nil {
			return broken(err)
		}
		if err := c.unindex(e.key); err != nil {
			return err
		}
		c.evicted(e, EvictCapacity)
	}

	idx, err := c.list.PushFront(entry[K, V]{key: k, val: v})
	if err != nil {
		if errors.Is(err, list.ErrOutOfMemory) {
			return fmt.Errorf("cache: insert: %w", err)
		}
		return broken(err)
	}
	c.index[k] = idx
	c.size()
	return nil
}

// Query returns the value for k and promotes it to MRU.
func (c *lru[K, V]) Query(k K) (V, error) {
	idx, ok := c.index[k]
	if !ok {
		c.opt.Metrics.Miss()
		var zero V
		return zero, ErrCacheMiss
	}
	e, err := c.touch(k, idx)
	if err != nil {
		var zero V
		return zero, err
	}
	c.opt.Metrics.Hit()
	return e.val, nil
}

// Peek returns the value for k without promoting it.
func (c *lru[K, V]) Peek(k K) (V, error) {
	var zero V
	idx, ok := c.index[k]
	if !ok {
		return zero, ErrCacheMiss
	}
	e, err := c.list.Get(idx)
	if err != nil {
		return zero, broken(err)
	}
	return e.val, nil
}

// Contains reports presence without promoting.
func (c *lru[K, V]) Contains(k K) bool {
	_, ok := c.index[k]
	return ok
}

// Remove deletes k and returns its value.
// Explicit removals are not reported as evictions.
func (c *lru[K, V]) Remove(k K) (V, error) {
	var zero V
	idx, ok := c.index[k]
	if !ok {
		return zero, ErrCacheMiss
	}
	delete(c.index, k)
	e, err := c.list.Remove(idx)
	if err != nil {
		return zero, broken(err)
	}
	c.size()
	return e.val, nil
}

// Retire drops expired entries from the LRU end and unindexes them.
func (c *lru[K, V]) Retire() (int, error) {
	retired, ok, err := c.list.Retire()
	if !ok && err == nil {
		return 0, nil
	}
	// Nodes already left the list; keep the index in step even on error.
	for _, e := range retired {
		if uerr := c.unindex(e.key); uerr != nil {
			return 0, uerr
		}
		c.evicted(e, EvictTTL)
	}
	if err != nil {
		return len(retired), broken(err)
	}
	c.size()
	return len(retired), nil
}

// Len returns the number of resident entries.
func (c *lru[K, V]) Len() int { return c.list.Len() }

// Cap returns the number of reserved slots.
func (c *lru[K, V]) Cap() int { return c.list.Cap() }

// Reserve grows capacity by n slots.
func (c *lru[K, V]) Reserve(n int) {
	c.list.Reserve(n)
	c.size()
}

// Keys returns keys in MRU -> LRU order.
func (c *lru[K, V]) Keys() []K {
	out := make([]K, 0, c.list.Len())
	c.list.Each(func(_ arena.Index, e *entry[K, V]) bool {
		out = append(out, e.key)
		return true
	})
	return out
}

// Check verifies list links and that the index maps exactly the keys held
// by list nodes, each to that node's current arena index.
func (c *lru[K, V]) Check() error {
	if err := c.list.Validate(); err != nil {
		return broken(err)
	}
	if len(c.index) != c.list.Len() {
		return fmt.Errorf("%w: index has %d keys, list has %d nodes", ErrCacheBroken, len(c.index), c.list.Len())
	}
	var err error
	c.list.Each(func(idx arena.Index, e *entry[K, V]) bool {
		got, ok := c.index[e.key]
		switch {
		case !ok:
			err = fmt.Errorf("%w: key %v is listed but not indexed", ErrCacheBroken, e.key)
		case got != idx:
			err = fmt.Errorf("%w: key %v indexed at %v, node at %v", ErrCacheBroken, e.key, got, idx)
		}
		return err == nil
	})
	return err
}

// -------------------- internals --------------------

// touch promotes k's node to MRU and stores the new index.
// The old index is stale after this call.
func (c *lru[K, V]) touch(k K, idx arena.Index) (*entry[K, V], error) {
	idx, err := c.list.RepositionToHead(idx)
	if err != nil {
		return nil, broken(err)
	}
	c.index[k] = idx
	e, err := c.list.Get(idx)
	if err != nil {
		return nil, broken(err)
	}
	return e, nil
}

// unindex deletes a key whose node already left the list.
func (c *lru[K, V]) unindex(k K) error {
	if _, ok := c.index[k]; !ok {
		return fmt.Errorf("%w: key %v missing from index", ErrCacheBroken, k)
	}
	delete(c.index, k)
	return nil
}

func (c *lru[K, V]) evicted(e entry[K, V], reason EvictReason) {
	c.opt.Metrics.Evict(reason)
	if cb := c.opt.OnEvict; cb != nil {
		cb(e.key, e.val, reason)
	}
}

func (c *lru[K, V]) size() { c.opt.Metrics.Size(c.list.Len(), c.list.Cap()) }
