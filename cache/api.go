package cache

// Cache is a fixed-capacity key/value cache with LRU eviction and optional
// TTL expiry.
//
// Instances returned by New are NOT safe for concurrent use; wrap them with
// NewSynced (or your own lock around every call) when sharing.
//
// All operations are O(1) on average except Retire, Keys and Check, which
// are linear in the number of entries they visit.
type Cache[K comparable, V any] interface {
	// Insert adds or overwrites k→v and marks it most recently used.
	// It first sweeps expired entries; if the key is new and the cache is
	// full, the least recently used entry is evicted.
	Insert(k K, v V) error

	// Query returns the value for k and marks it most recently used.
	// Returns ErrCacheMiss if absent. An expired entry stays visible until
	// the next sweep.
	Query(k K) (V, error)

	// Peek returns the value for k without touching its recency.
	Peek(k K) (V, error)

	// Contains reports whether k is present, without touching its recency.
	Contains(k K) bool

	// Remove deletes k and returns its value, or ErrCacheMiss.
	Remove(k K) (V, error)

	// Retire sweeps expired entries and returns how many were removed.
	Retire() (int, error)

	// Len returns the number of resident entries.
	Len() int

	// Cap returns the number of reserved slots.
	Cap() int

	// Reserve grows capacity by n slots. Capacity never shrinks.
	Reserve(n int)

	// Keys returns the resident keys from most to least recently used.
	Keys() []K

	// Check verifies that the key index and the recency list agree.
	Check() error
}
