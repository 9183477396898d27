package cache

// entry is the payload of one recency-list node. The key is kept alongside
// the value because eviction and expiry start from list nodes and must
// delete the matching index entry.
type entry[K comparable, V any] struct {
	key K
	val V
}
