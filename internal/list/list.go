// Package list implements a doubly linked list whose nodes live in an
// arena and whose links are arena indices rather than pointers.
//
// The list is ordered head (most recently pushed to the front) to tail.
// With a TTL configured, every push stamps an absolute deadline on the node,
// and Retire drops expired nodes starting from the tail.
package list

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/IvanBrykalov/arenalru/internal/arena"
)

var (
	// ErrEmpty is returned when removing from an empty list.
	ErrEmpty = errors.New("list: empty")
	// ErrLinkBroken is returned when an index does not resolve to a live node.
	ErrLinkBroken = errors.New("list: link does not point to a valid node")
	// ErrOutOfMemory is returned when the backing arena has no free slot.
	ErrOutOfMemory = errors.New("list: out of memory")
)

// node is one list element stored inside an arena slot.
type node[T any] struct {
	value T

	// Absolute expiration deadline in UnixNano; zero means "no TTL".
	expireAt int64

	next arena.Index
	prev arena.Index
}

// List is an arena-backed doubly linked list. It is not safe for concurrent use.
type List[T any] struct {
	arena *arena.Arena[node[T]]
	head  arena.Index
	tail  arena.Index
	len   int

	ttl time.Duration
	now func() int64
}

// New returns a list with room for capacity nodes.
// ttl <= 0 disables expiry. now supplies the current time in UnixNano;
// nil means time.Now().
func New[T any](capacity int, ttl time.Duration, now func() int64) *List[T] {
	if now == nil {
		now = func() int64 { return time.Now().UnixNano() }
	}
	if ttl < 0 {
		ttl = 0
	}
	return &List[T]{
		arena: arena.NewWithCap[node[T]](capacity),
		head:  arena.None,
		tail:  arena.None,
		ttl:   ttl,
		now:   now,
	}
}

// Reserve grows the backing arena by n slots.
func (l *List[T]) Reserve(n int) { l.arena.Reserve(n) }

// PushFront inserts v at the head and returns its index.
func (l *List[T]) PushFront(v T) (arena.Index, error) {
	idx, err := l.arena.Insert(node[T]{
		value:    v,
		expireAt: l.deadline(),
		next:     l.head,
		prev:     arena.None,
	})
	if err != nil {
		return arena.None, allocErr(err)
	}

	if l.head.IsNone() {
		l.tail = idx
	} else {
		old, err := l.node(l.head)
		if err != nil {
			return arena.None, err
		}
		old.prev = idx
	}
	l.head = idx
	l.len++
	return idx, nil
}

// PushBack inserts v at the tail and returns its index.
func (l *List[T]) PushBack(v T) (arena.Index, error) {
	idx, err := l.arena.Insert(node[T]{
		value:    v,
		expireAt: l.deadline(),
		next:     arena.None,
		prev:     l.tail,
	})
	if err != nil {
		return arena.None, allocErr(err)
	}

	if l.tail.IsNone() {
		l.head = idx
	} else {
		old, err := l.node(l.tail)
		if err != nil {
			return arena.None, err
		}
		old.next = idx
	}
	l.tail = idx
	l.len++
	return idx, nil
}

// PopFront removes the head and returns its value.
func (l *List[T]) PopFront() (T, error) {
	if l.head.IsNone() {
		var zero T
		return zero, ErrEmpty
	}
	return l.Remove(l.head)
}

// PopBack removes the tail and returns its value.
func (l *List[T]) PopBack() (T, error) {
	if l.tail.IsNone() {
		var zero T
		return zero, ErrEmpty
	}
	return l.Remove(l.tail)
}

// PeekFront returns the head value without removing it.
func (l *List[T]) PeekFront() (T, error) { return l.peek(l.head) }

// PeekBack returns the tail value without removing it.
func (l *List[T]) PeekBack() (T, error) { return l.peek(l.tail) }

// Front returns the head index, or arena.None if the list is empty.
func (l *List[T]) Front() arena.Index { return l.head }

// Back returns the tail index, or arena.None if the list is empty.
func (l *List[T]) Back() arena.Index { return l.tail }

// Remove unlinks the node at idx and returns its value.
func (l *List[T]) Remove(idx arena.Index) (T, error) {
	var zero T
	if l.len == 0 {
		return zero, ErrEmpty
	}
	n, ok := l.arena.Remove(idx)
	if !ok {
		return zero, ErrLinkBroken
	}

	// The slot is gone; keep head, tail and len in step with the arena
	// even if a neighbour link turns out to be broken.
	l.len--
	var linkErr error
	if n.prev.IsNone() {
		l.head = n.next
	} else if prev, err := l.node(n.prev); err != nil {
		linkErr = err
	} else {
		prev.next = n.next
	}
	if n.next.IsNone() {
		l.tail = n.prev
	} else if next, err := l.node(n.next); err != nil {
		linkErr = err
	} else {
		next.prev = n.prev
	}
	if linkErr != nil {
		return zero, linkErr
	}
	return n.value, nil
}

// RepositionToHead moves the node at idx to the head by removing and
// re-pushing its value. The old index becomes stale; callers must replace
// every stored copy with the returned one. With a TTL configured the node
// gets a fresh deadline.
func (l *List[T]) RepositionToHead(idx arena.Index) (arena.Index, error) {
	v, err := l.Remove(idx)
	if err != nil {
		return arena.None, err
	}
	return l.PushFront(v)
}

// Retire removes expired nodes starting from the tail and stops at the
// first live one. ok is false when nothing expired (or no TTL is set).
func (l *List[T]) Retire() (retired []T, ok bool, err error) {
	if l.ttl <= 0 {
		return nil, false, nil
	}
	now := l.now()
	for !l.tail.IsNone() {
		n, err := l.node(l.tail)
		if err != nil {
			return retired, len(retired) > 0, err
		}
		if now < n.expireAt {
			break
		}
		v, err := l.Remove(l.tail)
		if err != nil {
			return retired, len(retired) > 0, err
		}
		retired = append(retired, v)
	}
	return retired, len(retired) > 0, nil
}

// Get returns a pointer to the value at idx.
// The pointer is invalidated by any later push or Reserve.
func (l *List[T]) Get(idx arena.Index) (*T, error) {
	n, err := l.node(idx)
	if err != nil {
		return nil, err
	}
	return &n.value, nil
}

// ExpireAt returns the UnixNano deadline of the node at idx (0 = none).
func (l *List[T]) ExpireAt(idx arena.Index) (int64, error) {
	n, err := l.node(idx)
	if err != nil {
		return 0, err
	}
	return n.expireAt, nil
}

// Each walks the list from head to tail until fn returns false.
func (l *List[T]) Each(fn func(arena.Index, *T) bool) {
	for idx := l.head; !idx.IsNone(); {
		n, err := l.node(idx)
		if err != nil {
			return
		}
		next := n.next
		if !fn(idx, &n.value) {
			return
		}
		idx = next
	}
}

// Len returns the number of nodes.
func (l *List[T]) Len() int { return l.len }

// IsEmpty reports whether the list has no nodes.
func (l *List[T]) IsEmpty() bool { return l.head.IsNone() }

// IsFull reports whether every reserved slot holds a node.
func (l *List[T]) IsFull() bool { return l.len == l.arena.Cap() }

// Cap returns the total number of reserved slots.
func (l *List[T]) Cap() int { return l.arena.Cap() }

// Validate walks the list in both directions and checks that head, tail,
// length and every link agree.
func (l *List[T]) Validate() error {
	if l.head.IsNone() != l.tail.IsNone() || l.head.IsNone() != (l.len == 0) {
		return fmt.Errorf("%w: head=%v tail=%v len=%d", ErrLinkBroken, l.head, l.tail, l.len)
	}
	if l.arena.Len() != l.len {
		return fmt.Errorf("%w: arena holds %d nodes, list len %d", ErrLinkBroken, l.arena.Len(), l.len)
	}

	// forward
	prev, idx := arena.None, l.head
	for i := 0; i < l.len; i++ {
		n, err := l.node(idx)
		if err != nil {
			return fmt.Errorf("forward step %d: %w", i, err)
		}
		if n.prev != prev {
			return fmt.Errorf("%w: node %v prev=%v, want %v", ErrLinkBroken, idx, n.prev, prev)
		}
		prev, idx = idx, n.next
	}
	if !idx.IsNone() || prev != l.tail {
		return fmt.Errorf("%w: forward walk ended at %v (last %v), tail %v", ErrLinkBroken, idx, prev, l.tail)
	}

	// backward
	idx = l.tail
	for i := 0; i < l.len; i++ {
		n, err := l.node(idx)
		if err != nil {
			return fmt.Errorf("backward step %d: %w", i, err)
		}
		if n.prev.IsNone() && idx != l.head {
			return fmt.Errorf("%w: backward walk stopped at %v before head %v", ErrLinkBroken, idx, l.head)
		}
		idx = n.prev
	}
	if !idx.IsNone() {
		return fmt.Errorf("%w: backward walk overran head", ErrLinkBroken)
	}
	return nil
}

// allocErr maps an arena insertion failure onto the list's sentinels.
func allocErr(err error) error {
	if errors.Is(err, arena.ErrOutOfMemory) {
		return fmt.Errorf("%w: %w", ErrOutOfMemory, err)
	}
	return fmt.Errorf("%w: %w", ErrLinkBroken, err)
}

func (l *List[T]) node(idx arena.Index) (*node[T], error) {
	n, ok := l.arena.Get(idx)
	if !ok {
		return nil, ErrLinkBroken
	}
	return n, nil
}

func (l *List[T]) peek(idx arena.Index) (T, error) {
	var zero T
	if idx.IsNone() {
		return zero, ErrEmpty
	}
	n, err := l.node(idx)
	if err != nil {
		return zero, err
	}
	return n.value, nil
}

// deadline returns the expiry stamp for a node pushed now.
func (l *List[T]) deadline() int64 {
	if l.ttl <= 0 {
		return 0
	}
	now := l.now()
	if int64(l.ttl) > math.MaxInt64-now {
		return math.MaxInt64
	}
	return now + int64(l.ttl)
}
