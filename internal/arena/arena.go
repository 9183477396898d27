// Package arena implements a generational slot allocator.
//
// Values live in a single append-only slice of slots. Callers never see raw
// slot numbers; they hold an Index, which pairs the slot number with the
// generation stamped at insertion time. Once a slot is freed and reused, old
// indices no longer match its generation and resolve to "not found".
package arena

import (
	"errors"
	"fmt"
)

var (
	// ErrOutOfMemory is returned by Insert when no free slot is left.
	ErrOutOfMemory = errors.New("arena: out of memory")
	// ErrCorrupt is returned by Insert when the free list points at a live slot.
	ErrCorrupt = errors.New("arena: free list corrupt")
)

// noSlot terminates the free list.
const noSlot = -1

// Index identifies a value inside an Arena.
// Two indices are equal only if both fields match.
type Index struct {
	Slot       int
	Generation uint64
}

// None is an index that never resolves. Use it as the "no link" value.
var None = Index{Slot: noSlot}

// IsNone reports whether i is the None index.
func (i Index) IsNone() bool { return i.Slot < 0 }

// slot is either free (next links the free list) or occupied
// (value and generation are meaningful).
type slot[T any] struct {
	occupied   bool
	generation uint64
	next       int
	value      T
}

// Arena stores values of one type behind generation-checked indices.
// It is not safe for concurrent use.
type Arena[T any] struct {
	slots      []slot[T]
	free       int    // free-list head, noSlot when empty
	generation uint64 // stamped on the next insertion
	cap        int
	used       int
}

// New returns an arena with no storage. Insert fails until Reserve is called.
func New[T any]() *Arena[T] {
	return &Arena[T]{free: noSlot}
}

// NewWithCap returns an arena with n free slots.
func NewWithCap[T any](n int) *Arena[T] {
	a := New[T]()
	a.Reserve(n)
	return a
}

// Reserve appends exactly n free slots. The new block is linked in front of
// the existing free list, so it is consumed first. Existing slots never move.
func (a *Arena[T]) Reserve(n int) {
	if n <= 0 {
		return
	}
	start := len(a.slots)
	end := start + n

	a.slots = append(a.slots, make([]slot[T], n)...)
	for i := start; i < end-1; i++ {
		a.slots[i].next = i + 1
	}
	a.slots[end-1].next = a.free

	a.free = start
	a.cap += n
}

// Insert stores v in a free slot and returns its index.
func (a *Arena[T]) Insert(v T) (Index, error) {
	if a.free == noSlot {
		return None, ErrOutOfMemory
	}
	i := a.free
	s := &a.slots[i]
	if s.occupied {
		return None, fmt.Errorf("%w: slot %d on free list is occupied", ErrCorrupt, i)
	}
	a.free = s.next

	gen := a.generation
	*s = slot[T]{occupied: true, generation: gen, next: noSlot, value: v}
	a.generation++
	a.used++

	return Index{Slot: i, Generation: gen}, nil
}

// Get returns a pointer to the value at i, or false if i is stale or invalid.
// The pointer stays valid until the value is removed or the arena grows.
func (a *Arena[T]) Get(i Index) (*T, bool) {
	s := a.lookup(i)
	if s == nil {
		return nil, false
	}
	return &s.value, true
}

// Remove frees the slot at i and returns its value.
// A stale or invalid index leaves the arena untouched.
func (a *Arena[T]) Remove(i Index) (T, bool) {
	s := a.lookup(i)
	if s == nil {
		var zero T
		return zero, false
	}
	v := s.value
	*s = slot[T]{next: a.free}
	a.free = i.Slot
	a.used--
	return v, true
}

// Contains reports whether i resolves to a live value.
func (a *Arena[T]) Contains(i Index) bool { return a.lookup(i) != nil }

// Cap returns the number of slots ever reserved.
func (a *Arena[T]) Cap() int { return a.cap }

// Len returns the number of occupied slots.
func (a *Arena[T]) Len() int { return a.used }

func (a *Arena[T]) lookup(i Index) *slot[T] {
	if i.Slot < 0 || i.Slot >= len(a.slots) {
		return nil
	}
	s := &a.slots[i.Slot]
	if !s.occupied || s.generation != i.Generation {
		return nil
	}
	return s
}
