package cache

import (
	"errors"
	"fmt"

	"github.com/IvanBrykalov/arenalru/internal/arena"
)

var (
	// ErrCacheMiss is returned when the key is not present.
	ErrCacheMiss = errors.New("cache: miss")

	// ErrCacheBroken means the key index and the recency list disagree.
	// It signals a bug, not a routine condition.
	ErrCacheBroken = errors.New("cache: broken")

	// ErrOutOfMemory is returned by Insert when no slot is available,
	// which only happens for a cache with zero capacity.
	ErrOutOfMemory = arena.ErrOutOfMemory

	// ErrNoLoader is returned by QueryOrLoad when Options.Loader is nil.
	ErrNoLoader = errors.New("cache: no Loader provided")
)

// broken wraps a list error as ErrCacheBroken, keeping the origin reachable
// through errors.Is.
func broken(err error) error {
	return fmt.Errorf("%w: %w", ErrCacheBroken, err)
}
