package cache

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss is returned when a key does not exist or has expired.
var ErrCacheMiss = errors.New("cache: key not found")

// Store is the TTL key-value interface every stateful delivery component is
// built on. Each call is parameterized by key and TTL; the store owns no key
// naming policy (see keys.go). Implementations must treat each key as an
// independent unit of expiry — there are no cross-key transactions.
type Store interface {
	// Get returns the value at key, or ErrCacheMiss.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set stores value at key. A zero ttl means no expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Delete removes keys; missing keys are not an error.
	Delete(ctx context.Context, keys ...string) error

	// Increment atomically adds one to an integer counter, creating it at 1,
	// and refreshes its ttl. Returns the new value.
	Increment(ctx context.Context, key string, ttl time.Duration) (int64, error)
	// Counter reads an integer counter, returning 0 for a missing key.
	Counter(ctx context.Context, key string) (int64, error)

	// ListPush appends value to the list at key and refreshes the list's ttl.
	ListPush(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// ListRange returns the full list at key; empty slice for a missing key.
	ListRange(ctx context.Context, key string) ([][]byte, error)
	// ListPop removes and returns the head of the list, or ErrCacheMiss when
	// the list is empty or missing.
	ListPop(ctx context.Context, key string) ([]byte, error)

	// Scan returns all keys matching prefix. Cursor-based underneath; only
	// suitable for small per-user namespaces.
	Scan(ctx context.Context, prefix string) ([]string, error)
}

// IsMiss reports whether err is a cache miss.
func IsMiss(err error) bool {
	return errors.Is(err, ErrCacheMiss)
}
