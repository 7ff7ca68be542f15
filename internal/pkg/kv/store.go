// Package kv defines the key-value contract every persistent record of the
// pipeline goes through. The store guarantees atomic per-key operations only;
// nothing here spans more than one key transactionally.
package kv

import (
	"context"
	"errors"
	"time"
)

// KeepTTL preserves the remaining expiry of an existing key on Set.
const KeepTTL time.Duration = -1

// ErrNotFound is returned when a key does not exist or has expired.
var ErrNotFound = errors.New("kv: key not found")

// Store is implemented by RedisStore and MemoryStore.
type Store interface {
	// Get returns the raw value stored under key.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set stores value under key. ttl 0 means no expiry, KeepTTL keeps the
	// current expiry of an existing key.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// SetNX stores value only if key is absent and reports whether it did.
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
	Delete(ctx context.Context, key string) error
	// Scan lists all keys starting with prefix.
	Scan(ctx context.Context, prefix string) ([]string, error)
	// Incr increments an integer counter and (re)arms its expiry.
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
	// PushCapped prepends value to the list at key, trims it to max entries
	// and (re)arms the expiry.
	PushCapped(ctx context.Context, key string, value []byte, max int64, ttl time.Duration) error
	// Range returns all list entries, newest first.
	Range(ctx context.Context, key string) ([][]byte, error)
	Ping(ctx context.Context) error
}
