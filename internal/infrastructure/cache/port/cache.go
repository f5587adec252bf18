package port

import (
	"context"
	"time"
)

// Cache is the key-value contract the application depends on. Implementations
// must be safe for concurrent use, and every method is context-aware so callers
// drive timeouts.
//
// The cache is best-effort everywhere it is used: a miss and a transport error
// are handled identically at the call site (fall back to storage, log, move on).
// ErrMiss lets callers tell the two apart when they care.
type Cache interface {
	// Get fetches the value for key. Misses are reported as ("", ErrMiss).
	Get(ctx context.Context, key string) (string, error)

	// Set stores value at key with the provided TTL. Zero or negative TTL
	// means no expiration.
	Set(ctx context.Context, key string, value string, ttl time.Duration) error

	// Del removes one or more keys and returns the number of keys removed.
	Del(ctx context.Context, keys ...string) (int64, error)

	// SetAdd adds members to the set at key.
	SetAdd(ctx context.Context, key string, members ...string) error

	// SetMembers returns every member of the set at key. An absent or empty
	// set is reported as (nil, ErrMiss): the caller cannot distinguish "never
	// cached" from "cached empty", and treating both as a miss keeps the
	// read-through path correct.
	SetMembers(ctx context.Context, key string) ([]string, error)

	// SetRemove removes members from the set at key.
	SetRemove(ctx context.Context, key string, members ...string) error

	// HashIncr atomically adds delta to the hash field and returns the result.
	HashIncr(ctx context.Context, key, field string, delta int64) (int64, error)

	// HashSet stores value at the hash field.
	HashSet(ctx context.Context, key, field, value string) error

	// HashGet fetches the hash field. Misses are reported as ("", ErrMiss).
	HashGet(ctx context.Context, key, field string) (string, error)

	// Expire sets the TTL of key.
	Expire(ctx context.Context, key string, ttl time.Duration) error

	// Ping verifies connectivity with the cache backend.
	Ping(ctx context.Context) error

	// Close releases any resources held by the cache.
	Close() error
}

// ErrMiss signals a cache miss in a typed way so callers can differentiate
// misses from transport errors if desired.
var ErrMiss = errMiss{}

type errMiss struct{}

func (e errMiss) Error() string { return "cache: miss" }
