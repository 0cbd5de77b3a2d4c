// ABOUTME: Key-value store interface for orizon-gateway auth state
// ABOUTME: Defines hash-record operations with per-key TTL and atomic take

package store

import (
	"context"
	"time"
)

// KV is the storage abstraction used by the token and session stores.
// Records are flat string hashes with a per-key TTL. Implementations must
// make TakeHash atomic: under concurrent calls for the same key, at most
// one caller observes the stored fields.
type KV interface {
	// SetHash stores fields under key and applies the TTL. An existing
	// record is replaced wholesale.
	SetHash(ctx context.Context, key string, fields map[string]string, ttl time.Duration) error

	// GetHash returns the fields stored under key. A missing or expired
	// key yields an empty map and no error.
	GetHash(ctx context.Context, key string) (map[string]string, error)

	// TakeHash returns the fields stored under key and deletes the key in
	// the same atomic step. A missing key yields an empty map.
	TakeHash(ctx context.Context, key string) (map[string]string, error)

	// Delete removes key, reporting whether it existed.
	Delete(ctx context.Context, key string) (bool, error)

	// Expire resets the TTL on key without touching its fields, reporting
	// whether the key existed.
	Expire(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// Close releases the underlying connection resources.
	Close() error
}
