// Package cache stores computed layouts and rendered artifacts.
//
// A layout depends only on the tech table, the viewport size and the layout
// configuration; an artifact depends on the layout, the output format and
// the research state drawn on it. [Keyer] derives content-addressed keys
// from those inputs, so a changed table never hits a stale entry.
//
// # Backends
//
//   - [FileCache]: one file per entry under a directory, used by the CLI.
//   - [RedisCache]: a shared Redis instance, used by the server.
//   - [NullCache]: never stores anything (--no-cache).
//
// [Instrument] wraps any backend to report hits, misses and writes to the
// registered observability hooks.
package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented key/value store with optional expiry.
type Cache interface {
	// Get returns the value for key and whether it was found. Expired and
	// corrupt entries are misses, not errors.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl <= 0 means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases the backend's resources.
	Close() error
}

// Default TTLs.
const (
	LayoutTTL   = 24 * time.Hour
	ArtifactTTL = 24 * time.Hour
)

// NullCache never stores anything. The CLI uses it for --no-cache and when
// no cache directory can be determined.
type NullCache struct{}

// NewNullCache returns a NullCache.
func NewNullCache() Cache { return NullCache{} }

func (NullCache) Get(context.Context, string) ([]byte, bool, error)         { return nil, false, nil }
func (NullCache) Set(context.Context, string, []byte, time.Duration) error { return nil }
func (NullCache) Delete(context.Context, string) error                     { return nil }
func (NullCache) Close() error                                             { return nil }
