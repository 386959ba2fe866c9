// Package cache provides a small byte cache for inspection reports. Factor
// extraction shells out to the HDF5 tools, so server deployments cache
// reports keyed by file identity (path, mtime, size).
package cache

import (
	"context"
	"time"
)

// Cache stores opaque payloads under string keys with an optional TTL.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}
