// Package cache defines the abstract Cache capability hint mentioned in
// spec §6 ("per-module enablement toggles ... the supervisor treats
// these as capability hints passed to the Bus/State Store factories").
// Ghost's core does not require a cache for any invariant in spec §8,
// but the Command Processor uses it as an optional de-duplication layer
// for in-flight commandIds, and the Registry uses it to memoize
// ListActive() between maintenance ticks when a cache backend is
// attached.
package cache

import (
	"context"
	"time"
)

// Cache is a minimal get/set/delete capability with TTL support.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
