// Package memory implements cache.Cache as an in-process map with
// lazy TTL expiry, attached when the capabilities.cache toggle is set
// (spec §6 capability hints).
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/ghostrunctl/ghost/internal/domain/cache"
)

type entry struct {
	value     []byte
	expiresAt time.Time
}

// Cache is a goroutine-safe in-process cache.Cache.
type Cache struct {
	mu      sync.Mutex
	entries map[string]entry
}

// New constructs an empty Cache.
func New() *Cache {
	return &Cache{entries: make(map[string]entry)}
}

func (c *Cache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !e.expiresAt.IsZero() && time.Now().After(e.expiresAt) {
		delete(c.entries, key)
		return nil, false, nil
	}
	return e.value, true, nil
}

func (c *Cache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl)
	}
	c.entries[key] = entry{value: value, expiresAt: expiresAt}
	return nil
}

func (c *Cache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}

var _ cache.Cache = (*Cache)(nil)
