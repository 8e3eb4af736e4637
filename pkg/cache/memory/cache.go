// Package memory is the default in-process answer cache: a fixed-size LRU that
// lives as long as the process.
package memory

import (
	"context"
	"fmt"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/kakapo-ai/kakapo/pkg/models"
)

// Cache is a thread-safe LRU keyed by raw query string.
type Cache struct {
	lru    *lru.Cache[string, string]
	hits   atomic.Int64
	misses atomic.Int64
}

// New creates a Cache holding at most size entries.
func New(size int) (*Cache, error) {
	l, err := lru.New[string, string](size)
	if err != nil {
		return nil, fmt.Errorf("create lru: %w", err)
	}
	return &Cache{lru: l}, nil
}

// Get returns the cached answer and marks it most recently used.
func (c *Cache) Get(_ context.Context, query string) (string, bool) {
	v, ok := c.lru.Get(query)
	if !ok {
		c.misses.Add(1)
		return "", false
	}
	c.hits.Add(1)
	return v, true
}

// Put stores an answer, evicting the least recently used entry when full.
func (c *Cache) Put(_ context.Context, query, answer string) error {
	c.lru.Add(query, answer)
	return nil
}

// Stats returns cache performance metrics.
func (c *Cache) Stats(context.Context) (models.CacheStats, error) {
	return models.CacheStats{
		Backend: "memory",
		Entries: int64(c.lru.Len()),
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
	}, nil
}

// Clear purges all entries. Entries never expire, so expiredOnly is a no-op.
func (c *Cache) Clear(_ context.Context, expiredOnly bool) error {
	if !expiredOnly {
		c.lru.Purge()
	}
	return nil
}

// Close is a no-op.
func (c *Cache) Close() error { return nil }
