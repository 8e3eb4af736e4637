// Package cache defines the answer memo cache and opens the configured backend.
package cache

import (
	"context"
	"fmt"

	"github.com/kakapo-ai/kakapo/pkg/cache/memory"
	rediscache "github.com/kakapo-ai/kakapo/pkg/cache/redis"
	"github.com/kakapo-ai/kakapo/pkg/cache/sqlite"
	"github.com/kakapo-ai/kakapo/pkg/config"
	"github.com/kakapo-ai/kakapo/pkg/models"
)

// Cache maps a raw query string to a previously computed answer.
type Cache interface {
	Get(ctx context.Context, query string) (string, bool)
	Put(ctx context.Context, query, answer string) error
	Stats(ctx context.Context) (models.CacheStats, error)
	// Clear removes entries. If expiredOnly is true, only expired entries are removed.
	Clear(ctx context.Context, expiredOnly bool) error
	Close() error
}

// Open builds the backend named by cfg.Backend. It returns a nil Cache for "none".
func Open(cfg config.CacheConfig) (Cache, error) {
	switch cfg.Backend {
	case config.CacheMemory, "":
		return memory.New(cfg.Size)
	case config.CacheRedis:
		return rediscache.New(rediscache.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
			TTL:      cfg.TTL,
		})
	case config.CacheSQLite:
		return sqlite.New(cfg.DBPath, cfg.TTL)
	case config.CacheNone:
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}
