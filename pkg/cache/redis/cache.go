// Package redis is an answer cache shared between processes through Redis.
package redis

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/kakapo-ai/kakapo/pkg/models"
	"github.com/redis/go-redis/v9"
)

// Options configures the redis cache.
type Options struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
	TTL      time.Duration
}

// Cache stores answers under Prefix+query with a TTL.
type Cache struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
	hits   atomic.Int64
	misses atomic.Int64
}

// ErrEmptyPrefix is returned for an empty key prefix; Clear would match every key in the DB.
var ErrEmptyPrefix = errors.New("redis cache: key prefix must not be empty")

// New connects to Redis and verifies the connection.
func New(opts Options) (*Cache, error) {
	if opts.Prefix == "" {
		return nil, ErrEmptyPrefix
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis %s: %w", opts.Addr, err)
	}

	return NewWithClient(rdb, opts.Prefix, opts.TTL), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(rdb *redis.Client, prefix string, ttl time.Duration) *Cache {
	return &Cache{rdb: rdb, prefix: prefix, ttl: ttl}
}

// Get returns a cached answer.
func (c *Cache) Get(ctx context.Context, query string) (string, bool) {
	v, err := c.rdb.Get(ctx, c.prefix+query).Result()
	if err != nil {
		c.misses.Add(1)
		return "", false
	}
	c.hits.Add(1)
	return v, true
}

// Put stores an answer with the configured TTL. Zero TTL means no expiry.
func (c *Cache) Put(ctx context.Context, query, answer string) error {
	if err := c.rdb.Set(ctx, c.prefix+query, answer, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache put: %w", err)
	}
	return nil
}

func (c *Cache) keys(ctx context.Context) ([]string, error) {
	var out []string
	iter := c.rdb.Scan(ctx, 0, c.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		out = append(out, iter.Val())
	}
	if err := iter.Err(); err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}
	return out, nil
}

// Stats returns cache performance metrics. Entries counts keys under the prefix.
func (c *Cache) Stats(ctx context.Context) (models.CacheStats, error) {
	keys, err := c.keys(ctx)
	if err != nil {
		return models.CacheStats{}, fmt.Errorf("cache stats: %w", err)
	}
	return models.CacheStats{
		Backend: "redis",
		Entries: int64(len(keys)),
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
	}, nil
}

// Clear deletes every key under the prefix. Redis expires entries on its own,
// so expiredOnly is a no-op.
func (c *Cache) Clear(ctx context.Context, expiredOnly bool) error {
	if expiredOnly {
		return nil
	}
	keys, err := c.keys(ctx)
	if err != nil {
		return fmt.Errorf("cache clear: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("cache clear: %w", err)
	}
	return nil
}

// Close releases the client.
func (c *Cache) Close() error {
	return c.rdb.Close()
}
