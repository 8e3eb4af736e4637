package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPutAndGet(t *testing.T) {
	ctx := context.Background()
	c, err := New(4)
	require.NoError(t, err)

	require.NoError(t, c.Put(ctx, "What is a kakapo?", "A parrot."))

	v, ok := c.Get(ctx, "What is a kakapo?")
	assert.True(t, ok)
	assert.Equal(t, "A parrot.", v)

	// keys are raw strings, no normalization
	_, ok = c.Get(ctx, "what is a kakapo?")
	assert.False(t, ok)
}

func TestLRUEviction(t *testing.T) {
	ctx := context.Background()
	c, err := New(2)
	require.NoError(t, err)

	_ = c.Put(ctx, "a", "1")
	_ = c.Put(ctx, "b", "2")
	c.Get(ctx, "a") // a becomes most recent
	_ = c.Put(ctx, "c", "3")

	_, ok := c.Get(ctx, "b")
	assert.False(t, ok, "least recently used entry should be evicted")
	_, ok = c.Get(ctx, "a")
	assert.True(t, ok)
	_, ok = c.Get(ctx, "c")
	assert.True(t, ok)
}

func TestBoundedAt128(t *testing.T) {
	ctx := context.Background()
	c, err := New(128)
	require.NoError(t, err)

	for i := 0; i < 200; i++ {
		_ = c.Put(ctx, fmt.Sprintf("q%d", i), "a")
	}
	stats, err := c.Stats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 128, stats.Entries)
}

func TestStatsAndClear(t *testing.T) {
	ctx := context.Background()
	c, _ := New(8)

	_ = c.Put(ctx, "h1", "x")
	c.Get(ctx, "h1") // hit
	c.Get(ctx, "h2") // miss

	stats, err := c.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, "memory", stats.Backend)
	assert.EqualValues(t, 1, stats.Entries)
	assert.EqualValues(t, 1, stats.Hits)
	assert.EqualValues(t, 1, stats.Misses)

	require.NoError(t, c.Clear(ctx, true))
	stats, _ = c.Stats(ctx)
	assert.EqualValues(t, 1, stats.Entries, "expired-only clear keeps live entries")

	require.NoError(t, c.Clear(ctx, false))
	stats, _ = c.Stats(ctx)
	assert.EqualValues(t, 0, stats.Entries)
}

func TestConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	c, _ := New(16)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := fmt.Sprintf("q%d", (i+j)%32)
				_ = c.Put(ctx, key, key)
				if v, ok := c.Get(ctx, key); ok && v != key {
					t.Errorf("got %q for %q", v, key)
				}
			}
		}(i)
	}
	wg.Wait()
}

func TestNewRejectsZeroSize(t *testing.T) {
	_, err := New(0)
	assert.Error(t, err)
}
