package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_GetMissOnEmpty(t *testing.T) {
	c := New(4)

	v, ok := c.Get("missing")
	assert.False(t, ok)
	assert.Nil(t, v)
	assert.Equal(t, int64(1), c.Stats().Misses)
}

func TestCache_SetThenGet(t *testing.T) {
	c := New(4)
	c.Set("a", "value-a", time.Minute)

	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, "value-a", v)
	assert.Equal(t, int64(1), c.Stats().Hits)
}

func TestCache_ExpiredEntryIsMissAndEvicted(t *testing.T) {
	c := New(4)
	now := time.Now()
	c.SetClock(func() time.Time { return now })

	c.Set("a", "value-a", time.Minute)

	// Advance past the TTL; the entry must never be returned again.
	now = now.Add(time.Minute + time.Second)

	v, ok := c.Get("a")
	assert.False(t, ok)
	assert.Nil(t, v)

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, 0, stats.Size)
}

func TestCache_EntryAtExactTTLStillValid(t *testing.T) {
	c := New(4)
	now := time.Now()
	c.SetClock(func() time.Time { return now })

	c.Set("a", 1, time.Minute)
	now = now.Add(time.Minute)

	_, ok := c.Get("a")
	assert.True(t, ok, "entry is valid until now - insertedAt exceeds ttl")
}

func TestCache_LRUEviction(t *testing.T) {
	// Capacity 2: insert A, B, access A, insert C -> B evicted, A and C remain.
	c := New(2)
	c.Set("A", 1, time.Minute)
	c.Set("B", 2, time.Minute)

	_, ok := c.Get("A")
	require.True(t, ok)

	c.Set("C", 3, time.Minute)

	_, ok = c.Get("B")
	assert.False(t, ok, "B should have been evicted as least-recently-used")
	_, ok = c.Get("A")
	assert.True(t, ok)
	_, ok = c.Get("C")
	assert.True(t, ok)
	assert.Equal(t, int64(1), c.Stats().Evictions)
}

func TestCache_SetCountsAsAccess(t *testing.T) {
	c := New(2)
	c.Set("A", 1, time.Minute)
	c.Set("B", 2, time.Minute)

	// Re-setting A makes B the LRU entry.
	c.Set("A", 10, time.Minute)
	c.Set("C", 3, time.Minute)

	_, ok := c.Get("B")
	assert.False(t, ok)
	v, ok := c.Get("A")
	require.True(t, ok)
	assert.Equal(t, 10, v)
}

func TestCache_DefaultCapacity(t *testing.T) {
	c := New(0)
	assert.Equal(t, DefaultCapacity, c.capacity)
}

func TestCache_Delete(t *testing.T) {
	c := New(4)
	c.Set("a", 1, time.Minute)
	c.Delete("a")
	c.Delete("never-existed") // no-op

	_, ok := c.Get("a")
	assert.False(t, ok)
}

func TestCache_HitRate(t *testing.T) {
	assert.Equal(t, 0.0, Stats{}.HitRate())
	assert.InDelta(t, 0.75, Stats{Hits: 3, Misses: 1}.HitRate(), 1e-9)
}

func TestCache_ConcurrentAccess(t *testing.T) {
	c := New(64)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				key := fmt.Sprintf("key-%d", j%100)
				c.Set(key, n, time.Minute)
				c.Get(key)
			}
		}(i)
	}
	wg.Wait()

	stats := c.Stats()
	assert.LessOrEqual(t, stats.Size, 64)
}
