// Package cache implements a bounded in-memory TTL + LRU cache for query results.
package cache

import (
	"container/list"
	"sync"
	"time"
)

// DefaultCapacity bounds the cache when no capacity is configured.
const DefaultCapacity = 512

// Stats is a point-in-time snapshot of cache counters.
type Stats struct {
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Evictions int64 `json:"evictions"`
	Size      int   `json:"size"`
}

// HitRate returns hits / (hits + misses), or 0 with no lookups.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

type entry struct {
	key        string
	value      interface{}
	insertedAt time.Time
	ttl        time.Duration
}

// Cache is a bounded TTL + LRU cache. Expired entries are evicted lazily on
// lookup and count as misses. Overflow evicts the least-recently-used entry;
// both Get and Set count as access. Safe for concurrent use.
type Cache struct {
	mu        sync.Mutex
	capacity  int
	entries   map[string]*list.Element // value: *entry
	order     *list.List               // front = most recently used
	hits      int64
	misses    int64
	evictions int64
	now       func() time.Time
}

// New creates a Cache with the given capacity. Non-positive capacity falls
// back to DefaultCapacity.
func New(capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Cache{
		capacity: capacity,
		entries:  make(map[string]*list.Element),
		order:    list.New(),
		now:      time.Now,
	}
}

// SetClock overrides the time source. Tests only.
func (c *Cache) SetClock(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

// Get returns the cached value for key. A present-but-expired entry is
// removed and reported as a miss.
func (c *Cache) Get(key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil, false
	}

	e := el.Value.(*entry)
	if c.now().Sub(e.insertedAt) > e.ttl {
		c.remove(el)
		c.misses++
		return nil, false
	}

	c.order.MoveToFront(el)
	c.hits++
	return e.value, true
}

// Set stores value under key with the given TTL, replacing any existing
// entry. Inserting beyond capacity evicts the least-recently-used entry.
func (c *Cache) Set(key string, value interface{}, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		e := el.Value.(*entry)
		e.value = value
		e.insertedAt = c.now()
		e.ttl = ttl
		c.order.MoveToFront(el)
		return
	}

	if c.order.Len() >= c.capacity {
		if oldest := c.order.Back(); oldest != nil {
			c.remove(oldest)
			c.evictions++
		}
	}

	el := c.order.PushFront(&entry{key: key, value: value, insertedAt: c.now(), ttl: ttl})
	c.entries[key] = el
}

// Delete removes key from the cache if present.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.entries[key]; ok {
		c.remove(el)
	}
}

// Stats returns a snapshot of the cache counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
		Size:      c.order.Len(),
	}
}

// remove deletes an element from both the map and the LRU list.
// Caller must hold c.mu.
func (c *Cache) remove(el *list.Element) {
	e := el.Value.(*entry)
	delete(c.entries, e.key)
	c.order.Remove(el)
}
