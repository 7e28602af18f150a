package services

import "sync"

// CacheStats is a point-in-time snapshot of cache counters
type CacheStats struct {
	Size    int     `json:"size"`
	MaxSize int     `json:"max_size"`
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	HitRate float64 `json:"hit_rate"`
}

// cacheEntry is a node in the LRU doubly-linked list
type cacheEntry struct {
	key   string
	value interface{}
	prev  *cacheEntry
	next  *cacheEntry
}

// CacheManager is a capacity-bounded LRU cache keyed by string. Get, Set and
// a Fetch hit all refresh recency; inserting a new key at capacity evicts
// the least recently accessed entry first, so len(entries) never exceeds
// maxSize.
type CacheManager struct {
	mu      sync.Mutex
	maxSize int
	entries map[string]*cacheEntry
	head    *cacheEntry
	tail    *cacheEntry
	hits    int64
	misses  int64
}

// NewCacheManager creates an empty cache holding at most maxSize entries
func NewCacheManager(maxSize int) *CacheManager {
	if maxSize < 1 {
		maxSize = 1
	}
	cache := &CacheManager{
		maxSize: maxSize,
		entries: make(map[string]*cacheEntry),
	}

	// Dummy head and tail keep list surgery branch-free
	cache.head = &cacheEntry{}
	cache.tail = &cacheEntry{}
	cache.head.next = cache.tail
	cache.tail.prev = cache.head

	return cache
}

// Get retrieves a cached value and marks it recently used
func (c *CacheManager) Get(key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.entries[key]
	if !exists {
		c.misses++
		return nil, false
	}

	c.moveToFront(entry)
	c.hits++
	return entry.value, true
}

// Set stores a value, evicting the least recently used entry if the cache
// is at capacity and key is new
func (c *CacheManager) Set(key string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setLocked(key, value)
}

// Fetch returns the cached value for key, or runs load and caches its
// result. The loader runs inside the cache lock: concurrent fetches on the
// same missing key serialize, and the last writer for a key wins.
func (c *CacheManager) Fetch(key string, load func() (interface{}, error)) (interface{}, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, exists := c.entries[key]; exists {
		c.moveToFront(entry)
		c.hits++
		return entry.value, nil
	}
	c.misses++

	value, err := load()
	if err != nil {
		return nil, err
	}
	c.setLocked(key, value)
	return value, nil
}

// Invalidate removes a single key; unknown keys are a no-op
func (c *CacheManager) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.entries[key]
	if !exists {
		return
	}
	c.removeFromList(entry)
	delete(c.entries, key)
}

// Clear drops every entry; counters are preserved
func (c *CacheManager) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*cacheEntry)
	c.head.next = c.tail
	c.tail.prev = c.head
}

// Stats returns current size and hit/miss counters
func (c *CacheManager) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := CacheStats{
		Size:    len(c.entries),
		MaxSize: c.maxSize,
		Hits:    c.hits,
		Misses:  c.misses,
	}
	if total := c.hits + c.misses; total > 0 {
		stats.HitRate = float64(c.hits) / float64(total)
	}
	return stats
}

// setLocked must be called with the lock held
func (c *CacheManager) setLocked(key string, value interface{}) {
	if entry, exists := c.entries[key]; exists {
		entry.value = value
		c.moveToFront(entry)
		return
	}

	if len(c.entries) >= c.maxSize {
		c.evictOldest()
	}

	entry := &cacheEntry{key: key, value: value}
	c.entries[key] = entry
	c.addToFront(entry)
}

// evictOldest must be called with the lock held
func (c *CacheManager) evictOldest() {
	oldest := c.tail.prev
	if oldest == c.head {
		return
	}
	c.removeFromList(oldest)
	delete(c.entries, oldest.key)
}

func (c *CacheManager) addToFront(entry *cacheEntry) {
	entry.prev = c.head
	entry.next = c.head.next
	c.head.next.prev = entry
	c.head.next = entry
}

func (c *CacheManager) removeFromList(entry *cacheEntry) {
	entry.prev.next = entry.next
	entry.next.prev = entry.prev
}

func (c *CacheManager) moveToFront(entry *cacheEntry) {
	c.removeFromList(entry)
	c.addToFront(entry)
}
