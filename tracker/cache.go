package tracker

// Cache is a derived-value cache keyed by the literal text of a range. it
// is owned by a Tracker and emptied by ClearCaches; it never invalidates
// entries on its own.
type Cache[V any] struct {
	entries map[string]V
	hits    int
	misses  int
}

// NewCache creates an empty cache
func NewCache[V any]() *Cache[V] {
	return &Cache[V]{entries: make(map[string]V)}
}

// Get returns the cached value for key
func (c *Cache[V]) Get(key string) (V, bool) {
	v, ok := c.entries[key]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return v, ok
}

// Put stores a value for key
func (c *Cache[V]) Put(key string, v V) {
	c.entries[key] = v
}

// Len returns the number of cached values
func (c *Cache[V]) Len() int {
	return len(c.entries)
}

// Stats returns the hit and miss counters since the cache was created
func (c *Cache[V]) Stats() (hits, misses int) {
	return c.hits, c.misses
}

// Clear drops every cached value
func (c *Cache[V]) Clear() {
	clear(c.entries)
}
