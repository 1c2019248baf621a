package cache

import (
	"container/list"
	"sync"
	"time"
)

// LRUCache evicts items idle for longer than ttl and, past maxSize, the least
// recently used one. Every Get or Set restarts an item's idle deadline.
type LRUCache[T any] struct {
	mu      sync.Mutex
	maxSize int
	ttl     time.Duration
	items   map[string]*list.Element
	lru     *list.List
	now     func() time.Time
	onEvict func(key string, data T)
}

type cacheItem[T any] struct {
	key       string
	data      T
	expiresAt time.Time
}

// Option configures an LRUCache.
type Option[T any] func(*LRUCache[T])

// WithClock replaces time.Now, for tests.
func WithClock[T any](now func() time.Time) Option[T] {
	return func(c *LRUCache[T]) { c.now = now }
}

// WithEvictHook is called, outside the cache lock, for every item dropped
// because it expired or overflowed capacity. Explicit Delete does not call it.
func WithEvictHook[T any](fn func(key string, data T)) Option[T] {
	return func(c *LRUCache[T]) { c.onEvict = fn }
}

// NewLRUCache creates a new LRU cache with TTL. A maxSize <= 0 means unbounded.
func NewLRUCache[T any](maxSize int, ttl time.Duration, opts ...Option[T]) *LRUCache[T] {
	c := &LRUCache[T]{
		maxSize: maxSize,
		ttl:     ttl,
		items:   make(map[string]*list.Element),
		lru:     list.New(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get retrieves a value from the cache.
func (c *LRUCache[T]) Get(key string) (T, bool) {
	var zero T

	c.mu.Lock()
	elem, exists := c.items[key]
	if !exists {
		c.mu.Unlock()
		return zero, false
	}

	item := elem.Value.(*cacheItem[T])
	now := c.now()
	if now.After(item.expiresAt) {
		c.removeElement(elem)
		c.mu.Unlock()
		c.evicted(item)
		return zero, false
	}

	item.expiresAt = now.Add(c.ttl)
	c.lru.MoveToFront(elem)
	c.mu.Unlock()
	return item.data, true
}

// Set stores a value in the cache.
func (c *LRUCache[T]) Set(key string, data T) {
	c.mu.Lock()

	item := &cacheItem[T]{
		key:       key,
		data:      data,
		expiresAt: c.now().Add(c.ttl),
	}

	if elem, exists := c.items[key]; exists {
		elem.Value = item
		c.lru.MoveToFront(elem)
		c.mu.Unlock()
		return
	}

	elem := c.lru.PushFront(item)
	c.items[key] = elem

	var dropped *cacheItem[T]
	if c.maxSize > 0 && c.lru.Len() > c.maxSize {
		if oldest := c.lru.Back(); oldest != nil {
			dropped = oldest.Value.(*cacheItem[T])
			c.removeElement(oldest)
		}
	}
	c.mu.Unlock()

	if dropped != nil {
		c.evicted(dropped)
	}
}

// Delete removes a key from the cache.
func (c *LRUCache[T]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, exists := c.items[key]; exists {
		c.removeElement(elem)
	}
}

func (c *LRUCache[T]) removeElement(elem *list.Element) {
	item := elem.Value.(*cacheItem[T])
	delete(c.items, item.key)
	c.lru.Remove(elem)
}

func (c *LRUCache[T]) evicted(item *cacheItem[T]) {
	if c.onEvict != nil {
		c.onEvict(item.key, item.data)
	}
}

// CleanExpired removes all expired entries and returns count of removed items.
func (c *LRUCache[T]) CleanExpired() int {
	c.mu.Lock()

	now := c.now()
	var removed []*cacheItem[T]
	for elem := c.lru.Back(); elem != nil; {
		prev := elem.Prev()
		item := elem.Value.(*cacheItem[T])
		if now.After(item.expiresAt) {
			removed = append(removed, item)
			c.removeElement(elem)
		}
		elem = prev
	}
	c.mu.Unlock()

	for _, item := range removed {
		c.evicted(item)
	}
	return len(removed)
}

// Size returns the current number of items in the cache.
func (c *LRUCache[T]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}
