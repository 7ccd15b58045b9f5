package cache

import (
	"container/list"
	"sync"
	"time"
)

// EvictReason tells an eviction handler why an entry left the cache
type EvictReason int

const (
	EvictExpired EvictReason = iota
	EvictCapacity
	EvictDeleted
)

// LRUCache is a size-bounded cache whose entries expire after a TTL.
// Reading an entry refreshes its position but not its expiry.
type LRUCache[T any] struct {
	mu      sync.Mutex
	maxSize int
	ttl     time.Duration
	items   map[string]*list.Element
	lru     *list.List
	onEvict func(key string, value T, reason EvictReason)
	now     func() time.Time
}

type cacheItem[T any] struct {
	key       string
	data      T
	expiresAt time.Time
}

type evicted[T any] struct {
	item   *cacheItem[T]
	reason EvictReason
}

// Option configures an LRUCache
type Option[T any] func(*LRUCache[T])

// WithEvictHandler registers fn to run, outside the cache lock, for every removed entry
func WithEvictHandler[T any](fn func(key string, value T, reason EvictReason)) Option[T] {
	return func(c *LRUCache[T]) { c.onEvict = fn }
}

// WithClock replaces time.Now
func WithClock[T any](now func() time.Time) Option[T] {
	return func(c *LRUCache[T]) { c.now = now }
}

// NewLRUCache creates a new LRU cache with TTL
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

// Get retrieves a value from the cache
func (c *LRUCache[T]) Get(key string) (T, bool) {
	var zero T
	c.mu.Lock()
	elem, exists := c.items[key]
	if !exists {
		c.mu.Unlock()
		return zero, false
	}
	item := elem.Value.(*cacheItem[T])
	if c.now().After(item.expiresAt) {
		c.removeElement(elem)
		c.mu.Unlock()
		c.notify([]evicted[T]{{item, EvictExpired}})
		return zero, false
	}
	c.lru.MoveToFront(elem)
	c.mu.Unlock()
	return item.data, true
}

// Set stores a value with the cache's default TTL
func (c *LRUCache[T]) Set(key string, data T) {
	c.SetWithTTL(key, data, c.ttl)
}

// SetWithTTL stores a value that expires after ttl
func (c *LRUCache[T]) SetWithTTL(key string, data T, ttl time.Duration) {
	item := &cacheItem[T]{key: key, data: data, expiresAt: c.now().Add(ttl)}

	c.mu.Lock()
	if elem, exists := c.items[key]; exists {
		elem.Value = item
		c.lru.MoveToFront(elem)
		c.mu.Unlock()
		return
	}

	c.items[key] = c.lru.PushFront(item)

	var out []evicted[T]
	for c.maxSize > 0 && c.lru.Len() > c.maxSize {
		oldest := c.lru.Back()
		c.removeElement(oldest)
		out = append(out, evicted[T]{oldest.Value.(*cacheItem[T]), EvictCapacity})
	}
	c.mu.Unlock()
	c.notify(out)
}

// Delete removes a key from the cache
func (c *LRUCache[T]) Delete(key string) {
	c.mu.Lock()
	elem, exists := c.items[key]
	if !exists {
		c.mu.Unlock()
		return
	}
	c.removeElement(elem)
	c.mu.Unlock()
	c.notify([]evicted[T]{{elem.Value.(*cacheItem[T]), EvictDeleted}})
}

func (c *LRUCache[T]) removeElement(elem *list.Element) {
	item := elem.Value.(*cacheItem[T])
	delete(c.items, item.key)
	c.lru.Remove(elem)
}

func (c *LRUCache[T]) notify(out []evicted[T]) {
	if c.onEvict == nil {
		return
	}
	for _, e := range out {
		c.onEvict(e.item.key, e.item.data, e.reason)
	}
}

// CleanExpired removes all expired entries and returns count of removed items
func (c *LRUCache[T]) CleanExpired() int {
	c.mu.Lock()
	now := c.now()
	var out []evicted[T]
	for elem := c.lru.Front(); elem != nil; {
		next := elem.Next()
		item := elem.Value.(*cacheItem[T])
		if now.After(item.expiresAt) {
			c.removeElement(elem)
			out = append(out, evicted[T]{item, EvictExpired})
		}
		elem = next
	}
	c.mu.Unlock()
	c.notify(out)
	return len(out)
}

// Size returns the current number of items in the cache
func (c *LRUCache[T]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}
