package cache

import (
	"container/list"
	"sync"
)

type lruEntry[K comparable, V any] struct {
	key   K
	value V
}

// LRU is a thread-safe least-recently-used cache.
// The evict callback runs after the internal lock is released, so it may
// block (for example while closing a subscription) without stalling other
// callers.
type LRU[K comparable, V any] struct {
	capacity int
	items    map[K]*list.Element
	order    *list.List
	mu       sync.Mutex
	onEvict  func(key K, value V)
}

// NewLRU creates a cache holding at most capacity entries.
// Panics if capacity is not positive.
func NewLRU[K comparable, V any](capacity int) *LRU[K, V] {
	if capacity <= 0 {
		panic("cache: LRU capacity must be positive")
	}
	return &LRU[K, V]{
		capacity: capacity,
		items:    make(map[K]*list.Element),
		order:    list.New(),
	}
}

// OnEvict registers a callback for entries pushed out by capacity, Remove or Clear.
func (c *LRU[K, V]) OnEvict(fn func(key K, value V)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onEvict = fn
}

// Get returns the value for key and marks it as recently used.
func (c *LRU[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.order.MoveToFront(elem)
		return elem.Value.(*lruEntry[K, V]).value, true
	}
	var zero V
	return zero, false
}

// GetOrCreate returns the cached value for key, or stores and returns the
// result of create. The boolean reports whether the value already existed.
// create runs under the cache lock and must not call back into the cache.
func (c *LRU[K, V]) GetOrCreate(key K, create func() V) (V, bool) {
	c.mu.Lock()
	if elem, ok := c.items[key]; ok {
		c.order.MoveToFront(elem)
		v := elem.Value.(*lruEntry[K, V]).value
		c.mu.Unlock()
		return v, true
	}

	v := create()
	c.items[key] = c.order.PushFront(&lruEntry[K, V]{key: key, value: v})
	evicted := c.trim()
	fn := c.onEvict
	c.mu.Unlock()

	notify(fn, evicted)
	return v, false
}

// Put adds or replaces the value for key.
func (c *LRU[K, V]) Put(key K, value V) {
	c.mu.Lock()
	if elem, ok := c.items[key]; ok {
		c.order.MoveToFront(elem)
		elem.Value.(*lruEntry[K, V]).value = value
		c.mu.Unlock()
		return
	}

	c.items[key] = c.order.PushFront(&lruEntry[K, V]{key: key, value: value})
	evicted := c.trim()
	fn := c.onEvict
	c.mu.Unlock()

	notify(fn, evicted)
}

// Remove deletes key and reports whether it was present.
func (c *LRU[K, V]) Remove(key K) (V, bool) {
	c.mu.Lock()
	elem, ok := c.items[key]
	if !ok {
		c.mu.Unlock()
		var zero V
		return zero, false
	}
	c.order.Remove(elem)
	delete(c.items, key)
	entry := elem.Value.(*lruEntry[K, V])
	fn := c.onEvict
	c.mu.Unlock()

	notify(fn, []*lruEntry[K, V]{entry})
	return entry.value, true
}

// Len returns the number of cached entries.
func (c *LRU[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Clear removes every entry, invoking the evict callback for each.
func (c *LRU[K, V]) Clear() {
	c.mu.Lock()
	evicted := make([]*lruEntry[K, V], 0, c.order.Len())
	for elem := c.order.Front(); elem != nil; elem = elem.Next() {
		evicted = append(evicted, elem.Value.(*lruEntry[K, V]))
	}
	c.items = make(map[K]*list.Element)
	c.order.Init()
	fn := c.onEvict
	c.mu.Unlock()

	notify(fn, evicted)
}

// Must be called with lock held.
func (c *LRU[K, V]) trim() []*lruEntry[K, V] {
	var evicted []*lruEntry[K, V]
	for c.order.Len() > c.capacity {
		elem := c.order.Back()
		c.order.Remove(elem)
		entry := elem.Value.(*lruEntry[K, V])
		delete(c.items, entry.key)
		evicted = append(evicted, entry)
	}
	return evicted
}

func notify[K comparable, V any](fn func(K, V), entries []*lruEntry[K, V]) {
	if fn == nil {
		return
	}
	for _, e := range entries {
		fn(e.key, e.value)
	}
}
