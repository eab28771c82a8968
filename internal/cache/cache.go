package cache

import (
	"container/list"
	"sync"
)

// Cache is a size-bounded LRU map from Key to V. When full, the least
// recently used entry is evicted first. Safe for concurrent use.
type Cache[V any] struct {
	mu       sync.Mutex
	capacity int
	entries  map[Key]*list.Element
	order    *list.List // front = least recently used
}

type entry[V any] struct {
	key   Key
	value V
}

// New returns a cache holding at most capacity entries. A capacity below 1
// disables caching: Put is a no-op and Get always misses.
func New[V any](capacity int) *Cache[V] {
	return &Cache[V]{
		capacity: capacity,
		entries:  make(map[Key]*list.Element),
		order:    list.New(),
	}
}

// Get returns the value stored under k and marks it most recently used.
func (c *Cache[V]) Get(k Key) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.entries[k]; ok {
		c.order.MoveToBack(el)
		return el.Value.(*entry[V]).value, true
	}
	var zero V
	return zero, false
}

// Put stores v under k as the most recently used entry.
func (c *Cache[V]) Put(k Key, v V) {
	if c.capacity < 1 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.entries[k]; ok {
		el.Value.(*entry[V]).value = v
		c.order.MoveToBack(el)
		return
	}
	c.entries[k] = c.order.PushBack(&entry[V]{key: k, value: v})
	for c.order.Len() > c.capacity {
		lru := c.order.Front()
		c.order.Remove(lru)
		delete(c.entries, lru.Value.(*entry[V]).key)
	}
}

// Len returns the number of entries.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
