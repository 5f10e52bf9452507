// Package cache provides a bounded in-memory cache shared by the
// render and transport layers. One interface covers every call site;
// the mutex-backed implementation suits both native and worker
// execution.
package cache

import (
	"container/list"
	"sync"
	"time"
)

// Cache is a capacity- and TTL-bounded key/value cache.
type Cache[K comparable, V any] interface {
	// Get returns the live value for a key.
	Get(key K) (V, bool)
	// Insert stores a value, evicting the least recently used entry
	// when the cache is at capacity.
	Insert(key K, value V)
	// Remove drops a key.
	Remove(key K)
	// Range calls fn for each live entry until fn returns false.
	Range(fn func(key K, value V) bool)
	// Len returns the number of stored entries, expired or not.
	Len() int
}

type entry[K comparable, V any] struct {
	key      K
	value    V
	deadline time.Time
}

// LRU is the mutex-backed Cache implementation. A zero TTL disables
// expiry.
type LRU[K comparable, V any] struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	order    *list.List
	items    map[K]*list.Element
	now      func() time.Time
}

// NewLRU creates a cache bounded to capacity entries. A capacity of
// zero or less defaults to 128.
func NewLRU[K comparable, V any](capacity int, ttl time.Duration) *LRU[K, V] {
	if capacity <= 0 {
		capacity = 128
	}
	return &LRU[K, V]{
		capacity: capacity,
		ttl:      ttl,
		order:    list.New(),
		items:    make(map[K]*list.Element),
		now:      time.Now,
	}
}

// Get returns the value for a key if present and unexpired. Expired
// entries are dropped on access.
func (c *LRU[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	el, ok := c.items[key]
	if !ok {
		return zero, false
	}
	ent := el.Value.(*entry[K, V])
	if c.expired(ent) {
		c.remove(el)
		return zero, false
	}
	c.order.MoveToFront(el)
	return ent.value, true
}

// Insert stores a value, refreshing its TTL.
func (c *LRU[K, V]) Insert(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var deadline time.Time
	if c.ttl > 0 {
		deadline = c.now().Add(c.ttl)
	}

	if el, ok := c.items[key]; ok {
		ent := el.Value.(*entry[K, V])
		ent.value = value
		ent.deadline = deadline
		c.order.MoveToFront(el)
		return
	}

	c.items[key] = c.order.PushFront(&entry[K, V]{key: key, value: value, deadline: deadline})
	if c.order.Len() > c.capacity {
		if oldest := c.order.Back(); oldest != nil {
			c.remove(oldest)
		}
	}
}

// Remove drops a key if present.
func (c *LRU[K, V]) Remove(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		c.remove(el)
	}
}

// Range iterates live entries, most recently used first.
func (c *LRU[K, V]) Range(fn func(key K, value V) bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for el := c.order.Front(); el != nil; el = el.Next() {
		ent := el.Value.(*entry[K, V])
		if c.expired(ent) {
			continue
		}
		if !fn(ent.key, ent.value) {
			return
		}
	}
}

// Len returns the number of stored entries.
func (c *LRU[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

func (c *LRU[K, V]) expired(ent *entry[K, V]) bool {
	return !ent.deadline.IsZero() && c.now().After(ent.deadline)
}

func (c *LRU[K, V]) remove(el *list.Element) {
	ent := el.Value.(*entry[K, V])
	c.order.Remove(el)
	delete(c.items, ent.key)
}
