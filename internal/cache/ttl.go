// Package cache provides a small time-boxed key/value cache shared by the
// handlers that used to keep ad-hoc per-page caches.
package cache

import (
	"container/list"
	"sync"
	"time"
)

type entry[K comparable, V any] struct {
	key    K
	value  V
	stored time.Time
}

// TTL stores values with their insertion time. Readers decide how old a
// value may be; beyond capacity the oldest insertion is evicted first.
type TTL[K comparable, V any] struct {
	mu       sync.Mutex
	capacity int
	order    *list.List
	items    map[K]*list.Element
	now      func() time.Time
}

func NewTTL[K comparable, V any](capacity int) *TTL[K, V] {
	if capacity <= 0 {
		capacity = 1
	}
	return &TTL[K, V]{
		capacity: capacity,
		order:    list.New(),
		items:    make(map[K]*list.Element),
		now:      time.Now,
	}
}

// Get returns the value if it was stored less than maxAge ago.
func (c *TTL[K, V]) Get(key K, maxAge time.Duration) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	el, ok := c.items[key]
	if !ok {
		return zero, false
	}
	e := el.Value.(*entry[K, V])
	if c.now().Sub(e.stored) >= maxAge {
		return zero, false
	}
	return e.value, true
}

func (c *TTL[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		c.order.Remove(el)
	}
	c.items[key] = c.order.PushBack(&entry[K, V]{key: key, value: value, stored: c.now()})

	for c.order.Len() > c.capacity {
		oldest := c.order.Front()
		c.order.Remove(oldest)
		delete(c.items, oldest.Value.(*entry[K, V]).key)
	}
}

func (c *TTL[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		c.order.Remove(el)
		delete(c.items, key)
	}
}

// Sweep drops every entry older than maxAge and returns how many went.
func (c *TTL[K, V]) Sweep(maxAge time.Duration) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	now := c.now()
	for el := c.order.Front(); el != nil; {
		e := el.Value.(*entry[K, V])
		if now.Sub(e.stored) < maxAge {
			// insertion order is age order
			break
		}
		next := el.Next()
		c.order.Remove(el)
		delete(c.items, e.key)
		removed++
		el = next
	}
	return removed
}

func (c *TTL[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
