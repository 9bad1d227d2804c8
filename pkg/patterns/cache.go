package patterns

import "sync"

const (
	cacheHighWater = 100
	cacheLowWater  = 50
)

/*
Cache is a small message-keyed store of prior analyses. It is bounded: when
the size exceeds 100 entries it is trimmed back to the 50 most recently used.
*/
type Cache[T any] struct {
	mu      sync.Mutex
	entries map[string]T
	order   []string
}

func NewCache[T any]() *Cache[T] {
	return &Cache[T]{entries: map[string]T{}}
}

func (c *Cache[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	v, ok := c.entries[key]
	if ok {
		c.touch(key)
	}

	return v, ok
}

func (c *Cache[T]) Put(key string, value T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; !ok {
		c.order = append(c.order, key)
	} else {
		c.touch(key)
	}
	c.entries[key] = value

	if len(c.entries) > cacheHighWater {
		c.trim()
	}
}

func (c *Cache[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}

// touch moves the key to the most-recently-used end of the order slice.
func (c *Cache[T]) touch(key string) {
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			c.order = append(c.order, key)
			return
		}
	}
}

// trim drops everything but the 50 most recently used entries.
func (c *Cache[T]) trim() {
	keep := c.order[len(c.order)-cacheLowWater:]
	kept := make(map[string]T, cacheLowWater)
	for _, k := range keep {
		kept[k] = c.entries[k]
	}
	c.entries = kept
	c.order = append([]string(nil), keep...)
}
