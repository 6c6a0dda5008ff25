package cache

import (
	"bytes"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

const memoryJanitorInterval = 10 * time.Minute

// MemoryCache keeps replies for the life of one process
type MemoryCache struct {
	items *gocache.Cache
}

// NewMemoryCache creates a memory cache; ttl <= 0 keeps entries until Clear
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	return &MemoryCache{items: gocache.New(ttl, memoryJanitorInterval)}
}

// Get returns a private copy of the stored reply
func (c *MemoryCache) Get(key string) ([]byte, bool) {
	if v, ok := c.items.Get(key); ok {
		if data, ok := v.([]byte); ok {
			return bytes.Clone(data), true
		}
	}
	return nil, false
}

// Set stores a copy of value; ttl 0 means the cache default
func (c *MemoryCache) Set(key string, value []byte, ttl time.Duration) error {
	if ttl == 0 {
		ttl = gocache.DefaultExpiration
	}
	c.items.Set(key, bytes.Clone(value), ttl)
	return nil
}

func (c *MemoryCache) Delete(key string) error {
	c.items.Delete(key)
	return nil
}

func (c *MemoryCache) Clear() error {
	c.items.Flush()
	return nil
}

// Len reports the number of entries, including expired ones not yet swept
func (c *MemoryCache) Len() int {
	return c.items.ItemCount()
}
