package cache

import (
	"errors"
	"sync/atomic"
	"time"
)

// Pruner is a cache that can drop its expired entries in bulk
type Pruner interface {
	Prune() (int, error)
}

// Stats counts lookups by the layer that answered them
type Stats struct {
	FrontHits int64
	BackHits  int64
	Misses    int64
}

// LayeredCache reads the front layer first and backfills it on back-layer hits.
// Writes go to both layers.
type LayeredCache struct {
	front    Cache
	back     Cache
	frontTTL time.Duration

	frontHits atomic.Int64
	backHits  atomic.Int64
	misses    atomic.Int64
}

// NewLayeredCache stacks front over back; backfilled entries live frontTTL in front
func NewLayeredCache(front, back Cache, frontTTL time.Duration) *LayeredCache {
	return &LayeredCache{front: front, back: back, frontTTL: frontTTL}
}

func (c *LayeredCache) Get(key string) ([]byte, bool) {
	if val, ok := c.front.Get(key); ok {
		c.frontHits.Add(1)
		return val, true
	}
	val, ok := c.back.Get(key)
	if !ok {
		c.misses.Add(1)
		return nil, false
	}
	c.backHits.Add(1)
	_ = c.front.Set(key, val, c.frontTTL)
	return val, true
}

// Set writes front then back; a back failure still leaves the front copy
func (c *LayeredCache) Set(key string, value []byte, ttl time.Duration) error {
	frontTTL := c.frontTTL
	if ttl > 0 && (frontTTL <= 0 || ttl < frontTTL) {
		frontTTL = ttl
	}
	if err := c.front.Set(key, value, frontTTL); err != nil {
		return err
	}
	return c.back.Set(key, value, ttl)
}

func (c *LayeredCache) Delete(key string) error {
	return errors.Join(c.front.Delete(key), c.back.Delete(key))
}

func (c *LayeredCache) Clear() error {
	return errors.Join(c.front.Clear(), c.back.Clear())
}

// Prune drops expired entries from any layer that supports it
func (c *LayeredCache) Prune() (int, error) {
	var (
		total int
		errs  []error
	)
	for _, layer := range []Cache{c.front, c.back} {
		if p, ok := layer.(Pruner); ok {
			n, err := p.Prune()
			total += n
			errs = append(errs, err)
		}
	}
	return total, errors.Join(errs...)
}

// Stats returns lookup counters since creation
func (c *LayeredCache) Stats() Stats {
	return Stats{
		FrontHits: c.frontHits.Load(),
		BackHits:  c.backHits.Load(),
		Misses:    c.misses.Load(),
	}
}
