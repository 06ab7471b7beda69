package layout

import (
	"sync"

	"baseplan.ai/internal/sim/geom"
)

// Cache holds one compiled plan per base. An entry is only valid for the
// center it was built from; asking with another center rebuilds it.
type Cache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	center geom.Coord
	plan   *Plan
}

func NewCache() *Cache {
	return &Cache{entries: map[string]cacheEntry{}}
}

func (c *Cache) Get(baseID string, center geom.Coord, build func() (*Plan, error)) (*Plan, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[baseID]; ok && e.center == center {
		return e.plan, nil
	}
	p, err := build()
	if err != nil {
		return nil, err
	}
	c.entries[baseID] = cacheEntry{center: center, plan: p}
	return p, nil
}

func (c *Cache) Peek(baseID string) (*Plan, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[baseID]
	return e.plan, ok
}

func (c *Cache) Invalidate(baseID string) {
	c.mu.Lock()
	delete(c.entries, baseID)
	c.mu.Unlock()
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
