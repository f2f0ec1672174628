package search

import (
	"fmt"
	"sync"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/leapstack-labs/dbrefs/pkg/core"
)

// Cache memoizes usage lists by cache key. Implementations must be safe for
// concurrent use and keep the first value stored for a key.
type Cache interface {
	// Get returns the cached usages for key.
	Get(key string) ([]*core.RefObject, bool)
	// PutIfAbsent stores usages unless key is already present. It returns
	// the value held by the cache afterwards and whether usages was stored.
	PutIfAbsent(key string, usages []*core.RefObject) (actual []*core.RefObject, stored bool)
	// Len returns the number of cached keys.
	Len() int
}

// MapCache is an unbounded Cache backed by sync.Map.
type MapCache struct {
	m sync.Map
	n atomic.Int64
}

// NewMapCache creates an empty unbounded cache.
func NewMapCache() *MapCache {
	return &MapCache{}
}

// Get implements Cache.
func (c *MapCache) Get(key string) ([]*core.RefObject, bool) {
	v, ok := c.m.Load(key)
	if !ok {
		return nil, false
	}
	return v.([]*core.RefObject), true
}

// PutIfAbsent implements Cache.
func (c *MapCache) PutIfAbsent(key string, usages []*core.RefObject) ([]*core.RefObject, bool) {
	v, loaded := c.m.LoadOrStore(key, usages)
	if !loaded {
		c.n.Add(1)
	}
	return v.([]*core.RefObject), !loaded
}

// Len implements Cache.
func (c *MapCache) Len() int {
	return int(c.n.Load())
}

// LRUCache is a bounded Cache. Evicted keys are recomputed on the next miss.
type LRUCache struct {
	c *lru.Cache[string, []*core.RefObject]
}

// NewLRUCache creates a cache holding at most size keys.
func NewLRUCache(size int) (*LRUCache, error) {
	c, err := lru.New[string, []*core.RefObject](size)
	if err != nil {
		return nil, fmt.Errorf("creating usage cache: %w", err)
	}
	return &LRUCache{c: c}, nil
}

// Get implements Cache.
func (c *LRUCache) Get(key string) ([]*core.RefObject, bool) {
	return c.c.Get(key)
}

// PutIfAbsent implements Cache.
func (c *LRUCache) PutIfAbsent(key string, usages []*core.RefObject) ([]*core.RefObject, bool) {
	prev, found, _ := c.c.PeekOrAdd(key, usages)
	if found {
		return prev, false
	}
	return usages, true
}

// Len implements Cache.
func (c *LRUCache) Len() int {
	return c.c.Len()
}

// NewCache returns an LRUCache when size is positive and a MapCache otherwise.
func NewCache(size int) (Cache, error) {
	if size > 0 {
		return NewLRUCache(size)
	}
	return NewMapCache(), nil
}
