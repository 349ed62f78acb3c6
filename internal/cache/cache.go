package cache

import (
	"encoding/binary"
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
	"github.com/elastic/go-freelru"

	"github.com/alexhholmes/treeidx/internal/base"
)

// Cache is a bounded LRU of decoded nodes keyed by page id. It has no
// awareness of disk I/O; the pager decides what goes in and when it must be
// dropped.
type Cache struct {
	mu  sync.Mutex
	lru *freelru.LRU[base.PageID, *base.Node]

	// Stats
	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}

const (
	MinCacheSize = 16 // Minimum: hold a root-to-leaf path plus siblings
)

func hashPageID(id base.PageID) uint32 {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(id))
	return uint32(xxhash.Sum64(buf[:]))
}

// NewCache creates a new node cache with the specified maximum size
func NewCache(maxSize int) (*Cache, error) {
	maxSize = max(maxSize, MinCacheSize)

	lru, err := freelru.New[base.PageID, *base.Node](uint32(maxSize), hashPageID)
	if err != nil {
		return nil, err
	}
	return &Cache{lru: lru}, nil
}

// Put adds a node to the cache, replacing any existing entry for the id.
func (c *Cache) Put(pageID base.PageID, node *base.Node) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.lru.Add(pageID, node) {
		c.evictions.Add(1)
	}
}

// Get retrieves a node from the cache.
// Returns (Node, true) on cache hit, (nil, false) on miss.
func (c *Cache) Get(pageID base.PageID) (*base.Node, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	node, ok := c.lru.Get(pageID)
	if !ok {
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return node, true
}

// Delete removes a page from the cache.
func (c *Cache) Delete(pageID base.PageID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lru.Remove(pageID)
}

// Purge drops every cached node.
func (c *Cache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lru.Purge()
}

// Size returns current number of cached entries
func (c *Cache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.lru.Len()
}

type Stats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

// Stats returns cache statistics
func (c *Cache) Stats() Stats {
	return Stats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
	}
}

// ClearStats resets the cache's positive incrementing statistics
func (c *Cache) ClearStats() {
	c.hits.Store(0)
	c.misses.Store(0)
	c.evictions.Store(0)
}
