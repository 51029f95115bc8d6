// SPDX-License-Identifier: MPL-2.0

package docload

import (
	"sync"

	"lukechampine.com/blake3"

	"github.com/ironhull/modkit/pkg/doctree"
)

type (
	// Cache keeps parsed trees keyed by a BLAKE3 digest of the format and
	// file bytes, so reloads only parse documents whose content changed.
	// It is safe for concurrent use.
	Cache struct {
		mu      sync.Mutex
		entries map[[32]byte]*doctree.Node
		stats   CacheStats
	}

	// CacheStats counts cache lookups.
	CacheStats struct {
		Hits   int
		Misses int
	}
)

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[[32]byte]*doctree.Node)}
}

// Get returns a private copy of the cached tree for data.
func (c *Cache) Get(format doctree.Format, data []byte) (*doctree.Node, bool) {
	key := digest(format, data)
	c.mu.Lock()
	tree, ok := c.entries[key]
	if ok {
		c.stats.Hits++
	} else {
		c.stats.Misses++
	}
	c.mu.Unlock()
	if !ok {
		return nil, false
	}
	return tree.Clone(), true
}

// Put stores tree for data. The cache keeps tree itself; callers must not
// modify it afterwards.
func (c *Cache) Put(format doctree.Format, data []byte, tree *doctree.Node) {
	key := digest(format, data)
	c.mu.Lock()
	c.entries[key] = tree
	c.mu.Unlock()
}

// Reset drops every entry and the counters.
func (c *Cache) Reset() {
	c.mu.Lock()
	clear(c.entries)
	c.stats = CacheStats{}
	c.mu.Unlock()
}

// Len returns the number of cached trees.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns the lookup counters.
func (c *Cache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

func digest(format doctree.Format, data []byte) [32]byte {
	h := blake3.New(32, nil)
	h.Write([]byte(format))
	h.Write([]byte{0})
	h.Write(data)
	var out [32]byte
	h.Sum(out[:0])
	return out
}
