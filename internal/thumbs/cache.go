package thumbs

import (
	"container/list"
	"sync"
	"time"

	"photovault/internal/metrics"
)

// cacheKey identifies one thumbnail variant.
type cacheKey struct {
	imageID int64
	maxDim  int
}

type cacheEntry struct {
	key cacheKey
	jpg []byte

	// Source file identity captured at synthesis time. A lookup whose
	// current stat disagrees is treated as a miss.
	srcSize    int64
	srcModTime time.Time
}

// lruCache is a byte- and count-bounded LRU. All methods are safe for
// concurrent use.
type lruCache struct {
	mu         sync.Mutex
	maxBytes   int64
	maxEntries int

	bytes   int64
	order   *list.List
	entries map[cacheKey]*list.Element
}

func newLRUCache(maxBytes int64, maxEntries int) *lruCache {
	return &lruCache{
		maxBytes:   maxBytes,
		maxEntries: maxEntries,
		order:      list.New(),
		entries:    make(map[cacheKey]*list.Element),
	}
}

// get returns the cached bytes if present and still valid for the given
// source identity. An entry that exists but is stale is removed.
func (c *lruCache) get(key cacheKey, srcSize int64, srcModTime time.Time) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	ent := elem.Value.(*cacheEntry)
	if ent.srcSize != srcSize || !ent.srcModTime.Equal(srcModTime) {
		c.removeLocked(elem)
		return nil, false
	}
	c.order.MoveToFront(elem)
	return ent.jpg, true
}

// put inserts or replaces an entry and evicts from the cold end until
// both bounds hold. An entry larger than the whole budget is rejected.
func (c *lruCache) put(key cacheKey, jpg []byte, srcSize int64, srcModTime time.Time) {
	if int64(len(jpg)) > c.maxBytes {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[key]; ok {
		c.removeLocked(elem)
	}

	ent := &cacheEntry{key: key, jpg: jpg, srcSize: srcSize, srcModTime: srcModTime}
	c.entries[key] = c.order.PushFront(ent)
	c.bytes += int64(len(jpg))

	for c.bytes > c.maxBytes || c.order.Len() > c.maxEntries {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		c.removeLocked(oldest)
		metrics.ThumbnailCacheEvictions.Inc()
	}
	c.publish()
}

// invalidate drops every variant of one image.
func (c *lruCache) invalidate(imageID int64) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, elem := range c.entries {
		if key.imageID == imageID {
			c.removeLocked(elem)
			removed++
		}
	}
	c.publish()
	return removed
}

func (c *lruCache) removeLocked(elem *list.Element) {
	ent := elem.Value.(*cacheEntry)
	c.order.Remove(elem)
	delete(c.entries, ent.key)
	c.bytes -= int64(len(ent.jpg))
}

func (c *lruCache) publish() {
	metrics.ThumbnailCacheSize.Set(float64(c.bytes))
	metrics.ThumbnailCacheCount.Set(float64(c.order.Len()))
}

func (c *lruCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

func (c *lruCache) size() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bytes
}
