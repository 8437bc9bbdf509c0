package finance

import (
	"sync"
	"time"
)

// chartCache keeps rendered PNGs for a short time so repeated requests for the
// same comparison (bot retries, HTTP refreshes) do not re-render.
type chartCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]chartCacheEntry
	now     func() time.Time
}

func newChartCache(ttl time.Duration) *chartCache {
	return &chartCache{ttl: ttl, entries: map[string]chartCacheEntry{}, now: time.Now}
}

func (c *chartCache) cacheGet(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if entry, ok := c.entries[key]; ok {
		if c.now().Before(entry.createdAt.Add(c.ttl)) {
			img := make([]byte, len(entry.image))
			copy(img, entry.image)
			return img, true
		}
		delete(c.entries, key)
	}
	return nil, false
}

func (c *chartCache) cacheSet(key string, img []byte) {
	c.mu.Lock()
	c.entries[key] = chartCacheEntry{createdAt: c.now(), image: img}
	c.mu.Unlock()
}
