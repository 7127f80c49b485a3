package web

import (
	"sync"
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

// responseCache holds encoded trend read responses. Any trend mutation
// clears it as a whole, since a single change affects both item and list keys.
//
// Readers take a generation before loading and store only if no mutation
// cleared the cache in between.
type responseCache struct {
	c   *ristretto.Cache[string, []byte]
	ttl time.Duration

	mu  sync.RWMutex
	gen uint64
}

func newResponseCache(maxItems int64, ttl time.Duration) (*responseCache, error) {
	if maxItems <= 0 {
		maxItems = 1000
	}
	c, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		NumCounters: maxItems * 10,
		MaxCost:     maxItems,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &responseCache{c: c, ttl: ttl}, nil
}

func (c *responseCache) get(key string) ([]byte, bool) {
	body, ok := c.c.Get(key)
	if ok {
		cacheRequestsTotal.WithLabelValues("hit").Inc()
	} else {
		cacheRequestsTotal.WithLabelValues("miss").Inc()
	}
	return body, ok
}

func (c *responseCache) generation() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gen
}

// set stores body at a cost of one item unless the cache was invalidated
// after gen was taken. Entries may also be dropped under contention.
func (c *responseCache) set(key string, body []byte, gen uint64) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.gen != gen {
		return false
	}
	return c.c.SetWithTTL(key, body, 1, c.ttl)
}

func (c *responseCache) invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.c.Clear()
}

func (c *responseCache) close() {
	c.c.Close()
}
