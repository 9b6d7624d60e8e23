package transcription

import "sync"

// resultCache keeps the most recent transcription results, evicting the oldest
// entry once full.
type resultCache struct {
	mu    sync.Mutex
	limit int
	order []string
	items map[string]Result
}

func newResultCache(limit int) *resultCache {
	return &resultCache{limit: limit, items: make(map[string]Result, limit)}
}

func (c *resultCache) get(key string) (Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.items[key]
	return r, ok
}

func (c *resultCache) put(key string, r Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.items[key]; !ok {
		c.order = append(c.order, key)
	}
	c.items[key] = r
	for len(c.order) > c.limit {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.items, oldest)
	}
}

func (c *resultCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}
