package utils

// A simple LRU cache for bundle IDs already written to the history store.
type SeenCache struct {
	set      map[string]struct{}
	order    []string
	capacity int
}

func NewSeenCache(capacity int) *SeenCache {
	return &SeenCache{
		set:      make(map[string]struct{}),
		capacity: capacity,
		order:    make([]string, 0, capacity),
	}
}

func (c *SeenCache) Has(bundleId string) bool {
	_, exists := c.set[bundleId]
	return exists
}

func (c *SeenCache) Add(bundleId string) {
	if c.Has(bundleId) {
		return
	}
	if len(c.order) >= c.capacity {
		old := c.order[0]
		c.order = c.order[1:]
		delete(c.set, old)
	}
	c.set[bundleId] = struct{}{}
	c.order = append(c.order, bundleId)
}

func (c *SeenCache) Len() int {
	return len(c.set)
}
