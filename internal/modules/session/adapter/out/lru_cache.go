package out

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"recall/internal/modules/session/domain"
	sessionout "recall/internal/modules/session/port/out"
)

// LRUCache is the process-local tier. Slices are copied on the way in and
// out so callers never share backing arrays with the cache.
type LRUCache struct {
	entries *lru.Cache[string, []domain.Record]
}

func NewLRUCache(size int) (sessionout.Cache, error) {
	if size <= 0 {
		size = 64
	}
	entries, err := lru.New[string, []domain.Record](size)
	if err != nil {
		return nil, err
	}
	return &LRUCache{entries: entries}, nil
}

func (c *LRUCache) Get(key string) ([]domain.Record, bool) {
	records, ok := c.entries.Get(key)
	if !ok {
		return nil, false
	}
	return append([]domain.Record(nil), records...), true
}

func (c *LRUCache) Set(key string, records []domain.Record) {
	c.entries.Add(key, append([]domain.Record{}, records...))
}
