package entityid

import (
	"fmt"
	"sync"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Cache memoizes parsed identifiers and must be safe for concurrent use.
// Add returns the identifier already stored under key when there is one, so
// racing parses of equal input settle on a single pointer.
type Cache interface {
	Get(key string) (*EntityID, bool)
	Add(key string, id *EntityID) *EntityID
	Len() int
}

// NewCache returns an unbounded cache when maxSize is zero and an LRU cache
// holding at most maxSize identifiers otherwise.
func NewCache(maxSize int) (Cache, error) {
	switch {
	case maxSize < 0:
		return nil, fmt.Errorf("entity id cache size must not be negative: %d", maxSize)
	case maxSize == 0:
		return &mapCache{}, nil
	}
	c, err := lru.New[string, *EntityID](maxSize)
	if err != nil {
		return nil, fmt.Errorf("create entity id cache: %w", err)
	}
	return &lruCache{c: c}, nil
}

type mapCache struct {
	m sync.Map
	n atomic.Int64
}

func (c *mapCache) Get(key string) (*EntityID, bool) {
	v, ok := c.m.Load(key)
	if !ok {
		return nil, false
	}
	return v.(*EntityID), true
}

func (c *mapCache) Add(key string, id *EntityID) *EntityID {
	v, loaded := c.m.LoadOrStore(key, id)
	if !loaded {
		c.n.Add(1)
	}
	return v.(*EntityID)
}

func (c *mapCache) Len() int {
	return int(c.n.Load())
}

type lruCache struct {
	c *lru.Cache[string, *EntityID]
}

func (c *lruCache) Get(key string) (*EntityID, bool) {
	return c.c.Get(key)
}

func (c *lruCache) Add(key string, id *EntityID) *EntityID {
	if previous, ok, _ := c.c.PeekOrAdd(key, id); ok {
		return previous
	}
	return id
}

func (c *lruCache) Len() int {
	return c.c.Len()
}
