package feed

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// MaxCacheTTL keeps cached documents no staler than the refresh hint.
const MaxCacheTTL = RefreshInterval

// Cache holds rendered documents keyed by public calendar id. It is a
// read-through optimization only; the store stays authoritative.
type Cache struct {
	lru *expirable.LRU[string, string]
}

// NewCache returns nil when ttl <= 0; a nil *Cache is a valid no-op cache.
func NewCache(size int, ttl time.Duration) *Cache {
	if ttl <= 0 {
		return nil
	}
	if ttl > MaxCacheTTL {
		ttl = MaxCacheTTL
	}
	if size <= 0 {
		size = 1024
	}
	return &Cache{lru: expirable.NewLRU[string, string](size, nil, ttl)}
}

func (c *Cache) Get(calendarID string) (string, bool) {
	if c == nil {
		return "", false
	}
	return c.lru.Get(calendarID)
}

func (c *Cache) Put(calendarID, doc string) {
	if c == nil {
		return
	}
	c.lru.Add(calendarID, doc)
}

// Invalidate drops the cached document of a calendar after any write to it.
func (c *Cache) Invalidate(calendarID string) {
	if c == nil {
		return
	}
	c.lru.Remove(calendarID)
}
