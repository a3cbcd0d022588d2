// Package cache is a small in-memory byte cache with per-entry lifetime.
// It fronts read-mostly administrative views so they don't hit storage on
// every poll.
package cache

import (
	"sync"
	"time"
)

type entry struct {
	value     []byte
	expiresAt time.Time
}

type Cache struct {
	lock  sync.RWMutex
	store map[string]entry
}

func New() *Cache {
	return &Cache{
		store: make(map[string]entry),
	}
}

func (c *Cache) Get(key string) ([]byte, bool) {
	c.lock.RLock()
	defer c.lock.RUnlock()

	item, ok := c.store[key]
	if !ok {
		return nil, false
	}
	if c.now().After(item.expiresAt) {
		return nil, false
	}

	return item.value, true
}

func (c *Cache) Set(key string, value []byte, lifeTime time.Duration) {
	c.lock.Lock()
	defer c.lock.Unlock()

	for k, item := range c.store {
		if c.now().After(item.expiresAt) {
			delete(c.store, k)
		}
	}

	c.store[key] = entry{
		value:     value,
		expiresAt: c.now().Add(lifeTime),
	}
}

func (c *Cache) now() time.Time {
	return time.Now()
}
