package cache

import (
	"context"
	"sync"
	"time"
)

type item struct {
	value    string
	expireAt time.Time
}

type memoryCache struct {
	mu    sync.RWMutex
	items map[string]item
	now   func() time.Time
}

func NewMemoryCache() Cache {
	return &memoryCache{
		items: make(map[string]item),
		now:   time.Now,
	}
}

func (c *memoryCache) Get(ctx context.Context, key string) (string, error) {
	c.mu.RLock()
	it, ok := c.items[key]
	c.mu.RUnlock()
	if !ok {
		return "", ErrMiss
	}
	if !it.expireAt.IsZero() && !c.now().Before(it.expireAt) {
		c.mu.Lock()
		delete(c.items, key)
		c.mu.Unlock()
		return "", ErrMiss
	}
	return it.value, nil
}

// Set ttl <= 0 表示永不过期
func (c *memoryCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	it := item{value: value}
	if ttl > 0 {
		it.expireAt = c.now().Add(ttl)
	}
	c.mu.Lock()
	c.items[key] = it
	c.mu.Unlock()
	return nil
}

func (c *memoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
	return nil
}
