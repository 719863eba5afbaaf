package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

type redisCache struct {
	client redis.Cmdable
	prefix string
}

// NewRedisCache 所有 key 自动加上 prefix
func NewRedisCache(client redis.Cmdable, prefix string) Cache {
	return &redisCache{
		client: client,
		prefix: prefix,
	}
}

func (c *redisCache) key(key string) string {
	return c.prefix + key
}

func (c *redisCache) Get(ctx context.Context, key string) (string, error) {
	val, err := c.client.Get(ctx, c.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrMiss
	}
	return val, err
}

func (c *redisCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	return c.client.Set(ctx, c.key(key), value, ttl).Err()
}

func (c *redisCache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, c.key(key)).Err()
}
