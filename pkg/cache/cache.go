package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss key 不存在或已过期
var ErrMiss = errors.New("cache miss")

type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// GetOrRefresh 未命中时调用 load 并回填, 回填失败只影响下次命中
func GetOrRefresh(ctx context.Context, c Cache, key string, ttl time.Duration,
	load func(ctx context.Context) (string, error)) (string, error) {
	val, err := c.Get(ctx, key)
	if err == nil {
		return val, nil
	}
	if !errors.Is(err, ErrMiss) {
		return "", err
	}

	val, err = load(ctx)
	if err != nil {
		return "", err
	}
	_ = c.Set(ctx, key, val, ttl)
	return val, nil
}
