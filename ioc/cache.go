package ioc

import (
	"context"
	"log/slog"
	"time"

	"github.com/Snack-JPG/nft-pulse/pkg/cache"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
)

// InitCache 配置了 redis 时使用 redis, 否则退化为进程内缓存
func InitCache() cache.Cache {
	type Config struct {
		RedisURL string `mapstructure:"redis_url"`
		Prefix   string `mapstructure:"prefix"`
	}

	var cfg Config
	if err := viper.UnmarshalKey("cache", &cfg); err != nil {
		panic(err)
	}
	if cfg.RedisURL == "" {
		slog.Info("redis not configured, using in-memory cache")
		return cache.NewMemoryCache()
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		panic(err)
	}
	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err = client.Ping(ctx).Err(); err != nil {
		panic(err)
	}
	return cache.NewRedisCache(client, cfg.Prefix)
}
