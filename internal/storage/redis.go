package storage

import (
	"context"
	"fmt"
	"time"

	"tg-sanctions/internal/config"
	"tg-sanctions/internal/logger"

	goredis "github.com/redis/go-redis/v9"
)

// NewRedisClient connects and pings the configured server.
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", cfg.Addr, err)
	}

	logger.Infof("Connected to redis at %s (db %d)", cfg.Addr, cfg.DB)
	return client, nil
}

// RedisCounter reserves ids with INCR.
type RedisCounter struct {
	client *goredis.Client
	prefix string
}

func NewRedisCounter(client *goredis.Client, prefix string) *RedisCounter {
	return &RedisCounter{client: client, prefix: prefix}
}

func (c *RedisCounter) key(name string) string {
	return c.prefix + "counter:" + name
}

func (c *RedisCounter) ReserveNext(ctx context.Context, name string) (int64, error) {
	if c.client == nil {
		return 0, fmt.Errorf("redis client is nil")
	}
	id, err := c.client.Incr(ctx, c.key(name)).Result()
	if err != nil {
		return 0, fmt.Errorf("increment counter %s: %w", name, err)
	}
	return id, nil
}
