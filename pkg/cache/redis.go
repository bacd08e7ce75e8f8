package cache

import (
	"context"
	"fmt"
	"time"

	"tutorial-blog/pkg/config"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient connects and pings; callers treat an error as "run without
// Redis".
func NewRedisClient(cfg *config.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr(),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", cfg.RedisAddr(), err)
	}
	return client, nil
}
