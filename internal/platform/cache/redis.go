// File: internal/platform/cache/redis.go
package cache

import (
	"context"
	"fmt"
	"time"

	"marketplace_backend/internal/config"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// NewRedisClient connects to REDIS_URL. It returns nil without error when
// no URL is configured so callers can fall back to an in-process store.
func NewRedisClient(cfg *config.Config, logger *zap.Logger) (*redis.Client, error) {
	if cfg.RedisURL == "" {
		logger.Info("REDIS_URL not set, Redis client disabled")
		return nil, nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}

	logger.Info("Connected to Redis", zap.String("addr", opts.Addr), zap.Int("db", opts.DB))
	return client, nil
}

// CloseRedis closes client if it is not nil.
func CloseRedis(client *redis.Client, logger *zap.Logger) {
	if client == nil {
		return
	}
	if err := client.Close(); err != nil {
		logger.Error("Error closing Redis client", zap.Error(err))
	}
}
