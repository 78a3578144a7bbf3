package database

import (
	"context"
	"fmt"
	"time"

	"github.com/gdugdh24/geopresence/internal/config"
	"github.com/gdugdh24/geopresence/pkg/logger"
	"github.com/redis/go-redis/v9"
)

// NewRedisClient connects to the cache and change feed server.
func NewRedisClient(ctx context.Context, cfg *config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.GetAddr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  connectTimeout,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.GetAddr(), err)
	}

	logger.Info("connected to redis %s db=%d", cfg.GetAddr(), cfg.DB)
	return client, nil
}
