// Package redis keeps short-lived engine state in Redis: the last observed
// position per identity and the pub/sub change feed.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gdugdh24/geopresence/internal/repository"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const locationKeyPrefix = "geopresence:location:"

type locationCache struct {
	client *redis.Client
	ttl    time.Duration
	now    func() time.Time
}

func NewLocationCache(client *redis.Client, ttl time.Duration) repository.LocationCache {
	return &locationCache{client: client, ttl: ttl, now: time.Now}
}

func locationKey(id uuid.UUID) string {
	return locationKeyPrefix + id.String()
}

func (c *locationCache) Put(ctx context.Context, id uuid.UUID, loc repository.CachedLocation) error {
	data, err := json.Marshal(loc)
	if err != nil {
		return fmt.Errorf("failed to encode location: %w", err)
	}
	if err := c.client.Set(ctx, locationKey(id), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache location: %w", err)
	}
	return nil
}

func (c *locationCache) Get(ctx context.Context, id uuid.UUID) (*repository.CachedLocation, error) {
	data, err := c.client.Get(ctx, locationKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read cached location: %w", err)
	}

	var loc repository.CachedLocation
	if err := json.Unmarshal(data, &loc); err != nil {
		return nil, fmt.Errorf("failed to decode cached location: %w", err)
	}
	// The key TTL counts from the write, not from capture.
	if c.now().Sub(loc.CapturedAt) >= c.ttl {
		return nil, nil
	}
	return &loc, nil
}

func (c *locationCache) Delete(ctx context.Context, id uuid.UUID) error {
	if err := c.client.Del(ctx, locationKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to drop cached location: %w", err)
	}
	return nil
}
