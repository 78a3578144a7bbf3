package memory

import (
	"context"
	"sync"
	"time"

	"github.com/gdugdh24/geopresence/internal/repository"
	"github.com/google/uuid"
)

type LocationCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[uuid.UUID]repository.CachedLocation
}

func NewLocationCache(ttl time.Duration) *LocationCache {
	return &LocationCache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[uuid.UUID]repository.CachedLocation),
	}
}

// WithClock replaces the time source; used by tests.
func (c *LocationCache) WithClock(now func() time.Time) *LocationCache {
	c.now = now
	return c
}

func (c *LocationCache) Put(_ context.Context, id uuid.UUID, loc repository.CachedLocation) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[id] = loc
	return nil
}

func (c *LocationCache) Delete(_ context.Context, id uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, id)
	return nil
}

func (c *LocationCache) Get(_ context.Context, id uuid.UUID) (*repository.CachedLocation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	loc, ok := c.entries[id]
	if !ok {
		return nil, nil
	}
	if c.now().Sub(loc.CapturedAt) >= c.ttl {
		delete(c.entries, id)
		return nil, nil
	}
	return &loc, nil
}
