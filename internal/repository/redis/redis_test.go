package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/gdugdh24/geopresence/internal/domain"
	"github.com/gdugdh24/geopresence/internal/repository"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestClient connects to REDIS_TEST_ADDR and skips when it is unset.
func newTestClient(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, client.Ping(ctx).Err())
	t.Cleanup(func() { client.Close() })
	return client
}

func TestLocationKey(t *testing.T) {
	id := uuid.MustParse("7d9f1c1e-3b7a-4c8e-9d2f-0a1b2c3d4e5f")
	assert.Equal(t, "geopresence:location:7d9f1c1e-3b7a-4c8e-9d2f-0a1b2c3d4e5f", locationKey(id))
}

func TestLocationCacheRoundTrip(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()
	cache := NewLocationCache(client, time.Hour).(*locationCache)
	id := uuid.New()

	got, err := cache.Get(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, got)

	loc := repository.CachedLocation{
		Coordinates: domain.Coordinates{Lat: -6.2088, Lon: 106.8456},
		CapturedAt:  time.Now().Add(-time.Minute).UTC().Truncate(time.Second),
	}
	require.NoError(t, cache.Put(ctx, id, loc))

	got, err = cache.Get(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, loc.Coordinates, got.Coordinates)

	cache.now = func() time.Time { return loc.CapturedAt.Add(time.Hour) }
	got, err = cache.Get(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, cache.Delete(ctx, id))
	n, err := client.Exists(ctx, locationKey(id)).Result()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestChangeFeedPublishSubscribe(t *testing.T) {
	client := newTestClient(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	feed := NewChangeFeed(client, "geopresence-test-"+uuid.NewString())
	events, err := feed.Subscribe(ctx)
	require.NoError(t, err)

	event := domain.ChangeEvent{Op: domain.ChangeUpdate, ProfileID: uuid.New()}
	require.NoError(t, feed.Publish(ctx, event))

	select {
	case got := <-events:
		assert.Equal(t, event, got)
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
	}
}
