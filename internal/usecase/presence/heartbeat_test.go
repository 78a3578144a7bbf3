package presence

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/gdugdh24/geopresence/internal/config"
	"github.com/gdugdh24/geopresence/internal/domain"
	"github.com/gdugdh24/geopresence/internal/repository"
	"github.com/gdugdh24/geopresence/internal/repository/memory"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type presenceWrite struct {
	id     uuid.UUID
	online bool
}

type recordingWriter struct {
	mu     sync.Mutex
	writes []presenceWrite
}

func (w *recordingWriter) UpdatePresence(_ context.Context, id uuid.UUID, online bool, _ time.Time) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.writes = append(w.writes, presenceWrite{id: id, online: online})
	return nil
}

func (w *recordingWriter) snapshot() []presenceWrite {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]presenceWrite(nil), w.writes...)
}

func TestHeartbeatWritesImmediately(t *testing.T) {
	writer := &recordingWriter{}
	uc := NewPresenceUseCase(writer, nil, config.PresenceConfig{Interval: time.Hour})
	id := uuid.New()

	stop := uc.Start(context.Background(), id)
	require.Eventually(t, func() bool { return len(writer.snapshot()) == 1 }, time.Second, time.Millisecond)
	stop()

	assert.Equal(t, []presenceWrite{{id, true}, {id, false}}, writer.snapshot())
}

func TestHeartbeatRepeats(t *testing.T) {
	writer := &recordingWriter{}
	uc := NewPresenceUseCase(writer, nil, config.PresenceConfig{Interval: 10 * time.Millisecond})

	stop := uc.Start(context.Background(), uuid.New())
	require.Eventually(t, func() bool { return len(writer.snapshot()) >= 3 }, time.Second, time.Millisecond)
	stop()

	writes := writer.snapshot()
	for _, w := range writes[:len(writes)-1] {
		assert.True(t, w.online)
	}
	assert.False(t, writes[len(writes)-1].online)
}

func TestHeartbeatStopWritesOfflineOnce(t *testing.T) {
	writer := &recordingWriter{}
	uc := NewPresenceUseCase(writer, nil, config.PresenceConfig{Interval: time.Hour})
	ctx, cancel := context.WithCancel(context.Background())

	stop := uc.Start(ctx, uuid.New())
	require.Eventually(t, func() bool { return len(writer.snapshot()) == 1 }, time.Second, time.Millisecond)
	cancel()
	stop()
	stop()

	offline := 0
	for _, w := range writer.snapshot() {
		if !w.online {
			offline++
		}
	}
	assert.Equal(t, 1, offline)
}

func TestLogoutDropsCachedLocation(t *testing.T) {
	ctx := context.Background()
	writer := &recordingWriter{}
	cache := memory.NewLocationCache(time.Hour)
	uc := NewPresenceUseCase(writer, cache, config.PresenceConfig{Interval: time.Hour})
	id := uuid.New()

	require.NoError(t, cache.Put(ctx, id, repository.CachedLocation{
		Coordinates: domain.Coordinates{Lat: -8.65, Lon: 115.21},
		CapturedAt:  time.Now(),
	}))

	require.NoError(t, uc.Logout(ctx, id))

	got, err := cache.Get(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Equal(t, []presenceWrite{{id, false}}, writer.snapshot())
}

func TestLogoutWithoutCache(t *testing.T) {
	writer := &recordingWriter{}
	uc := NewPresenceUseCase(writer, nil, config.PresenceConfig{Interval: time.Hour})
	id := uuid.New()

	require.NoError(t, uc.Logout(context.Background(), id))
	assert.Equal(t, []presenceWrite{{id, false}}, writer.snapshot())
}
