// Package presence keeps a profile's online flag current while a client is
// connected.
package presence

import (
	"context"
	"sync"
	"time"

	"github.com/gdugdh24/geopresence/internal/config"
	"github.com/gdugdh24/geopresence/internal/repository"
	"github.com/gdugdh24/geopresence/pkg/logger"
	"github.com/google/uuid"
)

const writeTimeout = 10 * time.Second

type PresenceUseCase struct {
	writer   repository.PresenceWriter
	cache    repository.LocationCache
	interval time.Duration
	now      func() time.Time
}

// NewPresenceUseCase builds the presence writer. cache may be nil.
func NewPresenceUseCase(writer repository.PresenceWriter, cache repository.LocationCache, cfg config.PresenceConfig) *PresenceUseCase {
	return &PresenceUseCase{writer: writer, cache: cache, interval: cfg.Interval, now: time.Now}
}

// SetOnline writes a single presence update.
func (uc *PresenceUseCase) SetOnline(ctx context.Context, userID uuid.UUID, online bool) error {
	return uc.writer.UpdatePresence(ctx, userID, online, uc.now())
}

// Logout forgets the cached position of userID, so the next session does
// not start from it, and marks the profile offline.
func (uc *PresenceUseCase) Logout(ctx context.Context, userID uuid.UUID) error {
	if uc.cache != nil {
		if err := uc.cache.Delete(ctx, userID); err != nil {
			logger.Warn("presence %s: drop cached location: %v", userID, err)
		}
	}
	return uc.SetOnline(ctx, userID, false)
}

// Start marks userID online now and again every interval. The returned stop
// func ends the heartbeat and writes the offline flag exactly once, even if
// called repeatedly or after ctx is done.
func (uc *PresenceUseCase) Start(ctx context.Context, userID uuid.UUID) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)

		ticker := time.NewTicker(uc.interval)
		defer ticker.Stop()

		for {
			uc.write(ctx, userID, true)
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			<-done
			uc.write(ctx, userID, false)
		})
	}
}

// write outlives the heartbeat context so that the final offline write is
// not lost to cancellation.
func (uc *PresenceUseCase) write(ctx context.Context, userID uuid.UUID, online bool) {
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
	defer cancel()
	if err := uc.SetOnline(writeCtx, userID, online); err != nil {
		logger.Error("presence %s online=%t: %v", userID, online, err)
		return
	}
	logger.Debug("presence %s online=%t", userID, online)
}
