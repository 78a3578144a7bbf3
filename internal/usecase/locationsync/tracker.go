package locationsync

import (
	"context"
	"sync"
	"time"

	"github.com/gdugdh24/geopresence/internal/config"
	"github.com/gdugdh24/geopresence/internal/domain"
	"github.com/gdugdh24/geopresence/internal/repository"
	"github.com/gdugdh24/geopresence/pkg/logger"
	"github.com/google/uuid"
)

const writeTimeout = 10 * time.Second

// PositionFunc observes every sample the tracker handles. pushed is true when
// the sample was written to the profile row.
type PositionFunc func(sample domain.LocationSample, pushed bool)

// Tracker applies Policy to a GeoSource and writes the chosen samples.
type Tracker struct {
	writer repository.LocationWriter
	policy Policy
	now    func() time.Time
}

func NewTracker(writer repository.LocationWriter, cfg config.SyncConfig) *Tracker {
	return &Tracker{writer: writer, policy: NewPolicy(cfg), now: time.Now}
}

// NewDisplayTracker returns a tracker that only reports positions and never
// writes, for sessions without a persisted profile.
func NewDisplayTracker(cfg config.SyncConfig) *Tracker {
	return NewTracker(nil, cfg)
}

// Start follows source until the returned stop func is called or ctx is
// done. Samples are handled one at a time. stop returns after the loop has
// exited; a write already in progress is allowed to finish, and no write
// starts after stop.
func (t *Tracker) Start(ctx context.Context, userID uuid.UUID, source GeoSource, onPosition PositionFunc) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		t.run(ctx, userID, source.Positions(ctx), onPosition)
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			<-done
		})
	}
}

func (t *Tracker) run(ctx context.Context, userID uuid.UUID, events <-chan domain.PositionEvent, onPosition PositionFunc) {
	var state domain.SyncState

	for {
		var ev domain.PositionEvent
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			ev = e
		}

		if ev.Err != nil {
			logger.Warn("tracker %s: position error: %v", userID, ev.Err)
			continue
		}

		sample := ev.Sample
		pushed := false
		now := t.now()
		if t.writer != nil && t.policy.Decide(state, sample, now) {
			if ctx.Err() != nil {
				return
			}
			if err := t.push(ctx, userID, sample.Coordinates, now); err != nil {
				// The next sample re-evaluates against the unchanged state.
				logger.Error("tracker %s: push position: %v", userID, err)
			} else {
				pos := sample.Coordinates
				state = domain.SyncState{LastPersisted: &pos, LastPersistedAt: now}
				pushed = true
				logger.Debug("tracker %s: pushed %.5f,%.5f (%s)", userID, pos.Lat, pos.Lon, sample.Source)
			}
		}

		if onPosition != nil {
			onPosition(sample, pushed)
		}
	}
}

func (t *Tracker) push(ctx context.Context, userID uuid.UUID, pos domain.Coordinates, now time.Time) error {
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
	defer cancel()
	return t.writer.UpdateLocation(writeCtx, userID, pos, now)
}
