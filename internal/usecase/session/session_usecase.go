// Package session runs the presence engine for one connected client.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/gdugdh24/geopresence/internal/config"
	"github.com/gdugdh24/geopresence/internal/domain"
	"github.com/gdugdh24/geopresence/internal/geo"
	"github.com/gdugdh24/geopresence/internal/repository"
	"github.com/gdugdh24/geopresence/internal/usecase/locationsync"
	"github.com/gdugdh24/geopresence/internal/usecase/presence"
	"github.com/gdugdh24/geopresence/internal/usecase/profile"
	"github.com/gdugdh24/geopresence/internal/usecase/proximity"
	"github.com/gdugdh24/geopresence/pkg/logger"
)

type SessionUseCase struct {
	profiles  *profile.ProfileUseCase
	proximity *proximity.ProximityUseCase
	presence  *presence.PresenceUseCase
	locations repository.LocationWriter
	cache     repository.LocationCache
	feed      repository.ChangeFeed
	locator   locationsync.IPLocator
	syncCfg   config.SyncConfig
	geoCfg    config.GeoConfig
	now       func() time.Time
}

func NewSessionUseCase(
	profiles *profile.ProfileUseCase,
	proximityUC *proximity.ProximityUseCase,
	presenceUC *presence.PresenceUseCase,
	locations repository.LocationWriter,
	cache repository.LocationCache,
	feed repository.ChangeFeed,
	locator locationsync.IPLocator,
	syncCfg config.SyncConfig,
	geoCfg config.GeoConfig,
) *SessionUseCase {
	return &SessionUseCase{
		profiles:  profiles,
		proximity: proximityUC,
		presence:  presenceUC,
		locations: locations,
		cache:     cache,
		feed:      feed,
		locator:   locator,
		syncCfg:   syncCfg,
		geoCfg:    geoCfg,
		now:       time.Now,
	}
}

// Run serves one client until ctx is done or inbound is closed. send must be
// safe for concurrent use. The only errors returned are authentication
// failures raised before anything was started.
func (uc *SessionUseCase) Run(
	ctx context.Context,
	identity domain.Identity,
	clientIP string,
	inbound <-chan ClientMessage,
	send func(ServerMessage),
) error {
	res, err := uc.profiles.Ensure(ctx, identity)
	if err != nil {
		return err
	}
	watch := locationsync.NewWatchOptions(uc.geoCfg.PositionTimeout, uc.geoCfg.MaximumAge)
	send(ServerMessage{
		Type:     TypeHello,
		Profile:  res.Profile,
		Degraded: res.Degraded,
		Reason:   res.Reason,
		Watch:    &watch,
	})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	index := uc.proximity.NewIndex(identity.ID)
	index.OnUpdate(func(users []domain.CandidateUser) {
		send(ServerMessage{Type: TypeNearby, Users: users})
	})
	uc.seedOrigin(ctx, identity, index)

	stopHeartbeat := func() {}
	tracker := locationsync.NewDisplayTracker(uc.syncCfg)
	if !res.Degraded {
		stopHeartbeat = uc.presence.Start(ctx, identity.ID)
		tracker = locationsync.NewTracker(uc.locations, uc.syncCfg)
	}

	device := locationsync.NewDeviceSource(uc.geoCfg.PositionTimeout)
	fallback := locationsync.NewFallback(uc.locator, clientIP, uc.geoCfg.MaximumAge)
	stopTracker := tracker.Start(ctx, identity.ID, locationsync.WithFallback(device, fallback),
		func(sample domain.LocationSample, pushed bool) {
			uc.remember(ctx, identity, sample)
			index.SetOrigin(sample.Coordinates)
			send(ServerMessage{Type: TypeLocation, Position: &sample, Pushed: pushed})
		})

	indexCtx, stopIndex := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		index.Run(indexCtx, uc.feed)
	}()

	uc.pump(ctx, inbound, device, send)

	stopTracker()
	stopIndex()
	wg.Wait()
	stopHeartbeat()
	logger.Info("session %s closed", identity.ID)
	return nil
}

func (uc *SessionUseCase) pump(ctx context.Context, inbound <-chan ClientMessage, device *locationsync.DeviceSource, send func(ServerMessage)) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-inbound:
			if !ok {
				return
			}
			switch msg.Type {
			case TypePosition:
				if msg.Latitude == nil || msg.Longitude == nil {
					send(ServerMessage{Type: TypeError, Error: domain.ErrInvalidCoordinates.Error()})
					continue
				}
				pos := domain.Coordinates{Lat: *msg.Latitude, Lon: *msg.Longitude}
				if err := geo.ValidateCoordinates(pos); err != nil {
					send(ServerMessage{Type: TypeError, Error: err.Error()})
					continue
				}
				device.Report(domain.LocationSample{Coordinates: pos, CapturedAt: uc.now(), Source: domain.SourceGPS})
			case TypePositionError:
				device.Fail(sensorError(msg.Code))
			default:
				send(ServerMessage{Type: TypeError, Error: "unknown message type " + msg.Type})
			}
		}
	}
}

// seedOrigin starts the nearby view from the cached position when it is
// still fresh.
func (uc *SessionUseCase) seedOrigin(ctx context.Context, identity domain.Identity, index *proximity.Index) {
	if uc.cache == nil {
		return
	}
	cached, err := uc.cache.Get(ctx, identity.ID)
	if err != nil {
		logger.Warn("session %s: read cached location: %v", identity.ID, err)
		return
	}
	if cached != nil {
		index.SetOrigin(cached.Coordinates)
	}
}

// remember caches device fixes only; fallback positions are not worth
// reusing.
func (uc *SessionUseCase) remember(ctx context.Context, identity domain.Identity, sample domain.LocationSample) {
	if uc.cache == nil || sample.Source != domain.SourceGPS {
		return
	}
	loc := repository.CachedLocation{Coordinates: sample.Coordinates, CapturedAt: sample.CapturedAt}
	if err := uc.cache.Put(ctx, identity.ID, loc); err != nil {
		logger.Warn("session %s: cache location: %v", identity.ID, err)
	}
}
