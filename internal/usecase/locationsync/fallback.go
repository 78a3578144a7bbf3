package locationsync

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/gdugdh24/geopresence/internal/domain"
	"github.com/gdugdh24/geopresence/pkg/logger"
)

// ReferenceCities is the last-resort position table.
var ReferenceCities = []domain.Coordinates{
	{Lat: -6.2088, Lon: 106.8456},
	{Lat: -6.9175, Lon: 107.6191},
	{Lat: -7.2504, Lon: 112.7688},
	{Lat: -6.5942, Lon: 106.7890},
	{Lat: -6.9667, Lon: 110.4167},
	{Lat: -0.7893, Lon: 113.9213},
	{Lat: -2.5489, Lon: 118.0149},
	{Lat: -5.1477, Lon: 119.4327},
	{Lat: 1.4748, Lon: 124.8426},
}

// IPLocator resolves a coarse position from an IP address.
type IPLocator interface {
	Lookup(ctx context.Context, ip string) (domain.Coordinates, error)
}

// Fallback produces a position when the device cannot: an IP lookup first,
// then one reference city picked at random and kept for the Fallback's
// lifetime. A result is reused for maxAge.
type Fallback struct {
	locator  IPLocator
	clientIP string
	maxAge   time.Duration
	now      func() time.Time
	pick     func(n int) int

	mu     sync.Mutex
	last   *domain.LocationSample
	static *domain.Coordinates
}

// NewFallback builds a fallback for one client. locator may be nil.
func NewFallback(locator IPLocator, clientIP string, maxAge time.Duration) *Fallback {
	return &Fallback{
		locator:  locator,
		clientIP: clientIP,
		maxAge:   maxAge,
		now:      time.Now,
		pick:     rand.Intn,
	}
}

func (f *Fallback) Locate(ctx context.Context) domain.LocationSample {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := f.now()
	if f.last != nil && now.Sub(f.last.CapturedAt) < f.maxAge {
		return *f.last
	}

	sample := domain.LocationSample{CapturedAt: now}
	if pos, ok := f.lookup(ctx); ok {
		sample.Coordinates = pos
		sample.Source = domain.SourceIPFallback
	} else {
		sample.Coordinates = f.staticCity()
		sample.Source = domain.SourceStaticFallback
	}
	f.last = &sample
	return sample
}

func (f *Fallback) lookup(ctx context.Context) (domain.Coordinates, bool) {
	if f.locator == nil {
		return domain.Coordinates{}, false
	}
	pos, err := f.locator.Lookup(ctx, f.clientIP)
	if err != nil {
		logger.Warn("ip geolocation for %q failed: %v", f.clientIP, err)
		return domain.Coordinates{}, false
	}
	return pos, true
}

func (f *Fallback) staticCity() domain.Coordinates {
	if f.static == nil {
		c := ReferenceCities[f.pick(len(ReferenceCities))]
		f.static = &c
	}
	return *f.static
}

type fallbackSource struct {
	src      GeoSource
	fallback *Fallback
}

// WithFallback replaces every sensor error from src with a fallback sample.
func WithFallback(src GeoSource, fallback *Fallback) GeoSource {
	return &fallbackSource{src: src, fallback: fallback}
}

func (s *fallbackSource) Positions(ctx context.Context) <-chan domain.PositionEvent {
	in := s.src.Positions(ctx)
	out := make(chan domain.PositionEvent)

	go func() {
		defer close(out)
		for ev := range in {
			if ev.Err != nil {
				logger.Warn("device position error: %v; using fallback", ev.Err)
				ev = domain.PositionEvent{Sample: s.fallback.Locate(ctx)}
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
