package locationsync

import (
	"context"
	"time"

	"github.com/gdugdh24/geopresence/internal/domain"
	"github.com/gdugdh24/geopresence/pkg/logger"
)

// GeoSource is a stream of position samples and sensor errors. The channel
// is closed once ctx is done.
type GeoSource interface {
	Positions(ctx context.Context) <-chan domain.PositionEvent
}

// WatchOptions are the device geolocation settings a client should use.
type WatchOptions struct {
	EnableHighAccuracy bool  `json:"enableHighAccuracy"`
	TimeoutMs          int64 `json:"timeout"`
	MaximumAgeMs       int64 `json:"maximumAge"`
}

func NewWatchOptions(timeout, maximumAge time.Duration) WatchOptions {
	return WatchOptions{
		TimeoutMs:    timeout.Milliseconds(),
		MaximumAgeMs: maximumAge.Milliseconds(),
	}
}

const deviceBuffer = 16

// DeviceSource relays what a connected client reports from its own
// geolocation watch. If no fix arrives within timeout after Positions is
// called, a single domain.ErrPositionTimeout is emitted.
type DeviceSource struct {
	in      chan domain.PositionEvent
	timeout time.Duration
}

func NewDeviceSource(timeout time.Duration) *DeviceSource {
	return &DeviceSource{
		in:      make(chan domain.PositionEvent, deviceBuffer),
		timeout: timeout,
	}
}

// Report queues a sample. Samples are dropped when the consumer falls behind.
func (s *DeviceSource) Report(sample domain.LocationSample) {
	s.offer(domain.PositionEvent{Sample: sample})
}

// Fail queues a sensor error such as domain.ErrPermissionDenied.
func (s *DeviceSource) Fail(err error) {
	s.offer(domain.PositionEvent{Err: err})
}

func (s *DeviceSource) offer(ev domain.PositionEvent) {
	select {
	case s.in <- ev:
	default:
		logger.Debug("device source full, dropping position event")
	}
}

func (s *DeviceSource) Positions(ctx context.Context) <-chan domain.PositionEvent {
	out := make(chan domain.PositionEvent)

	go func() {
		defer close(out)

		var watchdog <-chan time.Time
		if s.timeout > 0 {
			timer := time.NewTimer(s.timeout)
			defer timer.Stop()
			watchdog = timer.C
		}

		for {
			var ev domain.PositionEvent
			select {
			case <-ctx.Done():
				return
			case <-watchdog:
				watchdog = nil
				ev = domain.PositionEvent{Err: domain.ErrPositionTimeout}
			case ev = <-s.in:
				if ev.Err == nil {
					watchdog = nil
				}
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
