// Package locationsync decides which position samples reach the profile row
// and produces those samples from the device stream or its fallbacks.
package locationsync

import (
	"time"

	"github.com/gdugdh24/geopresence/internal/config"
	"github.com/gdugdh24/geopresence/internal/domain"
	"github.com/gdugdh24/geopresence/internal/geo"
)

// Policy is the write-coalescing rule for position pushes.
type Policy struct {
	MoveThresholdKm float64
	MaxInterval     time.Duration
}

func NewPolicy(cfg config.SyncConfig) Policy {
	return Policy{MoveThresholdKm: cfg.MoveThresholdKm, MaxInterval: cfg.MaxInterval}
}

// Decide reports whether sample should be written given what was last
// persisted. The first sample is always written; later ones only when they
// moved more than MoveThresholdKm or the last write is older than MaxInterval.
func (p Policy) Decide(state domain.SyncState, sample domain.LocationSample, now time.Time) bool {
	if state.Empty() {
		return true
	}
	if geo.Distance(*state.LastPersisted, sample.Coordinates) > p.MoveThresholdKm {
		return true
	}
	return now.Sub(state.LastPersistedAt) > p.MaxInterval
}
