package domain

import "time"

type Coordinates struct {
	Lat float64 `json:"latitude"`
	Lon float64 `json:"longitude"`
}

type LocationSource string

const (
	SourceGPS            LocationSource = "gps"
	SourceIPFallback     LocationSource = "ip-fallback"
	SourceStaticFallback LocationSource = "static-fallback"
	SourceCache          LocationSource = "cache"
)

// LocationSample is a single position observation. It is never stored as-is;
// only its coordinates and a derived timestamp reach the Profile row.
type LocationSample struct {
	Coordinates
	CapturedAt time.Time      `json:"captured_at"`
	Source     LocationSource `json:"source"`
}

// PositionEvent is one item of a GeoSource stream: either a sample or a sensor error.
type PositionEvent struct {
	Sample LocationSample
	Err    error
}

// SyncState is what the tracker last persisted. A zero value means nothing
// has been pushed since tracking started.
type SyncState struct {
	LastPersisted   *Coordinates
	LastPersistedAt time.Time
}

func (s SyncState) Empty() bool {
	return s.LastPersisted == nil
}
