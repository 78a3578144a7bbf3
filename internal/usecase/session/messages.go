package session

import (
	"strings"

	"github.com/gdugdh24/geopresence/internal/domain"
	"github.com/gdugdh24/geopresence/internal/usecase/locationsync"
)

// Client message types.
const (
	TypePosition      = "position"
	TypePositionError = "position_error"
)

// Server message types.
const (
	TypeHello    = "hello"
	TypeNearby   = "nearby"
	TypeError    = "error"
	TypeLocation = "position"
)

// ClientMessage is what a connected client sends: a device fix, or the
// error its geolocation watch reported.
type ClientMessage struct {
	Type      string   `json:"type"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	Code      string   `json:"code,omitempty"`
}

type ServerMessage struct {
	Type     string                     `json:"type"`
	Profile  *domain.Profile            `json:"profile,omitempty"`
	Degraded bool                       `json:"degraded,omitempty"`
	Reason   string                     `json:"reason,omitempty"`
	Watch    *locationsync.WatchOptions `json:"watch,omitempty"`
	Position *domain.LocationSample     `json:"position,omitempty"`
	Pushed   bool                       `json:"pushed,omitempty"`
	Users    []domain.CandidateUser     `json:"users,omitempty"`
	Error    string                     `json:"error,omitempty"`
}

// sensorError maps a geolocation error code, by name or by the numeric
// PositionError code, to a domain error.
func sensorError(code string) error {
	switch strings.ToLower(strings.TrimSpace(code)) {
	case "1", "permission_denied":
		return domain.ErrPermissionDenied
	case "3", "timeout":
		return domain.ErrPositionTimeout
	default:
		return domain.ErrPositionUnavailable
	}
}
