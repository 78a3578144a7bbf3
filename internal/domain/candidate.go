package domain

import (
	"time"

	"github.com/google/uuid"
)

// CandidateUser is another user's public projection plus the distance from
// the viewer. Views are always replaced as a whole set.
type CandidateUser struct {
	ID                uuid.UUID `json:"id"`
	DisplayName       string    `json:"username"`
	Gender            Gender    `json:"gender"`
	AvatarRef         *string   `json:"-"`
	AvatarURL         string    `json:"avatar_url"`
	Latitude          float64   `json:"latitude"`
	Longitude         float64   `json:"longitude"`
	IsOnline          bool      `json:"is_online"`
	LastOnlineAt      time.Time `json:"last_online"`
	LocationUpdatedAt time.Time `json:"location_updated_at"`
	Age               *int      `json:"age"`
	Bio               *string   `json:"bio"`
	Interests         []string  `json:"interests"`
	FreeTextLocation  *string   `json:"location"`
	DistanceKm        float64   `json:"distance_km"`
}

// NewCandidate projects a profile row with a known position.
func NewCandidate(p *Profile, distanceKm float64) CandidateUser {
	c := CandidateUser{
		ID:               p.ID,
		DisplayName:      p.DisplayName,
		Gender:           p.Gender,
		AvatarRef:        p.AvatarRef,
		IsOnline:         p.IsOnline,
		LastOnlineAt:     p.LastOnlineAt,
		Age:              p.Age,
		Bio:              p.Bio,
		Interests:        p.Interests,
		FreeTextLocation: p.FreeTextLocation,
		DistanceKm:       distanceKm,
	}
	if p.Latitude != nil && p.Longitude != nil {
		c.Latitude, c.Longitude = *p.Latitude, *p.Longitude
	}
	if p.LocationUpdatedAt != nil {
		c.LocationUpdatedAt = *p.LocationUpdatedAt
	}
	return c
}

type ChangeOp string

const (
	ChangeInsert ChangeOp = "INSERT"
	ChangeUpdate ChangeOp = "UPDATE"
	ChangeDelete ChangeOp = "DELETE"
)

// ChangeEvent signals that the profiles table changed. Consumers treat it as
// an invalidation only.
type ChangeEvent struct {
	Op        ChangeOp  `json:"op"`
	ProfileID uuid.UUID `json:"id"`
}
