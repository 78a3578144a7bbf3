package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

// DefaultGender is the placeholder written for freshly provisioned profiles.
const DefaultGender = GenderMale

func (g Gender) Valid() bool {
	return g == GenderMale || g == GenderFemale
}

// Profile is one row of the profiles table. Latitude and Longitude are either
// both set or both nil, and LocationUpdatedAt moves together with them.
type Profile struct {
	ID                uuid.UUID  `json:"id" db:"id"`
	DisplayName       string     `json:"username" db:"username"`
	Gender            Gender     `json:"gender" db:"gender"`
	AvatarRef         *string    `json:"avatar_url" db:"avatar_url"`
	Latitude          *float64   `json:"latitude" db:"latitude"`
	Longitude         *float64   `json:"longitude" db:"longitude"`
	IsOnline          bool       `json:"is_online" db:"is_online"`
	LastOnlineAt      time.Time  `json:"last_online" db:"last_online"`
	LocationUpdatedAt *time.Time `json:"location_updated_at" db:"location_updated_at"`
	Age               *int       `json:"age" db:"age"`
	Bio               *string    `json:"bio" db:"bio"`
	Interests         []string   `json:"interests" db:"interests"`
	FreeTextLocation  *string    `json:"location" db:"location"`
	CreatedAt         time.Time  `json:"created_at" db:"created_at"`
}

// Identity is the authenticated caller as issued by the auth subsystem.
type Identity struct {
	ID    uuid.UUID
	Email string
}

func (i Identity) Valid() bool {
	return i.ID != uuid.Nil
}

// Position returns the persisted coordinates, if any.
func (p *Profile) Position() (Coordinates, bool) {
	if p.Latitude == nil || p.Longitude == nil {
		return Coordinates{}, false
	}
	return Coordinates{Lat: *p.Latitude, Lon: *p.Longitude}, true
}

// SetPosition writes both coordinates and their timestamp in one step.
func (p *Profile) SetPosition(c Coordinates, at time.Time) {
	lat, lon := c.Lat, c.Lon
	p.Latitude = &lat
	p.Longitude = &lon
	p.LocationUpdatedAt = &at
}

// DisplayNameFromEmail derives the initial username from the email local-part.
func DisplayNameFromEmail(id uuid.UUID, email string) string {
	local, _, _ := strings.Cut(email, "@")
	local = strings.TrimSpace(local)
	if local != "" {
		return local
	}
	return fmt.Sprintf("user_%s", id.String()[:8])
}

// NewDefaultProfile builds the deterministic row inserted on first login.
// Location fields stay nil until the tracker pushes a position.
func NewDefaultProfile(identity Identity, now time.Time) *Profile {
	return &Profile{
		ID:           identity.ID,
		DisplayName:  DisplayNameFromEmail(identity.ID, identity.Email),
		Gender:       DefaultGender,
		IsOnline:     true,
		LastOnlineAt: now,
		Interests:    []string{},
		CreatedAt:    now,
	}
}
