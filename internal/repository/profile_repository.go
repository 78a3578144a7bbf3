package repository

import (
	"context"
	"time"

	"github.com/gdugdh24/geopresence/internal/domain"
	"github.com/google/uuid"
)

// CandidateQuery selects rows for one proximity refresh.
type CandidateQuery struct {
	ExcludeID    uuid.UUID
	UpdatedSince time.Time
	Limit        int
}

// CandidateReader pulls the bounded candidate set: online rows other than
// ExcludeID, with both coordinates set and location_updated_at >= UpdatedSince.
type CandidateReader interface {
	ListCandidates(ctx context.Context, q CandidateQuery) ([]*domain.Profile, error)
}

// LocationWriter persists a pushed position together with location_updated_at
// and last_online.
type LocationWriter interface {
	UpdateLocation(ctx context.Context, id uuid.UUID, c domain.Coordinates, at time.Time) error
}

type PresenceWriter interface {
	UpdatePresence(ctx context.Context, id uuid.UUID, online bool, at time.Time) error
}

type ProfileRepository interface {
	CandidateReader
	LocationWriter
	PresenceWriter

	// Create inserts a new row and returns domain.ErrProfileAlreadyExists when
	// the id is taken.
	Create(ctx context.Context, profile *domain.Profile) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Profile, error)
}

// ChangeFeed delivers table change notifications until ctx is done, after
// which the returned channel is closed.
type ChangeFeed interface {
	Subscribe(ctx context.Context) (<-chan domain.ChangeEvent, error)
}

type ChangePublisher interface {
	Publish(ctx context.Context, event domain.ChangeEvent) error
}

// CachedLocation is the last position observed for an identity.
type CachedLocation struct {
	Coordinates domain.Coordinates `json:"coordinates"`
	CapturedAt  time.Time          `json:"captured_at"`
}

// LocationCache keeps the last observed position per identity for fast reuse
// after a reconnect. Get returns (nil, nil) for a missing or stale entry.
// Delete of a missing entry is not an error.
type LocationCache interface {
	Put(ctx context.Context, id uuid.UUID, loc CachedLocation) error
	Get(ctx context.Context, id uuid.UUID) (*CachedLocation, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
