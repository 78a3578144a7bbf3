// Package memory keeps profiles in process memory. It backs STORAGE_TYPE=memory
// and the engine tests, and enforces the same unique id as the database.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/gdugdh24/geopresence/internal/domain"
	"github.com/gdugdh24/geopresence/internal/repository"
	"github.com/google/uuid"
)

type ProfileRepository struct {
	mu    sync.RWMutex
	rows  map[uuid.UUID]*domain.Profile
	order []uuid.UUID
	feed  *repository.Hub
}

// NewProfileRepository returns an empty store. Mutations are announced on
// feed when it is non-nil.
func NewProfileRepository(feed *repository.Hub) *ProfileRepository {
	return &ProfileRepository{
		rows: make(map[uuid.UUID]*domain.Profile),
		feed: feed,
	}
}

func (r *ProfileRepository) Create(_ context.Context, profile *domain.Profile) error {
	r.mu.Lock()
	if _, ok := r.rows[profile.ID]; ok {
		r.mu.Unlock()
		return domain.ErrProfileAlreadyExists
	}
	r.rows[profile.ID] = clone(profile)
	r.order = append(r.order, profile.ID)
	r.mu.Unlock()

	r.notify(domain.ChangeInsert, profile.ID)
	return nil
}

func (r *ProfileRepository) GetByID(_ context.Context, id uuid.UUID) (*domain.Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.rows[id]
	if !ok {
		return nil, domain.ErrProfileNotFound
	}
	return clone(p), nil
}

func (r *ProfileRepository) UpdateLocation(_ context.Context, id uuid.UUID, c domain.Coordinates, at time.Time) error {
	r.mu.Lock()
	p, ok := r.rows[id]
	if !ok {
		r.mu.Unlock()
		return domain.ErrProfileNotFound
	}
	p.SetPosition(c, at)
	p.LastOnlineAt = at
	r.mu.Unlock()

	r.notify(domain.ChangeUpdate, id)
	return nil
}

func (r *ProfileRepository) UpdatePresence(_ context.Context, id uuid.UUID, online bool, at time.Time) error {
	r.mu.Lock()
	p, ok := r.rows[id]
	if !ok {
		r.mu.Unlock()
		return domain.ErrProfileNotFound
	}
	p.IsOnline = online
	p.LastOnlineAt = at
	r.mu.Unlock()

	r.notify(domain.ChangeUpdate, id)
	return nil
}

// ListCandidates returns matching rows in insertion order, like an unordered
// table scan would.
func (r *ProfileRepository) ListCandidates(_ context.Context, q repository.CandidateQuery) ([]*domain.Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*domain.Profile
	for _, id := range r.order {
		if q.Limit > 0 && len(out) >= q.Limit {
			break
		}
		p := r.rows[id]
		if p.ID == q.ExcludeID || !p.IsOnline {
			continue
		}
		if p.Latitude == nil || p.Longitude == nil || p.LocationUpdatedAt == nil {
			continue
		}
		if p.LocationUpdatedAt.Before(q.UpdatedSince) {
			continue
		}
		out = append(out, clone(p))
	}
	return out, nil
}

// Count returns the number of stored rows.
func (r *ProfileRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rows)
}

func (r *ProfileRepository) notify(op domain.ChangeOp, id uuid.UUID) {
	if r.feed != nil {
		r.feed.Broadcast(domain.ChangeEvent{Op: op, ProfileID: id})
	}
}

func clone(p *domain.Profile) *domain.Profile {
	c := *p
	if p.Interests != nil {
		c.Interests = append([]string(nil), p.Interests...)
	}
	if p.Latitude != nil {
		v := *p.Latitude
		c.Latitude = &v
	}
	if p.Longitude != nil {
		v := *p.Longitude
		c.Longitude = &v
	}
	if p.LocationUpdatedAt != nil {
		v := *p.LocationUpdatedAt
		c.LocationUpdatedAt = &v
	}
	return &c
}
