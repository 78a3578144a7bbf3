package repository

import (
	"context"
	"time"

	"github.com/gdugdh24/geopresence/internal/domain"
	"github.com/gdugdh24/geopresence/pkg/logger"
	"github.com/google/uuid"
)

type publishingRepository struct {
	ProfileRepository
	publisher ChangePublisher
}

// WithChangePublisher announces every successful mutation on publisher. It is
// used when the change feed is not produced by the database itself.
func WithChangePublisher(repo ProfileRepository, publisher ChangePublisher) ProfileRepository {
	return &publishingRepository{ProfileRepository: repo, publisher: publisher}
}

func (r *publishingRepository) Create(ctx context.Context, profile *domain.Profile) error {
	if err := r.ProfileRepository.Create(ctx, profile); err != nil {
		return err
	}
	r.publish(ctx, domain.ChangeEvent{Op: domain.ChangeInsert, ProfileID: profile.ID})
	return nil
}

func (r *publishingRepository) UpdateLocation(ctx context.Context, id uuid.UUID, c domain.Coordinates, at time.Time) error {
	if err := r.ProfileRepository.UpdateLocation(ctx, id, c, at); err != nil {
		return err
	}
	r.publish(ctx, domain.ChangeEvent{Op: domain.ChangeUpdate, ProfileID: id})
	return nil
}

func (r *publishingRepository) UpdatePresence(ctx context.Context, id uuid.UUID, online bool, at time.Time) error {
	if err := r.ProfileRepository.UpdatePresence(ctx, id, online, at); err != nil {
		return err
	}
	r.publish(ctx, domain.ChangeEvent{Op: domain.ChangeUpdate, ProfileID: id})
	return nil
}

// The write already succeeded; a lost notification only delays other views.
func (r *publishingRepository) publish(ctx context.Context, event domain.ChangeEvent) {
	if err := r.publisher.Publish(ctx, event); err != nil {
		logger.Error("publish %s change for %s: %v", event.Op, event.ProfileID, err)
	}
}
