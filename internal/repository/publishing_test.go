package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gdugdh24/geopresence/internal/domain"
	"github.com/gdugdh24/geopresence/internal/repository"
	"github.com/gdugdh24/geopresence/internal/repository/memory"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	events []domain.ChangeEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, event domain.ChangeEvent) error {
	p.events = append(p.events, event)
	return p.err
}

func TestWithChangePublisherAnnouncesWrites(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{}
	repo := repository.WithChangePublisher(memory.NewProfileRepository(nil), pub)

	id := uuid.New()
	now := time.Now()
	require.NoError(t, repo.Create(ctx, domain.NewDefaultProfile(domain.Identity{ID: id}, now)))
	require.NoError(t, repo.UpdateLocation(ctx, id, domain.Coordinates{Lat: -8.65, Lon: 115.21}, now))
	require.NoError(t, repo.UpdatePresence(ctx, id, true, now))

	assert.Equal(t, []domain.ChangeEvent{
		{Op: domain.ChangeInsert, ProfileID: id},
		{Op: domain.ChangeUpdate, ProfileID: id},
		{Op: domain.ChangeUpdate, ProfileID: id},
	}, pub.events)
}

func TestWithChangePublisherSkipsFailedWrites(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{}
	repo := repository.WithChangePublisher(memory.NewProfileRepository(nil), pub)

	err := repo.UpdatePresence(ctx, uuid.New(), true, time.Now())
	assert.ErrorIs(t, err, domain.ErrProfileNotFound)
	assert.Empty(t, pub.events)
}

func TestWithChangePublisherIgnoresPublishErrors(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{err: errors.New("broker down")}
	repo := repository.WithChangePublisher(memory.NewProfileRepository(nil), pub)

	id := uuid.New()
	require.NoError(t, repo.Create(ctx, domain.NewDefaultProfile(domain.Identity{ID: id}, time.Now())))
	assert.Len(t, pub.events, 1)
}
