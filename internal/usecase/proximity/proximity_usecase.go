package proximity

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/gdugdh24/geopresence/internal/config"
	"github.com/gdugdh24/geopresence/internal/domain"
	"github.com/gdugdh24/geopresence/internal/geo"
	"github.com/gdugdh24/geopresence/internal/repository"
	"github.com/google/uuid"
)

// AvatarResolver turns a stored avatar reference into a displayable URL.
type AvatarResolver interface {
	Resolve(ctx context.Context, ref *string) string
}

type ProximityUseCase struct {
	candidates repository.CandidateReader
	avatars    AvatarResolver
	cfg        config.ProximityConfig
	now        func() time.Time
}

func NewProximityUseCase(
	candidates repository.CandidateReader,
	avatars AvatarResolver,
	cfg config.ProximityConfig,
) *ProximityUseCase {
	return &ProximityUseCase{
		candidates: candidates,
		avatars:    avatars,
		cfg:        cfg,
		now:        time.Now,
	}
}

// Refresh pulls the bounded candidate set for selfID and ranks it around
// origin.
func (uc *ProximityUseCase) Refresh(ctx context.Context, selfID uuid.UUID, origin domain.Coordinates) ([]domain.CandidateUser, error) {
	since := uc.now().Add(-uc.cfg.StalenessWindow)

	rows, err := uc.candidates.ListCandidates(ctx, repository.CandidateQuery{
		ExcludeID:    selfID,
		UpdatedSince: since,
		Limit:        uc.cfg.CandidateLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load candidates: %w", err)
	}

	view := Rank(rows, origin, since, uc.cfg.RadiusKm, uc.cfg.ViewLimit)
	if uc.avatars != nil {
		for i := range view {
			view[i].AvatarURL = uc.avatars.Resolve(ctx, view[i].AvatarRef)
		}
	}
	return view, nil
}

// Rank measures every row from origin, keeps online rows updated since
// `since` within radiusKm, and returns at most limit of them nearest first.
// Rows at equal distance keep their input order.
func Rank(rows []*domain.Profile, origin domain.Coordinates, since time.Time, radiusKm float64, limit int) []domain.CandidateUser {
	view := make([]domain.CandidateUser, 0, len(rows))
	for _, row := range rows {
		pos, ok := row.Position()
		if !ok || !row.IsOnline {
			continue
		}
		if row.LocationUpdatedAt == nil || row.LocationUpdatedAt.Before(since) {
			continue
		}
		d := geo.Distance(origin, pos)
		if !(d <= radiusKm) {
			continue
		}
		view = append(view, domain.NewCandidate(row, d))
	}

	sort.SliceStable(view, func(i, j int) bool {
		return view[i].DistanceKm < view[j].DistanceKm
	})

	if len(view) > limit {
		view = view[:limit]
	}
	return view
}
