package profile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gdugdh24/geopresence/internal/config"
	"github.com/gdugdh24/geopresence/internal/domain"
	"github.com/gdugdh24/geopresence/internal/repository"
	"github.com/gdugdh24/geopresence/pkg/logger"
	"github.com/gdugdh24/geopresence/pkg/retry"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// ensureTimeout bounds one shared provisioning run, which outlives the
// caller that started it.
const ensureTimeout = 30 * time.Second

// Result is the outcome of Ensure. A degraded result carries a default
// profile that was never written; Reason says why.
type Result struct {
	Profile  *domain.Profile `json:"profile"`
	Degraded bool            `json:"degraded"`
	Reason   string          `json:"reason,omitempty"`
}

type ProfileUseCase struct {
	profileRepo repository.ProfileRepository
	policy      retry.Policy
	now         func() time.Time
	inflight    singleflight.Group
}

func NewProfileUseCase(profileRepo repository.ProfileRepository, cfg config.ProfileConfig) *ProfileUseCase {
	return &ProfileUseCase{
		profileRepo: profileRepo,
		policy: retry.Policy{
			Attempts: cfg.Attempts,
			Delay:    cfg.RetryDelay,
		},
		now: time.Now,
	}
}

// Ensure makes sure exactly one profile row exists for identity and returns
// it marked online. Concurrent calls for one identity share a single
// provisioning run; racing processes are reconciled through the unique id.
// A caller that gives up only abandons its own wait. The only error is
// domain.ErrUnauthenticated. Every other failure ends in a degraded Result.
func (uc *ProfileUseCase) Ensure(ctx context.Context, identity domain.Identity) (Result, error) {
	if !identity.Valid() {
		return Result{}, domain.ErrUnauthenticated
	}

	ch := uc.inflight.DoChan(identity.ID.String(), func() (interface{}, error) {
		runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ensureTimeout)
		defer cancel()
		return uc.ensure(runCtx, identity), nil
	})

	select {
	case <-ctx.Done():
		logger.Warn("profile %s: caller gone before provisioning finished: %v", identity.ID, ctx.Err())
		return uc.degraded(identity, ctx.Err()), nil
	case r := <-ch:
		res := r.Val.(Result)
		profile := *res.Profile
		res.Profile = &profile
		return res, nil
	}
}

func (uc *ProfileUseCase) degraded(identity domain.Identity, err error) Result {
	return Result{
		Profile:  domain.NewDefaultProfile(identity, uc.now()),
		Degraded: true,
		Reason:   err.Error(),
	}
}

func (uc *ProfileUseCase) ensure(ctx context.Context, identity domain.Identity) Result {
	var profile *domain.Profile
	err := retry.Do(ctx, uc.policy, func(ctx context.Context, attempt int) error {
		p, err := uc.fetchOrCreate(ctx, identity)
		if err != nil {
			logger.Warn("ensure profile %s attempt %d: %v", identity.ID, attempt, err)
			return err
		}
		profile = p
		return nil
	})
	if err != nil {
		logger.Warn("profile %s degraded to defaults: %v", identity.ID, err)
		return uc.degraded(identity, err)
	}
	return Result{Profile: profile}
}

func (uc *ProfileUseCase) fetchOrCreate(ctx context.Context, identity domain.Identity) (*domain.Profile, error) {
	now := uc.now()

	existing, err := uc.profileRepo.GetByID(ctx, identity.ID)
	if err == nil {
		uc.markOnline(ctx, existing, now)
		return existing, nil
	}
	if !errors.Is(err, domain.ErrProfileNotFound) {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	profile := domain.NewDefaultProfile(identity, now)
	err = uc.profileRepo.Create(ctx, profile)
	if err == nil {
		logger.Info("created profile %s (%s)", profile.ID, profile.DisplayName)
		return profile, nil
	}
	if !errors.Is(err, domain.ErrProfileAlreadyExists) {
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}

	// Another process inserted first.
	existing, err = uc.profileRepo.GetByID(ctx, identity.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get profile after insert race: %w", err)
	}
	return existing, nil
}

func (uc *ProfileUseCase) markOnline(ctx context.Context, profile *domain.Profile, now time.Time) {
	if err := uc.profileRepo.UpdatePresence(ctx, profile.ID, true, now); err != nil {
		logger.Error("mark profile %s online: %v", profile.ID, err)
	} else {
		profile.LastOnlineAt = now
	}
	profile.IsOnline = true
}

// GetProfile returns the stored profile without side effects.
func (uc *ProfileUseCase) GetProfile(ctx context.Context, id uuid.UUID) (*domain.Profile, error) {
	return uc.profileRepo.GetByID(ctx, id)
}
