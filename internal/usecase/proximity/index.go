package proximity

import (
	"context"
	"sync"
	"time"

	"github.com/gdugdh24/geopresence/internal/domain"
	"github.com/gdugdh24/geopresence/internal/repository"
	"github.com/gdugdh24/geopresence/pkg/logger"
	"github.com/google/uuid"
)

// Index keeps one viewer's nearby view current. Refreshes run on the Run
// goroutine only, so views are published in order.
type Index struct {
	uc       *ProximityUseCase
	selfID   uuid.UUID
	debounce time.Duration
	interval time.Duration

	mu       sync.Mutex
	origin   *domain.Coordinates
	view     []domain.CandidateUser
	onUpdate func([]domain.CandidateUser)

	originSet chan struct{}
}

func (uc *ProximityUseCase) NewIndex(selfID uuid.UUID) *Index {
	return &Index{
		uc:        uc,
		selfID:    selfID,
		debounce:  uc.cfg.Debounce,
		interval:  uc.cfg.RefreshInterval,
		originSet: make(chan struct{}, 1),
	}
}

// OnUpdate registers fn to receive every published view. Set it before Run.
func (ix *Index) OnUpdate(fn func([]domain.CandidateUser)) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.onUpdate = fn
}

// SetOrigin records the viewer's current position. The first origin
// triggers a refresh.
func (ix *Index) SetOrigin(c domain.Coordinates) {
	ix.mu.Lock()
	first := ix.origin == nil
	ix.origin = &c
	ix.mu.Unlock()

	if first {
		select {
		case ix.originSet <- struct{}{}:
		default:
		}
	}
}

func (ix *Index) Origin() (domain.Coordinates, bool) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.origin == nil {
		return domain.Coordinates{}, false
	}
	return *ix.origin, true
}

// View returns the last published view.
func (ix *Index) View() []domain.CandidateUser {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return append([]domain.CandidateUser(nil), ix.view...)
}

// Refresh recomputes the view around the last known origin. Without an
// origin it does nothing.
func (ix *Index) Refresh(ctx context.Context) error {
	origin, ok := ix.Origin()
	if !ok {
		logger.Debug("proximity %s: no origin yet, refresh skipped", ix.selfID)
		return nil
	}

	view, err := ix.uc.Refresh(ctx, ix.selfID, origin)
	if err != nil {
		return err
	}

	ix.mu.Lock()
	ix.view = view
	onUpdate := ix.onUpdate
	ix.mu.Unlock()

	logger.Debug("proximity %s: %d nearby", ix.selfID, len(view))
	if onUpdate != nil {
		onUpdate(append([]domain.CandidateUser(nil), view...))
	}
	return nil
}

// Run refreshes when the origin first becomes known, after every burst of
// change events once the feed has been quiet for the debounce delay, and on
// the periodic interval. It returns when ctx is done. Without a working
// feed only the origin and periodic refreshes happen.
func (ix *Index) Run(ctx context.Context, feed repository.ChangeFeed) {
	var events <-chan domain.ChangeEvent
	if feed != nil {
		var err error
		if events, err = feed.Subscribe(ctx); err != nil {
			logger.Warn("proximity %s: subscribe to changes: %v", ix.selfID, err)
			events = nil
		}
	}

	var tick <-chan time.Time
	if ix.interval > 0 {
		ticker := time.NewTicker(ix.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	var debounce *time.Timer
	var settled <-chan time.Time
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	refresh := func() {
		if err := ix.Refresh(ctx); err != nil && ctx.Err() == nil {
			logger.Error("proximity %s: refresh: %v", ix.selfID, err)
		}
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ix.originSet:
			refresh()
		case _, ok := <-events:
			if !ok {
				if ctx.Err() != nil {
					return
				}
				logger.Warn("proximity %s: change feed closed, periodic refresh only", ix.selfID)
				events = nil
				continue
			}
			if ix.debounce <= 0 {
				refresh()
				continue
			}
			if debounce == nil {
				debounce = time.NewTimer(ix.debounce)
			} else {
				debounce.Reset(ix.debounce)
			}
			settled = debounce.C
		case <-settled:
			settled = nil
			refresh()
		case <-tick:
			refresh()
		}
	}
}
