package repository

import (
	"context"
	"sync"

	"github.com/gdugdh24/geopresence/internal/domain"
)

const subscriberBuffer = 64

// Hub fans change events out to every live subscriber. Slow subscribers drop
// events rather than block writers; an invalidation signal loses nothing by
// being coalesced.
type Hub struct {
	mu   sync.Mutex
	subs map[chan domain.ChangeEvent]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[chan domain.ChangeEvent]struct{})}
}

func (h *Hub) Subscribe(ctx context.Context) (<-chan domain.ChangeEvent, error) {
	ch := make(chan domain.ChangeEvent, subscriberBuffer)

	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.mu.Lock()
		delete(h.subs, ch)
		close(ch)
		h.mu.Unlock()
	}()
	return ch, nil
}

// Publish satisfies ChangePublisher.
func (h *Hub) Publish(_ context.Context, event domain.ChangeEvent) error {
	h.Broadcast(event)
	return nil
}

func (h *Hub) Broadcast(event domain.ChangeEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- event:
		default:
		}
	}
}

// Subscribers returns the number of live subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
