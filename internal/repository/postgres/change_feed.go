package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gdugdh24/geopresence/internal/domain"
	"github.com/gdugdh24/geopresence/internal/repository"
	"github.com/gdugdh24/geopresence/pkg/logger"
	"github.com/lib/pq"
)

const (
	minReconnectInterval = 10 * time.Second
	maxReconnectInterval = time.Minute
	pingInterval         = 90 * time.Second
)

// ChangeFeed relays NOTIFY payloads from the profiles trigger to in-process
// subscribers.
type ChangeFeed struct {
	listener *pq.Listener
	hub      *repository.Hub
}

func NewChangeFeed(dsn, channel string) (*ChangeFeed, error) {
	listener := pq.NewListener(dsn, minReconnectInterval, maxReconnectInterval, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			logger.Warn("change feed listener event %d: %v", ev, err)
		}
	})
	if err := listener.Listen(channel); err != nil {
		listener.Close()
		return nil, fmt.Errorf("failed to listen on %s: %w", channel, err)
	}
	return &ChangeFeed{listener: listener, hub: repository.NewHub()}, nil
}

func (f *ChangeFeed) Subscribe(ctx context.Context) (<-chan domain.ChangeEvent, error) {
	return f.hub.Subscribe(ctx)
}

// Run pumps notifications until ctx is done.
func (f *ChangeFeed) Run(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case n := <-f.listener.Notify:
			if n == nil {
				// Reconnected; anything sent meanwhile was lost.
				f.hub.Broadcast(domain.ChangeEvent{Op: domain.ChangeUpdate})
				continue
			}
			event, err := parseNotification(n.Extra)
			if err != nil {
				logger.Warn("change feed: %v", err)
				continue
			}
			f.hub.Broadcast(event)
		case <-ticker.C:
			go func() {
				if err := f.listener.Ping(); err != nil {
					logger.Warn("change feed ping: %v", err)
				}
			}()
		}
	}
}

func (f *ChangeFeed) Close() error {
	return f.listener.Close()
}

func parseNotification(payload string) (domain.ChangeEvent, error) {
	var event domain.ChangeEvent
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		return domain.ChangeEvent{}, fmt.Errorf("malformed notification %q: %w", payload, err)
	}
	switch event.Op {
	case domain.ChangeInsert, domain.ChangeUpdate, domain.ChangeDelete:
		return event, nil
	default:
		return domain.ChangeEvent{}, fmt.Errorf("unknown change op %q", event.Op)
	}
}
