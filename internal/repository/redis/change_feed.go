package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gdugdh24/geopresence/internal/domain"
	"github.com/gdugdh24/geopresence/pkg/logger"
	"github.com/redis/go-redis/v9"
)

// ChangeFeed carries profile change events over a Redis pub/sub channel so
// that every server instance sees writes made by the others.
type ChangeFeed struct {
	client  *redis.Client
	channel string
}

func NewChangeFeed(client *redis.Client, channel string) *ChangeFeed {
	return &ChangeFeed{client: client, channel: channel}
}

func (f *ChangeFeed) Publish(ctx context.Context, event domain.ChangeEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode change event: %w", err)
	}
	return f.client.Publish(ctx, f.channel, data).Err()
}

func (f *ChangeFeed) Subscribe(ctx context.Context) (<-chan domain.ChangeEvent, error) {
	sub := f.client.Subscribe(ctx, f.channel)
	// Wait for the subscription confirmation so no event published after
	// Subscribe returns is missed.
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", f.channel, err)
	}

	out := make(chan domain.ChangeEvent, 64)
	go func() {
		defer close(out)
		defer sub.Close()

		messages := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				var event domain.ChangeEvent
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					logger.Warn("redis change feed: malformed payload %q: %v", msg.Payload, err)
					continue
				}
				select {
				case out <- event:
				default:
				}
			}
		}
	}()
	return out, nil
}
