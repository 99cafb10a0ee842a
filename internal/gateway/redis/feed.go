package redis

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/mathmaster/mathmaster-go/internal/gateway"
)

// subscription is one open change-feed channel, backed by a Redis pub/sub
// subscription and a reader goroutine.
type subscription struct {
	pubsub *redis.PubSub
	done   chan struct{}
	once   sync.Once
}

// Unsubscribe closes the pub/sub channel and waits for the reader goroutine
// to drain. Safe to call more than once.
func (s *subscription) Unsubscribe() {
	s.once.Do(func() {
		_ = s.pubsub.Close()
		<-s.done
	})
}

// publish sends one change event to the feed channel for a table and user.
func (g *Gateway) publish(ctx context.Context, table, userID string, changeType gateway.ChangeType, row []byte) error {
	event := gateway.ChangeEvent{Table: table, Type: changeType, Row: row}
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return g.client.Publish(ctx, feedChannel(table, userID), data).Err()
}

// Subscribe opens a change feed for one table and user over Redis pub/sub.
// Delivery is asynchronous from a reader goroutine.
func (g *Gateway) Subscribe(ctx context.Context, table, userID string, types []gateway.ChangeType, fn gateway.ChangeCallback) (gateway.Subscription, error) {
	typeSet := make(map[gateway.ChangeType]struct{}, len(types))
	for _, t := range types {
		typeSet[t] = struct{}{}
	}

	pubsub := g.client.Subscribe(ctx, feedChannel(table, userID))
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, err
	}

	sub := &subscription{
		pubsub: pubsub,
		done:   make(chan struct{}),
	}

	go func() {
		defer close(sub.done)
		for msg := range pubsub.Channel() {
			var event gateway.ChangeEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				g.logger.Warn("dropping undecodable feed message",
					slog.String("channel", msg.Channel),
					slog.String("error", err.Error()))
				continue
			}
			if _, ok := typeSet[event.Type]; !ok {
				continue
			}
			fn(event)
		}
	}()

	return sub, nil
}
