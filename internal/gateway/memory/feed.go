package memory

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/mathmaster/mathmaster-go/internal/gateway"
)

// subscription is one open change-feed channel on an in-memory gateway.
type subscription struct {
	id     int
	g      *Gateway
	table  string
	userID string
	types  map[gateway.ChangeType]struct{}
	fn     gateway.ChangeCallback
	once   sync.Once
}

// Unsubscribe stops delivery. Safe to call more than once.
func (s *subscription) Unsubscribe() {
	s.once.Do(func() {
		s.g.mu.Lock()
		delete(s.g.subs, s.id)
		s.g.mu.Unlock()
	})
}

// Subscribe opens a change feed for one table and user. Events are delivered
// synchronously in commit order from the mutating call.
func (g *Gateway) Subscribe(ctx context.Context, table, userID string, types []gateway.ChangeType, fn gateway.ChangeCallback) (gateway.Subscription, error) {
	typeSet := make(map[gateway.ChangeType]struct{}, len(types))
	for _, t := range types {
		typeSet[t] = struct{}{}
	}

	g.mu.Lock()
	sub := &subscription{
		id:     g.nextSubID,
		g:      g,
		table:  table,
		userID: userID,
		types:  typeSet,
		fn:     fn,
	}
	g.nextSubID++
	g.subs[sub.id] = sub
	g.mu.Unlock()

	return sub, nil
}

// SubscriptionCount returns the number of open subscriptions. Used by tests
// to verify handles are released.
func (g *Gateway) SubscriptionCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.subs)
}

// matchSubsLocked collects the callbacks of subscriptions matching a change.
// Callers deliver after releasing the lock.
func (g *Gateway) matchSubsLocked(table, userID string, changeType gateway.ChangeType) []gateway.ChangeCallback {
	var callbacks []gateway.ChangeCallback
	for _, sub := range g.subs {
		if sub.table != table || sub.userID != userID {
			continue
		}
		if _, ok := sub.types[changeType]; !ok {
			continue
		}
		callbacks = append(callbacks, sub.fn)
	}
	return callbacks
}

// deliver marshals the row and invokes each callback with the change event.
func deliver(callbacks []gateway.ChangeCallback, table string, changeType gateway.ChangeType, row any, logger *slog.Logger) {
	if len(callbacks) == 0 {
		return
	}
	data, err := json.Marshal(row)
	if err != nil {
		logger.Error("feed row marshal failed",
			slog.String("table", table),
			slog.Any("error", err))
		return
	}
	event := gateway.ChangeEvent{Table: table, Type: changeType, Row: data}
	for _, fn := range callbacks {
		fn(event)
	}
}
