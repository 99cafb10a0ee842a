package sync

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/mathmaster/mathmaster-go/internal/gateway"
	"github.com/mathmaster/mathmaster-go/internal/model"
)

// SubscribeProgress opens a change channel for the user's progress records,
// delivering inserts and updates. Rows that fail to decode are logged and
// skipped; the channel stays open.
func (c *Client) SubscribeProgress(ctx context.Context, userID string, fn func(model.ProgressRecord)) (gateway.Subscription, error) {
	types := []gateway.ChangeType{gateway.ChangeInsert, gateway.ChangeUpdate}
	return c.gw.Subscribe(ctx, gateway.TableProgress, userID, types, func(event gateway.ChangeEvent) {
		var record model.ProgressRecord
		if err := json.Unmarshal(event.Row, &record); err != nil {
			c.logDecodeError(event, err)
			return
		}
		fn(record)
	})
}

// SubscribeActivities opens a change channel for the user's activity log.
// The log is append-only, so only inserts are requested.
func (c *Client) SubscribeActivities(ctx context.Context, userID string, fn func(model.ActivityEntry)) (gateway.Subscription, error) {
	types := []gateway.ChangeType{gateway.ChangeInsert}
	return c.gw.Subscribe(ctx, gateway.TableActivities, userID, types, func(event gateway.ChangeEvent) {
		var entry model.ActivityEntry
		if err := json.Unmarshal(event.Row, &entry); err != nil {
			c.logDecodeError(event, err)
			return
		}
		fn(entry)
	})
}

// SubscribeBadges opens a change channel for the user's badge awards,
// insert-only. Awards arrive without the joined badge row.
func (c *Client) SubscribeBadges(ctx context.Context, userID string, fn func(model.BadgeAward)) (gateway.Subscription, error) {
	types := []gateway.ChangeType{gateway.ChangeInsert}
	return c.gw.Subscribe(ctx, gateway.TableUserBadges, userID, types, func(event gateway.ChangeEvent) {
		var award model.BadgeAward
		if err := json.Unmarshal(event.Row, &award); err != nil {
			c.logDecodeError(event, err)
			return
		}
		fn(award)
	})
}

func (c *Client) logDecodeError(event gateway.ChangeEvent, err error) {
	c.logger.Warn("dropping undecodable change event",
		slog.String("table", event.Table),
		slog.String("type", string(event.Type)),
		slog.String("error", err.Error()))
}
