package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mathmaster/mathmaster-go/internal/gateway"
	"github.com/mathmaster/mathmaster-go/internal/model"
)

func newWatchCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream change-feed events for the signed-in user",
		Long: `Subscribe to the user's progress, activity, and badge change feeds
and print events as they arrive.

Press Ctrl+C to disconnect.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return watchFeeds(cmd.Context(), jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output events as JSON lines")

	return cmd
}

// feedEvent is one printed change-feed event
type feedEvent struct {
	Time  time.Time `json:"time"`
	Table string    `json:"table"`
	Data  any       `json:"data"`
}

func watchFeeds(parent context.Context, jsonOutput bool) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	session, err := requireSession(ctx)
	if err != nil {
		return err
	}
	userID := session.Identity.ID

	// Handle interrupt
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		cancel()
	}()

	var subs []gateway.Subscription
	defer func() {
		for _, sub := range subs {
			sub.Unsubscribe()
		}
	}()

	sub, err := client.SubscribeProgress(ctx, userID, func(record model.ProgressRecord) {
		printFeedEvent("user_progress", record, jsonOutput)
	})
	if err != nil {
		return err
	}
	subs = append(subs, sub)

	sub, err = client.SubscribeActivities(ctx, userID, func(entry model.ActivityEntry) {
		printFeedEvent("activities", entry, jsonOutput)
	})
	if err != nil {
		return err
	}
	subs = append(subs, sub)

	sub, err = client.SubscribeBadges(ctx, userID, func(award model.BadgeAward) {
		printFeedEvent("user_badges", award, jsonOutput)
	})
	if err != nil {
		return err
	}
	subs = append(subs, sub)

	if !jsonOutput {
		fmt.Printf("Watching feeds for %s\n", session.Identity.Email)
	}

	<-ctx.Done()

	if !jsonOutput {
		fmt.Println("\nDisconnected")
	}
	return nil
}

func printFeedEvent(table string, data any, jsonOutput bool) {
	now := time.Now()

	if jsonOutput {
		jsonData, _ := json.Marshal(feedEvent{Time: now, Table: table, Data: data})
		fmt.Println(string(jsonData))
		return
	}

	timestamp := now.Format("2006-01-02 15:04:05")
	switch v := data.(type) {
	case model.ProgressRecord:
		fmt.Printf("[%s] %s: %s -> %d%%\n", timestamp, table, v.ThemeID, v.ProgressPercentage)
	case model.ActivityEntry:
		fmt.Printf("[%s] %s: %s\n", timestamp, table, v.Title)
	case model.BadgeAward:
		fmt.Printf("[%s] %s: %s\n", timestamp, table, v.BadgeID)
	default:
		raw, _ := json.Marshal(v)
		fmt.Printf("[%s] %s: %s\n", timestamp, table, raw)
	}
}
