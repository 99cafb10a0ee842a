package cli

import (
	"errors"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/mathmaster/mathmaster-go/internal/model"
	"github.com/mathmaster/mathmaster-go/internal/state"
)

func newDashboardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Show the signed-in user's dashboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			session, err := requireSession(ctx)
			if err != nil {
				return err
			}
			userID := session.Identity.ID

			profile, err := client.GetProfile(ctx, userID)
			if err != nil && !errors.Is(err, model.ErrProfileNotFound) {
				return err
			}
			themes, err := client.GetThemes(ctx)
			if err != nil {
				return err
			}
			progress, err := client.GetUserProgress(ctx, userID)
			if err != nil {
				return err
			}
			activities, err := client.GetUserActivities(ctx, userID, 0)
			if err != nil {
				return err
			}
			badges, err := client.GetUserBadges(ctx, userID)
			if err != nil {
				return err
			}

			store := state.New(slog.New(slog.NewTextHandler(io.Discard, nil)))
			store.ReplaceAll(profile, themes, progress, activities, badges)

			out := NewOutput(cfg.Output)
			out.Print(Dashboard{
				Profile:    profile,
				Summary:    store.Summarize(),
				Progress:   progress,
				Activities: activities,
				Badges:     badges,
			})
			return nil
		},
	}
}
