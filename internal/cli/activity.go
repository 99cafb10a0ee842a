package cli

import (
	"github.com/spf13/cobra"

	"github.com/mathmaster/mathmaster-go/internal/model"
)

func newActivityCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "activity",
		Short: "Activity log commands",
	}

	cmd.AddCommand(newActivityListCmd())
	cmd.AddCommand(newActivityAddCmd())

	return cmd
}

func newActivityListCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show the most recent activity entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := requireSession(cmd.Context())
			if err != nil {
				return err
			}

			entries, err := client.GetUserActivities(cmd.Context(), session.Identity.ID, limit)
			if err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(entries)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum entries to show (0 uses the default)")

	return cmd
}

func newActivityAddCmd() *cobra.Command {
	var title, description, themeID, duration string
	var score int

	cmd := &cobra.Command{
		Use:   "add <type>",
		Short: "Record an activity (exercise, course, badge, diagnostic)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := requireSession(cmd.Context())
			if err != nil {
				return err
			}

			entry := model.ActivityEntry{
				UserID:      session.Identity.ID,
				Type:        model.ActivityType(args[0]),
				Title:       title,
				Description: description,
				ThemeID:     themeID,
				Duration:    duration,
			}
			if cmd.Flags().Changed("score") {
				entry.Score = &score
			}

			if err := client.AddActivity(cmd.Context(), &entry); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print([]model.ActivityEntry{entry})
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Title (defaults to the type's label)")
	cmd.Flags().StringVar(&description, "description", "", "Description")
	cmd.Flags().StringVar(&themeID, "theme", "", "Related theme id")
	cmd.Flags().StringVar(&duration, "duration", "", "Duration label (e.g. 10 min)")
	cmd.Flags().IntVar(&score, "score", 0, "Score in percent")

	return cmd
}
