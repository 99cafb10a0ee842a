package cli

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mathmaster/mathmaster-go/internal/model"
)

func newProgressCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "progress",
		Short: "Per-theme progress commands",
	}

	cmd.AddCommand(newProgressListCmd())
	cmd.AddCommand(newProgressSetCmd())

	return cmd
}

func newProgressListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show progress for every started theme",
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := requireSession(cmd.Context())
			if err != nil {
				return err
			}

			records, err := client.GetUserProgress(cmd.Context(), session.Identity.ID)
			if err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(records)
			return nil
		},
	}
}

func newProgressSetCmd() *cobra.Command {
	var completed, total int

	cmd := &cobra.Command{
		Use:   "set <theme-id> <percentage>",
		Short: "Record progress for a theme",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			percentage, err := strconv.Atoi(args[1])
			if err != nil {
				return err
			}

			session, err := requireSession(cmd.Context())
			if err != nil {
				return err
			}

			record := model.ProgressRecord{
				UserID:             session.Identity.ID,
				ThemeID:            args[0],
				ProgressPercentage: percentage,
				ExercisesCompleted: completed,
				TotalExercises:     total,
			}
			if err := client.UpsertProgress(cmd.Context(), &record); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print([]model.ProgressRecord{record})
			return nil
		},
	}

	cmd.Flags().IntVar(&completed, "completed", 0, "Exercises completed in the theme")
	cmd.Flags().IntVar(&total, "total", 0, "Total exercises in the theme")

	return cmd
}
