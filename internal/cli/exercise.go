package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/mathmaster/mathmaster-go/internal/model"
)

func newExerciseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exercise",
		Short: "Exercise bank commands",
	}

	cmd.AddCommand(newExerciseListCmd())
	cmd.AddCommand(newExerciseSubmitCmd())

	return cmd
}

func newExerciseListCmd() *cobra.Command {
	var themeID string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show exercises, optionally for one theme",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := requireSession(cmd.Context()); err != nil {
				return err
			}

			exercises, err := client.GetExercises(cmd.Context(), themeID)
			if err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(exercises)
			return nil
		},
	}

	cmd.Flags().StringVar(&themeID, "theme", "", "Restrict to one theme id")

	return cmd
}

func newExerciseSubmitCmd() *cobra.Command {
	var score int

	cmd := &cobra.Command{
		Use:   "submit <exercise-id>",
		Short: "Submit an exercise result",
		Long: `Submit a completed exercise.

Records the result, logs an activity entry, and advances the theme's
progress. The first submitted exercise also earns the Débutant badge.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			session, err := requireSession(ctx)
			if err != nil {
				return err
			}
			userID := session.Identity.ID

			exercise, themeTotal, err := findExercise(ctx, args[0])
			if err != nil {
				return err
			}

			result := model.ExerciseResult{
				UserID:     userID,
				ExerciseID: exercise.ID,
				Score:      score,
			}
			if err := client.SaveExerciseResult(ctx, &result); err != nil {
				return err
			}

			entry := model.ActivityEntry{
				UserID:  userID,
				Type:    model.ActivityExercise,
				Title:   exercise.Title,
				Score:   &score,
				ThemeID: exercise.ThemeID,
			}
			if err := client.AddActivity(ctx, &entry); err != nil {
				return err
			}

			record, first, err := advanceProgress(ctx, userID, exercise.ThemeID, themeTotal)
			if err != nil {
				return err
			}

			if first {
				// First exercise overall earns the starter badge. A repeat
				// award just means another session got there before us.
				if _, err := client.AwardBadge(ctx, userID, "debutant"); err != nil &&
					!errors.Is(err, model.ErrBadgeAlreadyAwarded) {
					return err
				}
			}

			out := NewOutput(cfg.Output)
			out.Print([]model.ProgressRecord{*record})
			return nil
		},
	}

	cmd.Flags().IntVar(&score, "score", 0, "Score in percent (required)")
	_ = cmd.MarkFlagRequired("score")

	return cmd
}

// findExercise resolves an exercise id and counts the exercises in its theme.
func findExercise(ctx context.Context, id string) (*model.Exercise, int, error) {
	exercises, err := client.GetExercises(ctx, "")
	if err != nil {
		return nil, 0, err
	}

	var found *model.Exercise
	for i := range exercises {
		if exercises[i].ID == id {
			found = &exercises[i]
			break
		}
	}
	if found == nil {
		return nil, 0, model.ErrExerciseNotFound
	}

	total := 0
	for _, e := range exercises {
		if e.ThemeID == found.ThemeID {
			total++
		}
	}
	return found, total, nil
}

// advanceProgress bumps the theme's completion counters after a submitted
// exercise. Returns the written record and whether this was the user's first
// completed exercise across all themes.
func advanceProgress(ctx context.Context, userID, themeID string, themeTotal int) (*model.ProgressRecord, bool, error) {
	records, err := client.GetUserProgress(ctx, userID)
	if err != nil {
		return nil, false, err
	}

	doneBefore := 0
	record := model.ProgressRecord{
		UserID:         userID,
		ThemeID:        themeID,
		TotalExercises: themeTotal,
	}
	for _, r := range records {
		doneBefore += r.ExercisesCompleted
		if r.ThemeID == themeID {
			record = r
			record.Theme = nil
		}
	}

	record.ExercisesCompleted++
	record.TotalExercises = themeTotal
	if themeTotal > 0 {
		record.ProgressPercentage = record.ExercisesCompleted * 100 / themeTotal
	}
	if record.ProgressPercentage > 100 {
		record.ProgressPercentage = 100
	}

	if err := client.UpsertProgress(ctx, &record); err != nil {
		return nil, false, err
	}
	return &record, doneBefore == 0, nil
}
