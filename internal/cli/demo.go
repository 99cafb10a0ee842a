package cli

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/mathmaster/mathmaster-go/internal/factory"
	"github.com/mathmaster/mathmaster-go/internal/model"
)

func newDemoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "Run a scripted session against an in-memory gateway",
		Long: `Run a self-contained demo: an in-memory gateway is seeded with the
curriculum, a student account is created, a few exercises are completed
with random scores, and the resulting dashboard is printed.

No server is required.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDemo(cmd.Context())
		},
	}
}

func runDemo(ctx context.Context) error {
	app, err := factory.New(factory.Config{
		GatewayType: factory.GatewayTypeMemory,
		SeedData:    true,
	})
	if err != nil {
		return err
	}

	if err := app.Controller.Start(ctx); err != nil {
		return err
	}
	defer app.Controller.Close()

	session, err := app.Sync.SignUp(ctx, "lea@college-demo.fr", "demo-password", model.ProfileDefaults{
		Username: "léa",
		FullName: "Léa Martin",
		Class:    "3ème B",
		Level:    "3ème",
	})
	if err != nil {
		return err
	}
	userID := session.Identity.ID

	exercises, err := app.Sync.GetExercises(ctx, "")
	if err != nil {
		return err
	}

	totals := make(map[string]int)
	for _, e := range exercises {
		totals[e.ThemeID]++
	}

	completed := make(map[string]int)
	for _, e := range exercises[:min(3, len(exercises))] {
		score := 60 + app.Random.Intn(41)

		result := model.ExerciseResult{UserID: userID, ExerciseID: e.ID, Score: score}
		if err := app.Sync.SaveExerciseResult(ctx, &result); err != nil {
			return err
		}

		entry := model.ActivityEntry{
			UserID:  userID,
			Type:    model.ActivityExercise,
			Title:   e.Title,
			Score:   &score,
			ThemeID: e.ThemeID,
		}
		if err := app.Sync.AddActivity(ctx, &entry); err != nil {
			return err
		}

		completed[e.ThemeID]++
		record := model.ProgressRecord{
			UserID:             userID,
			ThemeID:            e.ThemeID,
			ExercisesCompleted: completed[e.ThemeID],
			TotalExercises:     totals[e.ThemeID],
			ProgressPercentage: completed[e.ThemeID] * 100 / totals[e.ThemeID],
		}
		if err := app.Sync.UpsertProgress(ctx, &record); err != nil {
			return err
		}
	}

	if _, err := app.Sync.AwardBadge(ctx, userID, "debutant"); err != nil &&
		!errors.Is(err, model.ErrBadgeAlreadyAwarded) {
		return err
	}

	progress := make([]model.ProgressRecord, 0, len(app.Store.Progress()))
	for _, record := range app.Store.Progress() {
		progress = append(progress, record)
	}
	sort.Slice(progress, func(i, j int) bool { return progress[i].ThemeID < progress[j].ThemeID })

	out := NewOutput(cfg.Output)
	out.Print(Dashboard{
		Profile:    app.Store.Profile(),
		Summary:    app.Store.Summarize(),
		Progress:   progress,
		Activities: app.Store.Activities(),
		Badges:     app.Store.Badges(),
	})

	fmt.Println()
	out.PrintMessage("Demo complete")
	return nil
}
