package cli

import (
	"github.com/spf13/cobra"

	"github.com/mathmaster/mathmaster-go/internal/model"
)

func newDiagnosticCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "diagnostic",
		Short: "Diagnostic test commands",
	}

	cmd.AddCommand(newDiagnosticSubmitCmd())

	return cmd
}

func newDiagnosticSubmitCmd() *cobra.Command {
	var level string
	var score int

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Record a completed diagnostic test",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			session, err := requireSession(ctx)
			if err != nil {
				return err
			}
			userID := session.Identity.ID

			result := model.DiagnosticResult{
				UserID: userID,
				Level:  level,
				Score:  score,
			}
			if err := client.SaveDiagnosticResult(ctx, &result); err != nil {
				return err
			}

			entry := model.ActivityEntry{
				UserID: userID,
				Type:   model.ActivityDiagnostic,
				Score:  &score,
			}
			if err := client.AddActivity(ctx, &entry); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.PrintMessage("Diagnostic recorded")
			return nil
		},
	}

	cmd.Flags().StringVar(&level, "level", "3ème", "Assessed level")
	cmd.Flags().IntVar(&score, "score", 0, "Score in percent (required)")
	_ = cmd.MarkFlagRequired("score")

	return cmd
}
