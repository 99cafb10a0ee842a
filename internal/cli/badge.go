package cli

import (
	"github.com/spf13/cobra"
)

func newBadgeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "badge",
		Short: "Badge commands",
	}

	cmd.AddCommand(newBadgeCatalogueCmd())
	cmd.AddCommand(newBadgeListCmd())
	cmd.AddCommand(newBadgeAwardCmd())

	return cmd
}

func newBadgeCatalogueCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "catalogue",
		Short: "Show every badge that can be earned",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := requireSession(cmd.Context()); err != nil {
				return err
			}

			badges, err := client.GetBadges(cmd.Context())
			if err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(badges)
			return nil
		},
	}
}

func newBadgeListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show the badges you have earned",
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := requireSession(cmd.Context())
			if err != nil {
				return err
			}

			awards, err := client.GetUserBadges(cmd.Context(), session.Identity.ID)
			if err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(awards)
			return nil
		},
	}
}

func newBadgeAwardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "award <badge-id>",
		Short: "Award a badge to the signed-in user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := requireSession(cmd.Context())
			if err != nil {
				return err
			}

			award, err := client.AwardBadge(cmd.Context(), session.Identity.ID, args[0])
			if err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(award)
			return nil
		},
	}
}
