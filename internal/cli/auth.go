package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mathmaster/mathmaster-go/internal/model"
)

func newSignupCmd() *cobra.Command {
	var password, username, fullName, class, level string

	cmd := &cobra.Command{
		Use:   "signup <email>",
		Short: "Create a new account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			defaults := model.ProfileDefaults{
				Username: username,
				FullName: fullName,
				Class:    class,
				Level:    level,
			}

			session, err := client.SignUp(cmd.Context(), args[0], password, defaults)
			if err != nil {
				return err
			}

			if err := cfg.SaveToken(session.AccessToken); err != nil {
				return fmt.Errorf("failed to save token: %w", err)
			}

			out := NewOutput(cfg.Output)
			out.Print(session)
			return nil
		},
	}

	cmd.Flags().StringVar(&password, "password", "", "Password (required, min 6 characters)")
	cmd.Flags().StringVar(&username, "username", "", "Username (defaults to email local part)")
	cmd.Flags().StringVar(&fullName, "name", "", "Full name")
	cmd.Flags().StringVar(&class, "class", "", "Class (e.g. 3ème B)")
	cmd.Flags().StringVar(&level, "level", "", "Level (e.g. 3ème)")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}

func newLoginCmd() *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "login <email>",
		Short: "Sign in with an existing account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := client.SignIn(cmd.Context(), args[0], password)
			if err != nil {
				return err
			}

			if err := cfg.SaveToken(session.AccessToken); err != nil {
				return fmt.Errorf("failed to save token: %w", err)
			}

			out := NewOutput(cfg.Output)
			out.Print(session)
			return nil
		},
	}

	cmd.Flags().StringVar(&password, "password", "", "Password (required)")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and discard the stored token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.Token != "" {
				// Revoke server-side first; a dead token still clears locally.
				if _, err := gw.SetToken(cmd.Context(), cfg.Token); err == nil {
					if err := client.SignOut(cmd.Context()); err != nil &&
						!errors.Is(err, model.ErrNotAuthenticated) {
						return err
					}
				}
			}

			if err := cfg.ClearToken(); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.PrintMessage("Signed out")
			return nil
		},
	}
}

func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the current session and profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := requireSession(cmd.Context())
			if err != nil {
				return err
			}

			profile, err := client.GetProfile(cmd.Context(), session.Identity.ID)
			if err != nil && !errors.Is(err, model.ErrProfileNotFound) {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(WhoamiResult{Session: session, Profile: profile})
			return nil
		},
	}
}
