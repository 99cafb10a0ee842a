package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/mathmaster/mathmaster-go/internal/gateway"
	restgateway "github.com/mathmaster/mathmaster-go/internal/gateway/rest"
	syncsvc "github.com/mathmaster/mathmaster-go/internal/services/sync"
)

var (
	cfg    *Config
	gw     *restgateway.Gateway
	client *syncsvc.Client
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cfg = DefaultConfig()

	rootCmd := &cobra.Command{
		Use:   "mathmaster",
		Short: "CLI tool for the MathMaster sync gateway",
		Long: `mathmaster is a CLI tool for interacting with a MathMaster gateway.

It supports account management, progress tracking, the activity log,
badges, exercise submission, and real-time change-feed streaming.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Load token from file if not provided via flag/env
			if err := cfg.LoadToken(); err != nil {
				return err
			}

			logger := slog.New(slog.NewTextHandler(io.Discard, nil))
			if cfg.Verbose {
				logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
					Level: slog.LevelDebug,
				}))
			}

			restCfg := restgateway.DefaultConfig()
			restCfg.BaseURL = cfg.ServerURL
			gw = restgateway.New(restCfg, logger)
			client = syncsvc.New(gw, logger)
			return nil
		},
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfg.ServerURL, "server", cfg.ServerURL, "Gateway URL (env: MATHMASTER_SERVER)")
	rootCmd.PersistentFlags().StringVar(&cfg.Token, "token", cfg.Token, "Session token (env: MATHMASTER_TOKEN)")
	rootCmd.PersistentFlags().StringVar(&cfg.TokenFile, "token-file", cfg.TokenFile, "Token file path (env: MATHMASTER_TOKEN_FILE)")
	rootCmd.PersistentFlags().StringVarP(&cfg.Output, "output", "o", cfg.Output, "Output format: text, json")
	rootCmd.PersistentFlags().BoolVarP(&cfg.Verbose, "verbose", "v", cfg.Verbose, "Verbose output")

	// Add subcommands
	rootCmd.AddCommand(newSignupCmd())
	rootCmd.AddCommand(newLoginCmd())
	rootCmd.AddCommand(newLogoutCmd())
	rootCmd.AddCommand(newWhoamiCmd())
	rootCmd.AddCommand(newDashboardCmd())
	rootCmd.AddCommand(newProgressCmd())
	rootCmd.AddCommand(newActivityCmd())
	rootCmd.AddCommand(newBadgeCmd())
	rootCmd.AddCommand(newExerciseCmd())
	rootCmd.AddCommand(newDiagnosticCmd())
	rootCmd.AddCommand(newWatchCmd())
	rootCmd.AddCommand(newDemoCmd())
	rootCmd.AddCommand(newHealthCmd())

	return rootCmd
}

// Execute runs the root command
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// requireSession resumes the stored session and returns it. Commands that
// touch user data call this before doing anything else.
func requireSession(ctx context.Context) (*gateway.Session, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("not signed in (run: mathmaster login <email> --password <password>)")
	}

	session, err := gw.SetToken(ctx, cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("session invalid or expired: %w", err)
	}
	return session, nil
}
