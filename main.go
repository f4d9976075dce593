package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-authgate/appgrant/internal/bootstrap"
	"github.com/go-authgate/appgrant/internal/config"
	"github.com/go-authgate/appgrant/internal/version"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "appgrant",
		Short:        "Third-party app registration, binding and secret authorization",
		Version:      version.GetVersion(),
		SilenceUsage: true,
	}
	rootCmd.SetVersionTemplate(version.String())

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newRefreshScoresCmd())
	rootCmd.AddCommand(newScopesCmd())
	rootCmd.AddCommand(newAuditCmd())
	rootCmd.AddCommand(newVersionCmd())
	return rootCmd
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the background jobs and the ops (metrics/health) server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return bootstrap.Run(cmd.Context(), config.Load())
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			version.PrintVersion(cmd.OutOrStdout())
		},
	}
}

// withApplication builds the application for a one-shot command and always releases it.
func withApplication(
	cmd *cobra.Command,
	cfg *config.Config,
	fn func(ctx context.Context, app *bootstrap.Application) error,
) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		return err
	}

	runErr := fn(ctx, app)
	if closeErr := app.Close(context.Background()); closeErr != nil && runErr == nil {
		return fmt.Errorf("failed to release resources: %w", closeErr)
	}
	return runErr
}
