package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	appErrors "github.com/noah-isme/slack-archv/pkg/errors"
)

const (
	exitOK       = 0
	exitFailure  = 1
	exitAuth     = 2
	exitMismatch = 3
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "archv",
	Short: "Incrementally archive a Slack workspace into a local database",
	Long: `archv copies users, channels, emoji and message history of one workspace
into a SQLite (or PostgreSQL) database. Each run appends messages newer than the
stored ones and rewrites messages edited since they were archived.

Running archv without a subcommand performs a sync.

Examples:
  archv                          # sync using ./.env
  archv --config team.env sync   # sync with another env file
  archv stats                    # show what is archived
  archv export general --format pdf
  archv serve                    # read-only JSON API`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runSync,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", ".env", "env file with configuration")
	addSyncFlags(rootCmd)
}

func execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return exitOK
	}
	_, _ = fmt.Fprintf(os.Stderr, "archv: %v\n", err)
	return exitCode(err)
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, appErrors.ErrAuthFailed):
		return exitAuth
	case errors.Is(err, appErrors.ErrWorkspaceMismatch):
		return exitMismatch
	default:
		return exitFailure
	}
}
