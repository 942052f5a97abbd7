package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github-activity-service/internal/config"
	"github-activity-service/internal/syncer"
)

func newSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Runs a single sync from the command line",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "commits <username>",
			Short: "Syncs the commits of a user",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runSync(cmd.Context(), args[0], func(a *app) func(context.Context, string) (syncer.Result, error) {
					return a.commits.Sync
				})
			},
		},
		&cobra.Command{
			Use:   "prs <username>",
			Short: "Syncs the pull requests of a user",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runSync(cmd.Context(), args[0], func(a *app) func(context.Context, string) (syncer.Result, error) {
					return a.pullRequests.Sync
				})
			},
		},
	)
	return cmd
}

func runSync(parent context.Context, username string, pick func(a *app) func(context.Context, string) (syncer.Result, error)) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger := newLogger(cfg.LogLevel)

	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	if cfg.SyncTimeout > 0 {
		var stop context.CancelFunc
		ctx, stop = context.WithTimeout(ctx, cfg.SyncTimeout)
		defer stop()
	}

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.close()

	res, err := pick(a)(ctx, username)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}
