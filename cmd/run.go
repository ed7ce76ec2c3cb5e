package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/huangsam/autoindex/core/indexing"
	"github.com/huangsam/autoindex/internal/metrics"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// runCmd runs the indexing scheduler until interrupted.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the background indexing scheduler",
	Long: `Run the scheduler that migrates uncovered windows of every enabled source
from its raw backend into its indexed backend.

Every tick picks the oldest open jobs, up to --tasks-per-run, and hands them to
a pool of --workers pipelines. A failed job stays open and is retried later.

Examples:
  # Run with metrics on :9090
  autoindex run --metrics-addr :9090

  # Run one tick and exit
  autoindex run --once`,
	PreRunE: sharedSetupWrapper,
	RunE: func(cmd *cobra.Command, _ []string) error {
		once, _ := cmd.Flags().GetBool("once")

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		pipeline := indexing.NewPipeline(appStore, backends, cfg.Indexing.StageTimeout, logger)
		scheduler := indexing.NewScheduler(appStore, pipeline, cfg.Indexing, indexing.WithLogger(logger))

		if once {
			n, err := scheduler.Tick(ctx)
			if err != nil {
				return err
			}
			scheduler.Wait()
			fmt.Printf("Dispatched %d index jobs.\n", n)
			return nil
		}

		if !cfg.Indexing.Enabled && cfg.MetricsAddr == "" {
			return fmt.Errorf("nothing to run: indexing is disabled and no metrics address is set")
		}

		g, gctx := errgroup.WithContext(ctx)
		if cfg.MetricsAddr != "" {
			reg, err := metrics.NewRegistry()
			if err != nil {
				return err
			}
			g.Go(func() error {
				logger.Info("serving metrics", "addr", cfg.MetricsAddr)
				return metrics.Serve(gctx, cfg.MetricsAddr, reg)
			})
		}
		if cfg.Indexing.Enabled {
			g.Go(func() error {
				return scheduler.Run(gctx)
			})
		}
		if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}
