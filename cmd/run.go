package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"plant-rover/internal/app"
	"plant-rover/internal/species"
)

type runFlags struct {
	plants int
	replay string
	dryRun bool
}

func runCommand(opts *options) *cobra.Command {
	var f runFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Visit every plant on the route once",
		Long: "Visit plants 1..N in order: capture and identify the leaf, read soil moisture,\n" +
			"check the weather, water the plant and publish telemetry.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRoute(cmd, opts, f)
		},
	}

	cmd.Flags().IntVar(&f.plants, "plants", 0, "Override the number of plants on the route")
	cmd.Flags().StringVar(&f.replay, "replay", "", "Read frames from a directory of stills instead of the camera")
	cmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "Log pump commands instead of sending them")

	return cmd
}

func runRoute(cmd *cobra.Command, opts *options, f runFlags) error {
	cfg, err := opts.load(cmd)
	if err != nil {
		return err
	}
	if f.plants > 0 {
		cfg.Rover.Plants = f.plants
	}
	if f.replay != "" {
		cfg.Camera.Replay = f.replay
	}
	if f.dryRun {
		cfg.Pump.DryRun = true
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	log := opts.log
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.Watcher != nil {
		a.Watcher.OnReload(func(cat *species.Catalog) {
			log.Info("species catalog reloaded", zap.Int("profiles", cat.Profiles.Len()))
		})
		a.Watcher.Start(ctx)
	}

	// the metrics server lives as long as the route
	routeCtx, cancelRoute := context.WithCancel(ctx)
	defer cancelRoute()

	g, gctx := errgroup.WithContext(routeCtx)
	g.Go(func() error {
		return a.ServeMetrics(gctx)
	})
	g.Go(func() error {
		defer cancelRoute()
		sum, err := a.Rover.Run(gctx)
		log.Info("route summary",
			zap.Int("visited", sum.Visited),
			zap.Int("watered", sum.Watered),
			zap.Int("skipped", sum.Skipped),
			zap.Int("failed", sum.Failed))
		if ctx.Err() != nil {
			return nil
		}
		return err
	})

	return g.Wait()
}
