package main

import (
	"context"
	"fmt"
	"os"

	"github.com/daftuyda/Igris/internal"
	"github.com/daftuyda/Igris/internal/clock"
	"github.com/daftuyda/Igris/internal/config"
	"github.com/daftuyda/Igris/internal/service"
	"github.com/daftuyda/Igris/internal/storage"
	"github.com/daftuyda/Igris/internal/ui"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "igris",
	Short:         "Daily task XP tracker",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	rootCmd.AddCommand(serveCmd, sweepCmd, evaluateCmd, userCmd, statusCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, ui.Bad.Render("error: "+err.Error()))
		os.Exit(1)
	}
}

// runtime holds everything a command needs to talk to the store.
type runtime struct {
	cfg    *config.Config
	logger *internal.ZapLogger
	store  storage.Store
	svc    *service.Service
}

func setup(ctx context.Context) (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger, err := internal.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	store, err := storage.Open(ctx, cfg, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, fmt.Errorf("open %s storage: %w", cfg.StorageBackend, err)
	}
	svc := service.New(store, clock.RealClock{}, clock.NewResolver(cfg.DefaultTimezone), cfg.Policy, logger)
	return &runtime{cfg: cfg, logger: logger, store: store, svc: svc}, nil
}

func (r *runtime) scheduler() *service.Scheduler {
	return service.NewScheduler(r.svc, service.SchedulerConfig{
		Interval: r.cfg.Scheduler.Interval,
		Workers:  r.cfg.Scheduler.Workers,
	}, r.logger)
}

func (r *runtime) close() {
	if err := r.store.Close(); err != nil {
		r.logger.Errorf("failed to close storage: %v", err)
	}
	_ = r.logger.Sync()
}
