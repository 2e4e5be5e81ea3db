package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/daftuyda/Igris/internal/api"
	"github.com/daftuyda/Igris/internal/auth"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

var noScheduler bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the rollover scheduler",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		rt, err := setup(ctx)
		if err != nil {
			return err
		}
		defer rt.close()

		if rt.cfg.Env != "development" {
			gin.SetMode(gin.ReleaseMode)
		}

		app := api.NewApp(rt.svc, rt.logger, rt.cfg.AllowManualEval)
		router := api.NewRouter(app, auth.NewProvider(rt.cfg, rt.logger))
		srv := &http.Server{
			Addr:              rt.cfg.HTTPAddr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		}

		if !noScheduler {
			sched := rt.scheduler()
			if err := sched.Start(ctx); err != nil {
				return err
			}
			defer sched.Stop()
		}

		errCh := make(chan error, 1)
		go func() {
			rt.logger.Infof("server listening on %s (storage=%s env=%s)", rt.cfg.HTTPAddr, rt.cfg.StorageBackend, rt.cfg.Env)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case err, ok := <-errCh:
			if ok {
				return err
			}
			return nil
		case <-ctx.Done():
		}

		rt.logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}

func init() {
	serveCmd.Flags().BoolVar(&noScheduler, "no-scheduler", false, "serve the API without running rollover sweeps")
}
