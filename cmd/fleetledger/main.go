package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"fleetledger/internal/cli"
	apphttp "fleetledger/internal/http"
	"fleetledger/internal/ledger"
	applog "fleetledger/internal/log"
)

func main() {
	cfg, logger := cli.Bootstrap(applog.ComponentApp)

	ctx, stop := cli.SignalContext()
	defer stop()

	result := cli.OpenBackend(ctx, cfg, logger, true)
	defer cli.Close(logger, result)

	svc := ledger.NewService(result.Store, result.Store, result.Publisher, ledger.ServiceConfig{
		Clock:                cfg.Clock(),
		DashboardConcurrency: cfg.DashboardConcurrency,
	})

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Options{
		Ledger:             svc,
		Registry:           result.Store,
		Dashboard:          cfg.Dashboard,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Logger:             logger.WithComponent(applog.ComponentHTTP),
	})
	srv.MaxHeaderBytes = 1 << 16

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting fleetledger server",
			"port", cfg.Port,
			"backend", cfg.DataBackend,
			"events", result.Publisher != nil,
			"timezone", cfg.Timezone)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		cli.Close(logger, result)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
