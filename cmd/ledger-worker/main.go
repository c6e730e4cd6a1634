package main

import (
	"context"
	"errors"
	"os"
	"time"

	"fleetledger/internal/amqp"
	"fleetledger/internal/cli"
	"fleetledger/internal/config"
	"fleetledger/internal/ledger"
	applog "fleetledger/internal/log"
	"fleetledger/internal/worker"
)

func main() {
	cfg, logger := cli.Bootstrap(applog.ComponentWorker)
	logger.Info("Starting ledger-worker")

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the ledger worker")
		os.Exit(1)
	}
	// A memory store in this process would never see the server's writes.
	if cfg.DataBackend != config.BackendSQLite {
		logger.Error("ledger-worker requires the sqlite backend", "backend", cfg.DataBackend)
		os.Exit(1)
	}

	ctx, stop := cli.SignalContext()
	defer stop()

	// The worker only reads; it does not publish events of its own.
	result := cli.OpenBackend(ctx, cfg, logger, false)
	defer cli.Close(logger, result)

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer client.Close()

	svc := ledger.NewService(result.Store, result.Store, nil, ledger.ServiceConfig{
		Clock:                cfg.Clock(),
		DashboardConcurrency: cfg.DashboardConcurrency,
	})
	profitWorker := worker.NewProfitWorker(svc, cfg.Clock())

	if err := profitWorker.Snapshot(ctx); err != nil {
		logger.Error("Startup snapshot failed", "error", err)
	}

	go func() {
		ticker := time.NewTicker(cfg.SnapshotInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := profitWorker.Snapshot(ctx); err != nil {
					logger.Error("Periodic snapshot failed", "error", err)
				}
			}
		}
	}()

	err = client.ConsumeLedgerEvents(ctx, profitWorker.HandleLedgerEvent)
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", "error", err)
		os.Exit(1)
	}
	logger.Info("Worker shutdown complete")
}
