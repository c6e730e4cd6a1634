// Command normalize-months rewrites legacy month keys in the SQLite ledger
// to the canonical YYYY-MM form. It is safe to run more than once.
package main

import (
	"context"
	"flag"
	"os"
	"time"

	"fleetledger/internal/cli"
	"fleetledger/internal/config"
	applog "fleetledger/internal/log"
	"fleetledger/internal/storage"
)

func main() {
	cli.LoadEnvFile()

	cfg := config.Load()
	dbPath := flag.String("db", cfg.SQLiteDBPath, "path to the SQLite ledger")
	timeout := flag.Duration("timeout", 5*time.Minute, "maximum run time")
	flag.Parse()

	logger := applog.Setup(cfg.LogLevel, applog.ComponentStorage)

	repo, err := storage.NewSQLiteRepository(*dbPath)
	if err != nil {
		logger.Error("Failed to open ledger", "error", err, "path", *dbPath)
		os.Exit(1)
	}
	defer repo.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	n, err := repo.NormalizeMonthKeys(ctx)
	if err != nil {
		logger.Error("Month key normalization failed", "error", err, applog.FieldOperation, applog.OpNormalize)
		os.Exit(1)
	}
	logger.Info("Month keys normalized", "rows_updated", n, "path", *dbPath)
}
