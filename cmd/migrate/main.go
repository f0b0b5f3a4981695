package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/brojonat/blinkpay/service/config"
	"github.com/brojonat/blinkpay/service/db"
	"github.com/jackc/pgx/v5/pgxpool"
)

// migrate applies pending schema migrations and, when LINK_TTL is set,
// purges links that have already expired.
func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	logger.Info("starting link store migration")

	cfg := config.MustLoad()
	if cfg.StoreBackend != config.StoreBackendPostgres {
		logger.Info("store backend does not use a database, nothing to migrate", "store", cfg.StoreBackend)
		return
	}

	ctx := context.Background()
	dbPool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()

	if err := dbPool.Ping(ctx); err != nil {
		logger.Error("failed to ping database", "error", err)
		os.Exit(1)
	}
	logger.Info("connected to database")

	version, err := db.Migrate(ctx, dbPool, logger)
	if err != nil {
		logger.Error("migration failed", "error", err)
		os.Exit(1)
	}
	logger.Info("migrations complete", "schema_version", version)

	if cfg.LinkTTL > 0 {
		purged, err := db.NewStore(dbPool).WithTTL(cfg.LinkTTL).PurgeExpired(ctx)
		if err != nil {
			logger.Error("failed to purge expired links", "error", err)
			os.Exit(1)
		}
		logger.Info("purged expired links", "count", purged)
	}
}
