package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/brojonat/blinkpay/service/config"
	"github.com/brojonat/blinkpay/service/db"
	"github.com/brojonat/blinkpay/service/links"
	"github.com/brojonat/blinkpay/service/metrics"
	natspkg "github.com/brojonat/blinkpay/service/nats"
	"github.com/brojonat/blinkpay/service/server"
	"github.com/brojonat/blinkpay/service/solana"
	"github.com/brojonat/blinkpay/service/temporal"
	solanago "github.com/gagliardetto/solana-go"
	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	// Load and validate configuration from environment
	// This fails fast if any required config is missing or invalid
	cfg := config.MustLoad()

	logger := setupLogger(cfg.LogLevel)
	logger.Info("starting server",
		"addr", cfg.ServerAddr,
		"log_level", cfg.LogLevel,
		"cluster", cfg.SolanaCluster,
		"store", cfg.StoreBackend,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metricsCollector := metrics.NewMetrics(nil) // nil uses default registry

	// Link store
	var store links.Store
	switch cfg.StoreBackend {
	case config.StoreBackendMemory:
		store = links.NewMemoryStore()
		logger.Warn("using in-memory link store, links will not survive a restart")
	default:
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
			logger.Error("failed to apply migrations", "error", err)
			os.Exit(1)
		}
		logger.Info("database schema up to date", "schema_version", version)

		pgStore := db.NewStore(dbPool).WithTTL(cfg.LinkTTL).WithMetrics(metricsCollector)
		if cfg.LinkTTL > 0 {
			go purgeExpiredLinks(ctx, pgStore, cfg.LinkTTL, logger)
		}
		store = pgStore
	}

	// Solana RPC client. Several comma-separated endpoints may be configured;
	// one is picked at startup.
	rpcURL, err := solana.SelectRandomEndpoint(cfg.RPCEndpoints())
	if err != nil {
		logger.Error("failed to select solana RPC endpoint", "error", err)
		os.Exit(1)
	}
	solanaClient := solana.NewClient(solana.NewRPCClient(rpcURL), metricsCollector, logger)
	logger.Info("initialized solana RPC client", "url", rpcURL)

	// NATS publisher and SSE stream (optional)
	var publisher natspkg.EventPublisher
	var ssePublisher *server.SSEPublisher
	if cfg.NATSURL != "" {
		natsPublisher, err := natspkg.NewPublisher(cfg.NATSURL, metricsCollector, logger)
		if err != nil {
			logger.Error("failed to create NATS publisher", "error", err)
			os.Exit(1)
		}
		defer natsPublisher.Close()
		publisher = natsPublisher

		ssePublisher, err = server.NewSSEPublisher(cfg.NATSURL, logger)
		if err != nil {
			logger.Error("failed to create SSE publisher", "error", err)
			os.Exit(1)
		}
		logger.Info("connected to NATS", "url", cfg.NATSURL)
	} else {
		logger.Info("NATS not configured, link events disabled")
	}

	svc := links.NewService(store, solanaClient, links.Options{
		SiteURL:            cfg.SiteURL,
		IconURL:            cfg.ActionIconURL,
		USDCMint:           solanago.MustPublicKeyFromBase58(cfg.USDCMintAddress),
		StrictBalanceCheck: cfg.StrictBalanceCheck,
	}, publisher, metricsCollector, logger)

	// Temporal client for confirmation workflows (optional)
	var confirmer temporal.Confirmer
	if cfg.ConfirmationsEnabled() {
		temporalClient, err := temporal.NewClient(
			cfg.TemporalHost,
			cfg.TemporalNamespace,
			cfg.TemporalTaskQueue,
			cfg.ConfirmationTimeout,
			logger,
		)
		if err != nil {
			logger.Error("failed to create temporal client", "error", err)
			os.Exit(1)
		}
		defer temporalClient.Close()
		confirmer = temporalClient
		logger.Info("connected to temporal",
			"host", cfg.TemporalHost,
			"namespace", cfg.TemporalNamespace,
			"task_queue", cfg.TemporalTaskQueue,
		)
	}

	httpServer := server.New(cfg.ServerAddr, cfg, svc, solanaClient, confirmer, metricsCollector, logger)
	if err := httpServer.WithTemplates(); err != nil {
		logger.Error("failed to load templates", "error", err)
		os.Exit(1)
	}
	if ssePublisher != nil {
		httpServer.WithSSE(ssePublisher)
	}

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- httpServer.Start()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.Error("server error", "error", err)
		os.Exit(1)
	case sig := <-shutdown:
		logger.Info("shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shutdown server gracefully", "error", err)
			os.Exit(1)
		}

		logger.Info("server shutdown complete")
	}
}

// purgeExpiredLinks deletes expired rows at startup and then once per TTL
// period (at most hourly).
func purgeExpiredLinks(ctx context.Context, store *db.Store, ttl time.Duration, logger *slog.Logger) {
	purge := func() {
		n, err := store.PurgeExpired(ctx)
		if err != nil {
			logger.Warn("failed to purge expired links", "error", err)
			return
		}
		if n > 0 {
			logger.Info("purged expired links", "count", n)
		}
	}
	purge()

	interval := ttl
	if interval > time.Hour {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			purge()
		}
	}
}

// setupLogger creates a structured logger with the given log level.
func setupLogger(levelStr string) *slog.Logger {
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}
