package app

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/guttosm/histavg/config"
	"github.com/guttosm/histavg/internal/api"
	"github.com/guttosm/histavg/internal/backfill"
	"github.com/guttosm/histavg/internal/chain"
	"github.com/guttosm/histavg/internal/logger"
	"github.com/guttosm/histavg/internal/service"
	"github.com/guttosm/histavg/internal/storage"
	"github.com/guttosm/histavg/internal/validation"
)

// Indirections overridden in tests.
var (
	migrateDB = storage.Migrate
	dialChain = chain.Dial
)

// InitializeApp sets up all application dependencies and returns
// a fully configured Gin router, a cleanup function for graceful shutdown,
// and any error encountered during initialization.
//
// Responsibilities:
//   - Connects to PostgreSQL and applies pending migrations.
//   - Builds the price sources, the price cache and the validator.
//   - Dials the configured Ethereum/Polygon RPC endpoints (none is fine).
//   - Wires services, handlers and the Gin router, plus health probes.
//   - Starts the backfill scheduler when BACKFILL_CRON is set.
//   - Provides a cleanup function that stops the scheduler and closes resources.
func InitializeApp() (*gin.Engine, func(), error) {
	cfg := config.AppConfig
	ctx := context.Background()

	// indirection for unit testing
	db, err := postgresOpener(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize postgres: %w", err)
	}
	if err := migrateDB(ctx, db); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("failed to migrate postgres: %w", err)
	}

	repo := storage.NewPriceRepository(db)
	sources := NewSourceRegistry(cfg)
	v := validation.New(sources.Has)

	vaults, closeChain, err := dialChain(ctx, cfg.Chain.EthereumRPCURL, cfg.Chain.PolygonRPCURL)
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("failed to dial rpc: %w", err)
	}

	avgSvc := service.NewAverageService(sources, repo)
	tvlSvc := service.NewTVLService(vaults, cfg.Chain.DefaultNetwork)

	handler := api.NewHandler(avgSvc, tvlSvc, v)
	router := api.NewRouter(handler, api.RouterOptions{
		RequestTimeout:     cfg.Server.RequestTimeout,
		RateLimitPerMinute: cfg.Server.RateLimitPerMinute,
	})

	api.NewHealthHandler(map[string]api.Check{
		"postgres": db.PingContext,
	}).Register(router)

	var sched *backfill.Scheduler
	if cfg.Backfill.Cron != "" {
		sched = backfill.NewScheduler(backfill.NewRunner(sources, repo), cfg.Backfill.Cron, BackfillOptions(cfg))
		if err := sched.Start(); err != nil {
			closeChain()
			_ = db.Close()
			return nil, nil, err
		}
	}

	cleanup := func() {
		if sched != nil {
			stopCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.RequestTimeout)
			sched.Stop(stopCtx)
			cancel()
		}
		closeChain()
		if err := db.Close(); err != nil {
			logger.L().Warn().Err(err).Msg("close postgres")
		}
	}

	return router, cleanup, nil
}

// BackfillOptions maps the BACKFILL_* settings to backfill.Options.
func BackfillOptions(cfg config.Config) backfill.Options {
	return backfill.Options{
		Pairs:    cfg.Backfill.Pairs,
		Source:   cfg.Backfill.Source,
		Days:     cfg.Backfill.Days,
		Parallel: cfg.Backfill.Parallel,
	}
}
