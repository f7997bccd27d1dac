package main

//
//  @title           histavg API
//  @version         1.0
//  @description     Historical-average price and vault TVL adapter service.
//  @termsOfService  https://github.com/guttosm/histavg
//  @contact.name    API Support
//  @contact.url     https://github.com/guttosm/histavg
//  @contact.email   support@example.com
//  @license.name    MIT
//  @license.url     https://opensource.org/licenses/MIT
//  @host            localhost:8080
//  @BasePath        /
//  @schemes         http
//
//  @tag.name        adapter
//  @tag.description Adapter jobs: historical averages and vault TVL
//
//  @tag.name        health
//  @tag.description Liveness and readiness probes

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/guttosm/histavg/config"
	_ "github.com/guttosm/histavg/docs" // swagger docs
	"github.com/guttosm/histavg/internal/app"
	"github.com/guttosm/histavg/internal/backfill"
	"github.com/guttosm/histavg/internal/daterange"
	"github.com/guttosm/histavg/internal/logger"
	"github.com/guttosm/histavg/internal/source"
	"github.com/guttosm/histavg/internal/storage"
)

// startServer initializes and starts the HTTP server in a separate goroutine.
//
// Parameters:
//   - router (http.Handler): The HTTP router (Gin Engine) configured with all routes.
//   - port (string): The port where the server will listen for incoming requests.
//
// Returns:
//   - *http.Server: The initialized HTTP server instance.
func startServer(router http.Handler, port string) *http.Server {
	server := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.L().Info().Str("port", port).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.L().Fatal().Err(err).Msg("server failed to start")
		}
	}()

	return server
}

// gracefulShutdown gracefully terminates the HTTP server and cleans up resources
// when an OS interrupt signal (SIGINT, SIGTERM) is received.
//
// Parameters:
//   - ctx (context.Context): A context with timeout for graceful shutdown.
//   - server (*http.Server): The HTTP server instance to shut down.
//   - cleanup (func()): Cleanup callback to release resources (scheduler, RPC clients, DB).
func gracefulShutdown(ctx context.Context, server *http.Server, cleanup func()) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(quit)

	<-quit
	logger.L().Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.L().Fatal().Err(err).Msg("server forced to shutdown")
	}

	cleanup()
	logger.L().Info().Msg("server exited gracefully")
}

// signalContext is cancelled on SIGINT/SIGTERM so batch modes stop cleanly.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// runResolve writes the resolved date range of the given boundaries as JSON.
func runResolve(w io.Writer, fromDate, toDate string, days int) error {
	rng, err := daterange.Resolve(fromDate, toDate, days)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	return enc.Encode(rng)
}

// splitList splits a comma separated flag, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// splitPair splits "BASE/QUOTE" for the import mode.
func splitPair(s string) (string, string, error) {
	p, err := backfill.ParsePair(s)
	if err != nil {
		return "", "", err
	}
	return p.Base, p.Quote, nil
}

// importSource returns the registered name of src, so seed rows land under
// the key the average endpoint reads from.
func importSource(reg *source.Registry, src string) (string, error) {
	p, ok := reg.Get(src)
	if !ok {
		return "", fmt.Errorf("unknown source %q (registered: %s)", src, strings.Join(reg.Names(), ", "))
	}
	return p.Name(), nil
}

// main is the entry point of the histavg application.
//
// Modes (selected via --mode flag):
//   - api:      Starts the REST API (historical average, vault TVL, probes, metrics).
//   - backfill: Fetches the last --days of prices for --pairs into the cache.
//   - import:   Loads a day;price CSV seed file for one --pair into the cache.
//   - migrate:  Applies pending database migrations and exits.
//   - resolve:  Prints the date range resolved from --from/--to/--days.
//
// Flags:
//   - --mode: Execution mode. Default: "api".
//   - --port: Port for the API server. Defaults to value from config (SERVER_PORT).
func main() {
	// Load configuration from environment or .env file
	config.LoadConfig()

	// Initialize JSON logger
	logger.Init()

	cfg := config.AppConfig

	mode := flag.String("mode", "api", "Mode: api, backfill, import, migrate or resolve")
	port := flag.String("port", cfg.Server.Port, "Port for API mode")
	pairs := flag.String("pairs", strings.Join(cfg.Backfill.Pairs, ","), "Comma separated BASE/QUOTE pairs (backfill)")
	src := flag.String("source", cfg.Backfill.Source, "Price source (backfill, import)")
	days := flag.Int("days", cfg.Backfill.Days, "Days to backfill, or days for resolve")
	parallel := flag.Int("parallel", cfg.Backfill.Parallel, "Pairs processed concurrently (0=auto)")
	force := flag.Bool("force", false, "Refetch even if the window was already backfilled")
	file := flag.String("file", "", "CSV seed file (import)")
	pair := flag.String("pair", "", "BASE/QUOTE pair of the seed file (import)")
	from := flag.String("from", "", "fromDate YYYY-MM-DD (resolve)")
	to := flag.String("to", "", "toDate YYYY-MM-DD (resolve)")
	flag.Parse()

	switch *mode {
	case "api":
		logger.L().Info().Msg("starting API server")

		router, cleanup, err := app.InitializeApp()
		if err != nil {
			logger.L().Fatal().Err(err).Msg("app init error")
		}

		server := startServer(router, *port)
		gracefulShutdown(context.Background(), server, cleanup)

	case "backfill":
		ctx, stop := signalContext()
		defer stop()

		db, err := app.InitPostgres(cfg)
		if err != nil {
			logger.L().Fatal().Err(err).Msg("db connect error")
		}
		defer func() { _ = db.Close() }()
		if err := storage.Migrate(ctx, db); err != nil {
			logger.L().Fatal().Err(err).Msg("migration failed")
		}

		runner := backfill.NewRunner(app.NewSourceRegistry(cfg), storage.NewPriceRepository(db))
		opts := backfill.Options{
			Pairs:    splitList(*pairs),
			Source:   *src,
			Days:     *days,
			Parallel: *parallel,
			Force:    *force,
		}
		if err := runner.Run(ctx, opts); err != nil {
			logger.L().Fatal().Err(err).Msg("backfill failed")
		}
		logger.L().Info().Msg("backfill completed successfully")

	case "import":
		ctx, stop := signalContext()
		defer stop()

		base, quote, err := splitPair(*pair)
		if err != nil || *file == "" {
			logger.L().Fatal().Err(err).Str("file", *file).Msg("import needs --file and --pair BASE/QUOTE")
		}
		srcName, err := importSource(app.NewSourceRegistry(cfg), *src)
		if err != nil {
			logger.L().Fatal().Err(err).Msg("import needs a registered --source")
		}

		db, err := app.InitPostgres(cfg)
		if err != nil {
			logger.L().Fatal().Err(err).Msg("db connect error")
		}
		defer func() { _ = db.Close() }()
		if err := storage.Migrate(ctx, db); err != nil {
			logger.L().Fatal().Err(err).Msg("migration failed")
		}

		n, err := backfill.ImportCSV(ctx, *file, storage.NewPriceRepository(db), srcName, base, quote)
		if err != nil {
			logger.L().Fatal().Err(err).Str("file", *file).Msg("import failed")
		}
		logger.L().Info().Int("rows", n).Str("file", *file).Msg("import completed successfully")

	case "migrate":
		ctx, stop := signalContext()
		defer stop()

		db, err := app.InitPostgres(cfg)
		if err != nil {
			logger.L().Fatal().Err(err).Msg("db connect error")
		}
		defer func() { _ = db.Close() }()
		if err := storage.Migrate(ctx, db); err != nil {
			logger.L().Fatal().Err(err).Msg("migration failed")
		}
		logger.L().Info().Msg("migrations applied")

	case "resolve":
		if err := runResolve(os.Stdout, *from, *to, *days); err != nil {
			fmt.Fprintln(os.Stderr, "resolve:", err)
			os.Exit(1)
		}

	default:
		logger.L().Fatal().Str("mode", *mode).Msg("unknown mode")
	}
}
