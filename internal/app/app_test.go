package app

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/guttosm/histavg/config"
	"github.com/guttosm/histavg/internal/chain"
	"github.com/guttosm/histavg/internal/logger"
)

func testConfig() config.Config {
	return config.Config{
		Server:    config.ServerConfig{Port: "0", RequestTimeout: time.Second, RateLimitPerMinute: 100},
		Providers: config.ProvidersConfig{CoinGeckoBaseURL: "http://127.0.0.1:1", RequestsPerSecond: 1, HTTPTimeout: time.Second},
		Chain:     config.ChainConfig{DefaultNetwork: chain.NetworkEthereum},
		Backfill:  config.BackfillConfig{Pairs: []string{"ETH/USD"}, Source: "coingecko", Days: 3},
	}
}

// stubDeps swaps every external dependency of InitializeApp.
func stubDeps(t *testing.T, db *sql.DB, migrateErr error) {
	t.Helper()
	logger.InitWithWriter(io.Discard)

	oldCfg, oldOpen, oldMigrate, oldDial := config.AppConfig, postgresOpener, migrateDB, dialChain
	t.Cleanup(func() {
		config.AppConfig, postgresOpener, migrateDB, dialChain = oldCfg, oldOpen, oldMigrate, oldDial
		logger.Init()
	})

	config.AppConfig = testConfig()
	postgresOpener = func(config.Config) (*sql.DB, error) { return db, nil }
	migrateDB = func(context.Context, *sql.DB) error { return migrateErr }
	dialChain = func(context.Context, string, string) (*chain.VaultReader, func(), error) {
		return chain.NewVaultReader(nil), func() {}, nil
	}
}

// TestInitializeApp_DBFailure ensures InitializeApp returns error when DB cannot connect.
func TestInitializeApp_DBFailure(t *testing.T) {
	stubDeps(t, nil, nil)
	postgresOpener = func(config.Config) (*sql.DB, error) { return nil, errors.New("connection refused") }

	r, cleanup, err := InitializeApp()
	if err == nil || r != nil || cleanup != nil {
		if cleanup != nil {
			cleanup()
		}
		t.Fatalf("expected error from InitializeApp with unreachable DB")
	}
}

func TestInitializeApp_MigrationFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	mock.ExpectClose()
	stubDeps(t, db, errors.New("dirty schema"))

	if _, _, err := InitializeApp(); err == nil {
		t.Fatalf("expected migration error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("db not closed after migration failure: %v", err)
	}
}

func TestInitializeApp_BadCronSpec(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	stubDeps(t, db, nil)
	config.AppConfig.Backfill.Cron = "every tuesday"

	if _, _, err := InitializeApp(); err == nil {
		t.Fatalf("expected cron spec error")
	}
}

func TestInitializeApp_HappyPath(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	mock.ExpectPing()
	mock.ExpectClose()
	stubDeps(t, db, nil)
	config.AppConfig.Backfill.Cron = "@daily"

	router, cleanup, err := InitializeApp()
	if err != nil || router == nil || cleanup == nil {
		t.Fatalf("InitializeApp failed: %v", err)
	}

	for path, want := range map[string]int{"/healthz": http.StatusOK, "/readyz": http.StatusOK, "/metrics": http.StatusOK} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != want {
			t.Fatalf("%s status=%d", path, w.Code)
		}
	}

	// no RPC endpoint configured => TVL is unavailable, not a crash
	w := httptest.NewRecorder()
	body := `{"data":{"vaultAddress":"0x1234567890abcdef1234567890abcdef12345678"}}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/tvl", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("tvl status=%d body=%s", w.Code, w.Body.String())
	}

	cleanup()

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestNewSourceRegistry(t *testing.T) {
	logger.InitWithWriter(io.Discard)
	t.Cleanup(logger.Init)

	cfg := testConfig()
	if reg := NewSourceRegistry(cfg); !reg.Has("coingecko") || reg.Has("coinmarketcap") {
		t.Fatalf("without a key only coingecko is expected, got %v", reg.Names())
	}
	cfg.Providers.CoinMarketCapAPIKey = "k"
	if reg := NewSourceRegistry(cfg); !reg.Has("coinmarketcap") {
		t.Fatalf("coinmarketcap missing with key set: %v", reg.Names())
	}
}

func TestBackfillOptions(t *testing.T) {
	cfg := testConfig()
	cfg.Backfill.Parallel = 4
	o := BackfillOptions(cfg)
	if o.Source != "coingecko" || o.Days != 3 || o.Parallel != 4 || len(o.Pairs) != 1 || o.Force {
		t.Fatalf("unexpected options %+v", o)
	}
}
