package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the full application configuration loaded from environment variables or .env file.
//
// It is composed of smaller structs that represent different concerns of the system:
// the HTTP server, the Postgres price cache, upstream price providers, Ethereum RPC
// endpoints and the scheduled backfill.
//
// Example ENV equivalent:
//
//	SERVER_PORT=8080
//	POSTGRES_HOST=localhost
//	POSTGRES_DB=histavg
//	COINMARKETCAP_API_KEY=xxxx
//	ETHEREUM_RPC_URL=https://mainnet.infura.io/v3/xxxx
//	BACKFILL_CRON=0 1 * * *
type Config struct {
	Server    ServerConfig    // HTTP server configuration
	Postgres  PostgresConfig  // PostgreSQL connection settings
	Providers ProvidersConfig // Historical price sources
	Chain     ChainConfig     // Ethereum-compatible RPC endpoints
	Backfill  BackfillConfig  // Scheduled cache warm-up
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               string        // The TCP port the HTTP server will listen on (e.g., "8080")
	RateLimitPerMinute int           // Requests allowed per client IP per minute
	RequestTimeout     time.Duration // Deadline applied to every request context
}

// PostgresConfig defines connection details for PostgreSQL.
//
// Fields:
//   - Host: hostname of the database server.
//   - Port: port number of the database server (default 5432).
//   - User: username for authentication.
//   - Password: password for authentication.
//   - DBName: target database name.
//   - SSLMode: SSL mode (e.g., "disable", "require").
//   - URL: computed DSN used by database/sql to connect.
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	URL      string
}

// ProvidersConfig configures the upstream market-data APIs.
type ProvidersConfig struct {
	CoinMarketCapAPIKey  string
	CoinMarketCapBaseURL string
	CoinGeckoAPIKey      string
	CoinGeckoBaseURL     string
	RequestsPerSecond    float64       // outbound rate limit, per provider
	HTTPTimeout          time.Duration // per upstream call
}

// ChainConfig holds the JSON-RPC endpoints used for on-chain reads.
type ChainConfig struct {
	EthereumRPCURL string
	PolygonRPCURL  string
	DefaultNetwork string
}

// BackfillConfig drives the cron-triggered price backfill in API mode.
// An empty Cron disables the scheduler.
type BackfillConfig struct {
	Cron     string
	Pairs    []string // BASE/QUOTE, e.g. "ETH/USD"
	Source   string
	Days     int
	Parallel int
}

// AppConfig is the globally accessible configuration instance.
//
// It is populated once via LoadConfig() and used throughout the application.
var AppConfig Config

// LoadConfig initializes the global AppConfig by reading from .env file
// or directly from environment variables.
//
// Precedence (from lowest to highest):
//  1. Defaults set in this function.
//  2. Values from .env file (if present).
//  3. Environment variables.
//
// Fatal exit:
//   - If required variables are missing, validateConfig() will terminate the app
//     with a descriptive log message.
func LoadConfig() {
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("RATE_LIMIT_PER_MINUTE", 60)
	viper.SetDefault("REQUEST_TIMEOUT", "10s")

	viper.SetDefault("POSTGRES_HOST", "localhost")
	viper.SetDefault("POSTGRES_PORT", 5432)
	viper.SetDefault("POSTGRES_USER", "postgres")
	viper.SetDefault("POSTGRES_PASSWORD", "postgres")
	viper.SetDefault("POSTGRES_DB", "histavg")
	viper.SetDefault("POSTGRES_SSLMODE", "disable")

	viper.SetDefault("COINMARKETCAP_BASE_URL", "https://pro-api.coinmarketcap.com")
	viper.SetDefault("COINGECKO_BASE_URL", "https://api.coingecko.com/api/v3")
	viper.SetDefault("PROVIDER_RPS", 5.0)
	viper.SetDefault("PROVIDER_HTTP_TIMEOUT", "15s")

	viper.SetDefault("DEFAULT_NETWORK", "ETHEREUM")

	viper.SetDefault("BACKFILL_CRON", "")
	viper.SetDefault("BACKFILL_PAIRS", "ETH/USD,BTC/USD")
	viper.SetDefault("BACKFILL_SOURCE", "coingecko")
	viper.SetDefault("BACKFILL_DAYS", 30)
	viper.SetDefault("BACKFILL_PARALLEL", 2)

	// Optionally read from .env if present (common in local dev)
	viper.SetConfigFile(".env")
	_ = viper.ReadInConfig() // ignore error if no .env

	viper.AutomaticEnv()

	AppConfig = Config{
		Server: ServerConfig{
			Port:               viper.GetString("SERVER_PORT"),
			RateLimitPerMinute: viper.GetInt("RATE_LIMIT_PER_MINUTE"),
			RequestTimeout:     viper.GetDuration("REQUEST_TIMEOUT"),
		},
		Postgres: PostgresConfig{
			Host:     viper.GetString("POSTGRES_HOST"),
			Port:     viper.GetInt("POSTGRES_PORT"),
			User:     viper.GetString("POSTGRES_USER"),
			Password: viper.GetString("POSTGRES_PASSWORD"),
			DBName:   viper.GetString("POSTGRES_DB"),
			SSLMode:  viper.GetString("POSTGRES_SSLMODE"),
		},
		Providers: ProvidersConfig{
			CoinMarketCapAPIKey:  viper.GetString("COINMARKETCAP_API_KEY"),
			CoinMarketCapBaseURL: viper.GetString("COINMARKETCAP_BASE_URL"),
			CoinGeckoAPIKey:      viper.GetString("COINGECKO_API_KEY"),
			CoinGeckoBaseURL:     viper.GetString("COINGECKO_BASE_URL"),
			RequestsPerSecond:    viper.GetFloat64("PROVIDER_RPS"),
			HTTPTimeout:          viper.GetDuration("PROVIDER_HTTP_TIMEOUT"),
		},
		Chain: ChainConfig{
			EthereumRPCURL: viper.GetString("ETHEREUM_RPC_URL"),
			PolygonRPCURL:  viper.GetString("POLYGON_RPC_URL"),
			DefaultNetwork: strings.ToUpper(viper.GetString("DEFAULT_NETWORK")),
		},
		Backfill: BackfillConfig{
			Cron:     viper.GetString("BACKFILL_CRON"),
			Pairs:    splitList(viper.GetString("BACKFILL_PAIRS")),
			Source:   viper.GetString("BACKFILL_SOURCE"),
			Days:     viper.GetInt("BACKFILL_DAYS"),
			Parallel: viper.GetInt("BACKFILL_PARALLEL"),
		},
	}

	AppConfig.Postgres.URL = BuildPostgresURL(AppConfig.Postgres)

	validateConfig()
}

// BuildPostgresURL constructs the DSN used by database/sql.
func BuildPostgresURL(p PostgresConfig) string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User,
		p.Password,
		p.Host,
		p.Port,
		p.DBName,
		p.SSLMode,
	)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// validateConfig ensures required variables are present and terminates
// the application if they are missing.
//
// Provider API keys and RPC URLs are optional: a missing key only disables
// the corresponding source or network at runtime.
func validateConfig() {
	var missing []string

	if AppConfig.Server.Port == "" {
		missing = append(missing, "SERVER_PORT")
	}
	if AppConfig.Server.RequestTimeout <= 0 {
		missing = append(missing, "REQUEST_TIMEOUT")
	}
	if AppConfig.Postgres.Host == "" {
		missing = append(missing, "POSTGRES_HOST")
	}
	if AppConfig.Postgres.Port == 0 {
		missing = append(missing, "POSTGRES_PORT")
	}
	if AppConfig.Postgres.User == "" {
		missing = append(missing, "POSTGRES_USER")
	}
	if AppConfig.Postgres.Password == "" {
		missing = append(missing, "POSTGRES_PASSWORD")
	}
	if AppConfig.Postgres.DBName == "" {
		missing = append(missing, "POSTGRES_DB")
	}
	if AppConfig.Providers.RequestsPerSecond <= 0 {
		missing = append(missing, "PROVIDER_RPS")
	}

	if len(missing) > 0 {
		log.Fatalf("❌ Missing required environment variables: %v\n", missing)
	}
}
