package app

import (
	"net/http"

	"github.com/guttosm/histavg/config"
	"github.com/guttosm/histavg/internal/logger"
	"github.com/guttosm/histavg/internal/source"
)

// NewSourceRegistry builds the price providers enabled by cfg.
//
// CoinGecko is always registered (its public API works without a key).
// CoinMarketCap requires COINMARKETCAP_API_KEY and is skipped without one.
func NewSourceRegistry(cfg config.Config) *source.Registry {
	client := &http.Client{Timeout: cfg.Providers.HTTPTimeout}
	p := cfg.Providers

	providers := []source.Provider{
		source.NewCoinGecko(p.CoinGeckoBaseURL, p.CoinGeckoAPIKey, client, p.RequestsPerSecond),
	}
	if p.CoinMarketCapAPIKey != "" {
		providers = append(providers, source.NewCoinMarketCap(p.CoinMarketCapBaseURL, p.CoinMarketCapAPIKey, client, p.RequestsPerSecond))
	} else {
		logger.L().Warn().Msg("COINMARKETCAP_API_KEY not set, coinmarketcap source disabled")
	}

	reg := source.NewRegistry(providers...)
	logger.L().Info().Strs("sources", reg.Names()).Msg("price sources ready")
	return reg
}
