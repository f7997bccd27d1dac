package source

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/guttosm/histavg/internal/daterange"
	"github.com/guttosm/histavg/internal/domain/models"
	"github.com/guttosm/histavg/internal/logger"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

// CoinMarketCapName is the source name clients put in a job request.
const CoinMarketCapName = "coinmarketcap"

const cmcHistoricalPath = "/v2/cryptocurrency/quotes/historical"

// CoinMarketCap reads daily quotes from the CoinMarketCap Pro API.
type CoinMarketCap struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	log        zerolog.Logger
}

// NewCoinMarketCap builds a client. rps <= 0 disables outbound throttling.
func NewCoinMarketCap(baseURL, apiKey string, httpClient *http.Client, rps float64) *CoinMarketCap {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &CoinMarketCap{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: httpClient,
		limiter:    newLimiter(rps),
		log:        logger.With(CoinMarketCapName),
	}
}

func (c *CoinMarketCap) Name() string { return CoinMarketCapName }

type cmcStatus struct {
	ErrorCode    int     `json:"error_code"`
	ErrorMessage *string `json:"error_message"`
}

type cmcHistoricalResponse struct {
	Status cmcStatus                  `json:"status"`
	Data   map[string][]cmcAssetQuote `json:"data"` // keyed by symbol
}

type cmcAssetQuote struct {
	ID     int        `json:"id"`
	Symbol string     `json:"symbol"`
	Quotes []cmcQuote `json:"quotes"`
}

type cmcQuote struct {
	Timestamp string                   `json:"timestamp"`
	Quote     map[string]cmcPriceQuote `json:"quote"` // keyed by convert currency
}

type cmcPriceQuote struct {
	Price decimal.Decimal `json:"price"`
}

// DailyPrices implements Provider.
func (c *CoinMarketCap) DailyPrices(ctx context.Context, base, quote string, r daterange.DateRange) ([]models.PricePoint, error) {
	q := url.Values{}
	q.Set("symbol", base)
	q.Set("convert", quote)
	q.Set("interval", "daily")
	q.Set("time_start", r.From().Format(time.RFC3339))
	q.Set("time_end", r.To().Add(24*time.Hour-time.Second).Format(time.RFC3339))

	req, err := http.NewRequest(http.MethodGet, c.baseURL+cmcHistoricalPath+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", CoinMarketCapName, err)
	}
	if c.apiKey != "" {
		req.Header.Set("X-CMC_PRO_API_KEY", c.apiKey)
	}

	var body cmcHistoricalResponse
	if err := fetchJSON(ctx, c.httpClient, c.limiter, CoinMarketCapName, req, &body); err != nil {
		return nil, err
	}
	if body.Status.ErrorCode != 0 {
		msg := ""
		if body.Status.ErrorMessage != nil {
			msg = *body.Status.ErrorMessage
		}
		return nil, &UpstreamError{Source: CoinMarketCapName, StatusCode: body.Status.ErrorCode, Message: msg}
	}

	var obs []observation
	for _, asset := range body.Data[base] {
		for _, qt := range asset.Quotes {
			pq, ok := qt.Quote[quote]
			if !ok {
				continue
			}
			at, err := time.Parse(time.RFC3339Nano, qt.Timestamp)
			if err != nil {
				c.log.Warn().Str("timestamp", qt.Timestamp).Err(err).Msg("skipping quote with bad timestamp")
				continue
			}
			obs = append(obs, observation{at: at, price: pq.Price})
		}
	}

	points := bucketDaily(CoinMarketCapName, base, quote, r, obs)
	c.log.Debug().Str("pair", base+"/"+quote).Stringer("range", r).Int("points", len(points)).Msg("daily prices fetched")
	return points, nil
}
