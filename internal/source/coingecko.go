package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/guttosm/histavg/internal/daterange"
	"github.com/guttosm/histavg/internal/domain/models"
	"github.com/guttosm/histavg/internal/logger"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

// CoinGeckoName is the source name clients put in a job request.
const CoinGeckoName = "coingecko"

// defaultCoinIDs maps common ticker symbols to CoinGecko coin ids. Symbols not
// listed are looked up by their lower-cased form.
var defaultCoinIDs = map[string]string{
	"BTC":   "bitcoin",
	"ETH":   "ethereum",
	"LINK":  "chainlink",
	"USDC":  "usd-coin",
	"USDT":  "tether",
	"DAI":   "dai",
	"MATIC": "matic-network",
	"SOL":   "solana",
	"BNB":   "binancecoin",
	"AVAX":  "avalanche-2",
}

// CoinGecko reads daily prices from the CoinGecko market_chart/range endpoint.
type CoinGecko struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	coinIDs    map[string]string
	log        zerolog.Logger
}

// NewCoinGecko builds a client. rps <= 0 disables outbound throttling.
func NewCoinGecko(baseURL, apiKey string, httpClient *http.Client, rps float64) *CoinGecko {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &CoinGecko{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: httpClient,
		limiter:    newLimiter(rps),
		coinIDs:    defaultCoinIDs,
		log:        logger.With(CoinGeckoName),
	}
}

func (c *CoinGecko) Name() string { return CoinGeckoName }

type geckoRangeResponse struct {
	Prices [][]json.Number `json:"prices"` // [unix millis, price]
}

// DailyPrices implements Provider.
func (c *CoinGecko) DailyPrices(ctx context.Context, base, quote string, r daterange.DateRange) ([]models.PricePoint, error) {
	id := c.coinID(base)

	q := url.Values{}
	q.Set("vs_currency", strings.ToLower(quote))
	q.Set("from", strconv.FormatInt(r.From().Unix(), 10))
	q.Set("to", strconv.FormatInt(r.To().AddDate(0, 0, 1).Unix()-1, 10))

	endpoint := fmt.Sprintf("%s/coins/%s/market_chart/range?%s", c.baseURL, url.PathEscape(id), q.Encode())
	req, err := http.NewRequest(http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", CoinGeckoName, err)
	}
	if c.apiKey != "" {
		req.Header.Set("x-cg-pro-api-key", c.apiKey)
	}

	var body geckoRangeResponse
	if err := fetchJSON(ctx, c.httpClient, c.limiter, CoinGeckoName, req, &body); err != nil {
		return nil, err
	}

	obs := make([]observation, 0, len(body.Prices))
	for _, row := range body.Prices {
		if len(row) < 2 {
			continue
		}
		ms, err := row[0].Int64()
		if err != nil {
			c.log.Warn().Str("timestamp", row[0].String()).Err(err).Msg("skipping price with bad timestamp")
			continue
		}
		price, err := decimal.NewFromString(row[1].String())
		if err != nil {
			c.log.Warn().Str("price", row[1].String()).Err(err).Msg("skipping unparsable price")
			continue
		}
		obs = append(obs, observation{at: time.UnixMilli(ms).UTC(), price: price})
	}

	points := bucketDaily(CoinGeckoName, base, quote, r, obs)
	c.log.Debug().Str("pair", base+"/"+quote).Str("coin_id", id).Stringer("range", r).Int("points", len(points)).Msg("daily prices fetched")
	return points, nil
}

func (c *CoinGecko) coinID(symbol string) string {
	if id, ok := c.coinIDs[strings.ToUpper(symbol)]; ok {
		return id
	}
	return strings.ToLower(symbol)
}
