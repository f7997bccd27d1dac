// Package source fetches daily historical prices from third-party market-data
// APIs.
package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/guttosm/histavg/internal/daterange"
	"github.com/guttosm/histavg/internal/domain/models"
	"github.com/guttosm/histavg/internal/metrics"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

// maxErrorBody caps how much of a failed upstream body ends up in errors.
const maxErrorBody = 512

// Provider returns one price per UTC calendar day for BASE in QUOTE over an
// inclusive range. Days the upstream has no data for are simply absent.
type Provider interface {
	Name() string
	DailyPrices(ctx context.Context, base, quote string, r daterange.DateRange) ([]models.PricePoint, error)
}

// UpstreamError reports a non-2xx answer or an API-level error from a provider.
type UpstreamError struct {
	Source     string
	StatusCode int
	Message    string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: upstream status %d: %s", e.Source, e.StatusCode, e.Message)
}

// Registry maps lower-cased source names to providers.
type Registry struct {
	providers map[string]Provider
}

// NewRegistry indexes the given providers by Name().
func NewRegistry(ps ...Provider) *Registry {
	r := &Registry{providers: make(map[string]Provider, len(ps))}
	for _, p := range ps {
		r.providers[strings.ToLower(p.Name())] = p
	}
	return r
}

// Get looks a provider up by name, case-insensitively.
func (r *Registry) Get(name string) (Provider, bool) {
	p, ok := r.providers[strings.ToLower(name)]
	return p, ok
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.Get(name)
	return ok
}

// Names lists the registered sources in alphabetical order.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.providers))
	for name := range r.providers {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// observation is a single timestamped price as returned upstream.
type observation struct {
	at    time.Time
	price decimal.Decimal
}

// bucketDaily keeps the latest observation of every UTC day inside r and
// returns the points in ascending day order.
func bucketDaily(src, base, quote string, r daterange.DateRange, obs []observation) []models.PricePoint {
	sort.SliceStable(obs, func(i, j int) bool { return obs[i].at.Before(obs[j].at) })

	byDay := make(map[time.Time]decimal.Decimal)
	for _, o := range obs {
		if !r.Contains(o.at) {
			continue
		}
		byDay[daterange.Normalize(o.at)] = o.price
	}

	out := make([]models.PricePoint, 0, len(byDay))
	for day, p := range byDay {
		out = append(out, models.PricePoint{Source: src, Base: base, Quote: quote, Day: day, Price: p})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day.Before(out[j].Day) })
	return out
}

// fetchJSON waits for the limiter, performs req and decodes a 2xx JSON body
// into out. Latency is recorded under the provider name.
func fetchJSON(ctx context.Context, client *http.Client, limiter *rate.Limiter, name string, req *http.Request, out any) error {
	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%s: rate limiter: %w", name, err)
	}

	start := time.Now()
	err := doJSON(client, name, req.WithContext(ctx), out)
	metrics.ObserveUpstream(name, err, time.Since(start))
	return err
}

func doJSON(client *http.Client, name string, req *http.Request, out any) error {
	req.Header.Set("Accept", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: request: %w", name, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &UpstreamError{Source: name, StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", name, err)
	}
	return nil
}

func newLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}
