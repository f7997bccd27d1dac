package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/guttosm/histavg/internal/daterange"
	"github.com/guttosm/histavg/internal/domain/models"
	"github.com/guttosm/histavg/internal/logger"
	"github.com/guttosm/histavg/internal/metrics"
	"github.com/guttosm/histavg/internal/source"
	"github.com/guttosm/histavg/internal/storage"
	"github.com/shopspring/decimal"
)

// averagePlaces is the number of decimal places kept in an average.
const averagePlaces = 8

var (
	// ErrNoPrices means neither the cache nor the provider had a price in range.
	ErrNoPrices = errors.New("no prices found in range")
	// ErrUnknownSource means the requested source is not registered.
	ErrUnknownSource = errors.New("unknown source")
	// ErrProvider wraps every failure of an upstream price provider.
	ErrProvider = errors.New("price provider failed")
)

// AverageService computes historical averages over a resolved date range.
type AverageService interface {
	HistoricalAverage(ctx context.Context, p models.AverageParams) (*models.HistoricalAverage, error)
}

type averageService struct {
	sources *source.Registry
	repo    storage.PriceRepository // nil disables the cache
	now     func() time.Time
}

// NewAverageService wires providers and the optional price cache.
func NewAverageService(sources *source.Registry, repo storage.PriceRepository) AverageService {
	return &averageService{sources: sources, repo: repo, now: time.Now}
}

// HistoricalAverage expects p to have passed validation.Validator.Average.
func (s *averageService) HistoricalAverage(ctx context.Context, p models.AverageParams) (*models.HistoricalAverage, error) {
	provider, ok := s.sources.Get(p.Source)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSource, p.Source)
	}

	days := 0
	if p.Days != nil {
		days = *p.Days
	}
	rng, err := daterange.Resolve(p.FromDate, p.ToDate, days)
	if err != nil {
		return nil, fmt.Errorf("resolve date range: %w", err)
	}

	points, cached, err := s.dailyPrices(ctx, provider, p.From, p.To, rng)
	if err != nil {
		return nil, err
	}
	if len(points) == 0 {
		return nil, ErrNoPrices
	}

	return &models.HistoricalAverage{
		Base:      p.From,
		Quote:     p.To,
		Source:    provider.Name(),
		Range:     rng,
		Points:    len(points),
		Value:     Mean(points),
		FromCache: cached,
	}, nil
}

// dailyPrices serves the range from the cache when every day is present and
// falls back to the provider otherwise, writing fetched days through.
func (s *averageService) dailyPrices(ctx context.Context, p source.Provider, base, quote string, rng daterange.DateRange) ([]models.PricePoint, bool, error) {
	log := logger.With("average")

	if s.repo != nil {
		hit, err := s.repo.GetPrices(ctx, p.Name(), base, quote, rng)
		switch {
		case err != nil:
			metrics.CacheLookup(p.Name(), "error")
			log.Warn().Err(err).Str("source", p.Name()).Msg("price cache read failed")
		case len(hit) == rng.Days():
			metrics.CacheLookup(p.Name(), "hit")
			return hit, true, nil
		default:
			metrics.CacheLookup(p.Name(), "miss")
		}
	}

	points, err := p.DailyPrices(ctx, base, quote, rng)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %w", ErrProvider, err)
	}

	if s.repo != nil {
		if final := s.settled(points); len(final) > 0 {
			if err := s.repo.UpsertPrices(ctx, final); err != nil {
				log.Warn().Err(err).Str("source", p.Name()).Int("points", len(final)).Msg("price cache write failed")
			}
		}
	}
	return points, false, nil
}

// settled drops points for the current UTC day, whose price may still move.
func (s *averageService) settled(points []models.PricePoint) []models.PricePoint {
	today := daterange.Normalize(s.now())
	out := make([]models.PricePoint, 0, len(points))
	for _, pt := range points {
		if pt.Day.Before(today) {
			out = append(out, pt)
		}
	}
	return out
}

// Mean is the arithmetic mean of the prices, rounded to 8 decimal places.
// It returns zero for an empty slice.
func Mean(points []models.PricePoint) decimal.Decimal {
	if len(points) == 0 {
		return decimal.Zero
	}
	sum := decimal.Zero
	for _, p := range points {
		sum = sum.Add(p.Price)
	}
	return sum.Div(decimal.NewFromInt(int64(len(points)))).Round(averagePlaces)
}
