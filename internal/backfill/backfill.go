// Package backfill warms the price_history cache ahead of requests, either
// from a price source or from a CSV seed file.
package backfill

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/guttosm/histavg/internal/daterange"
	"github.com/guttosm/histavg/internal/domain/models"
	"github.com/guttosm/histavg/internal/logger"
	"github.com/guttosm/histavg/internal/source"
	"github.com/guttosm/histavg/internal/storage"
)

const (
	maxParallel = 8
	maxDays     = 365
	// OriginProvider marks backfill_log rows written by Run.
	OriginProvider = "provider"
)

// Options controls one backfill run.
//
//   - Pairs: "BASE/QUOTE" symbols, e.g. "ETH/USD".
//   - Source: registered provider name.
//   - Days: window length ending today, clamped to 1..365.
//   - Parallel: concurrent pairs; 0 means min(8, NumCPU).
//   - Force: refetch even if the last run already covered the window.
type Options struct {
	Pairs    []string
	Source   string
	Days     int
	Parallel int
	Force    bool
}

// Pair is a parsed BASE/QUOTE symbol pair.
type Pair struct {
	Base  string
	Quote string
}

func (p Pair) String() string { return p.Base + "/" + p.Quote }

// ParsePair parses "BASE/QUOTE", upper-casing both symbols.
func ParsePair(s string) (Pair, error) {
	base, quote, ok := strings.Cut(strings.TrimSpace(s), "/")
	base = strings.ToUpper(strings.TrimSpace(base))
	quote = strings.ToUpper(strings.TrimSpace(quote))
	if !ok || base == "" || quote == "" || strings.Contains(quote, "/") {
		return Pair{}, fmt.Errorf("invalid pair %q, expected BASE/QUOTE", s)
	}
	return Pair{Base: base, Quote: quote}, nil
}

// Runner fetches daily prices from a source and stores them.
type Runner struct {
	sources *source.Registry
	repo    storage.PriceRepository
	now     func() time.Time
}

// NewRunner builds a Runner over the given providers and cache.
func NewRunner(sources *source.Registry, repo storage.PriceRepository) *Runner {
	return &Runner{sources: sources, repo: repo, now: time.Now}
}

// Run backfills every pair of opts over the window ending today.
//
// Behavior:
//   - All pairs are parsed up front; a malformed pair fails the run before any fetch.
//   - Pairs are processed concurrently with a bounded semaphore.
//   - A pair whose last provider backfill already covers the settled part of
//     the window is skipped unless Force is set; Force deletes the window first.
//   - Only settled days (before today, UTC) are written.
//   - The first failing pair cancels the others and its error is returned.
func (r *Runner) Run(ctx context.Context, opts Options) error {
	provider, ok := r.sources.Get(opts.Source)
	if !ok {
		return fmt.Errorf("unknown source %q", opts.Source)
	}

	pairs := make([]Pair, 0, len(opts.Pairs))
	for _, s := range opts.Pairs {
		p, err := ParsePair(s)
		if err != nil {
			return err
		}
		pairs = append(pairs, p)
	}
	if len(pairs) == 0 {
		return fmt.Errorf("no pairs to backfill")
	}

	days := opts.Days
	if days < 1 {
		days = 1
	}
	if days > maxDays {
		days = maxDays
	}

	now := r.now()
	window := daterange.Last(days, now)
	settled := daterange.New(window.From(), window.To().AddDate(0, 0, -1))

	parallel := maxParallel
	if opts.Parallel > 0 {
		parallel = min(opts.Parallel, maxParallel)
	} else if c := runtime.NumCPU(); c < parallel {
		parallel = c
	}

	log := logger.With("backfill")
	log.Info().
		Str("source", provider.Name()).
		Int("pairs", len(pairs)).
		Stringer("window", window).
		Int("max_parallel", parallel).
		Bool("force", opts.Force).
		Msg("backfill start")

	g, gctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, parallel)

loop:
	for i, pair := range pairs {
		idx := i
		p := pair
		if gctx.Err() != nil {
			break
		}
		select {
		case sem <- struct{}{}:
		case <-gctx.Done():
			break loop
		}

		g.Go(func() error {
			defer func() { <-sem }()
			start := time.Now()

			if !opts.Force {
				last, err := r.repo.LastBackfill(gctx, provider.Name(), p.Base, p.Quote)
				if err != nil {
					return fmt.Errorf("pair %s: read backfill log: %w", p, err)
				}
				if covers(last, settled) {
					log.Info().Int("idx", idx+1).Int("total", len(pairs)).Stringer("pair", p).Bool("skipped", true).Msg("already backfilled")
					return nil
				}
			} else {
				n, err := r.repo.DeletePrices(gctx, provider.Name(), p.Base, p.Quote, window)
				if err != nil {
					return fmt.Errorf("pair %s: delete existing: %w", p, err)
				}
				log.Debug().Stringer("pair", p).Int64("deleted", n).Msg("cleared window")
			}

			points, err := provider.DailyPrices(gctx, p.Base, p.Quote, window)
			if err != nil {
				log.Error().Stringer("pair", p).Dur("elapsed", time.Since(start)).Err(err).Msg("pair failed")
				return fmt.Errorf("pair %s: fetch: %w", p, err)
			}
			points = beforeDay(points, window.To())

			if err := r.repo.UpsertPrices(gctx, points); err != nil {
				return fmt.Errorf("pair %s: upsert: %w", p, err)
			}
			if err := r.repo.RecordBackfill(gctx, storage.BackfillEntry{
				Source:   provider.Name(),
				Base:     p.Base,
				Quote:    p.Quote,
				Range:    settled,
				RowCount: len(points),
				Origin:   OriginProvider,
			}); err != nil {
				return fmt.Errorf("pair %s: record backfill: %w", p, err)
			}

			log.Info().Int("idx", idx+1).Int("total", len(pairs)).Stringer("pair", p).Int("rows", len(points)).Dur("elapsed", time.Since(start)).Msg("pair done")
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// covers reports whether a previous provider run already wrote rng.
func covers(last *storage.BackfillEntry, rng daterange.DateRange) bool {
	if last == nil || last.Origin != OriginProvider {
		return false
	}
	return !last.Range.From().After(rng.From()) && !last.Range.To().Before(rng.To())
}

func beforeDay(points []models.PricePoint, day time.Time) []models.PricePoint {
	out := points[:0:0]
	for _, p := range points {
		if p.Day.Before(day) {
			out = append(out, p)
		}
	}
	return out
}
