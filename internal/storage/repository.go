package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/guttosm/histavg/internal/daterange"
	"github.com/guttosm/histavg/internal/domain/models"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// PriceRepository defines contract for the price_history cache and the
// backfill audit log.
type PriceRepository interface {
	UpsertPrices(ctx context.Context, points []models.PricePoint) error
	GetPrices(ctx context.Context, source, base, quote string, r daterange.DateRange) ([]models.PricePoint, error)
	DeletePrices(ctx context.Context, source, base, quote string, r daterange.DateRange) (int64, error)
	RecordBackfill(ctx context.Context, entry BackfillEntry) error
	LastBackfill(ctx context.Context, source, base, quote string) (*BackfillEntry, error)
}

// BackfillEntry is one row of backfill_log.
type BackfillEntry struct {
	Source   string
	Base     string
	Quote    string
	Range    daterange.DateRange
	RowCount int
	Origin   string // "provider" or "csv:<file>"
	RanAt    time.Time
}

type priceRepository struct {
	db *sql.DB
}

func NewPriceRepository(db *sql.DB) PriceRepository {
	return &priceRepository{db: db}
}

type pairKey struct{ source, base, quote string }

const upsertPricesSQL = `
		INSERT INTO price_history (source, base, quote, day, price)
		SELECT $1, $2, $3, t.day, t.price
		FROM unnest($4::date[], $5::numeric[]) AS t(day, price)
		ON CONFLICT (source, base, quote, day)
		DO UPDATE SET price = EXCLUDED.price,
					  fetched_at = NOW()`

// UpsertPrices writes points in a single transaction, one statement per
// (source, base, quote) group. Existing days are overwritten.
func (r *priceRepository) UpsertPrices(ctx context.Context, points []models.PricePoint) error {
	if len(points) == 0 {
		return nil
	}

	// group while keeping first-seen order so statements are deterministic
	var order []pairKey
	days := make(map[pairKey][]string)
	prices := make(map[pairKey][]string)
	for _, p := range points {
		k := pairKey{p.Source, p.Base, p.Quote}
		if _, seen := days[k]; !seen {
			order = append(order, k)
		}
		days[k] = append(days[k], daterange.Normalize(p.Day).Format(daterange.DateLayout))
		prices[k] = append(prices[k], p.Price.String())
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for _, k := range order {
		if _, err := tx.ExecContext(ctx, upsertPricesSQL,
			k.source, k.base, k.quote, pq.Array(days[k]), pq.Array(prices[k]),
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("upsert %s %s/%s: %w", k.source, k.base, k.quote, err)
		}
	}
	return tx.Commit()
}

// GetPrices returns the cached days of a pair inside r, ascending.
func (r *priceRepository) GetPrices(ctx context.Context, source, base, quote string, rng daterange.DateRange) ([]models.PricePoint, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT day, price
		FROM price_history
		WHERE source = $1 AND base = $2 AND quote = $3 AND day BETWEEN $4 AND $5
		ORDER BY day`,
		source, base, quote, rng.From(), rng.To(),
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []models.PricePoint
	for rows.Next() {
		var (
			day   time.Time
			price decimal.Decimal
		)
		if err := rows.Scan(&day, &price); err != nil {
			return nil, err
		}
		out = append(out, models.PricePoint{
			Source: source,
			Base:   base,
			Quote:  quote,
			Day:    daterange.Normalize(day),
			Price:  price,
		})
	}
	return out, rows.Err()
}

// DeletePrices removes the cached days of a pair inside r.
func (r *priceRepository) DeletePrices(ctx context.Context, source, base, quote string, rng daterange.DateRange) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM price_history WHERE source = $1 AND base = $2 AND quote = $3 AND day BETWEEN $4 AND $5`,
		source, base, quote, rng.From(), rng.To(),
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// RecordBackfill appends an entry to backfill_log.
func (r *priceRepository) RecordBackfill(ctx context.Context, e BackfillEntry) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO backfill_log (source, base, quote, day_from, day_to, row_count, origin)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		e.Source, e.Base, e.Quote, e.Range.From(), e.Range.To(), e.RowCount, e.Origin,
	)
	return err
}

// LastBackfill returns the most recent backfill of a pair, or nil if none.
func (r *priceRepository) LastBackfill(ctx context.Context, source, base, quote string) (*BackfillEntry, error) {
	var (
		from, to time.Time
		e        = BackfillEntry{Source: source, Base: base, Quote: quote}
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT day_from, day_to, row_count, origin, ran_at
		FROM backfill_log
		WHERE source = $1 AND base = $2 AND quote = $3
		ORDER BY ran_at DESC
		LIMIT 1`,
		source, base, quote,
	).Scan(&from, &to, &e.RowCount, &e.Origin, &e.RanAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	e.Range = daterange.New(from, to)
	return &e, nil
}
