package backfill

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/guttosm/histavg/internal/daterange"
	"github.com/guttosm/histavg/internal/domain/models"
	"github.com/guttosm/histavg/internal/storage"
	"github.com/shopspring/decimal"
)

// csvHeader is the exact header a seed file must start with.
var csvHeader = []string{"day", "price"}

// defaultBatchSize is the number of rows per UpsertPrices call.
const defaultBatchSize = 1000

// ImportCSV loads a semicolon-separated seed file of daily prices for one
// pair into the cache and records it in backfill_log.
//
// Format:
//
//	day;price
//	2021-11-01;4321.12
//	2021-11-02;4398,50
//
// It fails on:
//   - a header other than exactly "day;price"
//   - a row with a wrong column count, a bad date or a bad price
//   - a day that appears twice
//
// A comma is accepted as decimal separator. Rows are written in batches;
// an error mid-file leaves earlier batches in place.
func ImportCSV(ctx context.Context, path string, repo storage.PriceRepository, src, base, quote string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open: %w", err)
	}
	defer func() { _ = f.Close() }()

	base, quote = strings.ToUpper(base), strings.ToUpper(quote)
	src = strings.ToLower(src)

	total, rng, err := importRecords(ctx, f, repo, src, base, quote, defaultBatchSize)
	if err != nil {
		return 0, err
	}
	if total == 0 {
		return 0, nil
	}

	if err := repo.RecordBackfill(ctx, storage.BackfillEntry{
		Source:   src,
		Base:     base,
		Quote:    quote,
		Range:    rng,
		RowCount: total,
		Origin:   "csv:" + filepath.Base(path),
	}); err != nil {
		return 0, fmt.Errorf("record backfill: %w", err)
	}
	return total, nil
}

func importRecords(ctx context.Context, in io.Reader, repo storage.PriceRepository, src, base, quote string, batch int) (int, daterange.DateRange, error) {
	r := csv.NewReader(in)
	r.Comma = ';'
	r.TrimLeadingSpace = true
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return 0, daterange.DateRange{}, fmt.Errorf("read header: %w", err)
	}
	if len(header) != len(csvHeader) {
		return 0, daterange.DateRange{}, fmt.Errorf("invalid header length: expected %d, got %d", len(csvHeader), len(header))
	}
	for i, h := range header {
		if strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))) != csvHeader[i] {
			return 0, daterange.DateRange{}, fmt.Errorf("invalid header at col %d: expected %q, got %q", i+1, csvHeader[i], h)
		}
	}

	var (
		buf        = make([]models.PricePoint, 0, batch)
		seen       = make(map[string]int)
		lineNumber = 1
		total      int
		rng        daterange.DateRange
	)

	flush := func() error {
		if len(buf) == 0 {
			return nil
		}
		if err := repo.UpsertPrices(ctx, buf); err != nil {
			return err
		}
		buf = buf[:0]
		return nil
	}

	for {
		if err := ctx.Err(); err != nil {
			return 0, daterange.DateRange{}, err
		}

		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return 0, daterange.DateRange{}, fmt.Errorf("read line after %d: %w", lineNumber, err)
		}
		lineNumber++

		if len(rec) != len(csvHeader) {
			return 0, daterange.DateRange{}, fmt.Errorf("invalid column count on line %d: expected %d got %d", lineNumber, len(csvHeader), len(rec))
		}

		pt, err := recordToPoint(rec, src, base, quote)
		if err != nil {
			return 0, daterange.DateRange{}, fmt.Errorf("line %d: %w", lineNumber, err)
		}
		key := pt.Day.Format(daterange.DateLayout)
		if prev, dup := seen[key]; dup {
			return 0, daterange.DateRange{}, fmt.Errorf("line %d: day %s already on line %d", lineNumber, key, prev)
		}
		seen[key] = lineNumber

		if total == 0 {
			rng = daterange.New(pt.Day, pt.Day)
		} else {
			rng = widen(rng, pt.Day)
		}

		buf = append(buf, pt)
		total++
		if len(buf) >= batch {
			if err := flush(); err != nil {
				return 0, daterange.DateRange{}, fmt.Errorf("flush batch ending line %d: %w", lineNumber, err)
			}
		}
	}

	if err := flush(); err != nil {
		return 0, daterange.DateRange{}, fmt.Errorf("final flush: %w", err)
	}
	return total, rng, nil
}

func recordToPoint(rec []string, src, base, quote string) (models.PricePoint, error) {
	day, err := daterange.Parse(strings.TrimSpace(rec[0]))
	if err != nil {
		return models.PricePoint{}, fmt.Errorf("invalid day: %w", err)
	}
	raw := strings.ReplaceAll(strings.TrimSpace(rec[1]), ",", ".")
	price, err := decimal.NewFromString(raw)
	if err != nil {
		return models.PricePoint{}, fmt.Errorf("invalid price %q: %w", rec[1], err)
	}
	if price.IsNegative() {
		return models.PricePoint{}, fmt.Errorf("negative price %s", price)
	}
	return models.PricePoint{Source: src, Base: base, Quote: quote, Day: day, Price: price}, nil
}

func widen(r daterange.DateRange, day time.Time) daterange.DateRange {
	from, to := r.From(), r.To()
	if day.Before(from) {
		from = day
	}
	if day.After(to) {
		to = day
	}
	return daterange.New(from, to)
}
