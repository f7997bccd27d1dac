package storage

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/guttosm/histavg/internal/daterange"
	"github.com/guttosm/histavg/internal/domain/models"
	"github.com/shopspring/decimal"
)

type dummyErr struct{}

func (dummyErr) Error() string { return "dummy" }

func newMockRepo(t *testing.T) (*priceRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	repo := &priceRepository{db: db}
	cleanup := func() { _ = db.Close() }
	return repo, mock, cleanup
}

func day(s string) time.Time {
	d, err := daterange.Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}

func point(src, base, quote, d, price string) models.PricePoint {
	return models.PricePoint{Source: src, Base: base, Quote: quote, Day: day(d), Price: decimal.RequireFromString(price)}
}

var upsertRegex = `INSERT INTO price_history \(source, base, quote, day, price\)\s+SELECT .* FROM unnest\(\$4::date\[\], \$5::numeric\[\]\)`

func TestUpsertPrices_SQLMock(t *testing.T) {
	repo, mock, done := newMockRepo(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectExec(upsertRegex).
		WithArgs("coingecko", "ETH", "USD", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(upsertRegex).
		WithArgs("coingecko", "BTC", "USD", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.UpsertPrices(context.Background(), []models.PricePoint{
		point("coingecko", "ETH", "USD", "2021-11-01", "4300.5"),
		point("coingecko", "BTC", "USD", "2021-11-01", "61000"),
		point("coingecko", "ETH", "USD", "2021-11-02", "4400"),
	})
	if err != nil {
		t.Fatalf("UpsertPrices: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUpsertPrices_Empty(t *testing.T) {
	repo, mock, done := newMockRepo(t)
	defer done()
	if err := repo.UpsertPrices(context.Background(), nil); err != nil {
		t.Fatalf("UpsertPrices(nil): %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("no statements expected: %v", err)
	}
}

func TestUpsertPrices_Errors(t *testing.T) {
	cases := []struct {
		name  string
		setup func(sqlmock.Sqlmock)
	}{
		{
			name: "begin fails",
			setup: func(m sqlmock.Sqlmock) {
				m.ExpectBegin().WillReturnError(dummyErr{})
			},
		},
		{
			name: "exec fails and rolls back",
			setup: func(m sqlmock.Sqlmock) {
				m.ExpectBegin()
				m.ExpectExec(upsertRegex).WillReturnError(dummyErr{})
				m.ExpectRollback()
			},
		},
		{
			name: "commit fails",
			setup: func(m sqlmock.Sqlmock) {
				m.ExpectBegin()
				m.ExpectExec(upsertRegex).WillReturnResult(sqlmock.NewResult(0, 1))
				m.ExpectCommit().WillReturnError(dummyErr{})
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo, mock, done := newMockRepo(t)
			defer done()
			tc.setup(mock)
			err := repo.UpsertPrices(context.Background(), []models.PricePoint{point("coingecko", "ETH", "USD", "2021-11-01", "1")})
			if err == nil {
				t.Fatalf("expected error")
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Fatalf("unmet expectations: %v", err)
			}
		})
	}
}

func TestGetPrices_SQLMock(t *testing.T) {
	repo, mock, done := newMockRepo(t)
	defer done()

	rng, _ := daterange.Resolve("2021-11-01", "2021-11-03", 0)
	rows := sqlmock.NewRows([]string{"day", "price"}).
		AddRow(time.Date(2021, 11, 1, 0, 0, 0, 0, time.UTC), "4300.5").
		AddRow(time.Date(2021, 11, 3, 0, 0, 0, 0, time.UTC), "4500")

	mock.ExpectQuery(`SELECT day, price\s+FROM price_history\s+WHERE source = \$1 AND base = \$2 AND quote = \$3 AND day BETWEEN \$4 AND \$5\s+ORDER BY day`).
		WithArgs("coingecko", "ETH", "USD", rng.From(), rng.To()).
		WillReturnRows(rows)

	out, err := repo.GetPrices(context.Background(), "coingecko", "ETH", "USD", rng)
	if err != nil {
		t.Fatalf("GetPrices: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("want 2 points, got %d", len(out))
	}
	if out[0].Price.String() != "4300.5" || !out[1].Day.Equal(day("2021-11-03")) || out[1].Source != "coingecko" {
		t.Fatalf("unexpected points: %+v", out)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestGetPrices_QueryError(t *testing.T) {
	repo, mock, done := newMockRepo(t)
	defer done()
	mock.ExpectQuery("SELECT day, price").WillReturnError(dummyErr{})
	if _, err := repo.GetPrices(context.Background(), "s", "A", "B", daterange.Last(1, time.Now())); err == nil {
		t.Fatalf("expected error")
	}
}

func TestDeletePrices_SQLMock(t *testing.T) {
	repo, mock, done := newMockRepo(t)
	defer done()

	rng, _ := daterange.Resolve("", "2021-11-08", 7)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM price_history WHERE source = $1 AND base = $2 AND quote = $3 AND day BETWEEN $4 AND $5")).
		WithArgs("coingecko", "ETH", "USD", rng.From(), rng.To()).
		WillReturnResult(sqlmock.NewResult(0, 8))

	n, err := repo.DeletePrices(context.Background(), "coingecko", "ETH", "USD", rng)
	if err != nil || n != 8 {
		t.Fatalf("DeletePrices: n=%d err=%v", n, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestBackfillLog_SQLMock(t *testing.T) {
	repo, mock, done := newMockRepo(t)
	defer done()

	rng, _ := daterange.Resolve("", "2021-11-08", 7)
	entry := BackfillEntry{Source: "coingecko", Base: "ETH", Quote: "USD", Range: rng, RowCount: 8, Origin: "provider"}

	mock.ExpectExec(`INSERT INTO backfill_log`).
		WithArgs("coingecko", "ETH", "USD", rng.From(), rng.To(), 8, "provider").
		WillReturnResult(sqlmock.NewResult(1, 1))
	if err := repo.RecordBackfill(context.Background(), entry); err != nil {
		t.Fatalf("RecordBackfill: %v", err)
	}

	ranAt := time.Date(2021, 11, 8, 1, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT day_from, day_to, row_count, origin, ran_at\s+FROM backfill_log`).
		WithArgs("coingecko", "ETH", "USD").
		WillReturnRows(sqlmock.NewRows([]string{"day_from", "day_to", "row_count", "origin", "ran_at"}).
			AddRow(rng.From(), rng.To(), 8, "provider", ranAt))
	got, err := repo.LastBackfill(context.Background(), "coingecko", "ETH", "USD")
	if err != nil || got == nil {
		t.Fatalf("LastBackfill: got=%v err=%v", got, err)
	}
	if got.Range != rng || got.RowCount != 8 || !got.RanAt.Equal(ranAt) {
		t.Fatalf("unexpected entry %+v", got)
	}

	mock.ExpectQuery(`FROM backfill_log`).
		WithArgs("coingecko", "BTC", "USD").
		WillReturnError(sql.ErrNoRows)
	none, err := repo.LastBackfill(context.Background(), "coingecko", "BTC", "USD")
	if err != nil || none != nil {
		t.Fatalf("want nil,nil got %v,%v", none, err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestNewPriceRepository_Construct(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer func() { _ = db.Close() }()
	if NewPriceRepository(db) == nil {
		t.Fatalf("expected non-nil repository")
	}
}
