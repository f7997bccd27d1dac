package models

import (
	"github.com/guttosm/histavg/internal/daterange"
	"github.com/shopspring/decimal"
)

// HistoricalAverage is the arithmetic mean of the daily prices of Base in
// Quote over Range.
//
// Fields:
//   - Points: how many daily prices went into the mean.
//   - FromCache: true when every day was served from the price_history table.
type HistoricalAverage struct {
	Base      string
	Quote     string
	Source    string
	Range     daterange.DateRange
	Points    int
	Value     decimal.Decimal
	FromCache bool
}
