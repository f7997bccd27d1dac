package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PricePoint is one daily observation of BASE priced in QUOTE, as reported by
// a named source. Day is always midnight UTC.
type PricePoint struct {
	Source string
	Base   string
	Quote  string
	Day    time.Time
	Price  decimal.Decimal
}
