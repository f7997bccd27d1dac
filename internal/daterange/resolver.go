// Package daterange turns a partially specified historical window into a
// concrete [From, To] pair of calendar days anchored at midnight UTC.
package daterange

import (
	"encoding/json"
	"errors"
	"time"
)

const secondsPerDay = 24 * 60 * 60

// DateLayout is the calendar-date format accepted by Parse.
const DateLayout = "2006-01-02"

// ISOLayout renders a resolved boundary as an ISO-8601 UTC instant with
// millisecond precision, e.g. 2021-11-01T00:00:00.000Z.
const ISOLayout = "2006-01-02T15:04:05.000Z07:00"

// ErrNoBoundary is returned when neither fromDate nor toDate was supplied.
// Request validation rejects such input before Resolve is reached.
var ErrNoBoundary = errors.New("daterange: neither fromDate nor toDate supplied")

// DateRange is an inclusive window of calendar days. The zero value is not a
// meaningful range; obtain one from Resolve or New.
type DateRange struct {
	from time.Time
	to   time.Time
}

// New builds a DateRange from two instants, normalizing both to midnight UTC.
// Ordering is not checked.
func New(from, to time.Time) DateRange {
	return DateRange{from: Normalize(from), to: Normalize(to)}
}

// From returns the inclusive start day.
func (r DateRange) From() time.Time { return r.from }

// To returns the inclusive end day.
func (r DateRange) To() time.Time { return r.to }

// Days returns the number of calendar days covered, both ends included.
func (r DateRange) Days() int {
	return int((r.to.Unix()-r.from.Unix())/secondsPerDay) + 1
}

// Contains reports whether t falls on a calendar day inside the range.
func (r DateRange) Contains(t time.Time) bool {
	d := Normalize(t)
	return !d.Before(r.from) && !d.After(r.to)
}

// EachDay calls fn for every day of the range in ascending order.
func (r DateRange) EachDay(fn func(day time.Time)) {
	for d := r.from; !d.After(r.to); d = d.AddDate(0, 0, 1) {
		fn(d)
	}
}

func (r DateRange) String() string {
	return r.from.Format(ISOLayout) + "/" + r.to.Format(ISOLayout)
}

// MarshalJSON encodes the range as {"fromDate": ..., "toDate": ...}.
func (r DateRange) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		FromDate string `json:"fromDate"`
		ToDate   string `json:"toDate"`
	}{
		FromDate: r.from.Format(ISOLayout),
		ToDate:   r.to.Format(ISOLayout),
	})
}

// Normalize returns midnight UTC of the UTC calendar day of t.
func Normalize(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Parse reads a calendar date. YYYY-MM-DD is the canonical form; a full
// RFC 3339 timestamp is accepted and reduced to its UTC day. The error of the
// canonical layout is returned unwrapped when neither form matches.
func Parse(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err == nil {
		return Normalize(t), nil
	}
	if ts, tsErr := time.Parse(time.RFC3339Nano, s); tsErr == nil {
		return Normalize(ts), nil
	}
	return time.Time{}, err
}

// Resolve fills in a missing boundary.
//
// Both boundaries present: days is ignored and the pair is returned as given.
// Only fromDate: To = From + days. Only toDate: From = To - days.
// An empty string means the boundary is absent.
//
// Resolve does not check From <= To nor days > 0.
func Resolve(fromDate, toDate string, days int) (DateRange, error) {
	switch {
	case fromDate != "" && toDate != "":
		from, err := Parse(fromDate)
		if err != nil {
			return DateRange{}, err
		}
		to, err := Parse(toDate)
		if err != nil {
			return DateRange{}, err
		}
		return DateRange{from: from, to: to}, nil

	case fromDate != "":
		from, err := Parse(fromDate)
		if err != nil {
			return DateRange{}, err
		}
		return DateRange{from: from, to: from.AddDate(0, 0, days)}, nil

	case toDate != "":
		to, err := Parse(toDate)
		if err != nil {
			return DateRange{}, err
		}
		return DateRange{from: to.AddDate(0, 0, -days), to: to}, nil

	default:
		return DateRange{}, ErrNoBoundary
	}
}

// Last returns the window of the given number of days ending on the calendar
// day of now.
func Last(days int, now time.Time) DateRange {
	to := Normalize(now)
	return DateRange{from: to.AddDate(0, 0, -days), to: to}
}
