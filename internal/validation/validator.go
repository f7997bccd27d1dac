// Package validation rejects malformed adapter jobs before any upstream call
// is made. Every failure maps to HTTP 400.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-playground/validator/v10"
	"github.com/guttosm/histavg/internal/daterange"
	"github.com/guttosm/histavg/internal/domain/models"
)

// MaxSpanDays caps both days and the resolved window of a historical-average job.
const MaxSpanDays = 3650

// ErrMissingData is returned when the job has no "data" object.
var ErrMissingData = errors.New("data object is required")

// Error collects every rule a job violated.
type Error struct {
	Problems []string
}

func (e *Error) Error() string {
	return strings.Join(e.Problems, "; ")
}

// Validator checks job payloads. It is safe for concurrent use.
type Validator struct {
	v *validator.Validate
}

// New builds a Validator. isSource reports whether a source name is served
// by a registered provider.
func New(isSource func(name string) bool) *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = v.RegisterValidation("calendardate", func(fl validator.FieldLevel) bool {
		_, err := daterange.Parse(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("source", func(fl validator.FieldLevel) bool {
		return isSource != nil && isSource(fl.Field().String())
	})
	_ = v.RegisterValidation("ethaddr", func(fl validator.FieldLevel) bool {
		return common.IsHexAddress(fl.Field().String())
	})

	v.RegisterStructValidation(averageRules, models.AverageParams{})

	return &Validator{v: v}
}

// Average normalizes p in place (trimmed, upper-cased symbols, lower-cased
// source) and validates it.
func (val *Validator) Average(p *models.AverageParams) error {
	if p == nil {
		return ErrMissingData
	}
	p.From = strings.ToUpper(strings.TrimSpace(p.From))
	p.To = strings.ToUpper(strings.TrimSpace(p.To))
	p.FromDate = strings.TrimSpace(p.FromDate)
	p.ToDate = strings.TrimSpace(p.ToDate)
	p.Source = strings.ToLower(strings.TrimSpace(p.Source))
	return val.check(p)
}

// TVL normalizes p in place and validates it.
func (val *Validator) TVL(p *models.TVLParams) error {
	if p == nil {
		return ErrMissingData
	}
	p.VaultAddress = strings.TrimSpace(p.VaultAddress)
	p.Network = strings.ToUpper(strings.TrimSpace(p.Network))
	return val.check(p)
}

func (val *Validator) check(s any) error {
	err := val.v.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	out := &Error{}
	for _, fe := range fieldErrs {
		out.Problems = append(out.Problems, describe(fe))
	}
	return out
}

// averageRules holds the cross-field checks of a historical-average job.
func averageRules(sl validator.StructLevel) {
	p := sl.Current().Interface().(models.AverageParams)

	hasFrom, hasTo := p.FromDate != "", p.ToDate != ""
	switch {
	case !hasFrom && !hasTo:
		sl.ReportError(p.FromDate, "fromDate", "FromDate", "daterequired", "")
	case hasFrom != hasTo && p.Days == nil:
		sl.ReportError(p.Days, "days", "Days", "daysrequired", "")
	case hasFrom && hasTo:
		from, errFrom := daterange.Parse(p.FromDate)
		to, errTo := daterange.Parse(p.ToDate)
		if errFrom == nil && errTo == nil {
			switch {
			case from.After(to):
				sl.ReportError(p.FromDate, "fromDate", "FromDate", "dateorder", "")
			case daterange.New(from, to).Days() > MaxSpanDays:
				sl.ReportError(p.ToDate, "toDate", "ToDate", "maxspan", "")
			}
		}
	}

	if p.Days != nil {
		switch {
		case *p.Days <= 0:
			sl.ReportError(*p.Days, "days", "Days", "gt", "0")
		case *p.Days > MaxSpanDays:
			sl.ReportError(*p.Days, "days", "Days", "lte", strconv.Itoa(MaxSpanDays))
		}
	}
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "calendardate":
		return fmt.Sprintf("%s must be a calendar date (YYYY-MM-DD)", fe.Field())
	case "source":
		return fmt.Sprintf("%s %q is not a supported source", fe.Field(), fe.Value())
	case "ethaddr":
		return fmt.Sprintf("%s must be a 20-byte hex address", fe.Field())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", fe.Field(), fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	case "maxspan":
		return fmt.Sprintf("fromDate to toDate must span at most %d days", MaxSpanDays)
	case "daterequired":
		return "one of fromDate or toDate is required"
	case "daysrequired":
		return "days is required when only one of fromDate or toDate is supplied"
	case "dateorder":
		return "fromDate must not be after toDate"
	default:
		return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
	}
}
