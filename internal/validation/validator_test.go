package validation

import (
	"errors"
	"strings"
	"testing"

	"github.com/guttosm/histavg/internal/domain/models"
	"github.com/stretchr/testify/require"
)

func knownSource(s string) bool { return s == "coinmarketcap" || s == "coingecko" }

func intp(v int) *int { return &v }

func TestAverage_Rejects(t *testing.T) {
	cases := []struct {
		name    string
		params  *models.AverageParams
		problem string
	}{
		{name: "empty body", params: nil, problem: "data object is required"},
		{name: "empty data", params: &models.AverageParams{}, problem: "from is required"},
		{
			name:    "from not supplied",
			params:  &models.AverageParams{To: "USD", FromDate: "2021-11-01", Days: intp(7), Source: "coinmarketcap"},
			problem: "from is required",
		},
		{
			name:    "to not supplied",
			params:  &models.AverageParams{From: "ETH", FromDate: "2021-11-01", Days: intp(7), Source: "coinmarketcap"},
			problem: "to is required",
		},
		{
			name:    "both fromDate & toDate not supplied",
			params:  &models.AverageParams{From: "ETH", To: "USD", Days: intp(7), Source: "coinmarketcap"},
			problem: "one of fromDate or toDate is required",
		},
		{
			name:    "fromDate supplied but days not supplied",
			params:  &models.AverageParams{From: "ETH", To: "USD", FromDate: "2021-11-01", Source: "coinmarketcap"},
			problem: "days is required",
		},
		{
			name:    "toDate supplied but days not supplied",
			params:  &models.AverageParams{From: "ETH", To: "USD", ToDate: "2021-11-01", Source: "coinmarketcap"},
			problem: "days is required",
		},
		{
			name:    "source not supplied",
			params:  &models.AverageParams{From: "ETH", To: "USD", FromDate: "2021-11-01", ToDate: "2021-11-08"},
			problem: "source is required",
		},
		{
			name:    "unknown source",
			params:  &models.AverageParams{From: "ETH", To: "USD", FromDate: "2021-11-01", ToDate: "2021-11-08", Source: "nomics"},
			problem: `source "nomics" is not a supported source`,
		},
		{
			name:    "fromDate is after toDate",
			params:  &models.AverageParams{From: "ETH", To: "USD", FromDate: "2021-11-08", ToDate: "2021-11-01", Source: "coinmarketcap"},
			problem: "fromDate must not be after toDate",
		},
		{
			name:    "the days param is <= 0",
			params:  &models.AverageParams{From: "ETH", To: "USD", FromDate: "2021-11-01", Days: intp(0), Source: "coinmarketcap"},
			problem: "days must be greater than 0",
		},
		{
			name:    "negative days",
			params:  &models.AverageParams{From: "ETH", To: "USD", ToDate: "2021-11-01", Days: intp(-3), Source: "coinmarketcap"},
			problem: "days must be greater than 0",
		},
		{
			name:    "days above the cap",
			params:  &models.AverageParams{From: "ETH", To: "USD", FromDate: "2021-11-01", Days: intp(2000000000), Source: "coinmarketcap"},
			problem: "days must be at most 3650",
		},
		{
			name:    "explicit window too wide",
			params:  &models.AverageParams{From: "ETH", To: "USD", FromDate: "1990-01-01", ToDate: "2021-11-01", Source: "coinmarketcap"},
			problem: "must span at most 3650 days",
		},
		{
			name:    "malformed date",
			params:  &models.AverageParams{From: "ETH", To: "USD", FromDate: "01/11/2021", Days: intp(7), Source: "coinmarketcap"},
			problem: "fromDate must be a calendar date",
		},
	}

	v := New(knownSource)
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := v.Average(tc.params)
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.problem)
			if tc.params != nil {
				var verr *Error
				require.True(t, errors.As(err, &verr), "want *validation.Error, got %T", err)
			}
		})
	}
}

func TestAverage_Accepts(t *testing.T) {
	cases := []struct {
		name   string
		params models.AverageParams
	}{
		{name: "both dates", params: models.AverageParams{From: "ETH", To: "USD", FromDate: "2021-11-01", ToDate: "2021-11-08", Source: "coinmarketcap"}},
		{name: "both dates with days present", params: models.AverageParams{From: "ETH", To: "USD", FromDate: "2021-11-01", ToDate: "2021-11-01", Days: intp(100), Source: "coingecko"}},
		{name: "fromDate and days", params: models.AverageParams{From: "ETH", To: "USD", FromDate: "2021-11-01", Days: intp(7), Source: "coingecko"}},
		{name: "toDate and days", params: models.AverageParams{From: "ETH", To: "USD", ToDate: "2021-11-08", Days: intp(7), Source: "coingecko"}},
	}
	v := New(knownSource)
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := tc.params
			require.NoError(t, v.Average(&p))
		})
	}
}

func TestAverage_Normalizes(t *testing.T) {
	v := New(knownSource)
	p := &models.AverageParams{From: " eth ", To: "usd", FromDate: " 2021-11-01 ", Days: intp(7), Source: " CoinGecko "}
	require.NoError(t, v.Average(p))
	require.Equal(t, "ETH", p.From)
	require.Equal(t, "USD", p.To)
	require.Equal(t, "2021-11-01", p.FromDate)
	require.Equal(t, "coingecko", p.Source)
}

func TestAverage_CollectsEveryProblem(t *testing.T) {
	v := New(knownSource)
	err := v.Average(&models.AverageParams{})
	var verr *Error
	require.True(t, errors.As(err, &verr))
	joined := strings.Join(verr.Problems, "|")
	for _, want := range []string{"from is required", "to is required", "source is required", "one of fromDate or toDate is required"} {
		require.Contains(t, joined, want)
	}
}

func TestTVL(t *testing.T) {
	v := New(knownSource)

	require.ErrorIs(t, v.TVL(nil), ErrMissingData)

	err := v.TVL(&models.TVLParams{})
	require.ErrorContains(t, err, "vaultAddress is required")

	err = v.TVL(&models.TVLParams{VaultAddress: "0x1234"})
	require.ErrorContains(t, err, "vaultAddress must be a 20-byte hex address")

	p := &models.TVLParams{VaultAddress: "0x1234567890abcdef1234567890abcdef12345678", Network: " polygon "}
	require.NoError(t, v.TVL(p))
	require.Equal(t, "POLYGON", p.Network)
}
