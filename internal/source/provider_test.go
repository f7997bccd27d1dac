package source

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/guttosm/histavg/internal/daterange"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestBucketDaily(t *testing.T) {
	from := mustDay(t, "2021-11-01")
	rng := daterange.New(from, from.AddDate(0, 0, 2))
	at := func(day, hour int) time.Time { return from.AddDate(0, 0, day).Add(time.Duration(hour) * time.Hour) }

	obs := []observation{
		{at: at(2, 5), price: decimal.NewFromInt(30)},
		{at: at(0, 20), price: decimal.NewFromInt(11)},
		{at: at(0, 1), price: decimal.NewFromInt(10)},
		{at: at(-1, 23), price: decimal.NewFromInt(99)},
		{at: at(3, 0), price: decimal.NewFromInt(99)},
	}

	got := bucketDaily("coingecko", "ETH", "USD", rng, obs)

	require.Len(t, got, 2)
	require.Equal(t, from, got[0].Day)
	require.True(t, got[0].Price.Equal(decimal.NewFromInt(11)), "latest observation of the day wins")
	require.Equal(t, from.AddDate(0, 0, 2), got[1].Day)
	require.Equal(t, "ETH", got[1].Base)
	require.Equal(t, "coingecko", got[1].Source)
}

func TestBucketDaily_WideRange(t *testing.T) {
	from := mustDay(t, "2021-11-01")
	rng := daterange.New(from, from.AddDate(0, 0, 20000000))
	obs := []observation{{at: from.AddDate(0, 0, 5), price: decimal.NewFromInt(7)}}

	got := bucketDaily("coingecko", "ETH", "USD", rng, obs)

	require.Len(t, got, 1)
	require.Equal(t, from.AddDate(0, 0, 5), got[0].Day)
}

func TestNewLimiter(t *testing.T) {
	require.Equal(t, rate.Inf, newLimiter(0).Limit())
	require.Equal(t, 1, newLimiter(0.5).Burst())
	require.Equal(t, 5, newLimiter(5).Burst())
}

func TestFetchJSON_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(" slow down \n"))
	}))
	defer srv.Close()

	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)

	var out map[string]any
	err = fetchJSON(context.Background(), srv.Client(), newLimiter(0), "test", req, &out)

	var upErr *UpstreamError
	require.True(t, errors.As(err, &upErr))
	require.Equal(t, http.StatusTooManyRequests, upErr.StatusCode)
	require.Equal(t, "slow down", upErr.Message)
}

func TestFetchJSON_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	req, err := http.NewRequest(http.MethodGet, "http://127.0.0.1:1", nil)
	require.NoError(t, err)

	limiter := rate.NewLimiter(rate.Every(time.Hour), 1)
	limiter.Allow()

	var out map[string]any
	err = fetchJSON(ctx, http.DefaultClient, limiter, "test", req, &out)
	require.Error(t, err)
	require.Contains(t, err.Error(), "rate limiter")
}
