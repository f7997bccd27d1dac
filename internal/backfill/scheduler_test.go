package backfill

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/guttosm/histavg/internal/logger"
)

type countingRunner struct {
	runs atomic.Int32
	got  atomic.Value
	err  error
}

func (c *countingRunner) Run(ctx context.Context, opts Options) error {
	c.runs.Add(1)
	c.got.Store(opts)
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("scheduled run without deadline")
	}
	return c.err
}

func TestScheduler_StartRejectsBadSpec(t *testing.T) {
	logger.InitWithWriter(io.Discard)
	t.Cleanup(logger.Init)

	s := NewScheduler(&countingRunner{}, "not a cron spec", Options{})
	if err := s.Start(); err == nil {
		t.Fatalf("expected spec error")
	}
}

func TestScheduler_RunOncePassesOptions(t *testing.T) {
	logger.InitWithWriter(io.Discard)
	t.Cleanup(logger.Init)

	for _, runErr := range []error{nil, errors.New("boom")} {
		r := &countingRunner{err: runErr}
		opts := Options{Pairs: []string{"ETH/USD"}, Source: "coingecko", Days: 3}
		s := NewScheduler(r, "@daily", opts)
		s.runOnce()
		if r.runs.Load() != 1 {
			t.Fatalf("runs=%d", r.runs.Load())
		}
		if got := r.got.Load().(Options); got.Source != "coingecko" || got.Days != 3 {
			t.Fatalf("options not forwarded: %+v", got)
		}
	}
}

func TestScheduler_StartStop(t *testing.T) {
	logger.InitWithWriter(io.Discard)
	t.Cleanup(logger.Init)

	r := &countingRunner{}
	s := NewScheduler(r, "@every 10ms", Options{})
	if err := s.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for r.runs.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)

	if r.runs.Load() == 0 {
		t.Fatalf("job never ran")
	}
}
