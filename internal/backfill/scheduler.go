package backfill

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/guttosm/histavg/internal/logger"
)

// defaultJobTimeout bounds one scheduled run.
const defaultJobTimeout = 10 * time.Minute

// runner is the part of *Runner the scheduler needs.
type runner interface {
	Run(ctx context.Context, opts Options) error
}

// Scheduler triggers a backfill on a cron spec (UTC, standard 5-field syntax
// plus descriptors such as "@daily"). Overlapping runs are skipped.
type Scheduler struct {
	cronEngine *cron.Cron
	runner     runner
	spec       string
	opts       Options
	timeout    time.Duration
	log        zerolog.Logger
}

// NewScheduler builds a Scheduler; call Start to register and run the job.
func NewScheduler(r runner, spec string, opts Options) *Scheduler {
	log := logger.With("scheduler")
	cl := cronLogger{log: log}
	return &Scheduler{
		cronEngine: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		runner:  r,
		spec:    spec,
		opts:    opts,
		timeout: defaultJobTimeout,
		log:     log,
	}
}

// Start registers the backfill job and starts the cron engine.
// It returns an error if the spec does not parse.
func (s *Scheduler) Start() error {
	if _, err := s.cronEngine.AddFunc(s.spec, s.runOnce); err != nil {
		return fmt.Errorf("add backfill job %q: %w", s.spec, err)
	}
	s.cronEngine.Start()
	s.log.Info().Str("spec", s.spec).Strs("pairs", s.opts.Pairs).Str("source", s.opts.Source).Msg("scheduler started")
	return nil
}

// Stop stops scheduling and waits for a running job to finish or ctx to end.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cronEngine.Stop()
	select {
	case <-done.Done():
		s.log.Info().Msg("scheduler stopped")
	case <-ctx.Done():
		s.log.Warn().Msg("scheduler stop timed out with a job still running")
	}
}

func (s *Scheduler) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	start := time.Now()
	if err := s.runner.Run(ctx, s.opts); err != nil {
		s.log.Error().Err(err).Dur("elapsed", time.Since(start)).Msg("scheduled backfill failed")
		return
	}
	s.log.Info().Dur("elapsed", time.Since(start)).Msg("scheduled backfill done")
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
