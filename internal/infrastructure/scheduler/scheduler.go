package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Job is one background pass. It should return once ctx is done.
type Job func(ctx context.Context) error

// Scheduler runs jobs on cron specs. A panicking job is recovered and a job
// still running at its next tick is skipped.
type Scheduler struct {
	cron    *cron.Cron
	log     *slog.Logger
	timeout time.Duration
	ctx     context.Context
	cancel  context.CancelFunc
}

func New(log *slog.Logger, timeout time.Duration) *Scheduler {
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(log.Handler(), slog.LevelInfo))
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:    cron.New(cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger))),
		log:     log,
		timeout: timeout,
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (s *Scheduler) Add(name, spec string, job Job) error {
	if _, err := s.cron.AddFunc(spec, s.wrap(name, job)); err != nil {
		return fmt.Errorf("scheduler: %s: %w", name, err)
	}
	s.log.Info("scheduled job", "job", name, "schedule", spec)
	return nil
}

func (s *Scheduler) wrap(name string, job Job) func() {
	return func() {
		ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
		defer cancel()
		start := time.Now()
		if err := job(ctx); err != nil {
			s.log.Error("job failed", "job", name, "error", err, "elapsed", time.Since(start))
			return
		}
		s.log.Debug("job done", "job", name, "elapsed", time.Since(start))
	}
}

func (s *Scheduler) Start() { s.cron.Start() }

// Stop cancels running jobs and returns a context that is done once they
// have returned.
func (s *Scheduler) Stop() context.Context {
	done := s.cron.Stop()
	s.cancel()
	return done
}
