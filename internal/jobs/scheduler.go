package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog/log"
)

const lockPrefix = "boost:jobs:lock:"

// Func is one run of a scheduled job.
type Func func(ctx context.Context) error

// Scheduler runs periodic jobs, one instance cluster-wide per job.
type Scheduler struct {
	cron   *gocron.Scheduler
	locker Locker
	ctx    context.Context
	cancel context.CancelFunc
}

// NewScheduler creates a scheduler in UTC.
func NewScheduler(locker Locker) *Scheduler {
	cron := gocron.NewScheduler(time.UTC)
	cron.SingletonModeAll()
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{cron: cron, locker: locker, ctx: ctx, cancel: cancel}
}

// Every registers fn under name. Each run holds the job lock for at most
// every and is canceled after the same period.
func (s *Scheduler) Every(name string, every time.Duration, fn Func) error {
	if every <= 0 {
		return fmt.Errorf("job %s: interval must be positive", name)
	}
	_, err := s.cron.Every(every).Do(func() {
		s.run(name, every, fn)
	})
	if err != nil {
		return fmt.Errorf("job %s: %w", name, err)
	}
	log.Info().Str("job", name).Dur("every", every).Msg("Job scheduled")
	return nil
}

func (s *Scheduler) run(name string, every time.Duration, fn Func) {
	ctx, cancel := context.WithTimeout(s.ctx, every)
	defer cancel()

	release, ok, err := s.locker.Acquire(ctx, lockPrefix+name, every)
	if err != nil {
		log.Error().Err(err).Str("job", name).Msg("Failed to acquire job lock")
		return
	}
	if !ok {
		log.Debug().Str("job", name).Msg("Job already running elsewhere, skipping")
		return
	}
	defer release()

	start := time.Now()
	if err := fn(ctx); err != nil {
		log.Error().Err(err).Str("job", name).Dur("took", time.Since(start)).Msg("Job failed")
		return
	}
	log.Debug().Str("job", name).Dur("took", time.Since(start)).Msg("Job finished")
}

// Start runs the scheduler in the background.
func (s *Scheduler) Start() {
	s.cron.StartAsync()
}

// Stop cancels running jobs and stops scheduling new ones.
func (s *Scheduler) Stop() {
	s.cancel()
	s.cron.Stop()
}
