package tracker

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Scheduler triggers fetch cycles on a schedule. Ticks that arrive while a
// cycle is in flight are dropped.
type Scheduler struct {
	tracker    *Tracker
	schedule   cron.Schedule
	afterCycle func(CycleReport, error)
	log        *zap.Logger
}

type SchedulerOption func(*Scheduler)

// WithAfterCycle registers a hook run after every completed cycle.
func WithAfterCycle(fn func(CycleReport, error)) SchedulerOption {
	return func(s *Scheduler) { s.afterCycle = fn }
}

func NewScheduler(t *Tracker, schedule cron.Schedule, log *zap.Logger, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		tracker:  t,
		schedule: schedule,
		log:      log.With(zap.String("component", "scheduler")),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run runs a cycle immediately and then on every tick until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	s.log.Info("scheduler started")
	s.tick(ctx)

	for {
		now := time.Now()
		next := s.schedule.Next(now)
		if next.IsZero() {
			return fmt.Errorf("schedule has no future run after %s", now.Format(time.RFC3339))
		}

		timer := time.NewTimer(next.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			s.log.Info("scheduler stopping", zap.Error(ctx.Err()))
			return nil
		case <-timer.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("fetch cycle panicked", zap.Any("panic", r))
		}
	}()

	report, ran, err := s.tracker.TryRunCycle(ctx)
	if !ran {
		return
	}
	if s.afterCycle != nil {
		s.afterCycle(report, err)
	}
}
