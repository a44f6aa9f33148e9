package scheduler

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"homework_status_bot/internal/domain/homework"
	"homework_status_bot/internal/infra/logger"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// CycleRunner runs one poll cycle and reports cycle failures.
type CycleRunner interface {
	RunCycle(ctx context.Context, cache homework.StatusCache, since time.Time) (homework.StatusCache, error)
	ReportFailure(ctx context.Context, err error)
}

// PollScheduler runs poll cycles one after another, waiting between them
// until the schedule says the next cycle is due.
type PollScheduler struct {
	runner   CycleRunner
	schedule cron.Schedule
	logger   *logrus.Entry
	now      func() time.Time
	after    func(time.Duration) <-chan time.Time
}

func NewPollScheduler(runner CycleRunner, schedule cron.Schedule, logger *logrus.Entry) *PollScheduler {
	return &PollScheduler{
		runner:   runner,
		schedule: schedule,
		logger:   logger,
		now:      time.Now,
		after:    time.After,
	}
}

// ParseSchedule returns cron.Every(interval) for an empty spec, otherwise the
// parsed standard five-field cron spec.
func ParseSchedule(spec string, interval time.Duration) (cron.Schedule, error) {
	if spec == "" {
		return cron.Every(interval), nil
	}
	s, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid poll schedule %q: %w", spec, err)
	}
	return s, nil
}

// Run polls until ctx is cancelled and then returns ctx.Err(). A failed cycle
// is reported through the runner and never stops the loop.
//
// Each cycle queries from the start of the last successful cycle, so no
// status change falls between two windows whatever the schedule. The first
// cycle leaves the window to the runner.
func (s *PollScheduler) Run(ctx context.Context) error {
	s.logger.Info("Starting poll loop...")
	var (
		cache homework.StatusCache
		since time.Time
	)

	for {
		start := s.now()
		var ok bool
		cache, ok = s.runOnce(ctx, cache, since)
		if ok {
			since = start
		}
		if ctx.Err() != nil {
			s.logger.Info("Poll loop stopped.")
			return ctx.Err()
		}

		next := s.schedule.Next(s.now())
		wait := next.Sub(s.now())
		if wait < 0 {
			wait = 0
		}
		s.logger.WithField("next_run", next.Format(time.RFC3339)).Debug("Waiting for next cycle")

		select {
		case <-ctx.Done():
			s.logger.Info("Poll loop stopped.")
			return ctx.Err()
		case <-s.after(wait):
		}
	}
}

// RunOnce runs a single cycle from an empty cache and returns its error.
func (s *PollScheduler) RunOnce(ctx context.Context) error {
	ctx = logger.WithCycleID(ctx, uuid.NewString())
	_, err := s.safeRun(ctx, homework.StatusCache{}, time.Time{})
	return err
}

// runOnce reports whether the cycle succeeded alongside the cache for the next one.
func (s *PollScheduler) runOnce(ctx context.Context, cache homework.StatusCache, since time.Time) (homework.StatusCache, bool) {
	cycleID := uuid.NewString()
	ctx = logger.WithCycleID(ctx, cycleID)
	log := s.logger.WithField("cycle_id", cycleID)
	log.Debug("Poll cycle started")

	next, err := s.safeRun(ctx, cache, since)
	if err != nil {
		if ctx.Err() != nil {
			log.WithError(err).Info("Poll cycle interrupted by shutdown")
			return cache, false
		}
		s.runner.ReportFailure(ctx, err)
		return cache, false
	}
	log.Debug("Poll cycle finished")
	return next, true
}

// safeRun turns a panic inside the cycle into an error so that the loop keeps going.
func (s *PollScheduler) safeRun(ctx context.Context, cache homework.StatusCache, since time.Time) (next homework.StatusCache, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.FromContext(ctx, s.logger).WithFields(logrus.Fields{
				"panic": fmt.Sprintf("%v", r),
				"stack": string(debug.Stack()),
			}).Error("Poll cycle panicked")
			next = cache
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return s.runner.RunCycle(ctx, cache, since)
}
