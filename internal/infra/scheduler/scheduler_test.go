package scheduler

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"homework_status_bot/internal/domain/homework"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

// scriptedRunner returns the scripted results in order and cancels the
// context once the script is exhausted.
type scriptedRunner struct {
	steps    []func(cache homework.StatusCache) (homework.StatusCache, error)
	cancel   context.CancelFunc
	caches   []homework.StatusCache
	sinces   []time.Time
	failures []error
}

func (r *scriptedRunner) RunCycle(ctx context.Context, cache homework.StatusCache, since time.Time) (homework.StatusCache, error) {
	r.caches = append(r.caches, cache)
	r.sinces = append(r.sinces, since)
	i := len(r.caches) - 1
	if i >= len(r.steps)-1 {
		r.cancel()
	}
	if i >= len(r.steps) {
		return cache, nil
	}
	return r.steps[i](cache)
}

func (r *scriptedRunner) ReportFailure(ctx context.Context, err error) {
	r.failures = append(r.failures, err)
}

func newTestScheduler(r CycleRunner) *PollScheduler {
	s := NewPollScheduler(r, cron.Every(time.Minute), testLogger())
	s.after = func(time.Duration) <-chan time.Time {
		ch := make(chan time.Time, 1)
		ch <- time.Now()
		return ch
	}
	return s
}

func TestRun_ThreadsCacheBetweenCycles(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := &scriptedRunner{cancel: cancel}
	r.steps = []func(homework.StatusCache) (homework.StatusCache, error){
		func(c homework.StatusCache) (homework.StatusCache, error) { return c.With(homework.StatusReviewing), nil },
		func(c homework.StatusCache) (homework.StatusCache, error) { return c.With(homework.StatusApproved), nil },
		func(c homework.StatusCache) (homework.StatusCache, error) { return c, nil },
	}

	err := newTestScheduler(r).Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	want := []homework.Status{"", homework.StatusReviewing, homework.StatusApproved}
	if len(r.caches) != len(want) {
		t.Fatalf("expected %d cycles, got %d", len(want), len(r.caches))
	}
	for i, w := range want {
		if r.caches[i].Last != w {
			t.Errorf("cycle %d started with cache %q, want %q", i, r.caches[i].Last, w)
		}
	}
}

func TestRun_FailureIsReportedAndLoopContinues(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	boom := errors.New("boom")
	r := &scriptedRunner{cancel: cancel}
	r.steps = []func(homework.StatusCache) (homework.StatusCache, error){
		func(c homework.StatusCache) (homework.StatusCache, error) { return c.With(homework.StatusReviewing), nil },
		func(c homework.StatusCache) (homework.StatusCache, error) { return homework.StatusCache{}, boom },
		func(c homework.StatusCache) (homework.StatusCache, error) { return c, nil },
	}

	_ = newTestScheduler(r).Run(ctx)

	if len(r.caches) != 3 {
		t.Fatalf("expected loop to continue after failure, ran %d cycles", len(r.caches))
	}
	if len(r.failures) != 1 || !errors.Is(r.failures[0], boom) {
		t.Errorf("expected one reported failure wrapping boom, got %v", r.failures)
	}
	if r.caches[2].Last != homework.StatusReviewing {
		t.Errorf("failed cycle must keep previous cache, got %q", r.caches[2].Last)
	}
}

func TestRun_PanicIsReported(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := &scriptedRunner{cancel: cancel}
	r.steps = []func(homework.StatusCache) (homework.StatusCache, error){
		func(c homework.StatusCache) (homework.StatusCache, error) { panic("nil map") },
		func(c homework.StatusCache) (homework.StatusCache, error) { return c, nil },
	}

	_ = newTestScheduler(r).Run(ctx)

	if len(r.failures) != 1 {
		t.Fatalf("expected panic to be reported once, got %v", r.failures)
	}
	if len(r.caches) != 2 {
		t.Errorf("expected loop to continue after panic, ran %d cycles", len(r.caches))
	}
}

func TestRun_WaitsForSchedule(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := &scriptedRunner{cancel: func() {}}
	r.steps = []func(homework.StatusCache) (homework.StatusCache, error){
		func(c homework.StatusCache) (homework.StatusCache, error) { return c, nil },
	}

	s := NewPollScheduler(r, cron.Every(10*time.Minute), testLogger())
	fixed := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }
	var waited time.Duration
	s.after = func(d time.Duration) <-chan time.Time {
		waited = d
		cancel()
		return make(chan time.Time)
	}

	if err := s.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if waited != 10*time.Minute {
		t.Errorf("waited %s, want 10m", waited)
	}
}

// TestRun_WindowCoversCronGap checks that with a daily schedule each cycle
// asks for everything since the previous successful cycle started, and that
// a failed cycle does not move the window forward.
func TestRun_WindowCoversCronGap(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	boom := errors.New("boom")
	r := &scriptedRunner{cancel: cancel}
	r.steps = []func(homework.StatusCache) (homework.StatusCache, error){
		func(c homework.StatusCache) (homework.StatusCache, error) { return c, nil },
		func(c homework.StatusCache) (homework.StatusCache, error) { return c, boom },
		func(c homework.StatusCache) (homework.StatusCache, error) { return c, nil },
		func(c homework.StatusCache) (homework.StatusCache, error) { return c, nil },
	}

	schedule, err := ParseSchedule("0 9 * * *", 10*time.Minute)
	if err != nil {
		t.Fatalf("ParseSchedule error = %v", err)
	}
	s := NewPollScheduler(r, schedule, testLogger())
	clock := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return clock }
	s.after = func(d time.Duration) <-chan time.Time {
		clock = clock.Add(d)
		ch := make(chan time.Time, 1)
		ch <- clock
		return ch
	}

	_ = s.Run(ctx)

	day := 24 * time.Hour
	start := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	want := []time.Time{
		{},                 // first cycle: runner falls back to its retry interval
		start,              // day 1 covers the whole day since day 0
		start,              // day 1 failed, so day 2 still starts from day 0
		start.Add(2 * day), // day 2 succeeded
	}
	if len(r.sinces) != len(want) {
		t.Fatalf("expected %d cycles, got %d", len(want), len(r.sinces))
	}
	for i, w := range want {
		if !r.sinces[i].Equal(w) {
			t.Errorf("cycle %d since = %v, want %v", i, r.sinces[i], w)
		}
	}
}

func TestRunOnce(t *testing.T) {
	boom := errors.New("boom")
	r := &scriptedRunner{cancel: func() {}}
	r.steps = []func(homework.StatusCache) (homework.StatusCache, error){
		func(c homework.StatusCache) (homework.StatusCache, error) { return c, boom },
	}

	err := newTestScheduler(r).RunOnce(context.Background())
	if !errors.Is(err, boom) {
		t.Errorf("expected boom, got %v", err)
	}
	if len(r.failures) != 0 {
		t.Errorf("RunOnce returns the error instead of reporting it, got %v", r.failures)
	}
}

func TestParseSchedule(t *testing.T) {
	base := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

	s, err := ParseSchedule("", 10*time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := s.Next(base); !got.Equal(base.Add(10 * time.Minute)) {
		t.Errorf("Next = %v, want %v", got, base.Add(10*time.Minute))
	}

	s, err = ParseSchedule("*/15 * * * *", time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := s.Next(base); !got.Equal(base.Add(15 * time.Minute)) {
		t.Errorf("Next = %v, want %v", got, base.Add(15*time.Minute))
	}

	if _, err := ParseSchedule("not a cron", time.Minute); err == nil {
		t.Error("expected error for invalid spec")
	}
}
