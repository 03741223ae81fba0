package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/screwyprof/brawlstats/pkg/clock"
	"github.com/screwyprof/brawlstats/pkg/metrics"
)

// ErrSweepPanicked wraps a recovered sweep panic
var ErrSweepPanicked = errors.New("sweep panicked")

const DefaultInterval = time.Hour

// SweepFunc runs one sweep; it must return promptly once ctx is cancelled
type SweepFunc func(ctx context.Context) error

// Option configures the Scheduler
// ------------------------------------------------
type Option func(*Scheduler)

// WithClock injects a custom Clock (e.g., for testing)
func WithClock(c clock.Clock) Option {
	return func(s *Scheduler) { s.clock = c }
}

// WithInterval runs sweeps at a fixed rate. Intervals are whole seconds, at least one.
func WithInterval(d time.Duration) Option {
	return func(s *Scheduler) { s.schedule = cron.Every(d) }
}

// WithSchedule runs sweeps on an arbitrary cron schedule
func WithSchedule(schedule cron.Schedule) Option {
	return func(s *Scheduler) { s.schedule = schedule }
}

// Scheduler runs a sweep immediately and then once per schedule activation.
// Sweeps never overlap: a sweep that overruns its slot is followed by the next one right away.
// -----------------------------------------------------------------
type Scheduler struct {
	name     string
	sweep    SweepFunc
	clock    clock.Clock
	schedule cron.Schedule
	events   chan Event
}

// New constructs a Scheduler. By default, it uses a real clock and an hourly interval.
func New(name string, sweep SweepFunc, opts ...Option) *Scheduler {
	s := &Scheduler{
		name:     name,
		sweep:    sweep,
		clock:    clock.SystemClock{},
		schedule: cron.Every(DefaultInterval),
		events:   make(chan Event, 10),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the scheduler name used in events and metrics
func (s *Scheduler) Name() string {
	return s.name
}

// Start launches the scheduler and returns the events channel and done channel.
//
// Shutdown pattern:
//  1. Cancel context to request shutdown: cancel()
//  2. The running sweep observes cancellation and returns
//  3. Scheduler emits SchedulerStopped and closes events channel
//  4. Wait for complete shutdown: <-done
//
// Events must be consumed, e.g. with NewSubscriber.
func (s *Scheduler) Start(ctx context.Context) (<-chan Event, <-chan struct{}) {
	done := make(chan struct{})
	go func() {
		defer close(s.events)
		defer close(done)
		s.run(ctx)
	}()
	return s.events, done
}

func (s *Scheduler) run(ctx context.Context) {
	for run := 1; ; run++ {
		start := s.clock.Now()
		s.runSweep(ctx, run, start)

		if ctx.Err() != nil {
			s.events <- SchedulerStopped{Scheduler: s.name, Runs: run, Reason: ctx.Err()}
			return
		}

		next := s.schedule.Next(start)
		wait := max(0, next.Sub(s.clock.Now()))
		s.events <- SweepScheduled{Scheduler: s.name, Run: run + 1, At: next, Wait: wait}

		select {
		case <-ctx.Done():
			s.events <- SchedulerStopped{Scheduler: s.name, Runs: run, Reason: ctx.Err()}
			return
		case <-s.clock.After(wait):
		}
	}
}

// runSweep executes one sweep, converting failures and panics into events
func (s *Scheduler) runSweep(ctx context.Context, run int, start time.Time) {
	s.events <- SweepStarted{Scheduler: s.name, Run: run, StartedAt: start}

	err := s.safeSweep(ctx)
	duration := s.clock.Now().Sub(start)

	if err != nil {
		metrics.ObserveSweep(s.name, metrics.OutcomeFailure, duration)
		s.events <- SweepFailed{Scheduler: s.name, Run: run, Err: err, Duration: duration}
		return
	}

	metrics.ObserveSweep(s.name, metrics.OutcomeSuccess, duration)
	s.events <- SweepCompleted{Scheduler: s.name, Run: run, Duration: duration}
}

func (s *Scheduler) safeSweep(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrSweepPanicked, r)
		}
	}()
	return s.sweep(ctx)
}
