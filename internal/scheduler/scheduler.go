// Package scheduler drives periodic discovery runs. Triggers that land
// while a run is still executing are skipped, never queued; the engine's
// in-flight guard is the single source of truth for that.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"squeezerun/internal/engine"
	"squeezerun/internal/models"
)

// Runner is the slice of the engine the scheduler needs.
type Runner interface {
	Run(ctx context.Context) (*models.Run, error)
}

// Scheduler fires discovery runs on a fixed cadence or cron expression.
type Scheduler struct {
	runner  Runner
	cron    *cron.Cron
	entry   cron.EntryID
	started time.Time

	mu      sync.Mutex
	lastRun time.Time
	runs    int
	skips   int
}

// New creates a scheduler that fires every cadence interval. A zero or
// negative cadence is rejected so a misconfigured preset cannot spin.
func New(runner Runner, cadence time.Duration) (*Scheduler, error) {
	if cadence <= 0 {
		return nil, fmt.Errorf("scheduler: cadence must be positive, got %s", cadence)
	}
	return newWithSpec(runner, fmt.Sprintf("@every %s", cadence))
}

// NewCron creates a scheduler from a standard 5-field cron expression.
func NewCron(runner Runner, spec string) (*Scheduler, error) {
	return newWithSpec(runner, spec)
}

func newWithSpec(runner Runner, spec string) (*Scheduler, error) {
	s := &Scheduler{
		runner: runner,
		cron:   cron.New(cron.WithLocation(time.UTC)),
	}
	entry, err := s.cron.AddFunc(spec, s.fire)
	if err != nil {
		return nil, fmt.Errorf("scheduler: bad schedule %q: %w", spec, err)
	}
	s.entry = entry
	return s, nil
}

// Start runs the schedule until ctx is cancelled. It fires one run
// immediately so a fresh process produces output before the first tick.
func (s *Scheduler) Start(ctx context.Context) error {
	s.started = time.Now()
	log.Info().Time("next", s.cron.Entry(s.entry).Schedule.Next(time.Now())).Msg("scheduler started")

	s.fireCtx(ctx)
	s.cron.Start()

	<-ctx.Done()
	stopped := s.cron.Stop()
	<-stopped.Done() // wait for an in-flight tick callback to return

	s.mu.Lock()
	defer s.mu.Unlock()
	log.Info().Int("runs", s.runs).Int("skipped", s.skips).Msg("scheduler stopped")
	return ctx.Err()
}

func (s *Scheduler) fire() { s.fireCtx(context.Background()) }

func (s *Scheduler) fireCtx(ctx context.Context) {
	run, err := s.runner.Run(ctx)
	switch {
	case err == engine.ErrRunInFlight:
		s.mu.Lock()
		s.skips++
		s.mu.Unlock()
		log.Debug().Msg("tick skipped, run still in flight")
	case err != nil:
		log.Error().Err(err).Msg("scheduled run failed")
	default:
		s.mu.Lock()
		s.lastRun = run.AsOf
		s.runs++
		s.mu.Unlock()
	}
}

// Status reports scheduler counters for the status surface.
type Status struct {
	Running bool          `json:"running"`
	Uptime  time.Duration `json:"uptime"`
	LastRun time.Time     `json:"last_run"`
	Runs    int           `json:"runs"`
	Skipped int           `json:"skipped"`
	NextRun time.Time     `json:"next_run"`
}

// Status returns a snapshot of the counters.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Status{
		Running: !s.started.IsZero(),
		LastRun: s.lastRun,
		Runs:    s.runs,
		Skipped: s.skips,
		NextRun: s.cron.Entry(s.entry).Next,
	}
	if st.Running {
		st.Uptime = time.Since(s.started)
	}
	return st
}
