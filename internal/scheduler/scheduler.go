package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ErrJobNotFound is returned when a named job does not exist.
var ErrJobNotFound = errors.New("job not found")

const (
	// leaseName is the advisory lease serializing dispatch across nodes.
	leaseName = "scheduler"

	// maxConsecutiveFailures disables a job after this many failed runs
	// in a row.
	maxConsecutiveFailures = 5
)

// HandlerFunc executes one job run.
type HandlerFunc func(ctx context.Context) error

// Scheduler ticks over persisted jobs and dispatches the due ones. Handlers
// run in their own goroutines; a handler that panics or runs long cannot
// stall the tick loop or other jobs.
type Scheduler struct {
	jobs     *JobStore
	lease    *LeaseStore
	tick     time.Duration
	log      *slog.Logger
	handlers map[string]HandlerFunc

	mu       sync.Mutex
	inflight map[string]bool
	wg       sync.WaitGroup
}

// New creates a scheduler ticking at the given interval.
func New(jobs *JobStore, lease *LeaseStore, tick time.Duration, log *slog.Logger) *Scheduler {
	if tick <= 0 {
		tick = 15 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}
	return &Scheduler{
		jobs:     jobs,
		lease:    lease,
		tick:     tick,
		log:      log.With("component", "scheduler"),
		handlers: make(map[string]HandlerFunc),
		inflight: make(map[string]bool),
	}
}

// Register binds a handler to a job name. Jobs without a handler are left
// alone; handlers without a job row never fire.
func (s *Scheduler) Register(name string, h HandlerFunc) {
	s.handlers[name] = h
}

// Run ticks until the context is cancelled, then waits for in-flight
// handlers to finish.
func (s *Scheduler) Run(ctx context.Context) error {
	s.log.Info("scheduler started", "tick", s.tick)
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	s.tickAt(ctx, time.Now())
	for {
		select {
		case <-ctx.Done():
			s.wg.Wait()
			s.log.Info("scheduler stopped")
			return ctx.Err()
		case now := <-ticker.C:
			s.tickAt(ctx, now)
		}
	}
}

// tickAt evaluates all jobs once. The advisory lease makes ticks across
// nodes mutually exclusive; losing it just means another node is on duty.
func (s *Scheduler) tickAt(ctx context.Context, now time.Time) {
	got, err := s.lease.TryAcquire(leaseName)
	if err != nil {
		s.log.Error("lease acquisition failed", "error", err)
		return
	}
	if !got {
		return
	}
	defer func() {
		if err := s.lease.Release(leaseName); err != nil {
			s.log.Warn("lease release failed", "error", err)
		}
	}()

	jobs, err := s.jobs.List()
	if err != nil {
		s.log.Error("job listing failed", "error", err)
		return
	}

	for _, job := range jobs {
		if !job.Enabled {
			continue
		}
		handler, ok := s.handlers[job.Name]
		if !ok {
			continue
		}

		if job.NextRun == nil {
			s.initialize(ctx, job, handler, now)
			continue
		}
		if now.Before(*job.NextRun) {
			continue
		}
		s.dispatch(ctx, job, handler, now)
	}
}

// initialize stamps a first fire time for a job with no schedule state.
// RunOnStart jobs that have never run fire immediately instead.
func (s *Scheduler) initialize(ctx context.Context, job ScheduledJob, handler HandlerFunc, now time.Time) {
	if job.RunOnStart && job.LastRun == nil {
		s.dispatch(ctx, job, handler, now)
		return
	}
	next := s.nextRunFor(job, now)
	if err := s.jobs.SetNextRun(job.Name, next); err != nil {
		s.log.Error("failed to initialize job", "job", job.Name, "error", err)
		return
	}
	s.log.Info("job scheduled", "job", job.Name, "next_run", next)
}

// dispatch stamps run state and fires the handler in its own goroutine.
// The stamp happens first: next_run moves into the future before the
// handler starts, so no later tick can see the job as due again.
func (s *Scheduler) dispatch(ctx context.Context, job ScheduledJob, handler HandlerFunc, now time.Time) {
	s.mu.Lock()
	if s.inflight[job.Name] {
		s.mu.Unlock()
		s.log.Warn("job still running, skipping dispatch", "job", job.Name)
		return
	}
	s.inflight[job.Name] = true
	s.mu.Unlock()

	next := s.nextRunFor(job, now)
	if err := s.jobs.StampDispatch(job.Name, now, next); err != nil {
		s.log.Error("failed to stamp job dispatch", "job", job.Name, "error", err)
		s.mu.Lock()
		delete(s.inflight, job.Name)
		s.mu.Unlock()
		return
	}

	s.log.Info("dispatching job", "job", job.Name, "next_run", next)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			s.mu.Lock()
			delete(s.inflight, job.Name)
			s.mu.Unlock()
		}()

		err := s.runHandler(ctx, job.Name, handler)
		if err != nil {
			s.log.Error("job failed", "job", job.Name, "error", err)
		}
		if rerr := s.jobs.RecordResult(job.Name, err); rerr != nil {
			s.log.Error("failed to record job result", "job", job.Name, "error", rerr)
		}
	}()
}

// runHandler converts a handler panic into an error so one bad job cannot
// take the process down.
func (s *Scheduler) runHandler(ctx context.Context, name string, handler HandlerFunc) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v", name, r)
		}
	}()
	return handler(ctx)
}

// nextRunFor computes the job's next fire time after now. An unparseable
// schedule falls back to a plain interval so the job keeps running rather
// than silently dying.
func (s *Scheduler) nextRunFor(job ScheduledJob, now time.Time) time.Time {
	next, err := NextRun(job.Schedule, now)
	if err != nil {
		fallback := job.IntervalFallback
		if fallback <= 0 {
			fallback = time.Hour
		}
		s.log.Warn("unparseable schedule, using interval fallback",
			"job", job.Name, "schedule", job.Schedule, "fallback", fallback)
		return now.Add(fallback)
	}
	return next
}
