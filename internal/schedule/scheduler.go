// Package schedule runs the daemon's wall-clock triggers: the snapshot
// sweep, digest and report emission, phase B enrichment, and the
// watched-channel poll. Jobs run cooperatively; a tick is skipped while
// its predecessor is still running.
package schedule

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"spyglass/internal/logging"
)

// Job is one registered trigger target.
type Job struct {
	Name string
	Run  func(ctx context.Context) error

	interval time.Duration
	due      func(now, last time.Time) bool
	running  atomic.Bool
	lastRun  time.Time
}

// Scheduler drives registered jobs from a single ticker loop.
type Scheduler struct {
	logger *slog.Logger
	jobs   []*Job
	tick   time.Duration

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New constructs an empty scheduler. The tick resolution bounds how
// precisely trigger times are honored.
func New(logger *slog.Logger) *Scheduler {
	return &Scheduler{
		logger: logging.WithComponent(logger, "schedule"),
		tick:   30 * time.Second,
	}
}

// Every registers a job that runs each time interval elapses since its
// previous completion. The first run happens on the first tick.
func (s *Scheduler) Every(name string, interval time.Duration, run func(ctx context.Context) error) {
	job := &Job{Name: name, Run: run, interval: interval}
	job.due = func(now, last time.Time) bool {
		return last.IsZero() || now.Sub(last) >= interval
	}
	s.jobs = append(s.jobs, job)
}

// DailyAt registers a job that runs once per day at the given local
// wall-clock time ("15:04").
func (s *Scheduler) DailyAt(name, at string, run func(ctx context.Context) error) error {
	target, err := time.Parse("15:04", at)
	if err != nil {
		return err
	}
	job := &Job{Name: name, Run: run}
	job.due = func(now, last time.Time) bool {
		trigger := time.Date(now.Year(), now.Month(), now.Day(), target.Hour(), target.Minute(), 0, 0, now.Location())
		return now.After(trigger) && (last.IsZero() || last.Before(trigger))
	}
	s.jobs = append(s.jobs, job)
	return nil
}

// WeeklyAt registers a job that runs once per week on the given weekday
// at the given local time.
func (s *Scheduler) WeeklyAt(name string, weekday time.Weekday, at string, run func(ctx context.Context) error) error {
	target, err := time.Parse("15:04", at)
	if err != nil {
		return err
	}
	job := &Job{Name: name, Run: run}
	job.due = func(now, last time.Time) bool {
		if now.Weekday() != weekday {
			return false
		}
		trigger := time.Date(now.Year(), now.Month(), now.Day(), target.Hour(), target.Minute(), 0, 0, now.Location())
		return now.After(trigger) && (last.IsZero() || last.Before(trigger))
	}
	s.jobs = append(s.jobs, job)
	return nil
}

// Start launches the ticker loop. It is an error to start a running
// scheduler twice; the second call is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true
	s.wg.Add(1)
	go s.loop(runCtx)
	s.logger.Info("scheduler started", logging.Int("jobs", len(s.jobs)))
}

func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	s.dispatch(ctx, time.Now())
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.dispatch(ctx, now)
		}
	}
}

func (s *Scheduler) dispatch(ctx context.Context, now time.Time) {
	for _, job := range s.jobs {
		if !job.due(now, job.lastRun) {
			continue
		}
		if !job.running.CompareAndSwap(false, true) {
			s.logger.Info("skipping tick, previous run still active",
				logging.String(logging.FieldJob, job.Name))
			continue
		}
		job.lastRun = now
		s.wg.Add(1)
		go func(job *Job) {
			defer s.wg.Done()
			defer job.running.Store(false)
			started := time.Now()
			if err := job.Run(ctx); err != nil && ctx.Err() == nil {
				s.logger.Error("job failed",
					logging.String(logging.FieldJob, job.Name),
					logging.Error(err))
				return
			}
			s.logger.Debug("job finished",
				logging.String(logging.FieldJob, job.Name),
				logging.Duration("elapsed", time.Since(started)))
		}(job)
	}
}

// Stop cancels the loop and waits up to grace for running jobs to
// finish. Returns false when the grace period elapsed first.
func (s *Scheduler) Stop(grace time.Duration) bool {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return true
	}
	s.running = false
	cancel := s.cancel
	s.mu.Unlock()
	cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	if grace <= 0 {
		<-done
		return true
	}
	timer := time.NewTimer(grace)
	defer timer.Stop()
	select {
	case <-done:
		return true
	case <-timer.C:
		s.logger.Warn("stop grace elapsed with jobs still running")
		return false
	}
}
