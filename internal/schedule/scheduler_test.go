package schedule

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"spyglass/internal/logging"
)

func TestStartRunsJobImmediately(t *testing.T) {
	s := New(logging.NewNop())
	ran := make(chan struct{})
	s.Every("probe", time.Hour, func(ctx context.Context) error {
		close(ran)
		return nil
	})

	s.Start(context.Background())
	defer s.Stop(time.Second)

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("job did not run on the first tick")
	}
}

func TestStartTwiceIsNoop(t *testing.T) {
	s := New(logging.NewNop())
	var runs atomic.Int64
	s.Every("probe", time.Hour, func(ctx context.Context) error {
		runs.Add(1)
		return nil
	})

	ctx := context.Background()
	s.Start(ctx)
	s.Start(ctx)
	defer s.Stop(time.Second)

	time.Sleep(100 * time.Millisecond)
	if got := runs.Load(); got != 1 {
		t.Fatalf("expected a single run, got %d", got)
	}
}

func TestEveryIntervalGate(t *testing.T) {
	s := New(logging.NewNop())
	s.Every("gated", time.Hour, func(ctx context.Context) error { return nil })
	job := s.jobs[0]

	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	if !job.due(now, time.Time{}) {
		t.Fatal("job with no prior run should be due")
	}
	if job.due(now, now.Add(-30*time.Minute)) {
		t.Fatal("job inside its interval should not be due")
	}
	if !job.due(now, now.Add(-2*time.Hour)) {
		t.Fatal("job past its interval should be due")
	}
}

func TestDailyAtTriggerWindow(t *testing.T) {
	s := New(logging.NewNop())
	if err := s.DailyAt("digest", "08:00", func(ctx context.Context) error { return nil }); err != nil {
		t.Fatalf("DailyAt failed: %v", err)
	}
	job := s.jobs[0]

	early := time.Date(2026, 8, 31, 7, 59, 0, 0, time.UTC)
	after := time.Date(2026, 8, 31, 8, 0, 30, 0, time.UTC)
	if job.due(early, time.Time{}) {
		t.Fatal("job before trigger time should not be due")
	}
	if !job.due(after, time.Time{}) {
		t.Fatal("job past trigger time should be due")
	}
	// Already ran today: stays quiet until tomorrow.
	if job.due(after.Add(time.Minute), after) {
		t.Fatal("job must not re-run the same day")
	}
	nextDay := after.Add(24 * time.Hour)
	if !job.due(nextDay, after) {
		t.Fatal("job should fire again the next day")
	}
}

func TestDailyAtRejectsBadClock(t *testing.T) {
	s := New(logging.NewNop())
	if err := s.DailyAt("digest", "25:99", func(ctx context.Context) error { return nil }); err == nil {
		t.Fatal("expected parse error for invalid time")
	}
}

func TestWeeklyAtTriggerWindow(t *testing.T) {
	s := New(logging.NewNop())
	if err := s.WeeklyAt("report", time.Monday, "09:00", func(ctx context.Context) error { return nil }); err != nil {
		t.Fatalf("WeeklyAt failed: %v", err)
	}
	job := s.jobs[0]

	// 2026-08-31 is a Monday.
	monday := time.Date(2026, 8, 31, 9, 5, 0, 0, time.UTC)
	tuesday := monday.Add(24 * time.Hour)
	if !job.due(monday, time.Time{}) {
		t.Fatal("job past Monday trigger should be due")
	}
	if job.due(tuesday, time.Time{}) {
		t.Fatal("job must only fire on its weekday")
	}
	if job.due(monday.Add(time.Minute), monday) {
		t.Fatal("job must not re-run the same Monday")
	}
}

func TestDispatchSkipsOverlappingRun(t *testing.T) {
	s := New(logging.NewNop())
	release := make(chan struct{})
	var runs atomic.Int64
	s.Every("slow", time.Nanosecond, func(ctx context.Context) error {
		runs.Add(1)
		<-release
		return nil
	})

	ctx := context.Background()
	now := time.Now()
	s.dispatch(ctx, now)
	// Wait for the goroutine to mark itself running.
	deadline := time.After(2 * time.Second)
	for runs.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("first run never started")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	s.dispatch(ctx, now.Add(time.Minute))
	if got := runs.Load(); got != 1 {
		t.Fatalf("overlapping tick should be skipped, got %d runs", got)
	}
	close(release)
	s.wg.Wait()
}

func TestStopWaitsForJobs(t *testing.T) {
	s := New(logging.NewNop())
	s.Every("quick", time.Hour, func(ctx context.Context) error {
		time.Sleep(30 * time.Millisecond)
		return nil
	})
	s.Start(context.Background())

	if !s.Stop(time.Second) {
		t.Fatal("Stop should drain within grace")
	}
	if !s.Stop(time.Second) {
		t.Fatal("stopping a stopped scheduler should succeed")
	}
}
