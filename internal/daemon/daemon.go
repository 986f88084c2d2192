// Package daemon wires the pipeline components together for spyglassd:
// store, scrape client, worker pool, acquisition, growth monitoring,
// channel watching, reports, and the scheduler that drives them.
package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"spyglass/internal/acquire"
	"spyglass/internal/config"
	"spyglass/internal/growth"
	"spyglass/internal/logging"
	"spyglass/internal/pool"
	"spyglass/internal/report"
	"spyglass/internal/schedule"
	"spyglass/internal/scrape"
	"spyglass/internal/store"
	"spyglass/internal/watch"
)

// Daemon owns the long-running pipeline components.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger

	lock      *flock.Flock
	store     *store.Store
	client    *scrape.Client
	pool      *pool.Pool
	engine    *acquire.Engine
	monitor   *growth.Monitor
	watcher   *watch.Watcher
	reports   *report.Generator
	scheduler *schedule.Scheduler
}

// New builds the daemon. It takes the single-instance lock immediately;
// a second daemon against the same data directory fails here.
func New(cfg *config.Config, logger *slog.Logger) (*Daemon, error) {
	lock := flock.New(filepath.Join(cfg.Paths.DataDir, "spyglassd.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire daemon lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("another spyglassd is already running against %s", cfg.Paths.DataDir)
	}

	st, err := store.Open(cfg, logger)
	if err != nil {
		lock.Unlock() //nolint:errcheck
		return nil, err
	}
	client, err := scrape.New(cfg, logger)
	if err != nil {
		st.Close()    //nolint:errcheck
		lock.Unlock() //nolint:errcheck
		return nil, err
	}

	workers := pool.New(cfg.Workers.PoolSize, cfg.Workers.QueueDepth)
	d := &Daemon{
		cfg:       cfg,
		logger:    logging.WithComponent(logger, "daemon"),
		lock:      lock,
		store:     st,
		client:    client,
		pool:      workers,
		engine:    acquire.New(cfg, st, client, workers, logger),
		monitor:   growth.New(cfg, st, client, workers, logger),
		watcher:   watch.New(st, client, workers, logger),
		reports:   report.New(cfg, st, logger),
		scheduler: schedule.New(logger),
	}
	if err := d.registerJobs(); err != nil {
		d.Close()
		return nil, err
	}
	return d, nil
}

func (d *Daemon) registerJobs() error {
	sched := d.cfg.Schedule

	d.scheduler.Every("snapshot-sweep",
		time.Duration(sched.SnapshotSweepMinutes)*time.Minute,
		func(ctx context.Context) error {
			stats, err := d.monitor.Sweep(ctx)
			if err != nil {
				d.reports.NoteFailure("snapshot-sweep", err.Error())
				return err
			}
			if stats.Failed > 0 {
				d.reports.NoteFailure("snapshot-sweep",
					fmt.Sprintf("%d of %d checks failed", stats.Failed, stats.Due))
			}
			return nil
		})

	d.scheduler.Every("watch-poll",
		time.Duration(sched.WatchPollMinutes)*time.Minute,
		func(ctx context.Context) error {
			stats, err := d.watcher.Poll(ctx)
			if err != nil {
				d.reports.NoteFailure("watch-poll", err.Error())
				return err
			}
			if stats.Failed > 0 {
				d.reports.NoteFailure("watch-poll",
					fmt.Sprintf("%d of %d channel polls failed", stats.Failed, stats.Due))
			}
			return nil
		})

	d.scheduler.Every("detail-enrich",
		time.Duration(sched.EnrichEveryDays)*24*time.Hour,
		func(ctx context.Context) error {
			result, err := d.engine.EnrichDetails(ctx, int64(sched.EnrichMinViews))
			if err != nil {
				d.reports.NoteFailure("detail-enrich", err.Error())
				return err
			}
			if result.Failed > 0 {
				d.reports.NoteFailure("detail-enrich",
					fmt.Sprintf("%d of %d detail fetches failed", result.Failed, result.Queued))
			}
			return nil
		})

	if err := d.scheduler.DailyAt("daily-digest", sched.DigestAt, func(ctx context.Context) error {
		_, err := d.reports.DailyDigest(ctx, time.Now())
		return err
	}); err != nil {
		return fmt.Errorf("register daily digest: %w", err)
	}

	weekday, ok := config.ParseWeekday(sched.ReportWeekday)
	if !ok {
		return fmt.Errorf("unknown report weekday %q", sched.ReportWeekday)
	}
	if err := d.scheduler.WeeklyAt("weekly-report", weekday, sched.DigestAt, func(ctx context.Context) error {
		_, err := d.reports.WeeklyReport(ctx, time.Now())
		return err
	}); err != nil {
		return fmt.Errorf("register weekly report: %w", err)
	}
	return nil
}

// Start launches the scheduler. It returns once the loop is running.
func (d *Daemon) Start(ctx context.Context) {
	d.scheduler.Start(ctx)
	d.logger.Info("spyglassd running",
		logging.Int("workers", d.cfg.Workers.PoolSize),
		logging.String("data_dir", d.cfg.Paths.DataDir))
}

// Close stops the scheduler and the pool within the configured grace,
// then releases resources.
func (d *Daemon) Close() {
	grace := time.Duration(d.cfg.Workers.StopGraceSec) * time.Second
	if !d.scheduler.Stop(grace) {
		d.logger.Warn("scheduler stopped with jobs still running")
	}
	if !d.pool.Stop(grace) {
		d.logger.Warn("worker pool stopped with tasks still running")
	}
	if err := d.store.Close(); err != nil {
		d.logger.Warn("store close failed", logging.Error(err))
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("lock release failed", logging.Error(err))
	}
}
