// Package growth tracks view-count time series and flags videos whose
// growth is accelerating.
package growth

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"spyglass/internal/config"
	"spyglass/internal/logging"
	"spyglass/internal/pool"
	"spyglass/internal/scrape"
	"spyglass/internal/store"
)

// Monitor runs snapshot sweeps over the videos due for a check.
type Monitor struct {
	store  *store.Store
	client *scrape.Client
	pool   *pool.Pool
	logger *slog.Logger

	sweepLimit int
	window     int
	thresholds Thresholds
}

// SweepStats summarizes one snapshot sweep.
type SweepStats struct {
	Due       int
	Succeeded int
	Failed    int
	Viral     int
}

// New builds a monitor from configuration.
func New(cfg *config.Config, st *store.Store, client *scrape.Client, workers *pool.Pool, logger *slog.Logger) *Monitor {
	return &Monitor{
		store:      st,
		client:     client,
		pool:       workers,
		logger:     logging.WithComponent(logger, "growth"),
		sweepLimit: cfg.Monitor.SweepLimit,
		window:     cfg.Monitor.SnapshotWindow,
		thresholds: Thresholds{
			GrowthMin:  cfg.Monitor.ViralGrowthMin,
			StepMin:    cfg.Monitor.ViralStepMin,
			MinSamples: cfg.Monitor.ViralMinSamples,
		},
	}
}

// Sweep selects the videos due for a check and snapshots each through
// the worker pool. Individual failures are counted, not fatal.
func (m *Monitor) Sweep(ctx context.Context) (*SweepStats, error) {
	due, err := m.store.VideosDueForCheck(ctx, time.Now(), m.sweepLimit)
	if err != nil {
		return nil, err
	}
	stats := &SweepStats{Due: len(due)}
	if len(due) == 0 {
		return stats, nil
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		failed    int
		viral     int
	)
	for _, video := range due {
		videoID := video.VideoID
		wg.Add(1)
		submitErr := m.pool.Submit(ctx, func() {
			defer wg.Done()
			isViral, err := m.CheckVideo(ctx, videoID)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed++
				return
			}
			succeeded++
			if isViral {
				viral++
			}
		})
		if submitErr != nil {
			wg.Done()
			break
		}
	}
	wg.Wait()

	stats.Succeeded = succeeded
	stats.Failed = failed
	stats.Viral = viral
	m.logger.Info("snapshot sweep finished",
		logging.Int("due", stats.Due),
		logging.Int("succeeded", stats.Succeeded),
		logging.Int("failed", stats.Failed),
		logging.Int("viral", stats.Viral))
	return stats, nil
}

// CheckVideo re-fetches one video's counters, appends a snapshot, and
// recomputes its monitoring state. It reports whether viral growth was
// detected on this check.
func (m *Monitor) CheckVideo(ctx context.Context, videoID string) (bool, error) {
	rec, err := m.client.Fetch(ctx, videoID)
	if err != nil {
		m.logger.Warn("counter fetch failed",
			logging.String(logging.FieldVideoID, videoID),
			logging.Error(err))
		return false, err
	}
	now := time.Now()

	previous, err := m.store.LastSnapshot(ctx, videoID)
	if err != nil {
		return false, err
	}

	snap := &store.ViewSnapshot{
		VideoID:      videoID,
		ViewCount:    rec.ViewCount,
		LikeCount:    rec.LikeCount,
		CommentCount: rec.CommentCount,
		RecordedAt:   now,
	}
	if previous != nil {
		// Deltas may go negative when the platform revises a count
		// downward; the raw observation is kept as-is.
		snap.ViewCountDelta = rec.ViewCount - previous.ViewCount
		snap.HoursSinceLast = now.Sub(previous.RecordedAt).Hours()
		snap.GrowthRate = Rate(snap.ViewCountDelta, previous.ViewCount)
	}
	if err := m.store.AppendSnapshot(ctx, snap); err != nil {
		return false, err
	}
	if previous != nil && snap.ViewCountDelta < -(previous.ViewCount/2) {
		m.raiseRegressionAlert(ctx, videoID, previous.ViewCount, rec.ViewCount)
	}

	// Refresh the stored counters alongside the snapshot.
	video := &store.Video{
		VideoID:         rec.VideoID,
		Title:           rec.Title,
		ChannelID:       rec.ChannelID,
		ChannelName:     rec.ChannelName,
		ViewCount:       rec.ViewCount,
		LikeCount:       rec.LikeCount,
		CommentCount:    rec.CommentCount,
		DurationSeconds: rec.DurationSeconds,
		PublishedAt:     rec.PublishedAt,
		Description:     rec.Description,
		Tags:            rec.Tags,
		ThumbnailURL:    rec.ThumbnailURL,
		Category:        rec.Category,
		SubscriberCount: rec.SubscriberCount,
		HasDetails:      rec.HasDetails,
		CollectedAt:     now,
	}
	store.ApplyIngestBounds(video)
	if _, err := m.store.UpsertVideo(ctx, video); err != nil {
		return false, err
	}

	recent, err := m.store.RecentSnapshots(ctx, videoID, m.window)
	if err != nil {
		return false, err
	}
	rates := ratesOf(recent)

	accel := Acceleration(rates)
	viral := m.thresholds.Viral(rates)
	tier := TierFor(rec.PublishedAt, now)
	state := &store.Monitoring{
		VideoID:        videoID,
		Tier:           tier,
		IsPotential:    snap.GrowthRate > m.thresholds.GrowthMin,
		LastGrowthRate: snap.GrowthRate,
		Acceleration:   accel,
		ViralScore:     Score(snap.GrowthRate, accel),
		LastCheckedAt:  now,
		NextCheckAt:    now.Add(tier.Interval()),
	}
	if err := m.store.UpsertMonitoring(ctx, state); err != nil {
		return false, err
	}

	if viral {
		m.raiseViralAlert(ctx, rec, state)
	}
	return viral, nil
}

func (m *Monitor) raiseViralAlert(ctx context.Context, rec *scrape.Record, state *store.Monitoring) {
	message := fmt.Sprintf("%q is growing fast: rate %.2f, score %.1f", rec.Title, state.LastGrowthRate, state.ViralScore)
	data := map[string]any{
		"video_id":     rec.VideoID,
		"growth_rate":  state.LastGrowthRate,
		"acceleration": state.Acceleration,
		"viral_score":  state.ViralScore,
	}
	if err := m.store.InsertAlert(ctx, store.AlertViralGrowth, store.LevelImportant, message, data); err != nil {
		m.logger.Warn("viral alert failed",
			logging.String(logging.FieldVideoID, rec.VideoID),
			logging.Error(err))
	}
}

// raiseRegressionAlert flags a counter reset: the observed view count
// fell by more than half the previous snapshot's value. The row is
// persisted unchanged; the alert is the only side effect.
func (m *Monitor) raiseRegressionAlert(ctx context.Context, videoID string, previousViews, observedViews int64) {
	message := fmt.Sprintf("view count for %s dropped from %d to %d", videoID, previousViews, observedViews)
	data := map[string]any{
		"video_id":       videoID,
		"previous_views": previousViews,
		"observed_views": observedViews,
	}
	if err := m.store.InsertAlert(ctx, store.AlertCountRegression, store.LevelImportant, message, data); err != nil {
		m.logger.Warn("count regression alert failed",
			logging.String(logging.FieldVideoID, videoID),
			logging.Error(err))
	}
}

// ratesOf extracts growth rates in chronological order. The first
// snapshot of a series has no predecessor and is skipped.
func ratesOf(snaps []store.ViewSnapshot) []float64 {
	rates := make([]float64, 0, len(snaps))
	for _, s := range snaps {
		if s.HoursSinceLast == 0 {
			continue
		}
		rates = append(rates, s.GrowthRate)
	}
	return rates
}
