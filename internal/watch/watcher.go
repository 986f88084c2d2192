// Package watch polls watched channels for new uploads independently of
// any video-level schedule.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"spyglass/internal/logging"
	"spyglass/internal/pool"
	"spyglass/internal/scrape"
	"spyglass/internal/store"
)

// uploadsPerPoll bounds the flat scrape of a channel's uploads tab. New
// uploads beyond this window are picked up on the next poll.
const uploadsPerPoll = 10

// Watcher polls active channel watches at their priority-driven
// intervals.
type Watcher struct {
	store  *store.Store
	client *scrape.Client
	pool   *pool.Pool
	logger *slog.Logger
}

// PollStats summarizes one poll pass.
type PollStats struct {
	Due       int
	Polled    int
	Failed    int
	NewVideos int
}

// New builds a watcher.
func New(st *store.Store, client *scrape.Client, workers *pool.Pool, logger *slog.Logger) *Watcher {
	return &Watcher{
		store:  st,
		client: client,
		pool:   workers,
		logger: logging.WithComponent(logger, "watch"),
	}
}

// Poll checks every active watch whose interval has elapsed. Per-channel
// failures are counted, not fatal.
func (w *Watcher) Poll(ctx context.Context) (*PollStats, error) {
	watches, err := w.store.ActiveWatches(ctx)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	due := make([]store.WatchedChannel, 0, len(watches))
	for _, watch := range watches {
		if watchDue(&watch, now) {
			due = append(due, watch)
		}
	}
	stats := &PollStats{Due: len(due)}
	if len(due) == 0 {
		return stats, nil
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		polled    int
		failed    int
		newVideos int
	)
	for _, watch := range due {
		watch := watch
		wg.Add(1)
		submitErr := w.pool.Submit(ctx, func() {
			defer wg.Done()
			found, err := w.pollChannel(ctx, &watch)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed++
				return
			}
			polled++
			newVideos += found
		})
		if submitErr != nil {
			wg.Done()
			break
		}
	}
	wg.Wait()

	stats.Polled = polled
	stats.Failed = failed
	stats.NewVideos = newVideos
	w.logger.Info("watch poll finished",
		logging.Int("due", stats.Due),
		logging.Int("polled", stats.Polled),
		logging.Int("failed", stats.Failed),
		logging.Int("new_videos", stats.NewVideos))
	return stats, nil
}

func watchDue(watch *store.WatchedChannel, now time.Time) bool {
	if watch.LastCheckedAt == nil {
		return true
	}
	interval := time.Duration(watch.CheckIntervalMin) * time.Minute
	return now.Sub(*watch.LastCheckedAt) >= interval
}

// pollChannel scrapes a channel's recent uploads and records everything
// newer than the last seen video. Returns the number of new uploads.
func (w *Watcher) pollChannel(ctx context.Context, watch *store.WatchedChannel) (int, error) {
	records, err := w.client.RecentUploads(ctx, watch.ChannelID, uploadsPerPoll)
	if err != nil {
		w.logger.Warn("upload poll failed",
			logging.String(logging.FieldChannelID, watch.ChannelID),
			logging.Error(err))
		return 0, err
	}
	now := time.Now()

	// Records arrive newest first; stop at the upload seen last time.
	var fresh []scrape.Record
	for _, rec := range records {
		if rec.VideoID == watch.LastVideoID {
			break
		}
		fresh = append(fresh, rec)
	}

	for i := len(fresh) - 1; i >= 0; i-- {
		rec := fresh[i]
		pub := &store.Publication{
			ChannelID:    watch.ChannelID,
			VideoID:      rec.VideoID,
			Title:        rec.Title,
			DiscoveredAt: now,
		}
		if err := w.store.AppendPublication(ctx, pub); err != nil {
			return 0, err
		}
		w.raiseNewVideoAlert(ctx, watch, &rec)
		if topic := matchTopic(watch.InterestedTopics, rec.Title); topic != "" {
			w.raiseTopicAlert(ctx, watch, &rec, topic)
		}
	}

	lastID := watch.LastVideoID
	var lastAt *time.Time
	if len(records) > 0 {
		lastID = records[0].VideoID
		lastAt = records[0].PublishedAt
	}
	if err := w.store.TouchWatch(ctx, watch.ChannelID, lastID, lastAt, now); err != nil {
		return 0, err
	}
	return len(fresh), nil
}

func (w *Watcher) raiseNewVideoAlert(ctx context.Context, watch *store.WatchedChannel, rec *scrape.Record) {
	level := store.LevelImportant
	if watch.Priority == store.PriorityCritical {
		level = store.LevelUrgent
	}
	message := fmt.Sprintf("%s uploaded %q", channelLabel(watch, rec), rec.Title)
	data := map[string]any{
		"channel_id": watch.ChannelID,
		"video_id":   rec.VideoID,
		"title":      rec.Title,
	}
	if err := w.store.InsertAlert(ctx, store.AlertNewVideo, level, message, data); err != nil {
		w.logger.Warn("new video alert failed",
			logging.String(logging.FieldChannelID, watch.ChannelID),
			logging.Error(err))
	}
}

func (w *Watcher) raiseTopicAlert(ctx context.Context, watch *store.WatchedChannel, rec *scrape.Record, topic string) {
	message := fmt.Sprintf("%s uploaded %q matching topic %q", channelLabel(watch, rec), rec.Title, topic)
	data := map[string]any{
		"channel_id": watch.ChannelID,
		"video_id":   rec.VideoID,
		"topic":      topic,
	}
	if err := w.store.InsertAlert(ctx, store.AlertTopicMatch, store.LevelImportant, message, data); err != nil {
		w.logger.Warn("topic alert failed",
			logging.String(logging.FieldChannelID, watch.ChannelID),
			logging.Error(err))
	}
}

func channelLabel(watch *store.WatchedChannel, rec *scrape.Record) string {
	if rec.ChannelName != "" {
		return rec.ChannelName
	}
	return watch.ChannelID
}

func matchTopic(topics []string, title string) string {
	lowered := strings.ToLower(title)
	for _, topic := range topics {
		if topic == "" {
			continue
		}
		if strings.Contains(lowered, strings.ToLower(topic)) {
			return topic
		}
	}
	return ""
}

// EnrichChannel fetches a channel's About page and refreshes its stored
// profile. Parse anomalies raise a channel_anomaly alert instead of
// failing the caller.
func (w *Watcher) EnrichChannel(ctx context.Context, channelID string) (*store.Channel, error) {
	profile, err := w.client.FetchChannel(ctx, channelID)
	if err != nil {
		return nil, err
	}
	if profile.ChannelID == "" || profile.ChannelName == "" {
		message := fmt.Sprintf("channel %s returned an incomplete profile", channelID)
		if alertErr := w.store.InsertAlert(ctx, store.AlertChannelAnomaly, store.LevelInfo, message, map[string]any{
			"channel_id": channelID,
		}); alertErr != nil {
			w.logger.Warn("anomaly alert failed",
				logging.String(logging.FieldChannelID, channelID),
				logging.Error(alertErr))
		}
	}

	channel := &store.Channel{
		ChannelID:       firstNonEmpty(profile.ChannelID, channelID),
		ChannelName:     profile.ChannelName,
		Handle:          profile.Handle,
		SubscriberCount: profile.SubscriberCount,
		VideoCount:      profile.VideoCount,
		TotalViews:      profile.TotalViews,
		Description:     profile.Description,
	}
	if _, err := w.store.UpsertChannel(ctx, channel); err != nil {
		return nil, err
	}
	return channel, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
