// Package acquire implements the two-phase acquisition engine. Phase A
// sweeps keyword searches into lightweight video rows; phase B promotes
// the highest-value rows to full detail records via the worker pool.
package acquire

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"spyglass/internal/config"
	"spyglass/internal/logging"
	"spyglass/internal/pool"
	"spyglass/internal/scrape"
	"spyglass/internal/store"
)

// Engine drives keyword sweeps and detail enrichment against the shared
// store.
type Engine struct {
	store  *store.Store
	client *scrape.Client
	pool   *pool.Pool
	logger *slog.Logger

	maxPerKeyword   int
	detailMinViews  int64
	detailLimit     int
	commentsEnabled bool
	maxComments     int
}

// SweepResult summarizes one full Collect run.
type SweepResult struct {
	SweepID  string
	Theme    string
	Keywords []string

	Found    int
	Inserted int
	Updated  int
	Skipped  int

	DetailFetched int
	DetailFailed  int

	// Failed lists keywords whose search could not complete. A sweep
	// with some failed keywords still persists the rest.
	Failed []string

	StartedAt  time.Time
	FinishedAt time.Time
}

// Partial reports whether the sweep completed with some failures.
func (r *SweepResult) Partial() bool {
	return len(r.Failed) > 0 || r.DetailFailed > 0
}

// EnrichResult summarizes one phase B pass.
type EnrichResult struct {
	Queued  int
	Fetched int
	Failed  int
}

// New builds an acquisition engine from configuration.
func New(cfg *config.Config, st *store.Store, client *scrape.Client, workers *pool.Pool, logger *slog.Logger) *Engine {
	return &Engine{
		store:           st,
		client:          client,
		pool:            workers,
		logger:          logging.WithComponent(logger, "acquire"),
		maxPerKeyword:   cfg.Scraper.MaxPerKeyword,
		detailMinViews:  int64(cfg.Collect.DetailMinViews),
		detailLimit:     cfg.Collect.DetailLimit,
		commentsEnabled: cfg.Scraper.CommentsEnabled,
		maxComments:     100,
	}
}

// Collect runs a complete sweep: phase A across every keyword, then
// phase B enrichment for the rows that now qualify. Keyword failures are
// recorded in the result rather than aborting the sweep; Collect returns
// an error only when every keyword failed or the store is unreachable.
func (e *Engine) Collect(ctx context.Context, theme string, keywords []string) (*SweepResult, error) {
	result := &SweepResult{
		SweepID:   uuid.NewString(),
		Theme:     theme,
		Keywords:  keywords,
		StartedAt: time.Now(),
	}
	logger := e.logger.With(logging.String(logging.FieldSweepID, result.SweepID))
	logger.Info("sweep started",
		logging.String(logging.FieldTheme, theme),
		logging.Int("keywords", len(keywords)))

	for _, keyword := range keywords {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		records, err := e.client.Search(ctx, keyword, e.maxPerKeyword)
		if err != nil {
			logger.Warn("keyword search failed",
				logging.String(logging.FieldKeyword, keyword),
				logging.Error(err))
			result.Failed = append(result.Failed, keyword)
			continue
		}
		batch, err := e.persistSearch(ctx, theme, keyword, records)
		if err != nil {
			return result, err
		}
		result.Found += len(records)
		result.Inserted += batch.Inserted
		result.Updated += batch.Updated
		result.Skipped += batch.Skipped
	}

	if len(result.Failed) == len(keywords) && len(keywords) > 0 {
		result.FinishedAt = time.Now()
		return result, fmt.Errorf("all %d keyword searches failed", len(keywords))
	}

	enrich, err := e.EnrichDetails(ctx, e.detailMinViews)
	if err != nil {
		result.FinishedAt = time.Now()
		return result, err
	}
	result.DetailFetched = enrich.Fetched
	result.DetailFailed = enrich.Failed
	result.FinishedAt = time.Now()

	logger.Info("sweep finished",
		logging.Int("found", result.Found),
		logging.Int("inserted", result.Inserted),
		logging.Int("updated", result.Updated),
		logging.Int("skipped", result.Skipped),
		logging.Int("detail_fetched", result.DetailFetched),
		logging.Int("detail_failed", result.DetailFailed),
		logging.Int("failed_keywords", len(result.Failed)))
	return result, nil
}

// persistSearch converts one keyword page into video rows and batch
// upserts them. Re-observed videos whose public view count came back
// strictly lower than the stored value raise an informational
// count_regression alert before the lower value is persisted.
func (e *Engine) persistSearch(ctx context.Context, theme, keyword string, records []scrape.Record) (store.BatchResult, error) {
	if len(records) == 0 {
		return store.BatchResult{}, nil
	}

	ids := make([]string, 0, len(records))
	videos := make([]store.Video, 0, len(records))
	now := time.Now()
	for _, rec := range records {
		v := recordToVideo(rec, now)
		v.Theme = theme
		v.KeywordSource = keyword
		store.ApplyIngestBounds(&v)
		videos = append(videos, v)
		ids = append(ids, v.VideoID)
	}

	existing, err := e.store.ExistsVideos(ctx, ids)
	if err != nil {
		return store.BatchResult{}, err
	}
	for i := range videos {
		if _, ok := existing[videos[i].VideoID]; !ok {
			continue
		}
		e.checkRegression(ctx, &videos[i])
	}

	return e.store.BatchUpsertVideos(ctx, videos)
}

func (e *Engine) checkRegression(ctx context.Context, incoming *store.Video) {
	current, err := e.store.GetVideo(ctx, incoming.VideoID)
	if err != nil {
		return
	}
	if incoming.ViewCount >= current.ViewCount {
		return
	}
	message := fmt.Sprintf("view count for %s dropped from %d to %d", incoming.VideoID, current.ViewCount, incoming.ViewCount)
	data := map[string]any{
		"video_id":       incoming.VideoID,
		"previous_views": current.ViewCount,
		"observed_views": incoming.ViewCount,
	}
	if err := e.store.InsertAlert(ctx, store.AlertCountRegression, store.LevelInfo, message, data); err != nil {
		e.logger.Warn("count regression alert failed",
			logging.String(logging.FieldVideoID, incoming.VideoID),
			logging.Error(err))
	}
}

// EnrichDetails runs phase B: select detail-less rows above the given
// view floor, fetch each one through the worker pool, and merge the
// detail layer back into the store. Collect passes the acquisition
// floor; the scheduled standalone sweep uses its own.
func (e *Engine) EnrichDetails(ctx context.Context, minViews int64) (*EnrichResult, error) {
	if minViews < 0 {
		minViews = e.detailMinViews
	}
	candidates, err := e.store.VideosWithoutDetails(ctx, minViews, e.detailLimit)
	if err != nil {
		return nil, err
	}
	result := &EnrichResult{Queued: len(candidates)}
	if len(candidates) == 0 {
		return result, nil
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		fetched int
		failed  int
	)
	for _, candidate := range candidates {
		videoID := candidate.VideoID
		wg.Add(1)
		submitErr := e.pool.Submit(ctx, func() {
			defer wg.Done()
			if err := e.fetchDetail(ctx, videoID); err != nil {
				e.logger.Warn("detail fetch failed",
					logging.String(logging.FieldVideoID, videoID),
					logging.Error(err))
				mu.Lock()
				failed++
				mu.Unlock()
				return
			}
			mu.Lock()
			fetched++
			mu.Unlock()
		})
		if submitErr != nil {
			wg.Done()
			break
		}
	}
	wg.Wait()

	result.Fetched = fetched
	result.Failed = failed
	e.logger.Info("detail enrichment finished",
		logging.Int("queued", result.Queued),
		logging.Int("fetched", result.Fetched),
		logging.Int("failed", result.Failed))
	return result, nil
}

func (e *Engine) fetchDetail(ctx context.Context, videoID string) error {
	var (
		rec *scrape.Record
		err error
	)
	if e.commentsEnabled {
		rec, err = e.client.FetchWithComments(ctx, videoID, e.maxComments)
	} else {
		rec, err = e.client.Fetch(ctx, videoID)
	}
	if err != nil {
		return err
	}

	v := recordToVideo(*rec, time.Now())
	store.ApplyIngestBounds(&v)
	if _, err := e.store.UpsertVideo(ctx, &v); err != nil {
		return err
	}

	if len(rec.Comments) > 0 {
		comments := make([]store.Comment, 0, len(rec.Comments))
		for _, c := range rec.Comments {
			comments = append(comments, store.Comment{
				CommentID:   c.CommentID,
				VideoID:     videoID,
				Text:        c.Text,
				Author:      c.Author,
				AuthorID:    c.AuthorID,
				LikeCount:   c.LikeCount,
				ReplyCount:  c.ReplyCount,
				IsPinned:    c.IsPinned,
				PublishedAt: c.PublishedAt,
			})
		}
		if _, err := e.store.UpsertComments(ctx, comments); err != nil {
			return err
		}
	}
	return nil
}

func recordToVideo(rec scrape.Record, now time.Time) store.Video {
	return store.Video{
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
}
