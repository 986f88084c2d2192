package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"

	"spyglass/internal/logging"
)

const videoColumns = "id, video_id, title, channel_id, channel_name, view_count, like_count, comment_count, duration_seconds, published_at, description, tags_json, thumbnail_url, category, subscriber_count, theme, keyword_source, has_details, pattern_type, pattern_score, collected_at, updated_at"

// ApplyIngestBounds enforces the ingest truncation rules on a video
// assembled from scraper output: title to 100 code points, description
// to 500, tags to the first 10.
func ApplyIngestBounds(v *Video) {
	v.Title = truncateRunes(strings.TrimSpace(v.Title), MaxTitleRunes)
	v.Description = truncateRunes(v.Description, MaxDescriptionRunes)
	if len(v.Tags) > MaxTags {
		v.Tags = v.Tags[:MaxTags]
	}
}

func validateVideo(v *Video) error {
	if v == nil {
		return fmt.Errorf("%w: nil video", ErrValidation)
	}
	if strings.TrimSpace(v.VideoID) == "" {
		return fmt.Errorf("%w: empty video_id", ErrValidation)
	}
	if strings.TrimSpace(v.Title) == "" {
		return fmt.Errorf("%w: empty title for %s", ErrValidation, v.VideoID)
	}
	return nil
}

// UpsertVideo inserts a video or merges it into the existing row keyed
// by video_id. Merge semantics are layered: a flat-search record
// overwrites only the search-layer fields, a detail record overwrites
// the enrichment layer as well. has_details never transitions back to
// false and updated_at always advances.
func (s *Store) UpsertVideo(ctx context.Context, v *Video) (UpsertOutcome, error) {
	if err := validateVideo(v); err != nil {
		return OutcomeUpdated, err
	}
	var outcome UpsertOutcome
	err := s.do(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin upsert tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		outcome, err = s.upsertVideoTx(ctx, tx, v)
		if err != nil {
			return err
		}
		return tx.Commit()
	})
	return outcome, err
}

// BatchUpsertVideos persists a batch, committing per chunk. Rows failing
// validation are skipped with a warning and counted in Skipped; a
// statement failure rolls back only the current chunk.
func (s *Store) BatchUpsertVideos(ctx context.Context, videos []Video) (BatchResult, error) {
	var result BatchResult
	chunkSize := s.batchSize
	if chunkSize <= 0 {
		chunkSize = 100
	}

	for start := 0; start < len(videos); start += chunkSize {
		end := start + chunkSize
		if end > len(videos) {
			end = len(videos)
		}
		chunk := videos[start:end]

		err := s.do(ctx, func() error {
			tx, err := s.db.BeginTx(ctx, nil)
			if err != nil {
				return fmt.Errorf("begin batch tx: %w", err)
			}
			defer func() { _ = tx.Rollback() }()

			chunkResult := BatchResult{}
			for i := range chunk {
				v := &chunk[i]
				if err := validateVideo(v); err != nil {
					s.logger.Warn("skipping invalid video row", logging.Error(err))
					chunkResult.Skipped++
					continue
				}
				outcome, err := s.upsertVideoTx(ctx, tx, v)
				if err != nil {
					return err
				}
				if outcome == OutcomeInserted {
					chunkResult.Inserted++
				} else {
					chunkResult.Updated++
				}
			}
			if err := tx.Commit(); err != nil {
				return fmt.Errorf("commit batch: %w", err)
			}
			result.Inserted += chunkResult.Inserted
			result.Updated += chunkResult.Updated
			result.Skipped += chunkResult.Skipped
			return nil
		})
		if err != nil {
			return result, err
		}
	}
	return result, nil
}

func (s *Store) upsertVideoTx(ctx context.Context, tx *sql.Tx, v *Video) (UpsertOutcome, error) {
	now := time.Now().UTC()
	row := tx.QueryRowContext(ctx, s.rebind(`SELECT `+videoColumns+` FROM videos WHERE video_id = ?`), v.VideoID)
	existing, err := scanVideo(row)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return OutcomeUpdated, fmt.Errorf("load existing video: %w", err)
	}

	if existing == nil {
		collected := v.CollectedAt
		if collected.IsZero() {
			collected = now
		}
		pattern := v.PatternType
		if pattern == "" {
			pattern = PatternUnknown
		}
		_, err := tx.ExecContext(ctx, s.rebind(`INSERT INTO videos (
            video_id, title, channel_id, channel_name, view_count, like_count,
            comment_count, duration_seconds, published_at, description, tags_json,
            thumbnail_url, category, subscriber_count, theme, keyword_source,
            has_details, pattern_type, pattern_score, collected_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
			v.VideoID,
			v.Title,
			nullableString(v.ChannelID),
			nullableString(v.ChannelName),
			v.ViewCount,
			v.LikeCount,
			v.CommentCount,
			v.DurationSeconds,
			nullableTime(v.PublishedAt),
			nullableString(v.Description),
			marshalStrings(v.Tags),
			nullableString(v.ThumbnailURL),
			nullableString(v.Category),
			v.SubscriberCount,
			nullableString(v.Theme),
			nullableString(v.KeywordSource),
			boolToInt(v.HasDetails),
			string(pattern),
			v.PatternScore,
			storeTime(collected),
			storeTime(now),
		)
		if err != nil {
			return OutcomeUpdated, fmt.Errorf("insert video %s: %w", v.VideoID, err)
		}
		return OutcomeInserted, nil
	}

	merged := mergeVideo(existing, v)
	_, err = tx.ExecContext(ctx, s.rebind(`UPDATE videos SET
        title = ?, channel_id = ?, channel_name = ?, view_count = ?, like_count = ?,
        comment_count = ?, duration_seconds = ?, published_at = ?, description = ?,
        tags_json = ?, thumbnail_url = ?, category = ?, subscriber_count = ?,
        theme = ?, keyword_source = ?, has_details = ?, updated_at = ?
        WHERE video_id = ?`),
		merged.Title,
		nullableString(merged.ChannelID),
		nullableString(merged.ChannelName),
		merged.ViewCount,
		merged.LikeCount,
		merged.CommentCount,
		merged.DurationSeconds,
		nullableTime(merged.PublishedAt),
		nullableString(merged.Description),
		marshalStrings(merged.Tags),
		nullableString(merged.ThumbnailURL),
		nullableString(merged.Category),
		merged.SubscriberCount,
		nullableString(merged.Theme),
		nullableString(merged.KeywordSource),
		boolToInt(merged.HasDetails),
		storeTime(now),
		merged.VideoID,
	)
	if err != nil {
		return OutcomeUpdated, fmt.Errorf("update video %s: %w", v.VideoID, err)
	}
	return OutcomeUpdated, nil
}

// mergeVideo folds an incoming record into the stored row. Search-layer
// fields always win; enrichment-layer fields win only when the incoming
// record carries details.
func mergeVideo(existing, incoming *Video) *Video {
	merged := *existing

	merged.Title = incoming.Title
	merged.ViewCount = incoming.ViewCount
	if incoming.ChannelName != "" {
		merged.ChannelName = incoming.ChannelName
	}
	if incoming.DurationSeconds > 0 {
		merged.DurationSeconds = incoming.DurationSeconds
	}
	if incoming.PublishedAt != nil {
		merged.PublishedAt = incoming.PublishedAt
	}
	if incoming.Theme != "" {
		merged.Theme = incoming.Theme
	}
	if incoming.KeywordSource != "" {
		merged.KeywordSource = incoming.KeywordSource
	}

	if incoming.HasDetails {
		merged.LikeCount = incoming.LikeCount
		merged.CommentCount = incoming.CommentCount
		merged.Description = incoming.Description
		merged.Tags = incoming.Tags
		if incoming.ChannelID != "" {
			merged.ChannelID = incoming.ChannelID
		}
		if incoming.ThumbnailURL != "" {
			merged.ThumbnailURL = incoming.ThumbnailURL
		}
		if incoming.Category != "" {
			merged.Category = incoming.Category
		}
		if incoming.SubscriberCount > 0 {
			merged.SubscriberCount = incoming.SubscriberCount
		}
		merged.HasDetails = true
	}
	return &merged
}

// ExistsVideos returns the subset of ids already present.
func (s *Store) ExistsVideos(ctx context.Context, ids []string) (map[string]struct{}, error) {
	present := make(map[string]struct{}, len(ids))
	if len(ids) == 0 {
		return present, nil
	}

	const chunkSize = 500
	for start := 0; start < len(ids); start += chunkSize {
		end := start + chunkSize
		if end > len(ids) {
			end = len(ids)
		}
		query, args, err := s.builder().
			Select("video_id").
			From("videos").
			Where(sq.Eq{"video_id": ids[start:end]}).
			ToSql()
		if err != nil {
			return nil, fmt.Errorf("build exists query: %w", err)
		}
		err = s.do(ctx, func() error {
			rows, err := s.db.QueryContext(ctx, query, args...)
			if err != nil {
				return fmt.Errorf("query exists: %w", err)
			}
			defer rows.Close()
			for rows.Next() {
				var id string
				if err := rows.Scan(&id); err != nil {
					s.logger.Warn("skipping unreadable row", logging.Error(err))
					continue
				}
				present[id] = struct{}{}
			}
			return rows.Err()
		})
		if err != nil {
			return nil, err
		}
	}
	return present, nil
}

// GetVideo fetches one video by its external id.
func (s *Store) GetVideo(ctx context.Context, videoID string) (*Video, error) {
	var video *Video
	err := s.do(ctx, func() error {
		row := s.db.QueryRowContext(ctx, s.rebind(`SELECT `+videoColumns+` FROM videos WHERE video_id = ?`), videoID)
		v, err := scanVideo(row)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: video %s", ErrNotFound, videoID)
		}
		if err != nil {
			return fmt.Errorf("get video: %w", err)
		}
		video = v
		return nil
	})
	return video, err
}

// FindVideos returns videos matching the filter.
func (s *Store) FindVideos(ctx context.Context, filter VideoFilter) ([]Video, error) {
	builder := s.builder().Select(videoColumns).From("videos")

	if filter.Theme != "" {
		builder = builder.Where(sq.Eq{"theme": filter.Theme})
	}
	if len(filter.Keywords) > 0 {
		builder = builder.Where(sq.Eq{"keyword_source": filter.Keywords})
	}
	if filter.MinViews > 0 {
		builder = builder.Where(sq.GtOrEq{"view_count": filter.MinViews})
	}
	if filter.HasDetails != nil {
		builder = builder.Where(sq.Eq{"has_details": boolToInt(*filter.HasDetails)})
	}
	if filter.PatternType != "" {
		builder = builder.Where(sq.Eq{"pattern_type": string(filter.PatternType)})
	}

	order := filter.OrderBy
	if order == "" {
		order = OrderByViews
	}
	builder = builder.OrderBy(string(order) + " DESC")
	if filter.Limit > 0 {
		builder = builder.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		builder = builder.Offset(uint64(filter.Offset))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build find query: %w", err)
	}
	return s.queryVideos(ctx, query, args...)
}

// VideosWithoutDetails returns the phase-B work queue: rows still
// missing details, most viewed first.
func (s *Store) VideosWithoutDetails(ctx context.Context, minViews int64, limit int) ([]Video, error) {
	query, args, err := s.builder().
		Select(videoColumns).
		From("videos").
		Where(sq.Eq{"has_details": 0}).
		Where(sq.GtOrEq{"view_count": minViews}).
		OrderBy("view_count DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build details queue query: %w", err)
	}
	return s.queryVideos(ctx, query, args...)
}

// UpdateVideoPattern stores the classifier verdict for a video.
func (s *Store) UpdateVideoPattern(ctx context.Context, videoID string, pattern PatternType, score float64) error {
	return s.do(ctx, func() error {
		res, err := s.db.ExecContext(ctx,
			s.rebind(`UPDATE videos SET pattern_type = ?, pattern_score = ?, updated_at = ? WHERE video_id = ?`),
			string(pattern), score, storeTime(time.Now().UTC()), videoID)
		if err != nil {
			return fmt.Errorf("update pattern: %w", err)
		}
		affected, err := res.RowsAffected()
		if err == nil && affected == 0 {
			return fmt.Errorf("%w: video %s", ErrNotFound, videoID)
		}
		return nil
	})
}

// CountVideos returns the total number of stored videos.
func (s *Store) CountVideos(ctx context.Context) (int64, error) {
	var count int64
	err := s.do(ctx, func() error {
		return s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM videos").Scan(&count)
	})
	return count, err
}

func (s *Store) queryVideos(ctx context.Context, query string, args ...any) ([]Video, error) {
	var videos []Video
	err := s.do(ctx, func() error {
		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("query videos: %w", err)
		}
		defer rows.Close()

		videos = videos[:0]
		for rows.Next() {
			video, err := scanVideo(rows)
			if err != nil {
				s.logger.Warn("skipping unreadable video row", logging.Error(err))
				continue
			}
			videos = append(videos, *video)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return videos, nil
}

func scanVideo(scanner rowScanner) (*Video, error) {
	var (
		id           int64
		videoID      string
		title        string
		channelID    sql.NullString
		channelName  sql.NullString
		viewCount    sql.NullInt64
		likeCount    sql.NullInt64
		commentCount sql.NullInt64
		duration     sql.NullInt64
		publishedRaw sql.NullString
		description  sql.NullString
		tagsRaw      sql.NullString
		thumbnail    sql.NullString
		category     sql.NullString
		subscribers  sql.NullInt64
		theme        sql.NullString
		keyword      sql.NullString
		hasDetails   sql.NullInt64
		patternType  sql.NullString
		patternScore sql.NullFloat64
		collectedRaw sql.NullString
		updatedRaw   sql.NullString
	)

	if err := scanner.Scan(
		&id, &videoID, &title, &channelID, &channelName, &viewCount,
		&likeCount, &commentCount, &duration, &publishedRaw, &description,
		&tagsRaw, &thumbnail, &category, &subscribers, &theme, &keyword,
		&hasDetails, &patternType, &patternScore, &collectedRaw, &updatedRaw,
	); err != nil {
		return nil, err
	}

	video := &Video{
		ID:              id,
		VideoID:         videoID,
		Title:           title,
		ChannelID:       channelID.String,
		ChannelName:     channelName.String,
		ViewCount:       viewCount.Int64,
		LikeCount:       likeCount.Int64,
		CommentCount:    commentCount.Int64,
		DurationSeconds: duration.Int64,
		PublishedAt:     parseTimePtr(publishedRaw),
		Description:     description.String,
		Tags:            unmarshalStrings(tagsRaw),
		ThumbnailURL:    thumbnail.String,
		Category:        category.String,
		SubscriberCount: subscribers.Int64,
		Theme:           theme.String,
		KeywordSource:   keyword.String,
		HasDetails:      hasDetails.Int64 != 0,
		PatternType:     PatternType(patternType.String),
		PatternScore:    patternScore.Float64,
	}
	if video.PatternType == "" {
		video.PatternType = PatternUnknown
	}
	if collected, err := parseTimeString(collectedRaw.String); err == nil {
		video.CollectedAt = collected
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		video.UpdatedAt = updated
	}
	return video, nil
}
