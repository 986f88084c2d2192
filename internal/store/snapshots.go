package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"spyglass/internal/logging"
)

const snapshotColumns = "id, video_id, view_count, like_count, comment_count, view_count_delta, hours_since_last, growth_rate, recorded_at"

// AppendSnapshot persists a snapshot with its computed growth fields.
// Snapshots are append-only; delta, hours and rate are supplied by the
// growth monitor which owns their computation.
func (s *Store) AppendSnapshot(ctx context.Context, snap *ViewSnapshot) error {
	if snap == nil || snap.VideoID == "" {
		return fmt.Errorf("%w: snapshot requires video_id", ErrValidation)
	}
	recorded := snap.RecordedAt
	if recorded.IsZero() {
		recorded = time.Now().UTC()
	}
	return s.do(ctx, func() error {
		_, err := s.db.ExecContext(ctx, s.rebind(`INSERT INTO view_snapshots (
            video_id, view_count, like_count, comment_count,
            view_count_delta, hours_since_last, growth_rate, recorded_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
			snap.VideoID,
			snap.ViewCount,
			snap.LikeCount,
			snap.CommentCount,
			snap.ViewCountDelta,
			snap.HoursSinceLast,
			snap.GrowthRate,
			storeTime(recorded),
		)
		if err != nil {
			return fmt.Errorf("append snapshot %s: %w", snap.VideoID, err)
		}
		return nil
	})
}

// LastSnapshot returns the most recent snapshot for a video, or nil when
// none has been recorded yet.
func (s *Store) LastSnapshot(ctx context.Context, videoID string) (*ViewSnapshot, error) {
	var snap *ViewSnapshot
	err := s.do(ctx, func() error {
		row := s.db.QueryRowContext(ctx, s.rebind(
			`SELECT `+snapshotColumns+` FROM view_snapshots WHERE video_id = ? ORDER BY recorded_at DESC LIMIT 1`), videoID)
		parsed, err := scanSnapshot(row)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("last snapshot: %w", err)
		}
		snap = parsed
		return nil
	})
	return snap, err
}

// RecentSnapshots returns up to limit snapshots for a video in
// chronological order (oldest first).
func (s *Store) RecentSnapshots(ctx context.Context, videoID string, limit int) ([]ViewSnapshot, error) {
	if limit <= 0 {
		limit = 5
	}
	var snaps []ViewSnapshot
	err := s.do(ctx, func() error {
		rows, err := s.db.QueryContext(ctx, s.rebind(
			`SELECT `+snapshotColumns+` FROM view_snapshots WHERE video_id = ? ORDER BY recorded_at DESC LIMIT ?`), videoID, limit)
		if err != nil {
			return fmt.Errorf("recent snapshots: %w", err)
		}
		defer rows.Close()

		snaps = snaps[:0]
		for rows.Next() {
			snap, err := scanSnapshot(rows)
			if err != nil {
				s.logger.Warn("skipping unreadable snapshot row", logging.Error(err))
				continue
			}
			snaps = append(snaps, *snap)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	// Reverse into chronological order.
	for i, j := 0, len(snaps)-1; i < j; i, j = i+1, j-1 {
		snaps[i], snaps[j] = snaps[j], snaps[i]
	}
	return snaps, nil
}

func scanSnapshot(scanner rowScanner) (*ViewSnapshot, error) {
	var (
		id          int64
		videoID     string
		views       sql.NullInt64
		likes       sql.NullInt64
		comments    sql.NullInt64
		delta       sql.NullInt64
		hours       sql.NullFloat64
		growth      sql.NullFloat64
		recordedRaw sql.NullString
	)
	if err := scanner.Scan(&id, &videoID, &views, &likes, &comments, &delta, &hours, &growth, &recordedRaw); err != nil {
		return nil, err
	}
	snap := &ViewSnapshot{
		ID:             id,
		VideoID:        videoID,
		ViewCount:      views.Int64,
		LikeCount:      likes.Int64,
		CommentCount:   comments.Int64,
		ViewCountDelta: delta.Int64,
		HoursSinceLast: hours.Float64,
		GrowthRate:     growth.Float64,
	}
	if recorded, err := parseTimeString(recordedRaw.String); err == nil {
		snap.RecordedAt = recorded
	}
	return snap, nil
}
