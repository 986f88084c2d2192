package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"spyglass/internal/logging"
)

const monitoringColumns = "id, video_id, tier, is_potential, last_growth_rate, growth_acceleration, viral_score, last_checked_at, next_check_at, check_count"

// UpsertMonitoring creates or refreshes the monitoring row for a video.
// check_count increments on every refresh.
func (s *Store) UpsertMonitoring(ctx context.Context, m *Monitoring) error {
	if m == nil || m.VideoID == "" {
		return fmt.Errorf("%w: monitoring requires video_id", ErrValidation)
	}
	if m.NextCheckAt.Before(m.LastCheckedAt) {
		return fmt.Errorf("%w: next_check_at before last_checked_at for %s", ErrValidation, m.VideoID)
	}
	return s.do(ctx, func() error {
		_, err := s.db.ExecContext(ctx, s.rebind(`INSERT INTO video_monitoring (
            video_id, tier, is_potential, last_growth_rate, growth_acceleration,
            viral_score, last_checked_at, next_check_at, check_count
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1)
        ON CONFLICT (video_id) DO UPDATE SET
            tier = excluded.tier,
            is_potential = excluded.is_potential,
            last_growth_rate = excluded.last_growth_rate,
            growth_acceleration = excluded.growth_acceleration,
            viral_score = excluded.viral_score,
            last_checked_at = excluded.last_checked_at,
            next_check_at = excluded.next_check_at,
            check_count = video_monitoring.check_count + 1`),
			m.VideoID,
			string(m.Tier),
			boolToInt(m.IsPotential),
			m.LastGrowthRate,
			m.Acceleration,
			m.ViralScore,
			storeTime(m.LastCheckedAt),
			storeTime(m.NextCheckAt),
		)
		if err != nil {
			return fmt.Errorf("upsert monitoring %s: %w", m.VideoID, err)
		}
		return nil
	})
}

// GetMonitoring fetches the monitoring row for a video.
func (s *Store) GetMonitoring(ctx context.Context, videoID string) (*Monitoring, error) {
	var monitoring *Monitoring
	err := s.do(ctx, func() error {
		row := s.db.QueryRowContext(ctx, s.rebind(
			`SELECT `+monitoringColumns+` FROM video_monitoring WHERE video_id = ?`), videoID)
		m, err := scanMonitoring(row)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: monitoring for %s", ErrNotFound, videoID)
		}
		if err != nil {
			return fmt.Errorf("get monitoring: %w", err)
		}
		monitoring = m
		return nil
	})
	return monitoring, err
}

// VideosDueForCheck returns the prioritized snapshot queue: potential
// videos first, then videos published within the last week, then rows
// never monitored, then everything whose next check has come due.
// Potential and young videos are included regardless of next_check_at.
func (s *Store) VideosDueForCheck(ctx context.Context, now time.Time, limit int) ([]Video, error) {
	if limit <= 0 {
		limit = 100
	}
	weekAgo := storeTime(now.Add(-7 * 24 * time.Hour))
	cutoff := storeTime(now)

	query := s.rebind(`SELECT ` + prefixColumns("v.", videoColumns) + `
        FROM videos v
        LEFT JOIN video_monitoring m ON m.video_id = v.video_id
        WHERE m.is_potential = 1
           OR v.published_at >= ?
           OR m.id IS NULL
           OR m.next_check_at <= ?
        ORDER BY CASE
            WHEN m.is_potential = 1 THEN 0
            WHEN v.published_at >= ? THEN 1
            WHEN m.id IS NULL THEN 2
            ELSE 3 END,
            m.last_checked_at ASC NULLS FIRST
        LIMIT ?`)

	return s.queryVideos(ctx, query, weekAgo, cutoff, weekAgo, limit)
}

// TopMonitored returns monitoring rows ordered by viral score, highest
// first. Used by trend views and reports.
func (s *Store) TopMonitored(ctx context.Context, limit int) ([]Monitoring, error) {
	if limit <= 0 {
		limit = 20
	}
	var rows []Monitoring
	err := s.do(ctx, func() error {
		result, err := s.db.QueryContext(ctx, s.rebind(
			`SELECT `+monitoringColumns+` FROM video_monitoring
             ORDER BY viral_score DESC, last_growth_rate DESC LIMIT ?`), limit)
		if err != nil {
			return fmt.Errorf("query top monitored: %w", err)
		}
		defer result.Close()
		rows = rows[:0]
		for result.Next() {
			m, err := scanMonitoring(result)
			if err != nil {
				s.logger.Warn("skipping unreadable monitoring row", logging.Error(err))
				continue
			}
			rows = append(rows, *m)
		}
		return result.Err()
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// MonitoringStats returns the monitored-row count and how many are
// currently flagged potential.
func (s *Store) MonitoringStats(ctx context.Context) (total, potential int64, err error) {
	err = s.do(ctx, func() error {
		return s.db.QueryRowContext(ctx,
			"SELECT COUNT(1), COALESCE(SUM(is_potential), 0) FROM video_monitoring").
			Scan(&total, &potential)
	})
	return total, potential, err
}

func scanMonitoring(scanner rowScanner) (*Monitoring, error) {
	var (
		id          int64
		videoID     string
		tier        sql.NullString
		potential   sql.NullInt64
		growthRate  sql.NullFloat64
		accel       sql.NullFloat64
		viralScore  sql.NullFloat64
		lastChecked sql.NullString
		nextCheck   sql.NullString
		checkCount  sql.NullInt64
	)
	if err := scanner.Scan(&id, &videoID, &tier, &potential, &growthRate, &accel, &viralScore, &lastChecked, &nextCheck, &checkCount); err != nil {
		return nil, err
	}
	m := &Monitoring{
		ID:             id,
		VideoID:        videoID,
		Tier:           Tier(tier.String),
		IsPotential:    potential.Int64 != 0,
		LastGrowthRate: growthRate.Float64,
		Acceleration:   accel.Float64,
		ViralScore:     viralScore.Float64,
		CheckCount:     checkCount.Int64,
	}
	if parsed := parseTimePtr(lastChecked); parsed != nil {
		m.LastCheckedAt = *parsed
	}
	if parsed := parseTimePtr(nextCheck); parsed != nil {
		m.NextCheckAt = *parsed
	}
	return m, nil
}

// prefixColumns qualifies a comma-separated column list with a table
// alias for join queries.
func prefixColumns(prefix, columns string) string {
	parts := make([]string, 0, 24)
	for _, col := range splitColumns(columns) {
		parts = append(parts, prefix+col)
	}
	return joinColumns(parts)
}
