package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"spyglass/internal/logging"
)

// InsertAlert records a surfaced event.
func (s *Store) InsertAlert(ctx context.Context, kind AlertKind, level AlertLevel, message string, data map[string]any) error {
	if strings.TrimSpace(message) == "" {
		return fmt.Errorf("%w: alert requires a message", ErrValidation)
	}
	if level == "" {
		level = LevelInfo
	}
	return s.do(ctx, func() error {
		_, err := s.db.ExecContext(ctx, s.rebind(`INSERT INTO alerts (
            kind, level, message, data_json, created_at, is_read
        ) VALUES (?, ?, ?, ?, ?, 0)`),
			string(kind),
			string(level),
			message,
			marshalData(data),
			storeTime(time.Now().UTC()),
		)
		if err != nil {
			return fmt.Errorf("insert alert: %w", err)
		}
		return nil
	})
}

// ListAlerts returns alerts newest first, optionally unread only.
func (s *Store) ListAlerts(ctx context.Context, unreadOnly bool, limit int) ([]Alert, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT id, kind, level, message, data_json, created_at, is_read FROM alerts`
	if unreadOnly {
		query += ` WHERE is_read = 0`
	}
	query += ` ORDER BY created_at DESC LIMIT ?`

	var alerts []Alert
	err := s.do(ctx, func() error {
		rows, err := s.db.QueryContext(ctx, s.rebind(query), limit)
		if err != nil {
			return fmt.Errorf("list alerts: %w", err)
		}
		defer rows.Close()

		alerts = alerts[:0]
		for rows.Next() {
			var (
				alert      Alert
				kind       string
				level      string
				dataRaw    sql.NullString
				createdRaw sql.NullString
				isRead     sql.NullInt64
			)
			if err := rows.Scan(&alert.ID, &kind, &level, &alert.Message, &dataRaw, &createdRaw, &isRead); err != nil {
				s.logger.Warn("skipping unreadable alert row", logging.Error(err))
				continue
			}
			alert.Kind = AlertKind(kind)
			alert.Level = AlertLevel(level)
			alert.Data = unmarshalData(dataRaw)
			alert.IsRead = isRead.Int64 != 0
			if created, err := parseTimeString(createdRaw.String); err == nil {
				alert.CreatedAt = created
			}
			alerts = append(alerts, alert)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return alerts, nil
}

// MarkAlertRead flags one alert as read.
func (s *Store) MarkAlertRead(ctx context.Context, id int64) error {
	return s.do(ctx, func() error {
		res, err := s.db.ExecContext(ctx, s.rebind(`UPDATE alerts SET is_read = 1 WHERE id = ?`), id)
		if err != nil {
			return fmt.Errorf("mark alert read: %w", err)
		}
		if affected, err := res.RowsAffected(); err == nil && affected == 0 {
			return fmt.Errorf("%w: alert %d", ErrNotFound, id)
		}
		return nil
	})
}

// CountAlerts returns total and unread alert counts since a cutoff.
func (s *Store) CountAlerts(ctx context.Context, since time.Time) (total, unread int64, err error) {
	err = s.do(ctx, func() error {
		return s.db.QueryRowContext(ctx, s.rebind(
			`SELECT COUNT(1), COALESCE(SUM(CASE WHEN is_read = 0 THEN 1 ELSE 0 END), 0)
             FROM alerts WHERE created_at >= ?`), storeTime(since)).
			Scan(&total, &unread)
	})
	return total, unread, err
}
