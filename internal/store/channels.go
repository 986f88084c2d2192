package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"spyglass/internal/logging"
)

const channelColumns = "id, channel_id, channel_name, handle, subscriber_count, video_count, total_views, country, description, created_at"

const watchedColumns = "id, channel_id, priority, check_interval_minutes, last_video_id, last_video_at, last_checked_at, interested_topics_json, is_active"

// UpsertChannel inserts or refreshes a channel profile.
func (s *Store) UpsertChannel(ctx context.Context, c *Channel) (UpsertOutcome, error) {
	if c == nil || strings.TrimSpace(c.ChannelID) == "" {
		return OutcomeUpdated, fmt.Errorf("%w: channel requires channel_id", ErrValidation)
	}
	outcome := OutcomeUpdated
	err := s.do(ctx, func() error {
		res, err := s.db.ExecContext(ctx, s.rebind(`UPDATE channels SET
            channel_name = ?, handle = ?, subscriber_count = ?, video_count = ?,
            total_views = ?, country = ?, description = ?
            WHERE channel_id = ?`),
			nullableString(c.ChannelName),
			nullableString(c.Handle),
			c.SubscriberCount,
			c.VideoCount,
			c.TotalViews,
			nullableString(c.Country),
			nullableString(c.Description),
			c.ChannelID,
		)
		if err != nil {
			return fmt.Errorf("update channel %s: %w", c.ChannelID, err)
		}
		if affected, err := res.RowsAffected(); err == nil && affected > 0 {
			return nil
		}
		_, err = s.db.ExecContext(ctx, s.rebind(`INSERT INTO channels (
            channel_id, channel_name, handle, subscriber_count, video_count,
            total_views, country, description, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
			c.ChannelID,
			nullableString(c.ChannelName),
			nullableString(c.Handle),
			c.SubscriberCount,
			c.VideoCount,
			c.TotalViews,
			nullableString(c.Country),
			nullableString(c.Description),
			storeTime(time.Now().UTC()),
		)
		if err != nil {
			return fmt.Errorf("insert channel %s: %w", c.ChannelID, err)
		}
		outcome = OutcomeInserted
		return nil
	})
	return outcome, err
}

// GetChannel fetches a channel by external id.
func (s *Store) GetChannel(ctx context.Context, channelID string) (*Channel, error) {
	var channel *Channel
	err := s.do(ctx, func() error {
		row := s.db.QueryRowContext(ctx, s.rebind(`SELECT `+channelColumns+` FROM channels WHERE channel_id = ?`), channelID)
		c, err := scanChannel(row)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: channel %s", ErrNotFound, channelID)
		}
		if err != nil {
			return fmt.Errorf("get channel: %w", err)
		}
		channel = c
		return nil
	})
	return channel, err
}

// ListChannels returns stored channels by descending subscriber count.
func (s *Store) ListChannels(ctx context.Context, limit int) ([]Channel, error) {
	if limit <= 0 {
		limit = 100
	}
	var channels []Channel
	err := s.do(ctx, func() error {
		rows, err := s.db.QueryContext(ctx, s.rebind(
			`SELECT `+channelColumns+` FROM channels ORDER BY subscriber_count DESC LIMIT ?`), limit)
		if err != nil {
			return fmt.Errorf("list channels: %w", err)
		}
		defer rows.Close()

		channels = channels[:0]
		for rows.Next() {
			channel, err := scanChannel(rows)
			if err != nil {
				s.logger.Warn("skipping unreadable channel row", logging.Error(err))
				continue
			}
			channels = append(channels, *channel)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return channels, nil
}

// WatchChannel subscribes a channel for upload polling, or refreshes an
// existing subscription's priority/interval/topics.
func (s *Store) WatchChannel(ctx context.Context, w *WatchedChannel) error {
	if w == nil || strings.TrimSpace(w.ChannelID) == "" {
		return fmt.Errorf("%w: watch requires channel_id", ErrValidation)
	}
	if w.Priority == "" {
		w.Priority = PriorityNormal
	}
	if w.CheckIntervalMin <= 0 {
		w.CheckIntervalMin = defaultWatchInterval(w.Priority)
	}
	return s.do(ctx, func() error {
		_, err := s.db.ExecContext(ctx, s.rebind(`INSERT INTO watched_channels (
            channel_id, priority, check_interval_minutes, interested_topics_json, is_active
        ) VALUES (?, ?, ?, ?, 1)
        ON CONFLICT (channel_id) DO UPDATE SET
            priority = excluded.priority,
            check_interval_minutes = excluded.check_interval_minutes,
            interested_topics_json = excluded.interested_topics_json,
            is_active = 1`),
			w.ChannelID,
			string(w.Priority),
			w.CheckIntervalMin,
			marshalStrings(w.InterestedTopics),
		)
		if err != nil {
			return fmt.Errorf("watch channel %s: %w", w.ChannelID, err)
		}
		return nil
	})
}

// UnwatchChannel deactivates a subscription without deleting its history.
func (s *Store) UnwatchChannel(ctx context.Context, channelID string) error {
	return s.do(ctx, func() error {
		res, err := s.db.ExecContext(ctx, s.rebind(
			`UPDATE watched_channels SET is_active = 0 WHERE channel_id = ?`), channelID)
		if err != nil {
			return fmt.Errorf("unwatch channel %s: %w", channelID, err)
		}
		if affected, err := res.RowsAffected(); err == nil && affected == 0 {
			return fmt.Errorf("%w: watched channel %s", ErrNotFound, channelID)
		}
		return nil
	})
}

// ActiveWatches returns active subscriptions, most urgent first.
func (s *Store) ActiveWatches(ctx context.Context) ([]WatchedChannel, error) {
	var watches []WatchedChannel
	err := s.do(ctx, func() error {
		rows, err := s.db.QueryContext(ctx, s.rebind(`SELECT `+watchedColumns+` FROM watched_channels
            WHERE is_active = 1
            ORDER BY CASE priority
                WHEN 'critical' THEN 0 WHEN 'high' THEN 1 WHEN 'normal' THEN 2 ELSE 3 END`))
		if err != nil {
			return fmt.Errorf("list watches: %w", err)
		}
		defer rows.Close()

		watches = watches[:0]
		for rows.Next() {
			watch, err := scanWatched(rows)
			if err != nil {
				s.logger.Warn("skipping unreadable watch row", logging.Error(err))
				continue
			}
			watches = append(watches, *watch)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return watches, nil
}

// TouchWatch records a poll result for a watched channel.
func (s *Store) TouchWatch(ctx context.Context, channelID, lastVideoID string, lastVideoAt *time.Time, checkedAt time.Time) error {
	return s.do(ctx, func() error {
		_, err := s.db.ExecContext(ctx, s.rebind(`UPDATE watched_channels SET
            last_video_id = ?, last_video_at = ?, last_checked_at = ?
            WHERE channel_id = ?`),
			nullableString(lastVideoID),
			nullableTime(lastVideoAt),
			storeTime(checkedAt),
			channelID,
		)
		if err != nil {
			return fmt.Errorf("touch watch %s: %w", channelID, err)
		}
		return nil
	})
}

// AppendPublication records a discovered upload. Duplicate video ids are
// ignored so re-polls stay idempotent.
func (s *Store) AppendPublication(ctx context.Context, p *Publication) error {
	if p == nil || p.VideoID == "" || p.ChannelID == "" {
		return fmt.Errorf("%w: publication requires channel_id and video_id", ErrValidation)
	}
	discovered := p.DiscoveredAt
	if discovered.IsZero() {
		discovered = time.Now().UTC()
	}
	return s.do(ctx, func() error {
		_, err := s.db.ExecContext(ctx, s.rebind(`INSERT INTO channel_publications (
            channel_id, video_id, title, discovered_at
        ) VALUES (?, ?, ?, ?)
        ON CONFLICT (video_id) DO NOTHING`),
			p.ChannelID,
			p.VideoID,
			nullableString(p.Title),
			storeTime(discovered),
		)
		if err != nil {
			return fmt.Errorf("append publication %s: %w", p.VideoID, err)
		}
		return nil
	})
}

// RecentPublications returns the latest discovered uploads.
func (s *Store) RecentPublications(ctx context.Context, since time.Time, limit int) ([]Publication, error) {
	if limit <= 0 {
		limit = 50
	}
	var pubs []Publication
	err := s.do(ctx, func() error {
		rows, err := s.db.QueryContext(ctx, s.rebind(`SELECT id, channel_id, video_id, title, discovered_at
            FROM channel_publications WHERE discovered_at >= ?
            ORDER BY discovered_at DESC LIMIT ?`),
			storeTime(since), limit)
		if err != nil {
			return fmt.Errorf("recent publications: %w", err)
		}
		defer rows.Close()

		pubs = pubs[:0]
		for rows.Next() {
			var (
				pub           Publication
				title         sql.NullString
				discoveredRaw sql.NullString
			)
			if err := rows.Scan(&pub.ID, &pub.ChannelID, &pub.VideoID, &title, &discoveredRaw); err != nil {
				s.logger.Warn("skipping unreadable publication row", logging.Error(err))
				continue
			}
			pub.Title = title.String
			if parsed := parseTimePtr(discoveredRaw); parsed != nil {
				pub.DiscoveredAt = *parsed
			}
			pubs = append(pubs, pub)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return pubs, nil
}

func defaultWatchInterval(priority Priority) int {
	switch priority {
	case PriorityCritical:
		return 15
	case PriorityHigh:
		return 30
	case PriorityLow:
		return 240
	}
	return 60
}

func scanChannel(scanner rowScanner) (*Channel, error) {
	var (
		id          int64
		channelID   string
		name        sql.NullString
		handle      sql.NullString
		subscribers sql.NullInt64
		videoCount  sql.NullInt64
		totalViews  sql.NullInt64
		country     sql.NullString
		description sql.NullString
		createdRaw  sql.NullString
	)
	if err := scanner.Scan(&id, &channelID, &name, &handle, &subscribers, &videoCount, &totalViews, &country, &description, &createdRaw); err != nil {
		return nil, err
	}
	channel := &Channel{
		ID:              id,
		ChannelID:       channelID,
		ChannelName:     name.String,
		Handle:          handle.String,
		SubscriberCount: subscribers.Int64,
		VideoCount:      videoCount.Int64,
		TotalViews:      totalViews.Int64,
		Country:         country.String,
		Description:     description.String,
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		channel.CreatedAt = created
	}
	return channel, nil
}

func scanWatched(scanner rowScanner) (*WatchedChannel, error) {
	var (
		id          int64
		channelID   string
		priority    sql.NullString
		interval    sql.NullInt64
		lastVideoID sql.NullString
		lastVideoAt sql.NullString
		lastChecked sql.NullString
		topicsRaw   sql.NullString
		active      sql.NullInt64
	)
	if err := scanner.Scan(&id, &channelID, &priority, &interval, &lastVideoID, &lastVideoAt, &lastChecked, &topicsRaw, &active); err != nil {
		return nil, err
	}
	return &WatchedChannel{
		ID:               id,
		ChannelID:        channelID,
		Priority:         Priority(priority.String),
		CheckIntervalMin: int(interval.Int64),
		LastVideoID:      lastVideoID.String,
		LastVideoAt:      parseTimePtr(lastVideoAt),
		LastCheckedAt:    parseTimePtr(lastChecked),
		InterestedTopics: unmarshalStrings(topicsRaw),
		IsActive:         active.Int64 != 0,
	}, nil
}
