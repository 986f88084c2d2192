package store

import (
	"context"
	"database/sql"
	"fmt"

	"spyglass/internal/logging"
)

// UpsertComments persists captured comments; duplicate comment ids
// update the stored counters.
func (s *Store) UpsertComments(ctx context.Context, comments []Comment) (int, error) {
	saved := 0
	err := s.do(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin comments tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		count := 0
		for i := range comments {
			c := &comments[i]
			if c.CommentID == "" || c.VideoID == "" {
				s.logger.Warn("skipping comment without ids", logging.String(logging.FieldVideoID, c.VideoID))
				continue
			}
			_, err := tx.ExecContext(ctx, s.rebind(`INSERT INTO comments (
                comment_id, video_id, text, author, author_id,
                like_count, reply_count, is_pinned, published_at
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
            ON CONFLICT (comment_id) DO UPDATE SET
                text = excluded.text,
                like_count = excluded.like_count,
                reply_count = excluded.reply_count,
                is_pinned = excluded.is_pinned`),
				c.CommentID,
				c.VideoID,
				nullableString(c.Text),
				nullableString(c.Author),
				nullableString(c.AuthorID),
				c.LikeCount,
				c.ReplyCount,
				boolToInt(c.IsPinned),
				nullableTime(c.PublishedAt),
			)
			if err != nil {
				return fmt.Errorf("upsert comment %s: %w", c.CommentID, err)
			}
			count++
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit comments: %w", err)
		}
		saved = count
		return nil
	})
	return saved, err
}

// CommentsForVideo returns stored comments for a video, most liked first.
func (s *Store) CommentsForVideo(ctx context.Context, videoID string, limit int) ([]Comment, error) {
	if limit <= 0 {
		limit = 50
	}
	var comments []Comment
	err := s.do(ctx, func() error {
		rows, err := s.db.QueryContext(ctx, s.rebind(`SELECT
            id, comment_id, video_id, text, author, author_id,
            like_count, reply_count, is_pinned, published_at
            FROM comments WHERE video_id = ?
            ORDER BY is_pinned DESC, like_count DESC LIMIT ?`), videoID, limit)
		if err != nil {
			return fmt.Errorf("list comments: %w", err)
		}
		defer rows.Close()

		comments = comments[:0]
		for rows.Next() {
			var (
				c            Comment
				text         sql.NullString
				author       sql.NullString
				authorID     sql.NullString
				likes        sql.NullInt64
				replies      sql.NullInt64
				pinned       sql.NullInt64
				publishedRaw sql.NullString
			)
			if err := rows.Scan(&c.ID, &c.CommentID, &c.VideoID, &text, &author, &authorID, &likes, &replies, &pinned, &publishedRaw); err != nil {
				s.logger.Warn("skipping unreadable comment row", logging.Error(err))
				continue
			}
			c.Text = text.String
			c.Author = author.String
			c.AuthorID = authorID.String
			c.LikeCount = likes.Int64
			c.ReplyCount = replies.Int64
			c.IsPinned = pinned.Int64 != 0
			c.PublishedAt = parseTimePtr(publishedRaw)
			comments = append(comments, c)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return comments, nil
}
