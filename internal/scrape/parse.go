package scrape

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// VideoIDLength is the length of the platform's opaque video ids.
const VideoIDLength = 11

// Record is one scraped video in either flat or detail form. Flat
// records carry only the search-layer fields; HasDetails reports which
// form was parsed.
type Record struct {
	VideoID         string
	Title           string
	ChannelID       string
	ChannelName     string
	ViewCount       int64
	LikeCount       int64
	CommentCount    int64
	DurationSeconds int64
	PublishedAt     *time.Time
	Description     string
	Tags            []string
	ThumbnailURL    string
	Category        string
	SubscriberCount int64
	HasDetails      bool
	Comments        []CommentRecord
}

// CommentRecord is one captured comment from a detail fetch.
type CommentRecord struct {
	CommentID   string
	Text        string
	Author      string
	AuthorID    string
	LikeCount   int64
	ReplyCount  int64
	IsPinned    bool
	PublishedAt *time.Time
}

// ChannelProfile is the parsed About-page record.
type ChannelProfile struct {
	ChannelID       string
	ChannelName     string
	Handle          string
	SubscriberCount int64
	VideoCount      int64
	TotalViews      int64
	Description     string
}

type rawRecord struct {
	ID               string       `json:"id"`
	Title            string       `json:"title"`
	Uploader         string       `json:"uploader"`
	Channel          string       `json:"channel"`
	ChannelID        string       `json:"channel_id"`
	ViewCount        *int64       `json:"view_count"`
	LikeCount        *int64       `json:"like_count"`
	CommentCount     *int64       `json:"comment_count"`
	Duration         *float64     `json:"duration"`
	UploadDate       string       `json:"upload_date"`
	Timestamp        *int64       `json:"timestamp"`
	ReleaseTimestamp *int64       `json:"release_timestamp"`
	Description      string       `json:"description"`
	Tags             []string     `json:"tags"`
	Thumbnail        string       `json:"thumbnail"`
	Categories       []string     `json:"categories"`
	FollowerCount    *int64       `json:"channel_follower_count"`
	Comments         []rawComment `json:"comments"`
}

type rawComment struct {
	ID         string   `json:"id"`
	Text       string   `json:"text"`
	Author     string   `json:"author"`
	AuthorID   string   `json:"author_id"`
	LikeCount  *int64   `json:"like_count"`
	ReplyCount *int64   `json:"reply_count"`
	IsPinned   bool     `json:"is_pinned"`
	Timestamp  *float64 `json:"timestamp"`
}

type rawChannel struct {
	ChannelID     string `json:"channel_id"`
	ID            string `json:"id"`
	Channel       string `json:"channel"`
	Uploader      string `json:"uploader"`
	UploaderID    string `json:"uploader_id"`
	FollowerCount *int64 `json:"channel_follower_count"`
	PlaylistCount *int64 `json:"playlist_count"`
	ViewCount     *int64 `json:"view_count"`
	Description   string `json:"description"`
}

// parseFlatLines decodes newline-delimited flat-search records. Records
// that fail to decode or carry a malformed id are skipped with a log,
// never fatal to the page.
func parseFlatLines(lines []string, logger *slog.Logger) []Record {
	records := make([]Record, 0, len(lines))
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || !strings.HasPrefix(trimmed, "{") {
			continue
		}
		var raw rawRecord
		if err := json.Unmarshal([]byte(trimmed), &raw); err != nil {
			if logger != nil {
				logger.Warn("skipping malformed record", slog.Any("error", err))
			}
			continue
		}
		record, err := raw.toRecord(false)
		if err != nil {
			if logger != nil {
				logger.Warn("skipping invalid record", slog.Any("error", err))
			}
			continue
		}
		records = append(records, *record)
	}
	return records
}

// parseDetail decodes a single detail-mode object. The object may span
// one line (yt-dlp --dump-json) or the full output.
func parseDetail(lines []string) (*Record, error) {
	payload := firstJSONObject(lines)
	if payload == "" {
		return nil, fmt.Errorf("%w: no JSON object in output", ErrParse)
	}
	var raw rawRecord
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	return raw.toRecord(true)
}

func parseChannel(lines []string) (*ChannelProfile, error) {
	payload := firstJSONObject(lines)
	if payload == "" {
		return nil, fmt.Errorf("%w: no JSON object in output", ErrParse)
	}
	var raw rawChannel
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	channelID := raw.ChannelID
	if channelID == "" {
		channelID = raw.ID
	}
	if channelID == "" {
		return nil, fmt.Errorf("%w: channel record missing id", ErrParse)
	}
	name := raw.Channel
	if name == "" {
		name = raw.Uploader
	}
	profile := &ChannelProfile{
		ChannelID:   channelID,
		ChannelName: name,
		Handle:      strings.TrimPrefix(raw.UploaderID, "@"),
		Description: raw.Description,
	}
	if raw.FollowerCount != nil {
		profile.SubscriberCount = *raw.FollowerCount
	}
	if raw.PlaylistCount != nil {
		profile.VideoCount = *raw.PlaylistCount
	}
	if raw.ViewCount != nil {
		profile.TotalViews = *raw.ViewCount
	}
	return profile, nil
}

func firstJSONObject(lines []string) string {
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "{") {
			return trimmed
		}
	}
	joined := strings.TrimSpace(strings.Join(lines, "\n"))
	if strings.HasPrefix(joined, "{") {
		return joined
	}
	return ""
}

func (raw *rawRecord) toRecord(detail bool) (*Record, error) {
	if len(raw.ID) != VideoIDLength {
		return nil, fmt.Errorf("%w: bad video id %q", ErrParse, raw.ID)
	}
	if strings.TrimSpace(raw.Title) == "" {
		return nil, fmt.Errorf("%w: empty title for %s", ErrParse, raw.ID)
	}

	name := raw.Channel
	if name == "" {
		name = raw.Uploader
	}
	record := &Record{
		VideoID:      raw.ID,
		Title:        raw.Title,
		ChannelID:    raw.ChannelID,
		ChannelName:  name,
		PublishedAt:  raw.publishedAt(),
		Description:  raw.Description,
		Tags:         raw.Tags,
		ThumbnailURL: raw.Thumbnail,
		HasDetails:   detail,
	}
	if raw.ViewCount != nil {
		record.ViewCount = *raw.ViewCount
	}
	if raw.LikeCount != nil {
		record.LikeCount = *raw.LikeCount
	}
	if raw.CommentCount != nil {
		record.CommentCount = *raw.CommentCount
	}
	if raw.Duration != nil {
		record.DurationSeconds = int64(*raw.Duration)
	}
	if raw.FollowerCount != nil {
		record.SubscriberCount = *raw.FollowerCount
	}
	if len(raw.Categories) > 0 {
		record.Category = raw.Categories[0]
	}
	for _, comment := range raw.Comments {
		record.Comments = append(record.Comments, comment.toRecord())
	}
	return record, nil
}

// publishedAt prefers the most precise timestamp available: exact POSIX
// timestamps over the day-granular upload_date.
func (raw *rawRecord) publishedAt() *time.Time {
	if raw.Timestamp != nil && *raw.Timestamp > 0 {
		t := time.Unix(*raw.Timestamp, 0).UTC()
		return &t
	}
	if raw.ReleaseTimestamp != nil && *raw.ReleaseTimestamp > 0 {
		t := time.Unix(*raw.ReleaseTimestamp, 0).UTC()
		return &t
	}
	if len(raw.UploadDate) == 8 {
		if t, err := time.Parse("20060102", raw.UploadDate); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

func (raw rawComment) toRecord() CommentRecord {
	comment := CommentRecord{
		CommentID: raw.ID,
		Text:      raw.Text,
		Author:    raw.Author,
		AuthorID:  raw.AuthorID,
		IsPinned:  raw.IsPinned,
	}
	if raw.LikeCount != nil {
		comment.LikeCount = *raw.LikeCount
	}
	if raw.ReplyCount != nil {
		comment.ReplyCount = *raw.ReplyCount
	}
	if raw.Timestamp != nil && *raw.Timestamp > 0 {
		t := time.Unix(int64(*raw.Timestamp), 0).UTC()
		comment.PublishedAt = &t
	}
	return comment
}
