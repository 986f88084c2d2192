package store

import (
	"strings"
	"time"
)

// PatternType is the content archetype assigned by the classifier.
type PatternType string

const (
	PatternCognitiveImpact  PatternType = "cognitive_impact"
	PatternStorytelling     PatternType = "storytelling"
	PatternKnowledgeSharing PatternType = "knowledge_sharing"
	PatternInteractionGuide PatternType = "interaction_guide"
	PatternUnknown          PatternType = "unknown"
)

// Tier is the recheck-interval class of a monitored video.
type Tier string

const (
	TierHigh   Tier = "high"
	TierMedium Tier = "medium"
	TierNormal Tier = "normal"
	TierLow    Tier = "low"
)

// Interval returns the minimum recheck interval for the tier.
func (t Tier) Interval() time.Duration {
	switch t {
	case TierHigh:
		return 6 * time.Hour
	case TierMedium:
		return 12 * time.Hour
	case TierNormal:
		return 24 * time.Hour
	case TierLow:
		return 72 * time.Hour
	}
	return 24 * time.Hour
}

// ValidTier reports whether value names a known tier.
func ValidTier(value string) bool {
	switch Tier(strings.ToLower(value)) {
	case TierHigh, TierMedium, TierNormal, TierLow:
		return true
	}
	return false
}

// Priority is the polling priority of a watched channel.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityNormal   Priority = "normal"
	PriorityLow      Priority = "low"
)

// AlertKind identifies the event class of an alert.
type AlertKind string

const (
	AlertNewVideo        AlertKind = "new_video"
	AlertTopicMatch      AlertKind = "topic_match"
	AlertViralGrowth     AlertKind = "viral_growth"
	AlertCountRegression AlertKind = "count_regression"
	AlertChannelAnomaly  AlertKind = "channel_anomaly"
)

// AlertLevel grades alert urgency.
type AlertLevel string

const (
	LevelUrgent    AlertLevel = "urgent"
	LevelImportant AlertLevel = "important"
	LevelInfo      AlertLevel = "info"
)

// Ingest truncation bounds. Applied when a video row is assembled from
// scraper output, not retroactively to stored rows.
const (
	MaxTitleRunes       = 100
	MaxDescriptionRunes = 500
	MaxTags             = 10
)

// Video is one remote video as last observed.
type Video struct {
	ID              int64
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
	Theme           string
	KeywordSource   string
	HasDetails      bool
	PatternType     PatternType
	PatternScore    float64
	CollectedAt     time.Time
	UpdatedAt       time.Time
}

// ViewSnapshot is one timepoint of a video's counters. Delta, hours and
// growth rate are computed against the previous snapshot at write time.
type ViewSnapshot struct {
	ID             int64
	VideoID        string
	ViewCount      int64
	LikeCount      int64
	CommentCount   int64
	ViewCountDelta int64
	HoursSinceLast float64
	GrowthRate     float64
	RecordedAt     time.Time
}

// Monitoring is the 1:1 companion row of a video under observation.
type Monitoring struct {
	ID             int64
	VideoID        string
	Tier           Tier
	IsPotential    bool
	LastGrowthRate float64
	Acceleration   float64
	ViralScore     float64
	LastCheckedAt  time.Time
	NextCheckAt    time.Time
	CheckCount     int64
}

// Channel is a remote channel profile.
type Channel struct {
	ID              int64
	ChannelID       string
	ChannelName     string
	Handle          string
	SubscriberCount int64
	VideoCount      int64
	TotalViews      int64
	Country         string
	Description     string
	CreatedAt       time.Time
}

// WatchedChannel is a subscription to a channel's uploads.
type WatchedChannel struct {
	ID               int64
	ChannelID        string
	Priority         Priority
	CheckIntervalMin int
	LastVideoID      string
	LastVideoAt      *time.Time
	LastCheckedAt    *time.Time
	InterestedTopics []string
	IsActive         bool
}

// Publication is a discovered upload of a watched channel.
type Publication struct {
	ID           int64
	ChannelID    string
	VideoID      string
	Title        string
	DiscoveredAt time.Time
}

// Alert is a surfaced event awaiting human attention.
type Alert struct {
	ID        int64
	Kind      AlertKind
	Level     AlertLevel
	Message   string
	Data      map[string]any
	CreatedAt time.Time
	IsRead    bool
}

// Comment is a captured video comment.
type Comment struct {
	ID          int64
	CommentID   string
	VideoID     string
	Text        string
	Author      string
	AuthorID    string
	LikeCount   int64
	ReplyCount  int64
	IsPinned    bool
	PublishedAt *time.Time
}

// UpsertOutcome reports whether an upsert inserted a new row or updated
// an existing one.
type UpsertOutcome int

const (
	OutcomeInserted UpsertOutcome = iota
	OutcomeUpdated
)

// BatchResult aggregates a batch upsert.
type BatchResult struct {
	Inserted int
	Updated  int
	Skipped  int
}

// VideoFilter narrows FindVideos results. Zero values mean "no filter".
type VideoFilter struct {
	Theme       string
	Keywords    []string
	MinViews    int64
	HasDetails  *bool
	PatternType PatternType
	OrderBy     VideoOrder
	Limit       int
	Offset      int
}

// VideoOrder selects result ordering for FindVideos.
type VideoOrder string

const (
	OrderByViews     VideoOrder = "view_count"
	OrderByCollected VideoOrder = "collected_at"
	OrderByPublished VideoOrder = "published_at"
)
