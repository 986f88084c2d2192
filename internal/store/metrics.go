package store

import "fmt"

// EngagementRate is (likes + comments) / views, zero when views are
// unknown.
func EngagementRate(v *Video) float64 {
	if v == nil || v.ViewCount <= 0 {
		return 0
	}
	return float64(v.LikeCount+v.CommentCount) / float64(v.ViewCount)
}

// FormatDuration renders seconds as M:SS or H:MM:SS.
func FormatDuration(seconds int64) string {
	if seconds <= 0 {
		return "0:00"
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// QualityScore is a coarse 0..1 blend of reach and engagement used for
// ranking in reports.
func QualityScore(v *Video) float64 {
	if v == nil {
		return 0
	}
	reach := float64(v.ViewCount) / 100000
	if reach > 1 {
		reach = 1
	}
	engagement := 20 * EngagementRate(v)
	if engagement > 1 {
		engagement = 1
	}
	return 0.6*reach + 0.4*engagement
}
