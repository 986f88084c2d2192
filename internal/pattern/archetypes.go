package pattern

import (
	"math"
	"regexp"
	"strings"

	"spyglass/internal/store"
)

// Archetype is one fixed content pattern: a keyword set, title regexes,
// a preferred duration band in seconds, and an overall weight.
type Archetype struct {
	Pattern    store.PatternType
	Keywords   []string
	TitleRegex []*regexp.Regexp
	DurationLo int64
	DurationHi int64
	Weight     float64
}

// Archetypes in tie-break order. Earlier entries win score ties.
var Archetypes = []Archetype{
	{
		Pattern:  store.PatternCognitiveImpact,
		Keywords: []string{"90%", "真相", "颠覆", "震惊", "误区"},
		TitleRegex: []*regexp.Regexp{
			regexp.MustCompile(`\d+%`),
			regexp.MustCompile(`真相|颠覆|震惊|没想到`),
		},
		DurationLo: 180,
		DurationHi: 900,
		Weight:     0.9,
	},
	{
		Pattern:  store.PatternStorytelling,
		Keywords: []string{"故事", "经历", "人生", "回忆", "改变"},
		TitleRegex: []*regexp.Regexp{
			regexp.MustCompile(`我的|那一年|那一天`),
			regexp.MustCompile(`故事|经历`),
		},
		DurationLo: 300,
		DurationHi: 1500,
		Weight:     0.85,
	},
	{
		Pattern:  store.PatternKnowledgeSharing,
		Keywords: []string{"方法", "如何", "教程", "指南", "诀窍"},
		TitleRegex: []*regexp.Regexp{
			regexp.MustCompile(`\d+个`),
			regexp.MustCompile(`如何|怎么|教程|入门`),
		},
		DurationLo: 240,
		DurationHi: 1200,
		Weight:     1.0,
	},
	{
		Pattern:  store.PatternInteractionGuide,
		Keywords: []string{"挑战", "测试", "互动", "评论", "订阅"},
		TitleRegex: []*regexp.Regexp{
			regexp.MustCompile(`你会|猜猜|挑战`),
			regexp.MustCompile(`留言|评论区`),
		},
		DurationLo: 60,
		DurationHi: 600,
		Weight:     0.8,
	},
}

// Breakdown carries the component scores of one archetype match.
type Breakdown struct {
	Keyword    float64
	TitleRegex float64
	Duration   float64
	View       float64
	Engagement float64
	Data       float64
}

// Score rates a video against the archetype. The returned final value is
// already weighted; the breakdown holds the unweighted components.
func (a *Archetype) Score(v *store.Video) (float64, Breakdown) {
	text := v.Title + " " + v.Description
	matched := 0
	for _, kw := range a.Keywords {
		if strings.Contains(text, kw) {
			matched++
		}
	}
	b := Breakdown{}
	b.Keyword = math.Min(float64(matched)/math.Max(float64(len(a.Keywords)), 1), 1)

	for _, re := range a.TitleRegex {
		if re.MatchString(v.Title) {
			b.TitleRegex = 1
			break
		}
	}

	b.Duration = durationScore(v.DurationSeconds, a.DurationLo, a.DurationHi)
	b.View = ViewScore(v)
	b.Engagement = EngagementScore(v)
	b.Data = 0.5*b.View + 0.5*b.Engagement

	raw := 0.4*b.Keyword + 0.2*b.TitleRegex + 0.1*b.Duration + 0.3*b.Data
	return raw * a.Weight, b
}

// durationScore is 1 inside the band and falls off linearly to zero at
// duration 0 below the band and at twice the upper bound above it.
func durationScore(d, lo, hi int64) float64 {
	switch {
	case d >= lo && d <= hi:
		return 1
	case d < lo:
		if lo <= 0 {
			return 1
		}
		return math.Max(float64(d)/float64(lo), 0)
	default:
		if hi <= 0 {
			return 0
		}
		return math.Max(float64(2*hi-d)/float64(hi), 0)
	}
}

// ViewScore saturates at 100k views.
func ViewScore(v *store.Video) float64 {
	return math.Min(float64(v.ViewCount)/100000, 1)
}

// EngagementScore saturates at a 5% combined like+comment rate.
func EngagementScore(v *store.Video) float64 {
	views := v.ViewCount
	if views < 1 {
		views = 1
	}
	return math.Min(20*float64(v.LikeCount+v.CommentCount)/float64(views), 1)
}
