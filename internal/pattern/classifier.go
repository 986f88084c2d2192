// Package pattern assigns each video one of four content archetypes
// with a confidence score.
package pattern

import (
	"context"
	"log/slog"
	"math"
	"sort"

	"spyglass/internal/logging"
	"spyglass/internal/store"
)

// MinConfidence is the floor below which a classification collapses to
// unknown with score zero.
const MinConfidence = 0.05

// Detection is one detector verdict.
type Detection struct {
	Pattern   store.PatternType
	Score     float64
	Breakdown Breakdown
}

// Detector rates one video against one pattern.
type Detector func(*store.Video) Detection

// Policy selects how a pipeline reduces its detector verdicts.
type Policy int

const (
	// PolicyPass returns the first verdict at or above MinConfidence.
	PolicyPass Policy = iota
	// PolicyWeighted returns the highest-scoring verdict, earlier
	// detectors winning ties.
	PolicyWeighted
	// PolicyVeto behaves like PolicyWeighted but collapses to unknown
	// when any detector scores zero.
	PolicyVeto
)

// Pipeline runs an ordered detector sequence under a reduction policy.
type Pipeline struct {
	detectors []Detector
	policy    Policy
}

// NewPipeline builds a pipeline.
func NewPipeline(policy Policy, detectors ...Detector) Pipeline {
	return Pipeline{detectors: detectors, policy: policy}
}

// Run reduces the detector verdicts for one video. A best score under
// MinConfidence always collapses to (unknown, 0).
func (p Pipeline) Run(v *store.Video) Detection {
	best := Detection{Pattern: store.PatternUnknown}
	vetoed := false
	for _, detect := range p.detectors {
		d := detect(v)
		if p.policy == PolicyVeto && d.Score == 0 {
			vetoed = true
		}
		if p.policy == PolicyPass && d.Score >= MinConfidence {
			return d
		}
		if d.Score > best.Score {
			best = d
		}
	}
	if vetoed || best.Score < MinConfidence {
		return Detection{Pattern: store.PatternUnknown}
	}
	return best
}

// DetectorFor wraps an archetype as a detector.
func DetectorFor(a Archetype) Detector {
	return func(v *store.Video) Detection {
		score, breakdown := a.Score(v)
		return Detection{Pattern: a.Pattern, Score: score, Breakdown: breakdown}
	}
}

// Classifier scores videos against all archetypes and persists verdicts.
type Classifier struct {
	store    *store.Store
	logger   *slog.Logger
	pipeline Pipeline
}

// New builds a classifier over the standard archetype pipeline.
func New(st *store.Store, logger *slog.Logger) *Classifier {
	detectors := make([]Detector, 0, len(Archetypes))
	for _, a := range Archetypes {
		detectors = append(detectors, DetectorFor(a))
	}
	return &Classifier{
		store:    st,
		logger:   logging.WithComponent(logger, "pattern"),
		pipeline: NewPipeline(PolicyWeighted, detectors...),
	}
}

// Classify returns the winning archetype and its confidence for one
// video.
func Classify(v *store.Video) (store.PatternType, float64) {
	best := store.PatternUnknown
	bestScore := 0.0
	for _, a := range Archetypes {
		score, _ := a.Score(v)
		if score > bestScore {
			best = a.Pattern
			bestScore = score
		}
	}
	if bestScore < MinConfidence {
		return store.PatternUnknown, 0
	}
	return best, bestScore
}

// ClassifyAll classifies every stored video matching the filter and
// persists the verdicts. Returns the number classified into a known
// archetype.
func (c *Classifier) ClassifyAll(ctx context.Context, filter store.VideoFilter) (int, error) {
	videos, err := c.store.FindVideos(ctx, filter)
	if err != nil {
		return 0, err
	}
	known := 0
	for i := range videos {
		if err := ctx.Err(); err != nil {
			return known, err
		}
		d := c.pipeline.Run(&videos[i])
		score := d.Score
		if d.Pattern == store.PatternUnknown {
			score = 0
		}
		if err := c.store.UpdateVideoPattern(ctx, videos[i].VideoID, d.Pattern, score); err != nil {
			c.logger.Warn("pattern update failed",
				logging.String(logging.FieldVideoID, videos[i].VideoID),
				logging.Error(err))
			continue
		}
		if d.Pattern != store.PatternUnknown {
			known++
		}
	}
	c.logger.Info("classification finished",
		logging.Int("videos", len(videos)),
		logging.Int("classified", known))
	return known, nil
}

// Representative is one selected exemplar of an archetype.
type Representative struct {
	Video      store.Video
	Pattern    store.PatternType
	Confidence float64
	Rank       float64
}

// AnalyzeVideos selects up to m representative videos across the corpus
// with archetype diversity: no archetype contributes more than
// ceil(m/3) cases. Within each archetype, candidates rank by
// confidence, view score, and engagement blended 0.5/0.3/0.2.
func AnalyzeVideos(videos []store.Video, m int) []Representative {
	if m <= 0 || len(videos) == 0 {
		return nil
	}
	quota := int(math.Ceil(float64(m) / 3))

	byPattern := make(map[store.PatternType][]Representative)
	for i := range videos {
		v := &videos[i]
		pattern, confidence := Classify(v)
		if pattern == store.PatternUnknown {
			continue
		}
		rank := confidence*0.5 + ViewScore(v)*0.3 + EngagementScore(v)*0.2
		byPattern[pattern] = append(byPattern[pattern], Representative{
			Video:      *v,
			Pattern:    pattern,
			Confidence: confidence,
			Rank:       rank,
		})
	}

	var selected []Representative
	for _, group := range byPattern {
		sort.Slice(group, func(i, j int) bool { return group[i].Rank > group[j].Rank })
		if len(group) > quota {
			group = group[:quota]
		}
		selected = append(selected, group...)
	}
	sort.Slice(selected, func(i, j int) bool {
		if selected[i].Rank != selected[j].Rank {
			return selected[i].Rank > selected[j].Rank
		}
		return selected[i].Video.VideoID < selected[j].Video.VideoID
	})
	if len(selected) > m {
		selected = selected[:m]
	}
	return selected
}
