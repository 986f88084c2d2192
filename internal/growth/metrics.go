package growth

import (
	"math"
	"time"

	"spyglass/internal/store"
)

// Rate computes the per-interval growth rate of a view delta against the
// previous absolute count. The floor of 1 keeps brand-new videos from
// dividing by zero.
func Rate(delta, previousViews int64) float64 {
	base := previousViews
	if base < 1 {
		base = 1
	}
	return float64(delta) / float64(base)
}

// Acceleration is the mean of consecutive differences across the most
// recent growth rates. Fewer than two rates yield zero.
func Acceleration(rates []float64) float64 {
	if len(rates) < 2 {
		return 0
	}
	var sum float64
	for i := 1; i < len(rates); i++ {
		sum += rates[i] - rates[i-1]
	}
	return sum / float64(len(rates)-1)
}

// Thresholds holds the tunable viral detection cutoffs.
type Thresholds struct {
	GrowthMin  float64
	StepMin    float64
	MinSamples int
}

// Viral reports whether a rate series shows sustained accelerating
// growth: at least MinSamples positive rates, the newest at or above
// GrowthMin, and the newest exceeding its predecessor by at least
// StepMin.
func (t Thresholds) Viral(rates []float64) bool {
	if len(rates) < t.MinSamples || t.MinSamples < 2 {
		return false
	}
	for _, r := range rates {
		if r <= 0 {
			return false
		}
	}
	newest := rates[len(rates)-1]
	previous := rates[len(rates)-2]
	return newest >= t.GrowthMin && newest-previous >= t.StepMin
}

// Score condenses rate and acceleration into a single ranking value.
// Negative components clamp to zero so declining videos score zero.
func Score(rate, acceleration float64) float64 {
	return math.Max(rate, 0) * (1 + math.Max(acceleration, 0)) * 100
}

// TierFor assigns the recheck tier by video age. Videos without a known
// publication date fall into the low tier.
func TierFor(publishedAt *time.Time, now time.Time) store.Tier {
	if publishedAt == nil {
		return store.TierLow
	}
	age := now.Sub(*publishedAt)
	switch {
	case age <= 3*24*time.Hour:
		return store.TierHigh
	case age <= 14*24*time.Hour:
		return store.TierMedium
	case age <= 30*24*time.Hour:
		return store.TierNormal
	default:
		return store.TierLow
	}
}
