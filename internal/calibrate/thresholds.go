// Package calibrate derives tier admission thresholds from synthetic
// tag-overlap scenarios, so thresholds track the scale of the scoring formula
// instead of being hardcoded.
package calibrate

import "math"

const (
	DefaultQueryTags = 6
	DefaultEntryTags = 8
)

// Scenario is one synthetic query/entry comparison.
type Scenario struct {
	Name     string
	Overlap  int
	Cosine   float64
	Jaccard  float64
	TagBoost float64
	Weight   float64
}

// L1Threshold relaxes with age inside the L1 window.
type L1Threshold struct {
	Base       float64
	Floor      float64
	HourlyRate float64
}

// At returns the admission threshold for an entry ageHours old.
func (t L1Threshold) At(ageHours float64) float64 {
	rel := ageHours - 19
	if rel < 0 {
		rel = 0
	}
	return math.Max(t.Floor, t.Base*math.Exp(-t.HourlyRate*rel))
}

// Thresholds is the immutable result of one calibration.
type Thresholds struct {
	L0 float64
	L1 L1Threshold

	L2        float64
	L2Jaccard float64

	L3        float64
	L3Jaccard float64

	L4                  float64
	EmergencySimilarity float64
	EmergencyMinTags    int

	L5        float64
	L5Jaccard float64

	Noise, Low, Mid, High Scenario
}

// TagBoost rewards queries that hit several tags at once.
func TagBoost(hits, totalQueryTags int) float64 {
	if hits <= 0 || totalQueryTags <= 0 {
		return 0.8
	}
	b := math.Pow(float64(hits), 1.5) / float64(totalQueryTags)
	return math.Min(2.5, math.Max(0.8, b))
}

func simulate(name string, overlap, queryTags, entryTags int) Scenario {
	s := Scenario{Name: name, Overlap: overlap}
	if denom := math.Sqrt(float64(queryTags) * float64(entryTags)); denom > 0 {
		s.Cosine = float64(overlap) / denom
	}
	if union := queryTags + entryTags - overlap; union > 0 {
		s.Jaccard = float64(overlap) / float64(union)
	}
	s.TagBoost = TagBoost(overlap, queryTags)
	s.Weight = math.Min(1, s.Cosine*s.TagBoost)
	return s
}

// Compute simulates the noise, low, mid and high overlap scenarios for a
// queryTags-tag query against an entryTags-tag entry and derives thresholds.
// Non-positive sizes fall back to the defaults.
func Compute(queryTags, entryTags int) Thresholds {
	if queryTags <= 0 {
		queryTags = DefaultQueryTags
	}
	if entryTags <= 0 {
		entryTags = DefaultEntryTags
	}
	limit := queryTags
	if entryTags < limit {
		limit = entryTags
	}
	overlap := func(n int) int {
		if n < 1 {
			n = 1
		}
		if n > limit {
			n = limit
		}
		return n
	}

	noise := simulate("noise", overlap(1), queryTags, entryTags)
	low := simulate("low", overlap(max(2, queryTags/4)), queryTags, entryTags)
	mid := simulate("mid", overlap(queryTags/2), queryTags, entryTags)
	high := simulate("high", overlap(queryTags), queryTags, entryTags)

	t := Thresholds{Noise: noise, Low: low, Mid: mid, High: high}
	t.L0 = noise.Weight + 0.3*(low.Weight-noise.Weight)

	t.L1 = L1Threshold{Base: low.Weight, Floor: 0.6 * low.Weight}
	if low.Weight > 0 {
		t.L1.HourlyRate = 0.02 * (low.Weight - noise.Weight) / low.Weight
	}

	t.L2 = (noise.Weight + low.Weight) / 2
	t.L2Jaccard = low.Jaccard

	t.L3 = 0.8 * low.Weight
	t.L3Jaccard = 0.8 * mid.Jaccard

	t.L4 = 0.5 * mid.Weight
	t.EmergencySimilarity = 0.8 * high.Cosine
	t.EmergencyMinTags = 3

	t.L5 = 0.6 * mid.Weight
	t.L5Jaccard = low.Jaccard
	return t
}
