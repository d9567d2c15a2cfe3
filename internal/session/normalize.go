// Package session merges tier hits into a bounded, decaying working set of
// salient memories and renders it for prompt injection.
package session

import (
	"math"
	"sort"
	"time"

	"github.com/rcliao/agent-recall/internal/retrieve"
)

// normalizedCeiling scales every bucket's best hit to this score.
const normalizedCeiling = 0.7

// Scored is a hit after cross-bucket normalization.
type Scored struct {
	Summary string
	Created time.Time
	Score   float64
}

var bucketSteps = []struct {
	days   int
	bucket int
}{
	{3, 4},
	{7, 5},
	{30, 6},
	{90, 7},
	{180, 8},
	{360, 9},
}

// Bucket maps an age onto a coarse recency bucket. Days 0 and 1 are their
// own buckets; older ages fall into 4..10.
func Bucket(age time.Duration) int {
	days := int(age.Hours() / 24)
	if days <= 1 {
		if days < 0 {
			return 0
		}
		return days
	}
	for _, s := range bucketSteps {
		if days <= s.days {
			return s.bucket
		}
	}
	return 10
}

// Normalize scores each hit against the best weight in its age bucket, so
// that old and recent memories compete on equal footing. When the same
// summary shows up in several buckets or tiers the higher score wins.
func Normalize(hits []retrieve.Hit, now time.Time) []Scored {
	if len(hits) == 0 {
		return nil
	}
	bucketMax := make(map[int]float64)
	buckets := make([]int, len(hits))
	for i, h := range hits {
		b := Bucket(now.Sub(h.Entry.Created))
		buckets[i] = b
		bucketMax[b] = math.Max(bucketMax[b], h.Weight)
	}

	best := make(map[string]Scored)
	for i, h := range hits {
		s := Scored{Summary: h.Entry.Summary, Created: h.Entry.Created}
		if m := bucketMax[buckets[i]]; m > 0 {
			ratio := math.Log1p(10*h.Weight) / math.Log1p(10*m)
			s.Score = math.Round(ratio*100) / 100 * normalizedCeiling
		}
		if prev, ok := best[s.Summary]; !ok || s.Score > prev.Score {
			best[s.Summary] = s
		}
	}

	out := make([]Scored, 0, len(best))
	for _, s := range best {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		if !out[i].Created.Equal(out[j].Created) {
			return out[i].Created.After(out[j].Created)
		}
		return out[i].Summary < out[j].Summary
	})
	return out
}
