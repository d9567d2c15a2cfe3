// Package retrieve runs the six age-windowed retrieval tiers (L0..L5) over
// a time-ordered corpus.
package retrieve

import (
	"fmt"
	"math"
	"time"

	"github.com/rcliao/agent-recall/internal/calibrate"
	"github.com/rcliao/agent-recall/internal/model"
	"github.com/rcliao/agent-recall/internal/tagvec"
)

const day = 24 * time.Hour

// Level names a tier.
type Level int

const (
	L0 Level = iota
	L1
	L2
	L3
	L4
	L5
)

func (l Level) String() string { return fmt.Sprintf("L%d", int(l)) }

// Query is an expanded, vectorized tag query. Size counts every query tag,
// including ones the index has never seen.
type Query struct {
	Tags   []string
	Vector tagvec.Vector
}

// Size is the number of distinct query tags.
func (q Query) Size() int { return len(q.Tags) }

// Candidate carries every intermediate score of one entry in one tier.
type Candidate struct {
	Entry     model.Entry
	AgeHours  float64
	Hits      int
	Cosine    float64
	Jaccard   float64
	TagBoost  float64
	Decay     float64
	Weight    float64
	Emergency bool
}

// Tier is one retrieval pass. Windows are (MinAge, MaxAge]; L0 also admits
// age zero and L5 has no upper bound (MaxAge == 0).
type Tier struct {
	Level  Level
	MinAge time.Duration
	MaxAge time.Duration

	decay func(ageHours float64) float64
	admit func(c *Candidate, th calibrate.Thresholds) bool
}

// Tiers returns L0..L5 in increasing-window order.
func Tiers() []Tier {
	return []Tier{
		{
			Level:  L0,
			MaxAge: 24 * time.Hour,
			decay:  func(h float64) float64 { return math.Exp(-0.05 * h) },
			admit: func(c *Candidate, th calibrate.Thresholds) bool {
				return c.Weight >= th.L0
			},
		},
		{
			Level:  L1,
			MinAge: 19 * time.Hour,
			MaxAge: 72 * time.Hour,
			decay:  func(h float64) float64 { return math.Exp(-0.02 * h) },
			admit: func(c *Candidate, th calibrate.Thresholds) bool {
				return c.Weight >= th.L1.At(c.AgeHours)
			},
		},
		{
			Level:  L2,
			MinAge: time.Duration(2.4 * float64(day)),
			MaxAge: 7 * day,
			decay: func(h float64) float64 {
				d := h / 24
				w := math.Exp(-0.15 * d)
				if d > 6 {
					w *= 0.9
				}
				return w
			},
			admit: func(c *Candidate, th calibrate.Thresholds) bool {
				if c.Weight >= th.L2 {
					return true
				}
				return c.Jaccard >= th.L2Jaccard && c.Weight >= th.L2/2
			},
		},
		{
			Level:  L3,
			MinAge: time.Duration(5.6 * float64(day)),
			MaxAge: 30 * day,
			decay: func(h float64) float64 {
				d := h / 24
				w := math.Exp(-0.05 * d)
				if d > 25 {
					w *= 1.1
				}
				return w
			},
			admit: func(c *Candidate, th calibrate.Thresholds) bool {
				return c.Weight >= th.L3 || c.Jaccard >= th.L3Jaccard
			},
		},
		{
			Level:  L4,
			MinAge: 24 * day,
			MaxAge: 365 * day,
			decay: func(h float64) float64 {
				d := h / 24
				return math.Exp(-0.005*d) * math.Pow(0.95, math.Floor(d/180))
			},
			admit: func(c *Candidate, th calibrate.Thresholds) bool {
				if c.Weight >= th.L4 {
					return true
				}
				if c.Cosine >= th.EmergencySimilarity && c.Hits >= th.EmergencyMinTags && c.Weight >= th.L4/2 {
					c.Emergency = true
					return true
				}
				return false
			},
		},
		{
			Level:  L5,
			MinAge: 365 * day,
			decay: func(h float64) float64 {
				return math.Max(0.05, math.Exp(-0.002*h/24))
			},
			admit: func(c *Candidate, th calibrate.Thresholds) bool {
				return c.Weight >= th.L5 && c.Jaccard >= th.L5Jaccard
			},
		},
	}
}

// InWindow reports whether an entry of the given age belongs to the tier.
func (t Tier) InWindow(age time.Duration) bool {
	if t.Level == L0 {
		if age < 0 {
			return false
		}
	} else if age <= t.MinAge {
		return false
	}
	return !t.pastWindow(age)
}

func (t Tier) pastWindow(age time.Duration) bool {
	return t.MaxAge > 0 && age > t.MaxAge
}

// Score computes the candidate for one entry. It does not check the window.
func (t Tier) Score(e model.Entry, vec tagvec.Vector, q Query, age time.Duration) Candidate {
	c := Candidate{Entry: e, AgeHours: age.Hours()}
	c.Hits = tagvec.Overlap(q.Vector, vec)
	if c.Hits == 0 || q.Size() == 0 || len(vec) == 0 {
		return c
	}
	c.Cosine = tagvec.CosineN(c.Hits, q.Size(), len(vec))
	c.Jaccard = tagvec.JaccardN(c.Hits, q.Size(), len(vec))
	c.TagBoost = calibrate.TagBoost(c.Hits, q.Size())
	c.Decay = t.decay(c.AgeHours)
	c.Weight = math.Min(1, c.Cosine*c.TagBoost*c.Decay)
	return c
}

// Admit applies the tier's admission rule against calibrated thresholds.
func (t Tier) Admit(c *Candidate, th calibrate.Thresholds) bool {
	if c.Hits == 0 {
		return false
	}
	return t.admit(c, th)
}
