package retrieve

import (
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/rcliao/agent-recall/internal/calibrate"
	"github.com/rcliao/agent-recall/internal/model"
	"github.com/rcliao/agent-recall/internal/tagvec"
)

// DefaultRecallOnce caps the hits of a single tier.
const DefaultRecallOnce = 3

// Source is a time-ordered corpus with precomputed entry vectors.
type Source interface {
	Len() int
	At(i int) model.Entry
	Vector(i int) tagvec.Vector
}

// Hit is an admitted entry.
type Hit struct {
	Entry     model.Entry
	Level     Level
	Weight    float64
	Emergency bool
}

// Retriever runs the tiers with one set of calibrated thresholds.
type Retriever struct {
	tiers      []Tier
	thresholds calibrate.Thresholds
	recallOnce int
	log        *zap.Logger
}

// New returns a retriever. recallOnce <= 0 uses DefaultRecallOnce.
func New(th calibrate.Thresholds, recallOnce int, log *zap.Logger) *Retriever {
	if recallOnce <= 0 {
		recallOnce = DefaultRecallOnce
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Retriever{
		tiers:      Tiers(),
		thresholds: th,
		recallOnce: recallOnce,
		log:        log,
	}
}

// Thresholds returns the thresholds in use.
func (r *Retriever) Thresholds() calibrate.Thresholds { return r.thresholds }

// RecallOnce returns the per-tier cap.
func (r *Retriever) RecallOnce() int { return r.recallOnce }

// Retrieve runs every tier in increasing-window order. Once the hits so far
// reach three times the per-tier cap the remaining tiers are skipped.
// An empty query returns nil without scanning.
func (r *Retriever) Retrieve(src Source, q Query, now time.Time) []Hit {
	if q.Size() == 0 || src.Len() < 2 {
		return nil
	}
	var all []Hit
	for _, t := range r.tiers {
		if len(all) >= 3*r.recallOnce {
			r.log.Debug("tier skipped", zap.Stringer("tier", t.Level), zap.Int("recalled", len(all)))
			continue
		}
		hits := r.Scan(t, src, q, now)
		r.log.Debug("tier scanned", zap.Stringer("tier", t.Level), zap.Int("hits", len(hits)))
		all = append(all, hits...)
	}
	return all
}

// Scan walks the corpus backward from the second newest entry, skipping
// entries too young for the tier and stopping at the first one too old.
// src must be sorted by creation time.
func (r *Retriever) Scan(t Tier, src Source, q Query, now time.Time) []Hit {
	var hits []Hit
	for i := src.Len() - 2; i >= 0; i-- {
		e := src.At(i)
		age := now.Sub(e.Created)
		if t.pastWindow(age) {
			break
		}
		if !t.InWindow(age) {
			continue
		}
		c := t.Score(e, src.Vector(i), q, age)
		if !t.Admit(&c, r.thresholds) {
			continue
		}
		hits = append(hits, Hit{Entry: e, Level: t.Level, Weight: c.Weight, Emergency: c.Emergency})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Weight > hits[j].Weight })
	if len(hits) > r.recallOnce {
		hits = hits[:r.recallOnce]
	}
	return hits
}
