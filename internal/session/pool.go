package session

import (
	"sort"
	"time"
)

const (
	DefaultCapacity = 10
	DefaultTopN     = 6

	FloorScore = 0.2
	MaxScore   = 1.0
	// newEntryCap bounds the score a memory can enter the pool with.
	newEntryCap   = 0.8 * MaxScore
	reinforceRate = 0.5
)

// Item is one memory in the working set.
type Item struct {
	Key       string
	Score     float64
	Timestamp time.Time
}

// Pool is the per-conversation working set. Not safe for concurrent use.
type Pool struct {
	capacity int
	topN     int
	items    map[string]*Item
}

// NewPool returns an empty pool. Non-positive arguments use the defaults.
func NewPool(capacity, topN int) *Pool {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if topN <= 0 {
		topN = DefaultTopN
	}
	return &Pool{capacity: capacity, topN: topN, items: make(map[string]*Item)}
}

// decayRate is keyed by the current score tier.
func decayRate(score float64) float64 {
	switch {
	case score >= 0.7:
		return 0.9
	case score >= 0.4:
		return 0.8
	default:
		return 0.6
	}
}

// Update merges the top-N normalized hits of one turn. Memories not recalled
// this turn decay; recalled ones grow toward MaxScore in proportion to their
// headroom; new ones enter capped at 80% of MaxScore. Items under
// FloorScore or beyond capacity are evicted.
func (p *Pool) Update(hits []Scored) {
	hits = append([]Scored(nil), hits...)
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > p.topN {
		hits = hits[:p.topN]
	}
	recalled := make(map[string]Scored, len(hits))
	for _, h := range hits {
		if prev, ok := recalled[h.Summary]; !ok || h.Score > prev.Score {
			recalled[h.Summary] = h
		}
	}

	for key, it := range p.items {
		h, ok := recalled[key]
		if !ok {
			it.Score *= decayRate(it.Score)
			continue
		}
		it.Score += (MaxScore - it.Score) * reinforceRate * h.Score
		if it.Score > MaxScore {
			it.Score = MaxScore
		}
		it.Timestamp = h.Created
	}
	for key, h := range recalled {
		if _, ok := p.items[key]; ok {
			continue
		}
		score := h.Score
		if score > newEntryCap {
			score = newEntryCap
		}
		p.items[key] = &Item{Key: key, Score: score, Timestamp: h.Created}
	}

	for key, it := range p.items {
		if it.Score < FloorScore {
			delete(p.items, key)
		}
	}
	if len(p.items) > p.capacity {
		for _, it := range p.Items()[p.capacity:] {
			delete(p.items, it.Key)
		}
	}
}

// Items returns the working set, highest score first.
func (p *Pool) Items() []Item {
	out := make([]Item, 0, len(p.items))
	for _, it := range p.items {
		out = append(out, *it)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.After(out[j].Timestamp)
		}
		return out[i].Key < out[j].Key
	})
	return out
}

// Score returns the current score of key.
func (p *Pool) Score(key string) (float64, bool) {
	it, ok := p.items[key]
	if !ok {
		return 0, false
	}
	return it.Score, true
}

// Len returns the number of items.
func (p *Pool) Len() int { return len(p.items) }

// Reset empties the pool.
func (p *Pool) Reset() { p.items = make(map[string]*Item) }
