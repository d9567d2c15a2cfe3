package graph

import (
	"container/heap"
	"math"
	"sort"
)

const (
	baseDecay          = 0.8
	strongEdgeBonus    = 0.5
	inconsistencyScale = 0.3
)

// Related is one associated tag with its normalized activation.
type Related struct {
	Tag   string
	Score float64
}

type frontierItem struct {
	tag      string
	strength float64
	depth    int
	quality  float64
}

type frontier []frontierItem

func (f frontier) Len() int            { return len(f) }
func (f frontier) Less(i, j int) bool  { return f[i].strength > f[j].strength }
func (f frontier) Swap(i, j int)       { f[i], f[j] = f[j], f[i] }
func (f *frontier) Push(x interface{}) { *f = append(*f, x.(frontierItem)) }
func (f *frontier) Pop() interface{} {
	old := *f
	it := old[len(old)-1]
	*f = old[:len(old)-1]
	return it
}

// Related spreads activation from seeds and returns up to limit associated
// non-seed tags, strongest first, scored relative to the strongest one.
// A limit <= 0 returns all of them.
//
// Strength only ever shrinks along a path, so the max-heap pops nodes in
// final order; a pop whose strength is below the best known for that node is
// stale and skipped. The search ends at the first pop at or below the noise
// threshold.
func (g *Graph) Related(seeds []string, limit int) []Related {
	best := make(map[string]float64)
	isSeed := make(map[string]bool)
	f := &frontier{}
	for _, s := range dedup(seeds) {
		if !g.HasNode(s) {
			continue
		}
		isSeed[s] = true
		best[s] = 1.0
		heap.Push(f, frontierItem{tag: s, strength: 1.0})
	}
	if f.Len() == 0 {
		return nil
	}

	noise := g.NoiseThreshold()
	visited := make(map[string]float64)
	for f.Len() > 0 {
		cur := heap.Pop(f).(frontierItem)
		if cur.strength <= noise {
			break
		}
		if cur.strength < best[cur.tag] {
			continue
		}
		if _, done := visited[cur.tag]; done {
			continue
		}
		visited[cur.tag] = cur.strength
		if cur.depth >= g.opts.MaxDepth {
			continue
		}

		nbrs := g.nodes[cur.tag]
		local := meanWeight(nbrs)
		for nb, e := range nbrs {
			if _, done := visited[nb]; done {
				continue
			}
			s := cur.strength * decay(cur.depth, e.Weight, local, cur.quality) * e.Weight
			if s <= best[nb] {
				continue
			}
			best[nb] = s
			q := e.Weight
			if cur.depth > 0 {
				q = (cur.quality + e.Weight) / 2
			}
			heap.Push(f, frontierItem{tag: nb, strength: s, depth: cur.depth + 1, quality: q})
		}
	}

	var out []Related
	maxStrength := 0.0
	for t, s := range visited {
		if isSeed[t] {
			continue
		}
		out = append(out, Related{Tag: t, Score: s})
		maxStrength = math.Max(maxStrength, s)
	}
	if len(out) == 0 {
		return nil
	}
	for i := range out {
		out[i].Score /= maxStrength
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Tag < out[j].Tag
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// decay is the per-hop retention factor. Edges stronger than the node's
// average neighbor decay more slowly; an edge whose weight departs from the
// quality of the incoming path is penalized.
func decay(depth int, w, localAvg, quality float64) float64 {
	rate := baseDecay
	if w > localAvg && localAvg < 1 {
		rate += (1 - rate) * strongEdgeBonus * (w - localAvg) / (1 - localAvg)
	}
	consistency := 1.0
	if depth > 0 {
		consistency = 1 - inconsistencyScale*math.Abs(w-quality)
	}
	return clamp(math.Pow(rate, float64(depth+1))*consistency, 0, 1)
}

func meanWeight(nbrs map[string]*Edge) float64 {
	if len(nbrs) == 0 {
		return 0
	}
	sum := 0.0
	for _, e := range nbrs {
		sum += e.Weight
	}
	return sum / float64(len(nbrs))
}
