// Package graph maintains a weighted, undirected tag co-occurrence graph.
//
// Edge weights blend a normalized pointwise mutual information term with a
// raw frequency term. The graph is pruned every PruneEvery newly added nodes
// and supports bounded spreading activation (see Related).
package graph

import (
	"math"
	"sort"
)

const (
	MinWeight = 0.01
	MaxWeight = 1.0

	// DefaultAlpha is the PMI share of an edge weight.
	DefaultAlpha = 0.7
	// DefaultPruneEvery is the number of new nodes between prune passes.
	DefaultPruneEvery = 1000
	// DefaultMaxDepth bounds spreading activation.
	DefaultMaxDepth = 3

	pmiSmoothing = 1.0
)

// Edge is shared by both endpoints.
type Edge struct {
	Cooccurrence int
	Weight       float64
}

// Options tunes the graph.
type Options struct {
	Alpha      float64
	PruneEvery int
	MaxDepth   int
}

// DefaultOptions returns the standard tuning.
func DefaultOptions() Options {
	return Options{
		Alpha:      DefaultAlpha,
		PruneEvery: DefaultPruneEvery,
		MaxDepth:   DefaultMaxDepth,
	}
}

// Graph is not safe for concurrent use.
type Graph struct {
	opts  Options
	nodes map[string]map[string]*Edge
	edges int

	addedSincePrune int

	noise      float64
	noiseValid bool
}

// New returns an empty graph.
func New(opts Options) *Graph {
	def := DefaultOptions()
	if opts.Alpha <= 0 || opts.Alpha > 1 {
		opts.Alpha = def.Alpha
	}
	if opts.PruneEvery <= 0 {
		opts.PruneEvery = def.PruneEvery
	}
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = def.MaxDepth
	}
	return &Graph{opts: opts, nodes: make(map[string]map[string]*Edge)}
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the number of undirected edges.
func (g *Graph) EdgeCount() int { return g.edges }

// Degree returns the number of neighbors of tag.
func (g *Graph) Degree(tag string) int { return len(g.nodes[tag]) }

// HasNode reports whether tag is a node.
func (g *Graph) HasNode(tag string) bool {
	_, ok := g.nodes[tag]
	return ok
}

// Edge returns the edge between a and b.
func (g *Graph) Edge(a, b string) (Edge, bool) {
	e, ok := g.nodes[a][b]
	if !ok {
		return Edge{}, false
	}
	return *e, true
}

// Weights returns every edge weight once.
func (g *Graph) Weights() []float64 {
	out := make([]float64, 0, g.edges)
	g.eachEdge(func(_, _ string, e *Edge) {
		out = append(out, e.Weight)
	})
	return out
}

func (g *Graph) eachEdge(fn func(a, b string, e *Edge)) {
	for a, nbrs := range g.nodes {
		for b, e := range nbrs {
			if a < b {
				fn(a, b, e)
			}
		}
	}
}

// AddEntry records that tags co-occurred in one entry. It returns the stats
// of the prune pass it triggered, if any.
func (g *Graph) AddEntry(tags []string) (PruneStats, bool) {
	uniq := dedup(tags)
	for _, t := range uniq {
		if _, ok := g.nodes[t]; !ok {
			g.nodes[t] = make(map[string]*Edge)
			g.addedSincePrune++
		}
	}

	type pair struct{ a, b string }
	touched := make([]pair, 0, len(uniq)*(len(uniq)-1)/2+1)
	for i := 0; i < len(uniq); i++ {
		for j := i + 1; j < len(uniq); j++ {
			a, b := uniq[i], uniq[j]
			e, ok := g.nodes[a][b]
			if !ok {
				e = &Edge{}
				g.nodes[a][b] = e
				g.nodes[b][a] = e
				g.edges++
			}
			e.Cooccurrence++
			touched = append(touched, pair{a, b})
		}
	}
	for _, p := range touched {
		e := g.nodes[p.a][p.b]
		e.Weight = g.weight(e.Cooccurrence, len(g.nodes[p.a]), len(g.nodes[p.b]))
	}
	if len(uniq) > 0 {
		g.noiseValid = false
	}

	if g.addedSincePrune >= g.opts.PruneEvery {
		g.addedSincePrune = 0
		return g.Prune(), true
	}
	return PruneStats{}, false
}

// weight blends normalized PMI with a log-frequency term.
func (g *Graph) weight(cooc, degA, degB int) float64 {
	logE := math.Log2(float64(g.edges))
	if logE < 1 {
		logE = 1
	}
	c := float64(cooc)
	pmi := 0.0
	if degA > 0 && degB > 0 {
		raw := math.Log2(c * float64(g.edges) / (float64(degA) * float64(degB)))
		pmi = clamp(raw/(logE+pmiSmoothing), 0, 1)
	}
	freq := clamp(math.Log2(1+c)/logE, 0, 1)
	w := g.opts.Alpha*pmi + (1-g.opts.Alpha)*freq
	return clamp(w, MinWeight, MaxWeight)
}

// NoiseThreshold is the weight below which an edge counts as noise. It is
// cached until the next AddEntry.
func (g *Graph) NoiseThreshold() float64 {
	if !g.noiseValid {
		g.noise = g.computeNoiseThreshold()
		g.noiseValid = true
	}
	return g.noise
}

func (g *Graph) avgDegree() float64 {
	if len(g.nodes) == 0 {
		return 0
	}
	return 2 * float64(g.edges) / float64(len(g.nodes))
}

func (g *Graph) computeNoiseThreshold() float64 {
	const lower = 0.1
	weights := g.Weights()
	if len(weights) == 0 {
		return lower
	}
	upper := lower
	if avg := g.avgDegree(); avg > 0 {
		upper = math.Max(lower, 0.4+0.1*math.Log2(avg))
	}
	return clamp(percentile(weights, 0.25), lower, upper)
}

func dedup(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// percentile uses linear interpolation between closest ranks.
func percentile(values []float64, p float64) float64 {
	s := make([]float64, len(values))
	copy(s, values)
	sort.Float64s(s)
	if len(s) == 1 {
		return s[0]
	}
	pos := p * float64(len(s)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	frac := pos - float64(lo)
	return s[lo] + (s[hi]-s[lo])*frac
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
