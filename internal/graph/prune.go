package graph

import "sort"

// PruneStats describes one prune pass.
type PruneStats struct {
	Threshold    float64
	EdgesBefore  int
	EdgesAfter   int
	NodesBefore  int
	NodesAfter   int
	DegreeCap    int
	CappedEdges  int
	DroppedNoise int
}

// degreeCap returns how many edges a node may keep, by graph density.
func degreeCap(avgDegree float64) int {
	switch {
	case avgDegree < 10:
		return 40
	case avgDegree < 30:
		return 30
	default:
		return 20
	}
}

// Prune drops noise edges, caps node degree and removes isolated nodes.
// Only edges strictly below the threshold are noise, so a graph whose
// weights all sit at or above it (uniform weights, for one) loses no edge
// unless a node is over the degree cap.
func (g *Graph) Prune() PruneStats {
	st := PruneStats{EdgesBefore: g.edges, NodesBefore: len(g.nodes)}
	st.Threshold = g.computeNoiseThreshold()

	var noisy [][2]string
	g.eachEdge(func(a, b string, e *Edge) {
		if e.Weight < st.Threshold {
			noisy = append(noisy, [2]string{a, b})
		}
	})
	for _, p := range noisy {
		g.removeEdge(p[0], p[1])
	}
	st.DroppedNoise = len(noisy)

	st.DegreeCap = degreeCap(g.avgDegree())
	drop := make(map[[2]string]struct{})
	for a, nbrs := range g.nodes {
		if len(nbrs) <= st.DegreeCap {
			continue
		}
		ranked := make([]string, 0, len(nbrs))
		for b := range nbrs {
			ranked = append(ranked, b)
		}
		sort.Slice(ranked, func(i, j int) bool {
			wi, wj := nbrs[ranked[i]].Weight, nbrs[ranked[j]].Weight
			if wi != wj {
				return wi > wj
			}
			return ranked[i] < ranked[j]
		})
		for _, b := range ranked[st.DegreeCap:] {
			drop[orderedPair(a, b)] = struct{}{}
		}
	}
	for p := range drop {
		g.removeEdge(p[0], p[1])
	}
	st.CappedEdges = len(drop)

	for t, nbrs := range g.nodes {
		if len(nbrs) == 0 {
			delete(g.nodes, t)
		}
	}

	st.EdgesAfter = g.edges
	st.NodesAfter = len(g.nodes)
	g.noiseValid = false
	return st
}

func (g *Graph) removeEdge(a, b string) {
	if _, ok := g.nodes[a][b]; !ok {
		return
	}
	delete(g.nodes[a], b)
	delete(g.nodes[b], a)
	g.edges--
}

func orderedPair(a, b string) [2]string {
	if a < b {
		return [2]string{a, b}
	}
	return [2]string{b, a}
}
