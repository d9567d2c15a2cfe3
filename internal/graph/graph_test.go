package graph

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// link inserts an edge with a fixed weight, bypassing the weighting formula.
func link(g *Graph, a, b string, w float64) {
	for _, t := range []string{a, b} {
		if g.nodes[t] == nil {
			g.nodes[t] = make(map[string]*Edge)
		}
	}
	e := &Edge{Cooccurrence: 1, Weight: w}
	g.nodes[a][b] = e
	g.nodes[b][a] = e
	g.edges++
	g.noiseValid = false
}

func TestAddEntryCountsCooccurrence(t *testing.T) {
	g := New(DefaultOptions())
	g.AddEntry([]string{"coffee", "morning"})
	g.AddEntry([]string{"coffee", "morning", "sun"})
	g.AddEntry([]string{"coffee", "coffee"})

	e, ok := g.Edge("coffee", "morning")
	require.True(t, ok)
	assert.Equal(t, 2, e.Cooccurrence)

	back, ok := g.Edge("morning", "coffee")
	require.True(t, ok)
	assert.Equal(t, e, back)

	assert.Equal(t, 3, g.NodeCount())
	assert.Equal(t, 3, g.EdgeCount())
	assert.Equal(t, 2, g.Degree("coffee"))
}

func TestEdgeWeightsStayInRange(t *testing.T) {
	g := New(Options{PruneEvery: 1 << 30})
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 300; i++ {
		n := 1 + rng.Intn(6)
		tags := make([]string, n)
		for j := range tags {
			tags[j] = fmt.Sprintf("t%d", rng.Intn(40))
		}
		g.AddEntry(tags)
		for _, w := range g.Weights() {
			require.GreaterOrEqual(t, w, MinWeight)
			require.LessOrEqual(t, w, MaxWeight)
		}
	}
}

func TestRepeatedCooccurrenceRaisesWeight(t *testing.T) {
	g := New(DefaultOptions())
	g.AddEntry([]string{"a", "b"})
	g.AddEntry([]string{"c", "d"})
	g.AddEntry([]string{"e", "f"})
	first, _ := g.Edge("a", "b")
	for i := 0; i < 5; i++ {
		g.AddEntry([]string{"a", "b"})
	}
	later, _ := g.Edge("a", "b")
	assert.Greater(t, later.Weight, first.Weight)
}

func TestPruneDropsNoiseAndIsolatedNodes(t *testing.T) {
	g := New(DefaultOptions())
	link(g, "h", "k", 0.9)
	link(g, "h", "n", 0.12)
	link(g, "r", "s", 0.15)
	for i := 0; i < 8; i++ {
		link(g, fmt.Sprintf("p%d", i), fmt.Sprintf("q%d", i), 0.8)
	}

	st := g.Prune()
	assert.Equal(t, 11, st.EdgesBefore)
	assert.Less(t, st.EdgesAfter, st.EdgesBefore)
	assert.Equal(t, 9, st.EdgesAfter)
	assert.Equal(t, 18, st.NodesAfter)
	assert.InDelta(t, 0.4067, st.Threshold, 1e-3)

	for _, w := range g.Weights() {
		assert.GreaterOrEqual(t, w, st.Threshold)
	}
	assert.True(t, g.HasNode("h"), "h keeps its edge to k")
	assert.False(t, g.HasNode("n"))
	assert.False(t, g.HasNode("r"))
	for _, tag := range []string{"h", "k", "p0", "q7"} {
		assert.Greater(t, g.Degree(tag), 0, tag)
	}
}

func TestPruneKeepsUniformWeights(t *testing.T) {
	g := New(DefaultOptions())
	for i := 0; i < 3; i++ {
		link(g, fmt.Sprintf("a%d", i), fmt.Sprintf("b%d", i), 0.3)
	}

	st := g.Prune()
	assert.InDelta(t, 0.3, st.Threshold, 1e-12)
	assert.Equal(t, 0, st.DroppedNoise)
	assert.Equal(t, st.EdgesBefore, st.EdgesAfter)
	assert.Equal(t, 6, st.NodesAfter)
}

func TestPruneCapsDegree(t *testing.T) {
	g := New(DefaultOptions())
	for i := 0; i < 50; i++ {
		link(g, "hub", fmt.Sprintf("leaf%02d", i), 0.5+float64(i)*0.001)
	}

	st := g.Prune()
	assert.Equal(t, 0, st.DroppedNoise)
	assert.Equal(t, 40, st.DegreeCap)
	assert.Equal(t, 10, st.CappedEdges)
	assert.Equal(t, 40, g.Degree("hub"))
	assert.False(t, g.HasNode("leaf00"), "weakest leaves are cut")
	assert.True(t, g.HasNode("leaf49"))
	assert.Equal(t, 41, g.NodeCount())
}

func TestAddEntryTriggersPrune(t *testing.T) {
	g := New(Options{PruneEvery: 4})
	_, pruned := g.AddEntry([]string{"a", "b"})
	assert.False(t, pruned)
	st, pruned := g.AddEntry([]string{"c", "d"})
	require.True(t, pruned)
	assert.Equal(t, 2, st.EdgesBefore)

	_, pruned = g.AddEntry([]string{"a", "c"})
	assert.False(t, pruned, "counter resets after a pass")
}

func TestNoiseThresholdEmptyGraph(t *testing.T) {
	g := New(DefaultOptions())
	assert.Equal(t, 0.1, g.NoiseThreshold())
	assert.Nil(t, g.Related([]string{"nothing"}, 5))
}

func TestRelatedSpreadsThroughStrongEdges(t *testing.T) {
	g := New(DefaultOptions())
	link(g, "coffee", "espresso", 0.9)
	link(g, "espresso", "italy", 0.8)
	link(g, "coffee", "tea", 0.3)
	link(g, "x", "y", 0.05)
	link(g, "u", "v", 0.05)

	got := g.Related([]string{"coffee"}, 0)
	require.Len(t, got, 3)
	assert.Equal(t, "espresso", got[0].Tag)
	assert.InDelta(t, 1.0, got[0].Score, 1e-12)
	assert.Equal(t, "italy", got[1].Tag)
	assert.Equal(t, "tea", got[2].Tag)
	for _, r := range got {
		assert.NotEqual(t, "coffee", r.Tag)
		assert.NotEqual(t, "x", r.Tag)
		assert.Greater(t, r.Score, 0.0)
		assert.LessOrEqual(t, r.Score, 1.0)
	}

	limited := g.Related([]string{"coffee"}, 1)
	require.Len(t, limited, 1)
	assert.Equal(t, "espresso", limited[0].Tag)
}

func TestRelatedStopsAtNoise(t *testing.T) {
	g := New(DefaultOptions())
	link(g, "a", "b", 0.9)
	link(g, "a", "c", 0.11)
	link(g, "d", "e", 0.9)
	link(g, "f", "g", 0.9)

	// p25 is 0.70, clamped to the density bound of ~0.42; the weak a-c edge
	// carries far less strength than that
	got := g.Related([]string{"a"}, 0)
	require.Len(t, got, 1)
	assert.Equal(t, "b", got[0].Tag)
}

func TestPercentile(t *testing.T) {
	assert.Equal(t, 3.0, percentile([]float64{3}, 0.25))
	assert.InDelta(t, 1.75, percentile([]float64{4, 1, 2, 3}, 0.25), 1e-12)
}
