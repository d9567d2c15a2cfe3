package memory

import (
	"time"

	"go.uber.org/zap"

	"github.com/rcliao/agent-recall/internal/model"
	"github.com/rcliao/agent-recall/internal/retrieve"
	"github.com/rcliao/agent-recall/internal/session"
)

// Result is the outcome of one retrieval turn.
type Result struct {
	// Query holds the query keywords followed by their graph expansions.
	Query []string
	Hits  []retrieve.Hit
	// Items is the session working set after this turn, plus the newest
	// entry, highest score first.
	Items []session.Item
	// Lines is Items rendered chronologically with day markers.
	Lines []string
}

// Retrieve returns the formatted context lines for queryTags.
func (m *Memory) Retrieve(queryTags []string) []string {
	return m.RetrieveRanked(queryTags).Lines
}

// RetrieveRanked expands the query through the associative graph, runs the
// retrieval tiers, merges the hits into the session pool and renders it.
// A query without keywords returns an empty result and leaves the pool as
// it was.
func (m *Memory) RetrieveRanked(queryTags []string) Result {
	start := time.Now()
	kw := model.Keywords(model.ParseTags(queryTags))
	if len(kw) == 0 {
		m.metrics.ObserveRetrieve(start, 0)
		return Result{}
	}

	expanded := append([]string(nil), kw...)
	for _, r := range m.Related(kw) {
		expanded = append(expanded, r.Tag)
	}
	q := retrieve.Query{Tags: expanded, Vector: m.index.Vectorize(expanded)}

	now := m.now()
	hits := m.retriever.Retrieve(m, q, now)
	if m.metrics != nil {
		for _, h := range hits {
			m.metrics.TierHitsTotal.WithLabelValues(h.Level.String()).Inc()
		}
	}

	m.pool.Update(session.Normalize(hits, now))
	items := m.pool.Items()
	if newest, ok := m.corpus.Newest(); ok {
		items = session.WithLatest(items, session.Item{Key: newest.Summary, Timestamp: newest.Created})
	}
	m.metrics.ObserveRetrieve(start, len(hits))
	m.log.Debug("retrieved",
		zap.Strings("query", expanded),
		zap.Int("hits", len(hits)),
		zap.Int("pool", m.pool.Len()))

	return Result{
		Query: expanded,
		Hits:  hits,
		Items: items,
		Lines: session.Format(items, now),
	}
}

// ResetSession clears the working set without touching the corpus.
func (m *Memory) ResetSession() {
	m.pool.Reset()
}
