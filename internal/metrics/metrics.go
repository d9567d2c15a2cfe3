// Package metrics exposes Prometheus counters for the memory core.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "agent_recall"

// Metrics owns its registry so several instances (tests, conversations in
// one process) never collide on registration.
type Metrics struct {
	Registry *prometheus.Registry

	RecordsTotal     prometheus.Counter
	RetrievalsTotal  *prometheus.CounterVec
	TierHitsTotal    *prometheus.CounterVec
	PrunesTotal      prometheus.Counter
	PrunedEdgesTotal prometheus.Counter
	CacheHitsTotal   prometheus.Counter
	CacheMissesTotal prometheus.Counter
	CacheEvictions   prometheus.Counter
	SnapshotErrors   *prometheus.CounterVec
	RetrieveDuration prometheus.Histogram
	CorpusEntries    prometheus.Gauge
}

// New registers every collector on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		Registry: reg,
		RecordsTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_total",
			Help:      "Memory entries recorded.",
		}),
		RetrievalsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retrievals_total",
			Help:      "Retrieval calls by outcome.",
		}, []string{"outcome"}),
		TierHitsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tier_hits_total",
			Help:      "Entries admitted per retrieval tier.",
		}, []string{"tier"}),
		PrunesTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "graph_prunes_total",
			Help:      "Associative graph prune passes.",
		}),
		PrunedEdgesTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "graph_pruned_edges_total",
			Help:      "Edges removed by prune passes.",
		}),
		CacheHitsTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tag_cache_hits_total",
			Help:      "Tagging memoization cache hits.",
		}),
		CacheMissesTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tag_cache_misses_total",
			Help:      "Tagging memoization cache misses.",
		}),
		CacheEvictions: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tag_cache_evictions_total",
			Help:      "Tagging memoization cache evictions.",
		}),
		SnapshotErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshot_errors_total",
			Help:      "Snapshot load/save failures.",
		}, []string{"op"}),
		RetrieveDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "retrieve_duration_seconds",
			Help:      "Time spent in one retrieval call.",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}),
		CorpusEntries: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "corpus_entries",
			Help:      "Entries in the most recently touched corpus.",
		}),
	}
}

// ObserveRetrieve records the outcome and latency of one retrieval.
func (m *Metrics) ObserveRetrieve(start time.Time, recalled int) {
	if m == nil {
		return
	}
	outcome := "hit"
	if recalled == 0 {
		outcome = "empty"
	}
	m.RetrievalsTotal.WithLabelValues(outcome).Inc()
	m.RetrieveDuration.Observe(time.Since(start).Seconds())
}

// WriteTextfile dumps every metric in the text exposition format, for the
// node_exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.Registry)
}
