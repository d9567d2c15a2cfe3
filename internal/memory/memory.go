// Package memory ties the corpus, tag index, associative graph, retriever and
// session pool of one conversation together.
package memory

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/rcliao/agent-recall/internal/calibrate"
	"github.com/rcliao/agent-recall/internal/config"
	"github.com/rcliao/agent-recall/internal/corpus"
	"github.com/rcliao/agent-recall/internal/graph"
	"github.com/rcliao/agent-recall/internal/lru"
	"github.com/rcliao/agent-recall/internal/metrics"
	"github.com/rcliao/agent-recall/internal/model"
	"github.com/rcliao/agent-recall/internal/retrieve"
	"github.com/rcliao/agent-recall/internal/session"
	"github.com/rcliao/agent-recall/internal/tagvec"
)

// ErrEmptySummary is returned by Record for a blank summary.
var ErrEmptySummary = errors.New("summary is required")

// Options carries the collaborators of a Memory. Zero fields get defaults.
type Options struct {
	Config  *config.Config
	Logger  *zap.Logger
	Metrics *metrics.Metrics
	Now     func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Config == nil {
		o.Config = config.DefaultConfig()
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Memory is the state of one conversation. It is not safe for concurrent
// use; callers serialize operations per conversation.
type Memory struct {
	cfg     config.Config
	log     *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time
	entropy *rand.Rand

	corpus    *corpus.Corpus
	index     *tagvec.Index
	vectors   []tagvec.Vector
	graph     *graph.Graph
	cache     *lru.Cache[string, []string]
	pool      *session.Pool
	retriever *retrieve.Retriever
}

// New returns an empty memory.
func New(opts Options) *Memory {
	opts = opts.withDefaults()
	cfg := *opts.Config
	m := &Memory{
		cfg:     cfg,
		log:     opts.Logger,
		metrics: opts.Metrics,
		now:     opts.Now,
		entropy: rand.New(rand.NewSource(time.Now().UnixNano())),
		corpus:  corpus.New(),
		index:   tagvec.New(),
		graph: graph.New(graph.Options{
			Alpha:      cfg.Graph.Alpha,
			PruneEvery: cfg.Graph.PruneEvery,
			MaxDepth:   cfg.Graph.MaxDepth,
		}),
		pool: session.NewPool(cfg.Session.Capacity, cfg.Session.TopN),
	}
	m.cache = lru.NewWithEvict(cfg.CacheCapacity, m.onCacheEvict)
	m.calibrate()
	return m
}

func (m *Memory) calibrate() {
	th := calibrate.Compute(m.cfg.Calibration.QueryTags, m.cfg.Calibration.EntryTags)
	m.retriever = retrieve.New(th, m.cfg.RecallOnce, m.log)
}

// Reconfigure applies recall, expansion and calibration settings and
// recomputes the thresholds. Graph, pool and cache sizes keep their current
// values until the conversation is reloaded.
func (m *Memory) Reconfigure(cfg *config.Config) {
	m.cfg.RecallOnce = cfg.RecallOnce
	m.cfg.TagWidth = cfg.TagWidth
	m.cfg.Expansion = cfg.Expansion
	m.cfg.Calibration = cfg.Calibration
	m.calibrate()
	m.log.Info("memory reconfigured",
		zap.Int("recall_once", m.retriever.RecallOnce()),
		zap.Int("query_tags", cfg.Calibration.QueryTags),
		zap.Int("entry_tags", cfg.Calibration.EntryTags))
}

// Thresholds returns the calibrated thresholds in use.
func (m *Memory) Thresholds() calibrate.Thresholds { return m.retriever.Thresholds() }

// Len, At and Vector expose the corpus to the retriever.
func (m *Memory) Len() int                    { return m.corpus.Len() }
func (m *Memory) At(i int) model.Entry        { return m.corpus.At(i) }
func (m *Memory) Vector(i int) tagvec.Vector  { return m.vectors[i] }
func (m *Memory) Entries() []model.Entry      { return m.corpus.Entries() }
func (m *Memory) Newest() (model.Entry, bool) { return m.corpus.Newest() }

var _ retrieve.Source = (*Memory)(nil)

func (m *Memory) newID(t time.Time) string {
	return ulid.MustNew(ulid.Timestamp(t), m.entropy).String()
}

// Record appends a new entry. Without a DATETIME tag the entry is stamped
// with the current time. Tags are fitted to the configured width.
func (m *Memory) Record(summary string, rawTags []string) (model.Entry, error) {
	summary = strings.TrimSpace(summary)
	if summary == "" {
		return model.Entry{}, ErrEmptySummary
	}
	tags := model.ParseTags(rawTags)
	if !hasTimestamp(tags) {
		tags = append(tags, model.Timestamp(m.now()))
	}
	tags = model.FitWidth(tags, m.cfg.TagWidth)

	e := model.NewEntry("", summary, tags)
	e.ID = m.newID(e.Created)
	if err := m.corpus.Append(e); err != nil {
		return model.Entry{}, fmt.Errorf("record: %w", err)
	}
	m.ingest(e)
	if m.metrics != nil {
		m.metrics.RecordsTotal.Inc()
		m.metrics.CorpusEntries.Set(float64(m.corpus.Len()))
	}
	m.log.Debug("entry recorded", zap.String("id", e.ID), zap.Strings("tags", e.Keywords()))
	return e, nil
}

// ingest indexes an entry already appended to the corpus.
func (m *Memory) ingest(e model.Entry) {
	kw := e.Keywords()
	m.vectors = append(m.vectors, m.index.Add(kw))
	stats, pruned := m.graph.AddEntry(kw)
	if !pruned {
		return
	}
	m.log.Info("graph pruned",
		zap.Float64("threshold", stats.Threshold),
		zap.Int("edges_before", stats.EdgesBefore),
		zap.Int("edges_after", stats.EdgesAfter),
		zap.Int("nodes_after", stats.NodesAfter),
		zap.Int("degree_cap", stats.DegreeCap))
	if m.metrics != nil {
		m.metrics.PrunesTotal.Inc()
		m.metrics.PrunedEdgesTotal.Add(float64(stats.EdgesBefore - stats.EdgesAfter))
	}
}

func hasTimestamp(tags []model.Tag) bool {
	for _, t := range tags {
		if t.Kind == model.KindTimestamp {
			return true
		}
	}
	return false
}

// Related returns graph associations of tags above the configured minimum
// score, strongest first.
func (m *Memory) Related(rawTags []string) []graph.Related {
	kw := model.Keywords(model.ParseTags(rawTags))
	if len(kw) == 0 {
		return nil
	}
	var out []graph.Related
	for _, r := range m.graph.Related(kw, m.cfg.Expansion.Limit) {
		if r.Score < m.cfg.Expansion.MinScore {
			continue
		}
		out = append(out, r)
	}
	return out
}

// CacheLookup returns the tags memoized for text. Case and runs of
// whitespace do not matter.
func (m *Memory) CacheLookup(text string) ([]string, bool) {
	tags, ok := m.cache.Get(cacheKey(text))
	if m.metrics != nil {
		if ok {
			m.metrics.CacheHitsTotal.Inc()
		} else {
			m.metrics.CacheMissesTotal.Inc()
		}
	}
	if !ok {
		return nil, false
	}
	return append([]string(nil), tags...), true
}

// CacheStore memoizes the tags produced for text.
func (m *Memory) CacheStore(text string, tags []string) {
	m.cache.Put(cacheKey(text), append([]string(nil), tags...))
}

func (m *Memory) onCacheEvict(key string, _ []string) {
	m.log.Debug("tag cache evicted", zap.String("text", key))
	if m.metrics != nil {
		m.metrics.CacheEvictions.Inc()
	}
}

func cacheKey(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

// Stats summarizes the conversation state.
type Stats struct {
	Entries        int       `json:"entries"`
	IndexedTags    int       `json:"indexed_tags"`
	GraphNodes     int       `json:"graph_nodes"`
	GraphEdges     int       `json:"graph_edges"`
	NoiseThreshold float64   `json:"noise_threshold"`
	PoolSize       int       `json:"pool_size"`
	CacheSize      int       `json:"cache_size"`
	Oldest         time.Time `json:"oldest,omitempty"`
	Newest         time.Time `json:"newest,omitempty"`
}

// Stats returns a summary of the conversation state.
func (m *Memory) Stats() Stats {
	s := Stats{
		Entries:        m.corpus.Len(),
		IndexedTags:    m.index.Dim(),
		GraphNodes:     m.graph.NodeCount(),
		GraphEdges:     m.graph.EdgeCount(),
		NoiseThreshold: m.graph.NoiseThreshold(),
		PoolSize:       m.pool.Len(),
		CacheSize:      m.cache.Len(),
	}
	if s.Entries > 0 {
		s.Oldest = m.corpus.At(0).Created
		s.Newest = m.corpus.At(s.Entries - 1).Created
	}
	return s
}
