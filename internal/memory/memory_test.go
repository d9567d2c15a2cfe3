package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/agent-recall/internal/config"
	"github.com/rcliao/agent-recall/internal/corpus"
	"github.com/rcliao/agent-recall/internal/metrics"
	"github.com/rcliao/agent-recall/internal/model"
	"github.com/rcliao/agent-recall/internal/store"
)

var testNow = time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

func newTestMemory(t *testing.T) (*Memory, *metrics.Metrics) {
	t.Helper()
	met := metrics.New()
	m := New(Options{Metrics: met, Now: func() time.Time { return testNow }})
	return m, met
}

func at(hoursAgo float64) string {
	return model.DatetimePrefix + model.FormatTime(testNow.Add(-time.Duration(hoursAgo*float64(time.Hour))))
}

// seed records the coffee / movie / coffee day used by several tests.
func seed(t *testing.T, m *Memory) {
	t.Helper()
	_, err := m.Record("talked about coffee", []string{"coffee", "morning", at(3)})
	require.NoError(t, err)
	_, err = m.Record("watched a movie", []string{"movie", "evening", at(2)})
	require.NoError(t, err)
	_, err = m.Record("coffee again", []string{"coffee", "afternoon", at(1)})
	require.NoError(t, err)
}

func TestRecordStampsAndPads(t *testing.T) {
	m, met := newTestMemory(t)
	e, err := m.Record("  user likes tea  ", []string{"Tea", "", "drinks"})
	require.NoError(t, err)

	assert.Equal(t, "user likes tea", e.Summary)
	assert.True(t, e.Created.Equal(testNow))
	assert.Len(t, e.Tags, config.DefaultConfig().TagWidth)
	assert.Equal(t, []string{"tea", "drinks"}, e.Keywords())
	assert.NotEmpty(t, e.ID)
	assert.Equal(t, 1.0, testutil.ToFloat64(met.RecordsTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(met.CorpusEntries))
}

func TestRecordRejects(t *testing.T) {
	m, _ := newTestMemory(t)
	_, err := m.Record("   ", []string{"x"})
	assert.ErrorIs(t, err, ErrEmptySummary)

	_, err = m.Record("recent", []string{"x", at(1)})
	require.NoError(t, err)
	_, err = m.Record("older", []string{"x", at(5)})
	assert.True(t, errors.Is(err, corpus.ErrOutOfOrder))
	assert.Equal(t, 1, m.Len())
	assert.Len(t, m.vectors, 1)
}

func TestRetrieveEndToEnd(t *testing.T) {
	m, met := newTestMemory(t)
	seed(t, m)

	res := m.RetrieveRanked([]string{"coffee"})
	require.Len(t, res.Hits, 1)
	assert.Equal(t, "talked about coffee", res.Hits[0].Entry.Summary)
	assert.Equal(t, "L0", res.Hits[0].Level.String())
	assert.Equal(t, "coffee", res.Query[0])

	assert.Equal(t, []string{
		"=== 2026-10-16 ===",
		"[09:00] talked about coffee",
		"[11:00] coffee again",
	}, res.Lines)

	score, ok := m.pool.Score("talked about coffee")
	require.True(t, ok)
	assert.InDelta(t, 0.7, score, 1e-9)
	assert.Equal(t, 1.0, testutil.ToFloat64(met.TierHitsTotal.WithLabelValues("L0")))
	assert.Equal(t, 1.0, testutil.ToFloat64(met.RetrievalsTotal.WithLabelValues("hit")))
}

func TestRetrieveDecaysAcrossTurns(t *testing.T) {
	m, _ := newTestMemory(t)
	seed(t, m)

	m.Retrieve([]string{"coffee"})
	lines := m.Retrieve([]string{"movie"})

	coffee, ok := m.pool.Score("talked about coffee")
	require.True(t, ok)
	assert.InDelta(t, 0.63, coffee, 1e-9)
	movie, ok := m.pool.Score("watched a movie")
	require.True(t, ok)
	assert.InDelta(t, 0.7, movie, 1e-9)

	assert.Equal(t, []string{
		"=== 2026-10-16 ===",
		"[09:00] talked about coffee",
		"[10:00] watched a movie",
		"[11:00] coffee again",
	}, lines)
}

func TestRetrieveDegenerateQuery(t *testing.T) {
	m, met := newTestMemory(t)
	seed(t, m)
	m.Retrieve([]string{"coffee"})

	res := m.RetrieveRanked([]string{"", "  ", at(1), "PADDING:0"})
	assert.Empty(t, res.Lines)
	assert.Empty(t, res.Hits)
	assert.Equal(t, 1, m.pool.Len())
	assert.Equal(t, 1.0, testutil.ToFloat64(met.RetrievalsTotal.WithLabelValues("empty")))
}

func TestRetrieveEmptyCorpus(t *testing.T) {
	m, _ := newTestMemory(t)
	assert.Empty(t, m.Retrieve([]string{"coffee"}))

	_, err := m.Record("only one", []string{"coffee", at(1)})
	require.NoError(t, err)
	// A single entry is never scanned but is still the latest context.
	assert.Equal(t, []string{"=== 2026-10-16 ===", "[11:00] only one"}, m.Retrieve([]string{"coffee"}))
}

func TestTrailingNowMarker(t *testing.T) {
	m, _ := newTestMemory(t)
	_, err := m.Record("planned a trip", []string{"travel", "japan", at(50)})
	require.NoError(t, err)
	_, err = m.Record("booked flights", []string{"travel", "flights", at(30)})
	require.NoError(t, err)

	lines := m.Retrieve([]string{"travel", "japan"})
	require.NotEmpty(t, lines)
	assert.Equal(t, "=== now 2026-10-16 12:00 ===", lines[len(lines)-1])
}

func TestRelated(t *testing.T) {
	m, _ := newTestMemory(t)
	seed(t, m)

	rel := m.Related([]string{"coffee"})
	for _, r := range rel {
		assert.NotEqual(t, "coffee", r.Tag)
		assert.GreaterOrEqual(t, r.Score, config.DefaultConfig().Expansion.MinScore)
		assert.NotContains(t, []string{"movie", "evening"}, r.Tag)
	}
	assert.Empty(t, m.Related([]string{"unknown"}))
	assert.Empty(t, m.Related(nil))
}

func TestCache(t *testing.T) {
	m, met := newTestMemory(t)
	_, ok := m.CacheLookup("Hello World")
	assert.False(t, ok)

	tags := []string{"greeting"}
	m.CacheStore("Hello   World", tags)
	tags[0] = "mutated"

	got, ok := m.CacheLookup(" hello world ")
	require.True(t, ok)
	assert.Equal(t, []string{"greeting"}, got)
	assert.Equal(t, 1.0, testutil.ToFloat64(met.CacheHitsTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(met.CacheMissesTotal))
}

func TestCacheEviction(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.CacheCapacity = 1
	met := metrics.New()
	m := New(Options{Config: cfg, Metrics: met})

	m.CacheStore("first text", []string{"a"})
	m.CacheStore("second text", []string{"b"})

	_, ok := m.CacheLookup("first text")
	assert.False(t, ok)
	got, ok := m.CacheLookup("second text")
	require.True(t, ok)
	assert.Equal(t, []string{"b"}, got)
	assert.Equal(t, 1.0, testutil.ToFloat64(met.CacheEvictions))
}

func TestStats(t *testing.T) {
	m, _ := newTestMemory(t)
	assert.Equal(t, Stats{NoiseThreshold: 0.1}, m.Stats())

	seed(t, m)
	s := m.Stats()
	assert.Equal(t, 3, s.Entries)
	assert.Equal(t, 5, s.IndexedTags)
	assert.Equal(t, 5, s.GraphNodes)
	assert.Equal(t, 3, s.GraphEdges)
	assert.True(t, s.Newest.Equal(testNow.Add(-time.Hour)))
	assert.True(t, s.Oldest.Equal(testNow.Add(-3*time.Hour)))
}

func TestReconfigure(t *testing.T) {
	m, _ := newTestMemory(t)
	before := m.Thresholds()

	cfg := config.DefaultConfig()
	cfg.RecallOnce = 1
	cfg.Calibration.QueryTags = 12
	m.Reconfigure(cfg)

	assert.Equal(t, 1, m.retriever.RecallOnce())
	assert.NotEqual(t, before.L0, m.Thresholds().L0)
}

func TestSnapshotRoundTrip(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestMemory(t)
	seed(t, m)
	st := store.NewSQLiteStore()
	path := filepath.Join(t.TempDir(), "conv.db")
	require.NoError(t, m.Save(ctx, st, path))

	loaded := Load(ctx, st, path, Options{Now: func() time.Time { return testNow }})
	require.Equal(t, m.Len(), loaded.Len())
	for i := 0; i < m.Len(); i++ {
		want, got := m.At(i), loaded.At(i)
		assert.Equal(t, want.ID, got.ID)
		assert.Equal(t, want.Summary, got.Summary)
		assert.True(t, want.Created.Equal(got.Created))
		assert.Equal(t, want.RawTags(), got.RawTags())
		assert.Equal(t, m.Vector(i), loaded.Vector(i))
	}
	assert.Equal(t, m.index.Tags(), loaded.index.Tags())
	assert.Equal(t, m.graph.EdgeCount(), loaded.graph.EdgeCount())
	assert.Equal(t, m.Retrieve([]string{"coffee"}), loaded.Retrieve([]string{"coffee"}))

	t.Run("sub-second times", func(t *testing.T) {
		clock := time.Date(2026, 10, 16, 12, 0, 0, 123456789, time.UTC)
		m := New(Options{Now: func() time.Time { return clock }})
		_, err := m.Record("tagged", []string{"coffee", "DATETIME:2026-10-16T10:00:00.250Z"})
		require.NoError(t, err)
		_, err = m.Record("stamped", []string{"tea"})
		require.NoError(t, err)

		path := filepath.Join(t.TempDir(), "subsecond.db")
		require.NoError(t, m.Save(ctx, st, path))
		loaded := Load(ctx, st, path, Options{Now: func() time.Time { return clock }})
		require.Equal(t, 2, loaded.Len())
		for i := 0; i < 2; i++ {
			assert.True(t, m.At(i).Created.Equal(loaded.At(i).Created),
				"%s: %v != %v", m.At(i).Summary, m.At(i).Created, loaded.At(i).Created)
		}
		assert.True(t, loaded.At(1).Created.Equal(clock))
	})
}

func TestLoadMissingAndCorrupt(t *testing.T) {
	ctx := context.Background()
	st := store.NewSQLiteStore()
	dir := t.TempDir()

	empty := Load(ctx, st, filepath.Join(dir, "missing.db"), Options{})
	assert.Equal(t, 0, empty.Len())

	bad := filepath.Join(dir, "bad.db")
	require.NoError(t, os.WriteFile(bad, []byte("not a database at all, only some text"), 0o644))
	met := metrics.New()
	corrupt := Load(ctx, st, bad, Options{Metrics: met})
	assert.Equal(t, 0, corrupt.Len())
	assert.Equal(t, 1.0, testutil.ToFloat64(met.SnapshotErrors.WithLabelValues("load")))
}

func TestFromSnapshotNormalizes(t *testing.T) {
	snap := &store.Snapshot{
		Records: []store.Record{
			{ID: "b", Summary: "later", Tags: []string{" Coffee ", "DATETIME:2026-10-16 10:00:00"}},
			{ID: "a", Summary: "earlier", Tags: []string{"TEA", "DATETIME:2026-10-16T08:00:00Z", "PADDING:7"}},
			{ID: "c", Summary: "   ", Tags: []string{"dropped"}},
		},
		TagIndex: []string{"coffee", "coffee"},
	}
	m := FromSnapshot(snap, Options{})

	require.Equal(t, 2, m.Len())
	assert.Equal(t, "earlier", m.At(0).Summary)
	assert.Equal(t, "later", m.At(1).Summary)
	assert.Equal(t, []string{"coffee"}, m.At(1).Keywords())
	assert.Equal(t, []string{"tea"}, m.At(0).Keywords())
	assert.Len(t, m.At(0).Tags, config.DefaultConfig().TagWidth)
	assert.Equal(t, 2, m.index.Dim())
	assert.Equal(t, 1, len(m.Vector(0)))
}

func TestRegistry(t *testing.T) {
	ctx := context.Background()
	home := t.TempDir()
	st := store.NewSQLiteStore()
	opts := Options{Now: func() time.Time { return testNow }}

	r := NewRegistry(home, st, opts)
	_, err := r.Get(ctx, "")
	assert.Error(t, err)
	_, err = r.Get(ctx, "../escape")
	assert.Error(t, err)
	assert.Error(t, r.Save(ctx, "never-loaded"))

	a, err := r.Get(ctx, "chat-1")
	require.NoError(t, err)
	again, err := r.Get(ctx, "chat-1")
	require.NoError(t, err)
	assert.Same(t, a, again)

	seed(t, a)
	require.NoError(t, r.Save(ctx, "chat-1"))
	assert.FileExists(t, filepath.Join(home, ConversationsDir, "chat-1.db"))

	other, err := r.Get(ctx, "chat-2")
	require.NoError(t, err)
	assert.Equal(t, 0, other.Len())
	assert.ElementsMatch(t, []string{"chat-1", "chat-2"}, r.IDs())

	fresh := NewRegistry(home, st, opts)
	reloaded, err := fresh.Get(ctx, "chat-1")
	require.NoError(t, err)
	assert.Equal(t, 3, reloaded.Len())

	cfg := config.DefaultConfig()
	cfg.RecallOnce = 2
	fresh.Reconfigure(cfg)
	assert.Equal(t, 2, reloaded.retriever.RecallOnce())
}

func TestImport(t *testing.T) {
	m, _ := newTestMemory(t)
	seed(t, m)
	existing := m.At(0).ID

	added := m.Import([]store.Record{
		{ID: existing, Summary: "duplicate", Tags: []string{"coffee"}},
		{Summary: "went hiking", Tags: []string{"hiking", "outdoors", at(48)}},
	})
	assert.Equal(t, 1, added)
	require.Equal(t, 4, m.Len())
	assert.Equal(t, "went hiking", m.At(0).Summary)
	assert.Len(t, m.vectors, 4)
	assert.True(t, m.graph.HasNode("hiking"))
	assert.Equal(t, 0, m.Import(nil))
}
