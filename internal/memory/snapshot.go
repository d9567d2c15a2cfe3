package memory

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/rcliao/agent-recall/internal/corpus"
	"github.com/rcliao/agent-recall/internal/model"
	"github.com/rcliao/agent-recall/internal/store"
	"github.com/rcliao/agent-recall/internal/tagvec"
)

// Snapshot returns the durable state: entries in corpus order and the tag
// index.
func (m *Memory) Snapshot() *store.Snapshot {
	entries := m.corpus.Entries()
	snap := &store.Snapshot{
		Records:  make([]store.Record, len(entries)),
		TagIndex: m.index.Tags(),
	}
	for i, e := range entries {
		snap.Records[i] = store.Record{ID: e.ID, Summary: e.Summary, Tags: e.RawTags()}
	}
	return snap
}

// FromSnapshot rebuilds a memory from persisted state. Tags are normalized
// and refitted to the configured width, entries are put back in creation
// order, and the graph is rebuilt by replaying every entry. Records without
// a summary are dropped. A tag index that cannot be restored is rebuilt
// from the entries.
func FromSnapshot(snap *store.Snapshot, opts Options) *Memory {
	m := New(opts)
	if snap == nil {
		return m
	}

	entries := make([]model.Entry, 0, len(snap.Records))
	for i, r := range snap.Records {
		summary := strings.TrimSpace(r.Summary)
		if summary == "" {
			m.log.Warn("dropping record without summary", zap.Int("position", i), zap.String("id", r.ID))
			continue
		}
		tags := model.FitWidth(model.ParseTags(r.Tags), m.cfg.TagWidth)
		e := model.NewEntry(r.ID, summary, tags)
		if e.ID == "" {
			e.ID = m.newID(e.Created)
		}
		entries = append(entries, e)
	}

	c, reordered := corpus.FromEntries(entries)
	if reordered {
		m.log.Warn("snapshot entries were out of order; sorted by creation time")
	}
	m.corpus = c

	if len(snap.TagIndex) > 0 {
		idx, err := tagvec.Restore(snap.TagIndex)
		if err != nil {
			m.log.Warn("rebuilding tag index", zap.Error(err))
		} else {
			m.index = idx
		}
	}
	for _, e := range c.Entries() {
		m.ingest(e)
	}
	if m.metrics != nil {
		m.metrics.CorpusEntries.Set(float64(c.Len()))
	}
	return m
}

// Load reads the snapshot at path. A missing snapshot gives an empty
// memory; an unreadable one is logged and also gives an empty memory.
func Load(ctx context.Context, st store.Store, path string, opts Options) *Memory {
	opts = opts.withDefaults()
	snap, err := st.Load(ctx, path)
	switch {
	case errors.Is(err, store.ErrNoSnapshot):
		return New(opts)
	case err != nil:
		opts.Logger.Warn("snapshot unreadable, starting empty", zap.String("path", path), zap.Error(err))
		if opts.Metrics != nil {
			opts.Metrics.SnapshotErrors.WithLabelValues("load").Inc()
		}
		return New(opts)
	}
	m := FromSnapshot(snap, opts)
	m.log.Debug("snapshot loaded", zap.String("path", path), zap.Int("entries", m.Len()))
	return m
}

// Save writes the snapshot to path.
func (m *Memory) Save(ctx context.Context, st store.Store, path string) error {
	if err := st.Save(ctx, path, m.Snapshot()); err != nil {
		if m.metrics != nil {
			m.metrics.SnapshotErrors.WithLabelValues("save").Inc()
		}
		return err
	}
	return nil
}

// Import merges records into the memory, skipping ids already present, and
// rebuilds the derived state. It returns the number of records added.
func (m *Memory) Import(records []store.Record) int {
	snap := m.Snapshot()
	seen := make(map[string]struct{}, len(snap.Records))
	for _, r := range snap.Records {
		seen[r.ID] = struct{}{}
	}
	added := 0
	for _, r := range records {
		if strings.TrimSpace(r.Summary) == "" {
			continue
		}
		if r.ID != "" {
			if _, ok := seen[r.ID]; ok {
				continue
			}
			seen[r.ID] = struct{}{}
		}
		snap.Records = append(snap.Records, r)
		added++
	}
	if added == 0 {
		return 0
	}

	cfg := m.cfg
	rebuilt := FromSnapshot(snap, Options{Config: &cfg, Logger: m.log, Metrics: m.metrics, Now: m.now})
	m.corpus = rebuilt.corpus
	m.index = rebuilt.index
	m.vectors = rebuilt.vectors
	m.graph = rebuilt.graph
	m.log.Info("records imported", zap.Int("added", added), zap.Int("entries", m.corpus.Len()))
	return added
}
