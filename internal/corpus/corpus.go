// Package corpus holds the append-only, time-ordered list of memory entries.
package corpus

import (
	"errors"
	"fmt"
	"sort"

	"github.com/rcliao/agent-recall/internal/model"
)

// ErrOutOfOrder is returned when an entry would precede the newest one.
var ErrOutOfOrder = errors.New("entry older than newest corpus entry")

// Corpus keeps entries in non-decreasing creation order. Tier scans rely on
// this to stop at the first entry outside their window.
type Corpus struct {
	entries []model.Entry
}

// New returns an empty corpus.
func New() *Corpus {
	return &Corpus{}
}

// FromEntries builds a corpus from persisted entries, restoring creation
// order with a stable sort. It reports whether reordering was needed.
func FromEntries(entries []model.Entry) (*Corpus, bool) {
	sorted := sort.SliceIsSorted(entries, func(i, j int) bool {
		return entries[i].Created.Before(entries[j].Created)
	})
	out := make([]model.Entry, len(entries))
	copy(out, entries)
	if !sorted {
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].Created.Before(out[j].Created)
		})
	}
	return &Corpus{entries: out}, !sorted
}

// Append adds e as the newest entry.
func (c *Corpus) Append(e model.Entry) error {
	if n := len(c.entries); n > 0 && e.Created.Before(c.entries[n-1].Created) {
		return fmt.Errorf("%w: %s < %s", ErrOutOfOrder,
			model.FormatTime(e.Created), model.FormatTime(c.entries[n-1].Created))
	}
	c.entries = append(c.entries, e)
	return nil
}

// Len returns the number of entries.
func (c *Corpus) Len() int { return len(c.entries) }

// At returns the i-th oldest entry.
func (c *Corpus) At(i int) model.Entry { return c.entries[i] }

// Newest returns the most recent entry.
func (c *Corpus) Newest() (model.Entry, bool) {
	if len(c.entries) == 0 {
		return model.Entry{}, false
	}
	return c.entries[len(c.entries)-1], true
}

// Entries returns a copy of all entries, oldest first.
func (c *Corpus) Entries() []model.Entry {
	out := make([]model.Entry, len(c.entries))
	copy(out, c.entries)
	return out
}
