package corpus

import (
	"errors"
	"testing"
	"time"

	"github.com/rcliao/agent-recall/internal/model"
)

func entryAt(summary string, ts time.Time) model.Entry {
	return model.NewEntry("", summary, []model.Tag{model.Keyword("x"), model.Timestamp(ts)})
}

func TestAppendKeepsOrder(t *testing.T) {
	c := New()
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	if err := c.Append(entryAt("a", base)); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := c.Append(entryAt("b", base)); err != nil {
		t.Fatalf("append equal timestamp: %v", err)
	}
	if err := c.Append(entryAt("c", base.Add(time.Hour))); err != nil {
		t.Fatalf("append: %v", err)
	}

	err := c.Append(entryAt("late", base.Add(-time.Minute)))
	if !errors.Is(err, ErrOutOfOrder) {
		t.Fatalf("expected ErrOutOfOrder, got %v", err)
	}
	if c.Len() != 3 {
		t.Errorf("expected 3 entries, got %d", c.Len())
	}
	newest, ok := c.Newest()
	if !ok || newest.Summary != "c" {
		t.Errorf("expected newest c, got %+v", newest)
	}
}

func TestFromEntriesRestoresOrder(t *testing.T) {
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	in := []model.Entry{
		entryAt("second", base.Add(time.Hour)),
		entryAt("first", base),
		entryAt("also-second", base.Add(time.Hour)),
	}

	c, reordered := FromEntries(in)
	if !reordered {
		t.Error("expected reorder")
	}
	want := []string{"first", "second", "also-second"}
	for i, w := range want {
		if got := c.At(i).Summary; got != w {
			t.Errorf("entry %d: got %q, want %q", i, got, w)
		}
	}

	_, reordered = FromEntries(c.Entries())
	if reordered {
		t.Error("sorted input should not be reordered")
	}
}

func TestEmptyCorpus(t *testing.T) {
	c := New()
	if _, ok := c.Newest(); ok {
		t.Error("empty corpus has no newest entry")
	}
	if len(c.Entries()) != 0 {
		t.Error("expected no entries")
	}
}
