package session

import (
	"fmt"
	"sort"
	"time"
)

// WithLatest appends latest unless an item with the same key is present, so
// the most recent exchange is always in context.
func WithLatest(items []Item, latest Item) []Item {
	for _, it := range items {
		if it.Key == latest.Key {
			return items
		}
	}
	return append(items, latest)
}

// Format renders items chronologically. A marker line opens every new day,
// and a trailing "now" marker is added when the latest memory predates today.
func Format(items []Item, now time.Time) []string {
	if len(items) == 0 {
		return nil
	}
	sorted := make([]Item, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	loc := now.Location()
	var lines []string
	lastDay := ""
	for _, it := range sorted {
		ts := it.Timestamp.In(loc)
		if d := ts.Format("2006-01-02"); d != lastDay {
			lines = append(lines, fmt.Sprintf("=== %s ===", d))
			lastDay = d
		}
		lines = append(lines, fmt.Sprintf("[%s] %s", ts.Format("15:04"), it.Key))
	}
	if lastDay < now.Format("2006-01-02") {
		lines = append(lines, fmt.Sprintf("=== now %s ===", now.Format("2006-01-02 15:04")))
	}
	return lines
}
