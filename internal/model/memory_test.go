package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTagKinds(t *testing.T) {
	tests := []struct {
		raw  string
		kind TagKind
		text string
	}{
		{"  Coffee ", KindKeyword, "coffee"},
		{"New York", KindKeyword, "New York"},
		{"PRIORITY:high", KindPriority, "high"},
		{"PADDING:3", KindPadding, "3"},
		{"DATETIME:not-a-date", KindKeyword, "DATETIME:not-a-date"},
	}
	for _, tt := range tests {
		got := ParseTag(tt.raw)
		assert.Equal(t, tt.kind, got.Kind, tt.raw)
		assert.Equal(t, tt.text, got.Text, tt.raw)
	}
}

func TestParseTagDatetimeLayouts(t *testing.T) {
	want := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	for _, raw := range []string{
		"DATETIME:2026-03-04T05:06:07Z",
		"DATETIME:2026-03-04T05:06:07",
		"DATETIME:2026-03-04 05:06:07",
	} {
		tag := ParseTag(raw)
		require.Equal(t, KindTimestamp, tag.Kind, raw)
		assert.True(t, tag.Time.Equal(want), raw)
		assert.Equal(t, "DATETIME:2026-03-04T05:06:07Z", tag.String())
	}
}

func TestNewEntryCreated(t *testing.T) {
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	e := NewEntry("id", "s", ParseTags([]string{"a", "DATETIME:" + FormatTime(ts)}))
	assert.True(t, e.Created.Equal(ts))

	e = NewEntry("id", "s", ParseTags([]string{"a"}))
	assert.True(t, e.Created.Equal(FallbackTime))
}

func TestFormatTimeKeepsSubSecond(t *testing.T) {
	ts := time.Date(2026, 10, 16, 12, 0, 0, 123456789, time.UTC)
	tag := Timestamp(ts)
	assert.Equal(t, "DATETIME:2026-10-16T12:00:00.123456789Z", tag.String())

	back := ParseTag(tag.String())
	require.Equal(t, KindTimestamp, back.Kind)
	assert.True(t, back.Time.Equal(ts))
}

func TestKeywordsDedup(t *testing.T) {
	tags := ParseTags([]string{"Coffee", "coffee", "", "PRIORITY:1", "tea"})
	assert.Equal(t, []string{"coffee", "tea"}, Keywords(tags))
}

func TestFitWidth(t *testing.T) {
	tags := ParseTags([]string{"a", "b", "c", "DATETIME:2026-01-01T00:00:00Z", "PADDING:9"})

	padded := FitWidth(tags, 6)
	require.Len(t, padded, 6)
	assert.Equal(t, []string{"a", "b", "c"}, Keywords(padded))
	assert.Equal(t, KindPadding, padded[5].Kind)

	cut := FitWidth(tags, 2)
	require.Len(t, cut, 2)
	assert.Equal(t, []string{"a"}, Keywords(cut))
	assert.Equal(t, KindTimestamp, cut[1].Kind)

	assert.Len(t, FitWidth(tags, 0), 4)
}
