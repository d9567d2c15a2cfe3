// Package model defines the core memory data types.
package model

import (
	"fmt"
	"strings"
	"time"
	"unicode"
)

// Reserved tag prefixes.
const (
	DatetimePrefix = "DATETIME:"
	PriorityPrefix = "PRIORITY:"
	PaddingPrefix  = "PADDING:"
)

// FallbackTime is used as the creation time of entries without a DATETIME tag.
var FallbackTime = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

// TagKind identifies what a raw tag string encodes.
type TagKind int

const (
	KindKeyword TagKind = iota
	KindPriority
	KindTimestamp
	KindPadding
)

func (k TagKind) String() string {
	switch k {
	case KindPriority:
		return "priority"
	case KindTimestamp:
		return "timestamp"
	case KindPadding:
		return "padding"
	default:
		return "keyword"
	}
}

// Tag is a decoded tag. Text holds the keyword, the priority value or the
// padding marker; Time is set only for KindTimestamp.
type Tag struct {
	Kind TagKind
	Text string
	Time time.Time
}

// Keyword returns a keyword tag.
func Keyword(s string) Tag { return Tag{Kind: KindKeyword, Text: s} }

// Timestamp returns a DATETIME tag for t.
func Timestamp(t time.Time) Tag { return Tag{Kind: KindTimestamp, Time: t} }

// String renders the tag back into its wire form.
func (t Tag) String() string {
	switch t.Kind {
	case KindTimestamp:
		return DatetimePrefix + FormatTime(t.Time)
	case KindPriority:
		return PriorityPrefix + t.Text
	case KindPadding:
		return PaddingPrefix + t.Text
	default:
		return t.Text
	}
}

var datetimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// FormatTime is the canonical DATETIME representation. Sub-second digits
// are kept so a persisted time parses back to the same instant.
func FormatTime(t time.Time) string {
	return t.Format(time.RFC3339Nano)
}

// ParseTime accepts the canonical form and a few looser layouts.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range datetimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized datetime %q", s)
}

// ParseTag decodes a raw tag string. A DATETIME tag with an unparsable value
// is kept as a keyword so nothing the caller tagged is silently lost.
func ParseTag(raw string) Tag {
	raw = strings.TrimSpace(raw)
	switch {
	case strings.HasPrefix(raw, DatetimePrefix):
		if t, err := ParseTime(raw[len(DatetimePrefix):]); err == nil {
			return Timestamp(t)
		}
	case strings.HasPrefix(raw, PriorityPrefix):
		return Tag{Kind: KindPriority, Text: strings.TrimSpace(raw[len(PriorityPrefix):])}
	case strings.HasPrefix(raw, PaddingPrefix):
		return Tag{Kind: KindPadding, Text: strings.TrimSpace(raw[len(PaddingPrefix):])}
	}
	return Keyword(normalizeKeyword(raw))
}

// normalizeKeyword lower-cases keywords made only of letters and digits and
// leaves everything else (phrases, mixed punctuation) as trimmed.
func normalizeKeyword(s string) string {
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return s
		}
	}
	return strings.ToLower(s)
}

// ParseTags decodes raw tags, dropping empty strings.
func ParseTags(raw []string) []Tag {
	tags := make([]Tag, 0, len(raw))
	for _, r := range raw {
		t := ParseTag(r)
		if t.Kind == KindKeyword && t.Text == "" {
			continue
		}
		tags = append(tags, t)
	}
	return tags
}

// Entry is one summarized, tagged conversation snippet.
type Entry struct {
	ID      string
	Summary string
	Tags    []Tag
	Created time.Time
}

// NewEntry builds an entry and derives its creation time from the first
// DATETIME tag.
func NewEntry(id, summary string, tags []Tag) Entry {
	e := Entry{ID: id, Summary: summary, Tags: tags, Created: FallbackTime}
	for _, t := range tags {
		if t.Kind == KindTimestamp {
			e.Created = t.Time
			break
		}
	}
	return e
}

// Keywords returns the deduplicated keyword tags in order.
func (e Entry) Keywords() []string {
	return Keywords(e.Tags)
}

// RawTags renders every tag back into its wire form.
func (e Entry) RawTags() []string {
	out := make([]string, len(e.Tags))
	for i, t := range e.Tags {
		out[i] = t.String()
	}
	return out
}

// Keywords extracts the deduplicated keyword texts from tags.
func Keywords(tags []Tag) []string {
	seen := make(map[string]struct{}, len(tags))
	var out []string
	for _, t := range tags {
		if t.Kind != KindKeyword {
			continue
		}
		if _, ok := seen[t.Text]; ok {
			continue
		}
		seen[t.Text] = struct{}{}
		out = append(out, t.Text)
	}
	return out
}

// FitWidth truncates or pads tags so that exactly width tags remain.
// Timestamp and priority tags always survive truncation; keywords are cut
// from the end. Padding tags already present are discarded and regenerated.
// A width <= 0 leaves the tags as they are minus old padding.
func FitWidth(tags []Tag, width int) []Tag {
	var reserved, keywords []Tag
	for _, t := range tags {
		switch t.Kind {
		case KindPadding:
		case KindKeyword:
			keywords = append(keywords, t)
		default:
			reserved = append(reserved, t)
		}
	}
	if width <= 0 {
		return append(keywords, reserved...)
	}
	room := width - len(reserved)
	if room < 0 {
		room = 0
	}
	if len(keywords) > room {
		keywords = keywords[:room]
	}
	out := append(keywords, reserved...)
	for i := 0; len(out) < width; i++ {
		out = append(out, Tag{Kind: KindPadding, Text: fmt.Sprintf("%d", i)})
	}
	return out
}
