// Package ingest loads social-media posts from tabular files and turns their
// content into cleaned text.
package ingest

import (
	"strings"
	"time"
)

// Post is one input row. Content may be empty; a zero Date means the row had
// no usable timestamp.
type Post struct {
	ID      string
	User    string
	Content string
	Date    time.Time
	Row     int // 1-based data row in the source file
}

// HasDate reports whether the post carries a timestamp.
func (p Post) HasDate() bool { return !p.Date.IsZero() }

// Day returns the post's calendar date as YYYY-MM-DD, or "" without a date.
func (p Post) Day() string {
	if p.Date.IsZero() {
		return ""
	}
	return p.Date.Format(time.DateOnly)
}

// DateLayouts are tried in order when parsing free-format timestamps.
var DateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05-07:00",
	"2006-01-02 15:04:05.999999999Z07:00",
	time.DateTime,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	time.DateOnly,
	time.RubyDate,
	time.UnixDate,
	time.RFC1123Z,
	time.RFC1123,
	"02/01/2006 15:04",
	"02/01/2006",
	"2 January 2006",
	"2 Jan 2006",
}

// ParseDate tries every layout in DateLayouts. Timestamps without a zone are
// read in loc (UTC when nil). It returns false when nothing matches.
func ParseDate(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range DateLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
