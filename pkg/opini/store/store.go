// Package store keeps the per-run classification results and answers the
// aggregate queries the reports and clouds are built from.
package store

import (
	"context"
	"sort"
	"time"

	"github.com/cognicore/opini/pkg/opini/label"
)

// Store is the run-scoped result store.
type Store interface {
	Close() error

	// PutResult inserts or replaces the result for r.Seq.
	PutResult(ctx context.Context, r Result) error
	// Results returns every result in input order.
	Results(ctx context.Context) ([]Result, error)
	// TextsByLabel returns the cleaned text of successful rows with label s,
	// in input order.
	TextsByLabel(ctx context.Context, s label.Sentiment) ([]string, error)
	// Distribution counts successful rows per label. Every canonical label
	// is present, possibly with zero.
	Distribution(ctx context.Context) (map[label.Sentiment]int, error)
	// DailyCounts counts successful dated rows per day and label, ordered by
	// day, zero-filled across labels.
	DailyCounts(ctx context.Context) ([]DailyCount, error)
}

// Status of one row.
type Status string

const (
	StatusOK    Status = "ok"
	StatusError Status = "error"
)

// Result is one processed post.
type Result struct {
	Seq       int // 0-based input position
	ID        string
	User      string
	Date      time.Time // zero when missing
	Content   string
	CleanText string
	RawLabel  string
	Sentiment label.Sentiment // empty unless Status is StatusOK
	Status    Status
	Error     string
}

// Day returns the result's calendar day, or "" without a date.
func (r Result) Day() string {
	if r.Date.IsZero() {
		return ""
	}
	return r.Date.Format(time.DateOnly)
}

// DailyCount is one day of the sentiment time series.
type DailyCount struct {
	Day    string                  `json:"date"`
	Counts map[label.Sentiment]int `json:"counts"`
}

// NewDistribution returns a zero count for every canonical label.
func NewDistribution() map[label.Sentiment]int {
	dist := make(map[label.Sentiment]int, 3)
	for _, s := range label.All() {
		dist[s] = 0
	}
	return dist
}

// DailySeries builds the zero-filled, day-ordered series from per-day
// counts.
func DailySeries(byDay map[string]map[label.Sentiment]int) []DailyCount {
	days := make([]string, 0, len(byDay))
	for d := range byDay {
		days = append(days, d)
	}
	sort.Strings(days)

	out := make([]DailyCount, 0, len(days))
	for _, d := range days {
		counts := NewDistribution()
		for s, n := range byDay[d] {
			counts[s] += n
		}
		out = append(out, DailyCount{Day: d, Counts: counts})
	}
	return out
}
