// Package report exports run results: a CSV of every row and a JSON summary
// of the aggregates and artifacts.
package report

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/cognicore/opini/pkg/opini/label"
	"github.com/cognicore/opini/pkg/opini/store"
	"github.com/cognicore/opini/pkg/opini/wordfreq"
)

// Columns is the header of the results CSV.
var Columns = []string{"id", "date", "user", "content", "clean_text", "sentiment", "status", "error"}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// WriteCSV writes results with a UTF-8 byte order mark so spreadsheet tools
// decode non-ASCII text correctly.
func WriteCSV(w io.Writer, results []store.Result) error {
	if _, err := w.Write(utf8BOM); err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return err
	}
	for _, r := range results {
		date := ""
		if !r.Date.IsZero() {
			date = r.Date.Format(time.RFC3339)
		}
		rec := []string{
			r.ID,
			date,
			r.User,
			r.Content,
			r.CleanText,
			string(r.Sentiment),
			string(r.Status),
			r.Error,
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Summary is the JSON digest of one run.
type Summary struct {
	RunID        string                              `json:"run_id"`
	GeneratedAt  time.Time                           `json:"generated_at"`
	Total        int                                 `json:"total"`
	Classified   int                                 `json:"classified"`
	Failed       int                                 `json:"failed"`
	Undated      int                                 `json:"undated"`
	Distribution map[label.Sentiment]int             `json:"distribution"`
	Daily        []store.DailyCount                  `json:"daily"`
	TopTerms     map[label.Sentiment][]wordfreq.Term `json:"top_terms,omitempty"`
	Artifacts    map[label.Sentiment]string          `json:"artifacts,omitempty"`
	Skipped      map[label.Sentiment]string          `json:"skipped_clouds,omitempty"`
	Durations    map[string]string                   `json:"durations,omitempty"`
}

// Percent returns the share of classified rows carrying s, 0..100.
func (s Summary) Percent(sentiment label.Sentiment) float64 {
	if s.Classified == 0 {
		return 0
	}
	return 100 * float64(s.Distribution[sentiment]) / float64(s.Classified)
}

// Tally fills the row counters from results.
func (s *Summary) Tally(results []store.Result) {
	s.Total, s.Classified, s.Failed, s.Undated = len(results), 0, 0, 0
	for _, r := range results {
		if r.Status == store.StatusOK {
			s.Classified++
		} else {
			s.Failed++
		}
		if r.Date.IsZero() {
			s.Undated++
		}
	}
}

// WriteJSON writes the summary as indented JSON.
func WriteJSON(w io.Writer, s Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(s)
}

// DistributionRows renders the distribution as label, count, percent rows
// in canonical label order.
func DistributionRows(s Summary) [][]string {
	rows := make([][]string, 0, 3)
	for _, l := range label.All() {
		rows = append(rows, []string{
			string(l),
			strconv.Itoa(s.Distribution[l]),
			strconv.FormatFloat(s.Percent(l), 'f', 1, 64),
		})
	}
	return rows
}

// SaveCSV writes results to path, creating parent directories.
func SaveCSV(path string, results []store.Result) error {
	return save(path, func(w io.Writer) error { return WriteCSV(w, results) })
}

// SaveJSON writes the summary to path, creating parent directories.
func SaveJSON(path string, s Summary) error {
	return save(path, func(w io.Writer) error { return WriteJSON(w, s) })
}

func save(path string, write func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
