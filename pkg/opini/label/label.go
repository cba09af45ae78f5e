// Package label defines the canonical sentiment vocabulary and the mapping
// from raw classifier output onto it.
package label

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/cognicore/opini/pkg/opini/internalerr"
)

// Sentiment is a canonical sentiment label.
type Sentiment string

// Canonical labels, in Indonesian.
const (
	Positif Sentiment = "positif"
	Negatif Sentiment = "negatif"
	Netral  Sentiment = "netral"
)

// All returns the canonical labels in display order.
func All() []Sentiment {
	return []Sentiment{Positif, Negatif, Netral}
}

// Valid reports whether s is one of the canonical labels.
func (s Sentiment) Valid() bool {
	switch s {
	case Positif, Negatif, Netral:
		return true
	}
	return false
}

func (s Sentiment) String() string { return string(s) }

// Parse converts a canonical label name into a Sentiment.
func Parse(raw string) (Sentiment, error) {
	s := Sentiment(strings.ToLower(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", fmt.Errorf("label: %q is not a canonical label: %w", raw, internalerr.ErrInvalidInput)
	}
	return s, nil
}

// UnmarshalJSON accepts only canonical labels.
func (s *Sentiment) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	v, err := Parse(str)
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// DefaultMapping covers the English labels of common sentiment models and
// the canonical names themselves.
func DefaultMapping() map[string]Sentiment {
	return map[string]Sentiment{
		"positive": Positif,
		"negative": Negatif,
		"neutral":  Netral,
		"positif":  Positif,
		"negatif":  Negatif,
		"netral":   Netral,
	}
}

// Mapper canonicalizes raw classifier labels. It is read-only after
// construction and safe for concurrent use.
type Mapper struct {
	table map[string]Sentiment
}

// NewMapper builds a mapper from raw label -> canonical label. Keys are
// matched case- and space-insensitively. Every value must be canonical.
func NewMapper(table map[string]Sentiment) (*Mapper, error) {
	m := &Mapper{table: make(map[string]Sentiment, len(table))}
	for raw, s := range table {
		if !s.Valid() {
			return nil, fmt.Errorf("label: mapping %q -> %q: %w", raw, s, internalerr.ErrInvalidConfig)
		}
		key := Key(raw)
		if key == "" {
			return nil, fmt.Errorf("label: empty raw label in mapping: %w", internalerr.ErrInvalidConfig)
		}
		if prev, ok := m.table[key]; ok && prev != s {
			return nil, fmt.Errorf("label: raw label %q maps to both %q and %q: %w", key, prev, s, internalerr.ErrInvalidConfig)
		}
		m.table[key] = s
	}
	return m, nil
}

// DefaultMapper returns a mapper over DefaultMapping.
func DefaultMapper() *Mapper {
	m, _ := NewMapper(DefaultMapping())
	return m
}

// Canonical maps a raw classifier label. Unknown labels return an error
// wrapping internalerr.ErrUnmappedLabel that names the raw value.
func (m *Mapper) Canonical(raw string) (Sentiment, error) {
	if s, ok := m.table[Key(raw)]; ok {
		return s, nil
	}
	return "", fmt.Errorf("label: raw label %q: %w", raw, internalerr.ErrUnmappedLabel)
}

// Covers returns the raw labels in rawLabels that the mapper cannot map.
func (m *Mapper) Covers(rawLabels []string) []string {
	var missing []string
	for _, raw := range rawLabels {
		if _, ok := m.table[Key(raw)]; !ok {
			missing = append(missing, raw)
		}
	}
	sort.Strings(missing)
	return missing
}

// Key is the form raw labels are matched in: trimmed and lowercased.
func Key(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}
