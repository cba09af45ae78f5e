// Package wordfreq builds ranked term-frequency tables for word clouds.
//
// Build never returns an empty table: when nothing survives filtering the
// table holds the single entry {Sentinel: 1}, so a renderer always has at
// least one term to draw.
package wordfreq

import (
	"sort"
	"strings"

	"github.com/cognicore/opini/pkg/opini/stoplist"
)

// Sentinel is the placeholder token of an otherwise empty table.
const Sentinel = "no_data"

// Table maps a token to its occurrence count.
type Table map[string]int

// Term is one ranked table entry.
type Term struct {
	Token string `json:"token"`
	Count int    `json:"count"`
}

// Build counts the tokens of texts after stopword and length filtering.
func Build(texts []string, stops *stoplist.Set, minLen int) Table {
	tok := NewTokenizer(stops, minLen)
	table := make(Table)
	for _, text := range texts {
		for _, w := range tok.Tokenize(text) {
			table[w]++
		}
	}
	if len(table) == 0 {
		return Table{Sentinel: 1}
	}
	return table
}

// IsSentinel reports whether t is the empty-input placeholder.
func (t Table) IsSentinel() bool {
	return len(t) == 1 && t[Sentinel] == 1
}

// Ranked returns the entries by descending count; equal counts are ordered
// by token so the ranking is deterministic.
func (t Table) Ranked() []Term {
	terms := make([]Term, 0, len(t))
	for tok, n := range t {
		terms = append(terms, Term{Token: tok, Count: n})
	}
	sort.Slice(terms, func(i, j int) bool {
		if terms[i].Count != terms[j].Count {
			return terms[i].Count > terms[j].Count
		}
		return terms[i].Token < terms[j].Token
	})
	return terms
}

// Top returns at most n ranked entries. n <= 0 returns all of them.
func (t Table) Top(n int) []Term {
	terms := t.Ranked()
	if n > 0 && len(terms) > n {
		terms = terms[:n]
	}
	return terms
}

// Total returns the sum of all counts.
func (t Table) Total() int {
	sum := 0
	for _, n := range t {
		sum += n
	}
	return sum
}

// RemoveTerms drops whole words listed in terms from every text (case
// insensitive) and collapses the remaining whitespace.
func RemoveTerms(texts []string, terms []string) []string {
	out := make([]string, len(texts))
	if len(terms) == 0 {
		copy(out, texts)
		return out
	}
	drop := stoplist.NewSet(terms)
	for i, text := range texts {
		fields := strings.Fields(stoplist.Fold(text))
		kept := fields[:0]
		for _, f := range fields {
			if !drop.Contains(f) {
				kept = append(kept, f)
			}
		}
		out[i] = strings.Join(kept, " ")
	}
	return out
}
