// Package stem reduces Indonesian words to their root form by affix
// stripping.
//
// The reducer peels, right to left, inflectional particles (-lah, -kah,
// -tah, -pun), possessive pronouns (-ku, -mu, -nya) and derivational
// suffixes (-kan, -an, -i), then up to three derivational prefixes (di-,
// ke-, se-, ber-, ter-, meN-, peN-, per- and their allomorphs). Nasal
// prefixes are recoded (menulis -> tulis, memakai -> pakai).
//
// Two modes are supported:
//
//   - Dictionary mode (the default): a candidate is accepted only when it is
//     a known root. Words without a dictionary root are returned unchanged.
//   - Heuristic mode (no dictionary): affixes are stripped while the
//     remainder keeps at least MinStem runes. This over-stems more often.
//
// Output is always lowercase. Reduce is deterministic and idempotent:
// Reduce(Reduce(x)) == Reduce(x).
//
// A Reducer holds only read-only state and is safe for concurrent use.
package stem

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DefaultMinStem is the shortest stem heuristic mode will produce.
const DefaultMinStem = 4

// minDictRest is the shortest remainder tried against the dictionary.
const minDictRest = 2

// minDoubledHalf is the shortest base recognised in a doubled word.
const minDoubledHalf = 3

// Reducer stems Indonesian text.
type Reducer struct {
	dict    *Dictionary
	minStem int
}

// Option configures a Reducer.
type Option func(*Reducer)

// WithDictionary sets the root dictionary. A nil or empty dictionary selects
// heuristic mode.
func WithDictionary(d *Dictionary) Option {
	return func(r *Reducer) { r.dict = d }
}

// WithMinStem sets the minimum stem length for heuristic mode.
func WithMinStem(n int) Option {
	return func(r *Reducer) {
		if n > 0 {
			r.minStem = n
		}
	}
}

// New creates a reducer. Without WithDictionary it runs in heuristic mode.
func New(opts ...Option) *Reducer {
	r := &Reducer{minStem: DefaultMinStem}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Default returns a reducer backed by the embedded root dictionary.
func Default() *Reducer {
	return New(WithDictionary(DefaultDictionary()))
}

// Reduce lowercases text, stems every whitespace-separated word and joins
// the results with single spaces.
func (r *Reducer) Reduce(text string) string {
	fields := strings.Fields(cases.Lower(language.Indonesian).String(text))
	for i, f := range fields {
		fields[i] = r.word(f)
	}
	return strings.Join(fields, " ")
}

// Word stems a single token.
func (r *Reducer) Word(w string) string {
	return r.word(cases.Lower(language.Indonesian).String(strings.TrimSpace(w)))
}

// word expects lowercase input without surrounding whitespace.
func (r *Reducer) word(w string) string {
	if !allLetters(w) {
		if base, ok := reduplicated(w); ok {
			return r.word(base)
		}
		return w
	}
	if base, ok := r.doubled(w); ok {
		return base
	}
	// Iterate to a fixpoint so that stemming a stem is a no-op.
	for n := len(w); n > 0; n-- {
		next := r.stemOnce(w)
		if next == w {
			break
		}
		w = next
	}
	return w
}

func (r *Reducer) stemOnce(w string) string {
	if r.dict.Len() > 0 {
		return r.lookup(w)
	}
	return r.strip(w)
}

// lookup returns the first dictionary root reachable from w, or w itself.
func (r *Reducer) lookup(w string) string {
	if r.dict.Contains(w) {
		return w
	}
	chain := suffixChain(w, minDictRest)
	for _, c := range chain {
		if r.dict.Contains(c) {
			return c
		}
	}
	for _, base := range append(chain, w) {
		if root, ok := r.searchPrefixes(base, maxPrefixes); ok {
			return root
		}
	}
	return w
}

// searchPrefixes explores prefix removals breadth first, checking each
// candidate (and its suffix-stripped forms) against the dictionary.
func (r *Reducer) searchPrefixes(w string, depth int) (string, bool) {
	level := []string{w}
	for d := 0; d < depth && len(level) > 0; d++ {
		var next []string
		for _, base := range level {
			for _, cand := range prefixCandidates(base) {
				if runeLen(cand) < minDictRest {
					continue
				}
				if r.dict.Contains(cand) {
					return cand, true
				}
				for _, c := range suffixChain(cand, minDictRest) {
					if r.dict.Contains(c) {
						return c, true
					}
				}
				next = append(next, cand)
			}
		}
		level = next
	}
	return "", false
}

// strip applies the heuristic rules: first matching affix wins as long as
// the remainder keeps minStem runes.
func (r *Reducer) strip(w string) string {
	if runeLen(w) <= r.minStem {
		return w
	}
	if chain := suffixChain(w, r.minStem); len(chain) > 0 {
		w = chain[0]
	}
	for i := 0; i < maxPrefixes; i++ {
		next, ok := r.firstPrefix(w)
		if !ok {
			break
		}
		w = next
	}
	return w
}

func (r *Reducer) firstPrefix(w string) (string, bool) {
	for _, cand := range prefixCandidates(w) {
		if runeLen(cand) >= r.minStem {
			return cand, true
		}
	}
	return "", false
}

func allLetters(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if !unicode.IsLetter(c) {
			return false
		}
	}
	return true
}

// doubled recognises full reduplication whose hyphen was already removed by
// normalization ("anakanak") and returns the stemmed base. In dictionary mode
// the base must reduce to a known root and w itself must not be one.
func (r *Reducer) doubled(w string) (string, bool) {
	runes := []rune(w)
	n := len(runes) / 2
	if len(runes)%2 != 0 || n < minDoubledHalf {
		return "", false
	}
	half := string(runes[:n])
	if half != string(runes[n:]) {
		return "", false
	}
	if r.dict.Len() > 0 {
		if r.dict.Contains(w) {
			return "", false
		}
		base := r.word(half)
		return base, r.dict.Contains(base)
	}
	if n < r.minStem {
		return "", false
	}
	return r.word(half), true
}

// reduplicated recognises full reduplication ("anak-anak") and returns the
// repeated base.
func reduplicated(w string) (string, bool) {
	left, right, ok := strings.Cut(w, "-")
	if !ok || left != right || !allLetters(left) {
		return "", false
	}
	return left, true
}
