package wordfreq

import (
	"strings"
	"unicode"

	"github.com/cognicore/opini/pkg/opini/normalize"
	"github.com/cognicore/opini/pkg/opini/stoplist"
)

// DefaultMinLength is the shortest token (in runes) that is counted.
const DefaultMinLength = 3

// Tokenizer splits cleaned text into countable tokens.
type Tokenizer struct {
	stops  *stoplist.Set
	minLen int
}

// NewTokenizer creates a tokenizer. minLen <= 0 selects DefaultMinLength;
// a nil stopword set excludes nothing.
func NewTokenizer(stops *stoplist.Set, minLen int) *Tokenizer {
	if minLen <= 0 {
		minLen = DefaultMinLength
	}
	return &Tokenizer{stops: stops, minLen: minLen}
}

// Tokenize lowercases text, strips residual URLs, mentions and '#' markers,
// and returns the maximal runs of word characters (letters, marks,
// underscore) that touch no digit, are at least minLen runes long and are
// not stopwords.
func (t *Tokenizer) Tokenize(text string) []string {
	text = normalize.StripSocial(stoplist.Fold(text))

	var tokens []string
	var current strings.Builder
	runes, hasNumber := 0, false

	flush := func() {
		if current.Len() > 0 && !hasNumber && runes >= t.minLen {
			word := current.String()
			if !t.stops.Contains(word) {
				tokens = append(tokens, word)
			}
		}
		current.Reset()
		runes, hasNumber = 0, false
	}

	for _, r := range text {
		if !isWordRune(r) {
			flush()
			continue
		}
		if unicode.IsNumber(r) {
			hasNumber = true
		}
		current.WriteRune(r)
		runes++
	}
	flush()

	return tokens
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsMark(r) || unicode.IsNumber(r) || r == '_'
}
