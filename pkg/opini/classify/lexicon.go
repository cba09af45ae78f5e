package classify

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/cognicore/opini/pkg/opini/data"
	"github.com/cognicore/opini/pkg/opini/internalerr"
	"github.com/cognicore/opini/pkg/opini/stem"
)

// Raw labels produced by Lexicon.
const (
	RawPositive = "positive"
	RawNegative = "negative"
	RawNeutral  = "neutral"
)

// DefaultThreshold is the absolute score a text needs to leave neutral.
const DefaultThreshold = 0.25

var negators = map[string]struct{}{
	"tidak": {}, "tak": {}, "bukan": {}, "belum": {},
	"jangan": {}, "kurang": {}, "gak": {}, "nggak": {}, "enggak": {},
}

// Lexicon scores texts against a root-word polarity table. Words are reduced
// to roots first, so "kebahagiaan" hits "bahagia". A negator flips the
// polarity of the next scored word.
type Lexicon struct {
	scores    map[string]float64
	reducer   *stem.Reducer
	threshold float64
}

// NewLexicon builds a lexicon classifier. A nil reducer uses stem.Default();
// a non-positive threshold uses DefaultThreshold.
func NewLexicon(scores map[string]float64, reducer *stem.Reducer, threshold float64) *Lexicon {
	if reducer == nil {
		reducer = stem.Default()
	}
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	words := make([]string, 0, len(scores))
	for w := range scores {
		words = append(words, w)
	}
	sort.Strings(words)

	// Texts are scored after reduction, so inflected entries are also keyed
	// by their root. Explicit entries win over derived roots; among equals
	// the first word in sorted order does.
	table := make(map[string]float64, len(scores))
	lower := cases.Lower(language.Indonesian)
	for _, w := range words {
		if key := lower.String(w); !hasKey(table, key) {
			table[key] = scores[w]
		}
	}
	for _, w := range words {
		if root := reducer.Word(w); !hasKey(table, root) {
			table[root] = scores[w]
		}
	}
	return &Lexicon{scores: table, reducer: reducer, threshold: threshold}
}

func hasKey(m map[string]float64, k string) bool {
	_, ok := m[k]
	return ok
}

var (
	defaultScores     map[string]float64
	defaultScoresOnce sync.Once
)

// DefaultScores returns the embedded Indonesian polarity lexicon.
func DefaultScores() map[string]float64 {
	defaultScoresOnce.Do(func() {
		defaultScores, _ = ParseLexicon(strings.NewReader(data.PolarityLexicon))
	})
	return defaultScores
}

// DefaultLexicon returns a classifier over the embedded Indonesian lexicon.
func DefaultLexicon(reducer *stem.Reducer) *Lexicon {
	return NewLexicon(DefaultScores(), reducer, 0)
}

// ParseLexicon reads "word<TAB>score" lines. Blank lines and lines starting
// with '#' are skipped.
func ParseLexicon(r io.Reader) (map[string]float64, error) {
	scores := make(map[string]float64)
	lower := cases.Lower(language.Indonesian)
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) != 2 {
			return nil, fmt.Errorf("lexicon line %d: want word and score: %w", line, internalerr.ErrInvalidInput)
		}
		score, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, fmt.Errorf("lexicon line %d: %w: %w", line, internalerr.ErrInvalidInput, err)
		}
		scores[lower.String(fields[0])] = score
	}
	return scores, sc.Err()
}

// LoadLexicon reads a lexicon file.
func LoadLexicon(path string) (map[string]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseLexicon(f)
}

// Score returns the summed polarity of text.
func (l *Lexicon) Score(text string) float64 {
	var total float64
	negate := false
	for _, w := range strings.Fields(l.reducer.Reduce(text)) {
		if _, ok := negators[w]; ok {
			negate = true
			continue
		}
		s, ok := l.scores[w]
		if !ok {
			continue
		}
		if negate {
			s = -s
			negate = false
		}
		total += s
	}
	return total
}

// Classify implements Classifier.
func (l *Lexicon) Classify(ctx context.Context, text string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	switch s := l.Score(text); {
	case s >= l.threshold:
		return RawPositive, nil
	case s <= -l.threshold:
		return RawNegative, nil
	default:
		return RawNeutral, nil
	}
}
