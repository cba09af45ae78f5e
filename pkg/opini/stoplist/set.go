package stoplist

import (
	"bufio"
	"sort"
	"strings"
	"sync"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/cognicore/opini/pkg/opini/data"
)

// Set is a case-insensitive stopword set with O(1) membership.
type Set struct {
	words map[string]struct{}
}

// NewSet builds a set from the union of the given lists.
func NewSet(lists ...[]string) *Set {
	s := &Set{words: make(map[string]struct{})}
	for _, list := range lists {
		for _, w := range list {
			s.Add(w)
		}
	}
	return s
}

// Default returns the generic corpus, the Indonesian corpus and extra
// caller-supplied exclusions in one set.
func Default(extra ...string) *Set {
	return NewSet(GenericWords(), IndonesianWords(), extra)
}

// Fold lowercases w with the Indonesian caser. Set keys and tokens are
// both folded this way, so membership agrees with tokenization.
func Fold(w string) string {
	return cases.Lower(language.Indonesian).String(w)
}

// Add inserts a word (folded, trimmed). Empty words are ignored.
func (s *Set) Add(w string) {
	w = Fold(strings.TrimSpace(w))
	if w != "" {
		s.words[w] = struct{}{}
	}
}

// Contains reports whether w is a stopword, ignoring case.
func (s *Set) Contains(w string) bool {
	if s == nil {
		return false
	}
	_, ok := s.words[Fold(w)]
	return ok
}

// Len returns the number of stopwords.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.words)
}

// All returns the stopwords sorted.
func (s *Set) All() []string {
	out := make([]string, 0, s.Len())
	if s == nil {
		return out
	}
	for w := range s.words {
		out = append(out, w)
	}
	sort.Strings(out)
	return out
}

// Union returns a new set holding the words of s and other.
func (s *Set) Union(other *Set) *Set {
	return NewSet(s.All(), other.All())
}

var (
	corpusOnce sync.Once
	generic    []string
	indonesian []string
)

func loadCorpora() {
	corpusOnce.Do(func() {
		generic = parseList(data.GenericStopwords)
		indonesian = parseList(data.IndonesianStopwords)
	})
}

// GenericWords returns the embedded generic word-cloud stopwords.
func GenericWords() []string {
	loadCorpora()
	return append([]string(nil), generic...)
}

// IndonesianWords returns the embedded Indonesian stopwords.
func IndonesianWords() []string {
	loadCorpora()
	return append([]string(nil), indonesian...)
}

func parseList(raw string) []string {
	var out []string
	sc := bufio.NewScanner(strings.NewReader(raw))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out
}
