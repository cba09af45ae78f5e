package stem

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/cognicore/opini/pkg/opini/data"
)

// Dictionary is a read-only set of known root words. It is built once and
// may be shared by any number of goroutines.
type Dictionary struct {
	roots map[string]struct{}
}

// NewDictionary builds a dictionary from the given roots (lowercased).
func NewDictionary(roots []string) *Dictionary {
	d := &Dictionary{roots: make(map[string]struct{}, len(roots))}
	lower := cases.Lower(language.Indonesian)
	for _, r := range roots {
		r = lower.String(strings.TrimSpace(r))
		if r != "" {
			d.roots[r] = struct{}{}
		}
	}
	return d
}

// ParseDictionary reads one root per line. Blank lines and lines starting
// with '#' are skipped.
func ParseDictionary(r io.Reader) (*Dictionary, error) {
	var roots []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		roots = append(roots, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("parse dictionary: %w", err)
	}
	return NewDictionary(roots), nil
}

// LoadDictionary reads a root dictionary file.
func LoadDictionary(path string) (*Dictionary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dictionary %s: %w", path, err)
	}
	defer f.Close()
	return ParseDictionary(f)
}

var (
	defaultDictOnce sync.Once
	defaultDict     *Dictionary
)

// DefaultDictionary returns the embedded Indonesian root dictionary.
func DefaultDictionary() *Dictionary {
	defaultDictOnce.Do(func() {
		d, err := ParseDictionary(strings.NewReader(data.RootWords))
		if err != nil {
			panic(fmt.Sprintf("embedded root dictionary: %v", err))
		}
		defaultDict = d
	})
	return defaultDict
}

// Merge returns a new dictionary holding the roots of d and other.
func (d *Dictionary) Merge(other *Dictionary) *Dictionary {
	out := &Dictionary{roots: make(map[string]struct{}, d.Len()+other.Len())}
	for r := range d.roots {
		out.roots[r] = struct{}{}
	}
	if other != nil {
		for r := range other.roots {
			out.roots[r] = struct{}{}
		}
	}
	return out
}

// Contains reports whether w is a known root. Expects lowercase input.
func (d *Dictionary) Contains(w string) bool {
	if d == nil {
		return false
	}
	_, ok := d.roots[w]
	return ok
}

// Len returns the number of roots.
func (d *Dictionary) Len() int {
	if d == nil {
		return 0
	}
	return len(d.roots)
}
