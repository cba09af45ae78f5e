// Package stoplist holds the stopword set used by the frequency builder and
// a manager that proposes domain noise terms from corpus statistics.
//
// A domain noise term is a token that shows up in a large share of posts and
// is spread evenly over the sentiment labels (the campaign hashtag, the
// topic name). It says nothing about sentiment and would dominate every
// word cloud, so it is a good exclusion candidate.
package stoplist

import "sort"

// Manager suggests additions to a stopword set.
type Manager struct {
	set     *Set
	reasons map[string]Reason
}

// Reason explains why a token was proposed.
type Reason struct {
	HighDF       bool    // appears in many posts
	HighEntropy  bool    // evenly spread over sentiment labels
	DFPercent    float64 // share of posts containing the token, 0-100
	LabelEntropy float64 // normalized entropy across labels, 0-1
}

// NewManager creates a manager over an existing set. A nil set starts empty.
func NewManager(set *Set) *Manager {
	if set == nil {
		set = NewSet()
	}
	return &Manager{set: set, reasons: make(map[string]Reason)}
}

// IsStop checks if a token is already excluded.
func (m *Manager) IsStop(token string) bool {
	return m.set.Contains(token)
}

// Accept adds a candidate to the underlying set and remembers its reason.
func (m *Manager) Accept(c Candidate) {
	m.set.Add(c.Token)
	m.reasons[c.Token] = c.Reason
}

// Reason returns why an accepted token was added.
func (m *Manager) Reason(token string) (Reason, bool) {
	r, ok := m.reasons[token]
	return r, ok
}

// Set returns the managed stopword set.
func (m *Manager) Set() *Set { return m.set }

// Stats holds statistics for candidate evaluation
type Stats struct {
	Token        string
	DF           int64
	DFPercent    float64
	IDF          float64
	LabelEntropy float64
}

// Candidate represents a candidate stopword
type Candidate struct {
	Token  string
	Reason Reason
	Score  float64 // confidence score
}

// SuggestCandidates returns tokens that are frequent across posts and carry
// no label signal, best first. Tokens already in the set are skipped.
func (m *Manager) SuggestCandidates(stats []Stats, thresholds Thresholds) []Candidate {
	if thresholds.DFPercent <= 0 {
		thresholds.DFPercent = DefaultThresholds().DFPercent
	}
	if thresholds.LabelEntropy <= 0 {
		thresholds.LabelEntropy = DefaultThresholds().LabelEntropy
	}

	var candidates []Candidate
	for _, s := range stats {
		if m.IsStop(s.Token) || s.DF < thresholds.MinDF {
			continue
		}

		reason := Reason{
			HighDF:       s.DFPercent >= thresholds.DFPercent,
			HighEntropy:  s.LabelEntropy >= thresholds.LabelEntropy,
			DFPercent:    s.DFPercent,
			LabelEntropy: s.LabelEntropy,
		}
		if !reason.HighDF || !reason.HighEntropy {
			continue
		}

		candidates = append(candidates, Candidate{
			Token:  s.Token,
			Reason: reason,
			Score:  (s.DFPercent/100.0 + s.LabelEntropy) / 2.0,
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].Token < candidates[j].Token
	})
	return candidates
}

// Thresholds defines criteria for noise-term identification
type Thresholds struct {
	DFPercent    float64 // e.g. 25 - appears in a quarter of all posts
	LabelEntropy float64 // e.g. 0.85 - close to uniform across labels
	MinDF        int64   // ignore tokens seen in fewer posts than this
}

// DefaultThresholds returns sensible default thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		DFPercent:    25.0,
		LabelEntropy: 0.85,
		MinDF:        3,
	}
}
