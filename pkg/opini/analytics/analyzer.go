package analytics

import (
	"math"
	"sort"

	"github.com/cognicore/opini/pkg/opini/stoplist"
)

// Analyzer aggregates post-level token and sentiment-label stats.
// It is not safe for concurrent use.
type Analyzer struct {
	totalDocs    int64
	tokenDF      map[string]int64
	tokenLabels  map[string]map[string]int64
	labelDocs    map[string]int64
	pairCounts   map[pair]int64 // post-level co-occurrence
	bigramCounts map[pair]int64 // adjacent token pairs only
}

// NewAnalyzer creates an empty analyzer.
func NewAnalyzer() *Analyzer {
	return &Analyzer{
		tokenDF:      make(map[string]int64),
		tokenLabels:  make(map[string]map[string]int64),
		labelDocs:    make(map[string]int64),
		pairCounts:   make(map[pair]int64),
		bigramCounts: make(map[pair]int64),
	}
}

// Process consumes one post's tokens and its sentiment labels (usually one).
func (a *Analyzer) Process(tokens []string, labels []string) {
	a.totalDocs++
	for _, l := range labels {
		if l != "" {
			a.labelDocs[l]++
		}
	}

	seen := make(map[string]struct{})
	for _, tok := range tokens {
		if tok == "" {
			continue
		}
		if _, ok := seen[tok]; ok {
			continue
		}
		seen[tok] = struct{}{}
		a.tokenDF[tok]++
		for _, l := range labels {
			if l == "" {
				continue
			}
			if a.tokenLabels[tok] == nil {
				a.tokenLabels[tok] = make(map[string]int64)
			}
			a.tokenLabels[tok][l]++
		}
	}

	unique := make([]string, 0, len(seen))
	for tok := range seen {
		unique = append(unique, tok)
	}
	sort.Strings(unique)
	for i := 0; i < len(unique); i++ {
		for j := i + 1; j < len(unique); j++ {
			a.pairCounts[newPair(unique[i], unique[j])]++
		}
	}

	// Ordered: "one piece" and "piece one" are different phrases.
	for i := 0; i < len(tokens)-1; i++ {
		if tokens[i] == "" || tokens[i+1] == "" {
			continue
		}
		a.bigramCounts[pair{A: tokens[i], B: tokens[i+1]}]++
	}
}

// Stats exposes the aggregated counts.
type Stats struct {
	TotalDocs    int64
	TokenDF      map[string]int64
	TokenLabels  map[string]map[string]int64
	LabelDocs    map[string]int64
	PairCounts   map[pair]int64
	BigramCounts map[pair]int64
}

// Snapshot returns a copy of the accumulated statistics.
func (a *Analyzer) Snapshot() Stats {
	copyLabels := make(map[string]map[string]int64, len(a.tokenLabels))
	for tok, labels := range a.tokenLabels {
		copyLabels[tok] = make(map[string]int64, len(labels))
		for l, count := range labels {
			copyLabels[tok][l] = count
		}
	}
	copyDF := make(map[string]int64, len(a.tokenDF))
	for tok, count := range a.tokenDF {
		copyDF[tok] = count
	}
	copyDocs := make(map[string]int64, len(a.labelDocs))
	for l, count := range a.labelDocs {
		copyDocs[l] = count
	}
	copyPairs := make(map[pair]int64, len(a.pairCounts))
	for p, count := range a.pairCounts {
		copyPairs[p] = count
	}
	copyBigrams := make(map[pair]int64, len(a.bigramCounts))
	for p, count := range a.bigramCounts {
		copyBigrams[p] = count
	}
	return Stats{
		TotalDocs:    a.totalDocs,
		TokenDF:      copyDF,
		TokenLabels:  copyLabels,
		LabelDocs:    copyDocs,
		PairCounts:   copyPairs,
		BigramCounts: copyBigrams,
	}
}

// StopwordStats converts corpus stats into stoplist.Stats, sorted by DF
// descending then token. LabelEntropy is normalized to [0,1] over the labels
// seen in the corpus.
func (s Stats) StopwordStats() []stoplist.Stats {
	var out []stoplist.Stats
	if s.TotalDocs == 0 {
		return out
	}
	for tok, df := range s.TokenDF {
		out = append(out, stoplist.Stats{
			Token:        tok,
			DF:           df,
			DFPercent:    100 * (float64(df) / float64(s.TotalDocs)),
			IDF:          math.Log(float64(s.TotalDocs) / (1 + float64(df))),
			LabelEntropy: entropy(s.TokenLabels[tok], len(s.LabelDocs)),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DF != out[j].DF {
			return out[i].DF > out[j].DF
		}
		return out[i].Token < out[j].Token
	})
	return out
}

func entropy(counts map[string]int64, universe int) float64 {
	if len(counts) == 0 || universe < 2 {
		return 0
	}
	var total float64
	for _, c := range counts {
		total += float64(c)
	}
	if total == 0 {
		return 0
	}
	var h float64
	for _, c := range counts {
		p := float64(c) / total
		if p > 0 {
			h -= p * math.Log2(p)
		}
	}
	return h / math.Log2(float64(universe))
}

// PairStat describes combined metrics for an adjacent token pair.
type PairStat struct {
	A           string
	B           string
	PMI         float64 // post-level association
	BigramFreq  int64   // how often B directly follows A
	Support     int64   // posts containing both
	PhraseScore float64 // BigramFreq * PMI
}

// Phrase returns the pair as "a b".
func (p PairStat) Phrase() string { return p.A + " " + p.B }

// TopPairs returns phrase candidates ranked by bigram frequency weighted by
// PMI. Multi-word domain terms ("one piece") surface here.
func (s Stats) TopPairs(limit int, minPMI float64) []PairStat {
	if s.TotalDocs == 0 {
		return nil
	}
	var stats []PairStat
	for p, bigramCount := range s.BigramCounts {
		if bigramCount == 0 {
			continue
		}
		dfA := s.TokenDF[p.A]
		dfB := s.TokenDF[p.B]
		if dfA == 0 || dfB == 0 {
			continue
		}
		docPairCount := s.PairCounts[newPair(p.A, p.B)]
		if docPairCount == 0 {
			continue
		}
		pmi := computePMI(docPairCount, dfA, dfB, s.TotalDocs)
		if pmi < minPMI {
			continue
		}
		stats = append(stats, PairStat{
			A:           p.A,
			B:           p.B,
			PMI:         pmi,
			BigramFreq:  bigramCount,
			Support:     docPairCount,
			PhraseScore: float64(bigramCount) * pmi,
		})
	}

	sort.Slice(stats, func(i, j int) bool {
		if stats[i].PhraseScore != stats[j].PhraseScore {
			return stats[i].PhraseScore > stats[j].PhraseScore
		}
		if stats[i].BigramFreq != stats[j].BigramFreq {
			return stats[i].BigramFreq > stats[j].BigramFreq
		}
		return stats[i].Phrase() < stats[j].Phrase()
	})

	if limit > 0 && len(stats) > limit {
		stats = stats[:limit]
	}
	return stats
}

func computePMI(pairCount, dfA, dfB, totalDocs int64) float64 {
	if dfA == 0 || dfB == 0 || totalDocs == 0 {
		return 0
	}
	smooth := 1.0
	numerator := (float64(pairCount) + smooth) / float64(totalDocs)
	denominator := ((float64(dfA) + smooth) / float64(totalDocs)) * ((float64(dfB) + smooth) / float64(totalDocs))
	return math.Log(numerator / denominator)
}

type pair struct {
	A string
	B string
}

func newPair(a, b string) pair {
	if a > b {
		a, b = b, a
	}
	return pair{A: a, B: b}
}
