package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/cognicore/opini/internal/logging"
	"github.com/cognicore/opini/pkg/opini/analytics"
	"github.com/cognicore/opini/pkg/opini/config"
	"github.com/cognicore/opini/pkg/opini/ingest"
	"github.com/cognicore/opini/pkg/opini/stoplist"
	"github.com/cognicore/opini/pkg/opini/wordfreq"
)

type report struct {
	TotalDocs          int64                   `json:"total_docs"`
	Unlabelled         int                     `json:"unlabelled"`
	StopwordCandidates []stoplistCandidateJSON `json:"stopword_candidates"`
	HighDFTokens       []highDFEntry           `json:"high_df_tokens"`
	Phrases            []phraseEntry           `json:"phrases"`
}

type stoplistCandidateJSON struct {
	Token     string  `json:"token"`
	Score     float64 `json:"score"`
	DFPercent float64 `json:"df_percent"`
	Entropy   float64 `json:"entropy"`
}

type highDFEntry struct {
	Token     string  `json:"token"`
	DFPercent float64 `json:"df_percent"`
	Entropy   float64 `json:"entropy"`
}

type phraseEntry struct {
	Phrase  string  `json:"phrase"`
	PMI     float64 `json:"pmi"`
	Bigrams int64   `json:"bigrams"`
}

type analyzeOptions struct {
	Thresholds stoplist.Thresholds
	TopDF      int
	TopPhrases int
	MinPMI     float64
}

func main() {
	var (
		input      = flag.String("input", "", "CSV, TSV or JSONL dataset (required)")
		configPath = flag.String("config", "", "Run configuration YAML")
		writeStop  = flag.String("write-stoplist", "", "Optional: save suggested terms as a stoplist YAML")
		dfPercent  = flag.Float64("df-percent", stoplist.DefaultThresholds().DFPercent, "Minimum share of posts (0-100) for a noise term")
		entropy    = flag.Float64("entropy", stoplist.DefaultThresholds().LabelEntropy, "Minimum normalized label entropy for a noise term")
		minDF      = flag.Int64("min-df", stoplist.DefaultThresholds().MinDF, "Ignore tokens seen in fewer posts")
		topDF      = flag.Int("top", 20, "High-DF tokens to report")
		topPhrases = flag.Int("phrases", 20, "Phrase candidates to report")
		minPMI     = flag.Float64("min-pmi", 0, "Minimum PMI for phrase candidates")
	)
	flag.Parse()

	logger := logging.New("opini-analytics")
	if *input == "" {
		logger.Fatal("--input required")
	}

	config.LoadEnv(logger)
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	cfg.ApplyEnv()

	loader := config.Loader{Config: cfg, Logger: logger}
	components, err := loader.Load()
	if err != nil {
		logger.Fatalf("load components: %v", err)
	}

	posts, err := ingest.LoadFile(*input, components.Input)
	if err != nil {
		logger.Fatalf("load posts: %v", err)
	}
	logger.Infof("Loaded %d posts", len(posts))

	rep, suggested, err := analyze(context.Background(), posts, components, cfg, analyzeOptions{
		Thresholds: stoplist.Thresholds{DFPercent: *dfPercent, LabelEntropy: *entropy, MinDF: *minDF},
		TopDF:      *topDF,
		TopPhrases: *topPhrases,
		MinPMI:     *minPMI,
	}, logger)
	if err != nil {
		logger.Fatalf("analyze: %v", err)
	}

	if *writeStop != "" {
		if err := stoplist.SaveFile(*writeStop, suggested); err != nil {
			logger.Fatalf("write stoplist: %v", err)
		}
		logger.Infof("Wrote %d terms to %s", suggested.Len(), *writeStop)
	}

	out, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		logger.Fatalf("marshal report: %v", err)
	}
	fmt.Fprintln(os.Stdout, string(out))
}

// analyze cleans and classifies every post, then ranks tokens that occur
// everywhere regardless of sentiment. The returned set holds only the
// suggested terms.
func analyze(ctx context.Context, posts []ingest.Post, comp *config.Components, cfg *config.Config, opts analyzeOptions, logger logrus.FieldLogger) (report, *stoplist.Set, error) {
	cleaner := ingest.NewCleaner(comp.Reducer)
	cleaned, err := cleaner.CleanAll(ctx, posts, cfg.Workers)
	if err != nil {
		return report{}, nil, err
	}
	cleaned = wordfreq.RemoveTerms(cleaned, cfg.ExtraTerms)

	tok := wordfreq.NewTokenizer(comp.Stopwords, cfg.MinTokenLength)
	analyzer := analytics.NewAnalyzer()
	var rep report
	for i, text := range cleaned {
		raw, err := comp.Classifier.Classify(ctx, text)
		if err != nil {
			if ctx.Err() != nil {
				return report{}, nil, ctx.Err()
			}
			logger.WithError(err).WithField("row", posts[i].Row).Warn("Classification failed")
			rep.Unlabelled++
			continue
		}
		s, err := comp.Mapper.Canonical(raw)
		if err != nil {
			logger.WithField("raw_label", raw).WithField("row", posts[i].Row).Warn("Unmapped classifier label")
			rep.Unlabelled++
			continue
		}
		analyzer.Process(tok.Tokenize(text), []string{string(s)})
	}

	stats := analyzer.Snapshot()
	rep.TotalDocs = stats.TotalDocs
	rep.HighDFTokens = topHighDF(stats, opts.TopDF)

	// Accepted terms go to a separate manager so comp.Stopwords stays untouched.
	manager := stoplist.NewManager(comp.Stopwords)
	suggested := stoplist.NewManager(nil)
	for _, cand := range manager.SuggestCandidates(stats.StopwordStats(), opts.Thresholds) {
		suggested.Accept(cand)
		reason, _ := suggested.Reason(cand.Token)
		rep.StopwordCandidates = append(rep.StopwordCandidates, stoplistCandidateJSON{
			Token:     cand.Token,
			Score:     cand.Score,
			DFPercent: reason.DFPercent,
			Entropy:   reason.LabelEntropy,
		})
	}

	for _, p := range stats.TopPairs(opts.TopPhrases, opts.MinPMI) {
		rep.Phrases = append(rep.Phrases, phraseEntry{
			Phrase:  p.Phrase(),
			PMI:     p.PMI,
			Bigrams: p.BigramFreq,
		})
	}
	return rep, suggested.Set(), nil
}

func topHighDF(stats analytics.Stats, limit int) []highDFEntry {
	stopStats := stats.StopwordStats()
	sort.SliceStable(stopStats, func(i, j int) bool {
		return stopStats[i].DFPercent > stopStats[j].DFPercent
	})
	if limit > 0 && len(stopStats) > limit {
		stopStats = stopStats[:limit]
	}
	out := make([]highDFEntry, 0, len(stopStats))
	for _, stat := range stopStats {
		out = append(out, highDFEntry{
			Token:     stat.Token,
			DFPercent: stat.DFPercent,
			Entropy:   stat.LabelEntropy,
		})
	}
	return out
}
