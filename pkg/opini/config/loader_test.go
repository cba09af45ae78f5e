package config

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cognicore/opini/pkg/opini/classify"
	"github.com/cognicore/opini/pkg/opini/classify/inference"
	"github.com/cognicore/opini/pkg/opini/internalerr"
	"github.com/cognicore/opini/pkg/opini/label"
)

func TestLoaderDefaults(t *testing.T) {
	comp, err := (&Loader{}).Load()
	if err != nil {
		t.Fatalf("Empty loader should succeed: %v", err)
	}
	if comp.Stopwords == nil || !comp.Stopwords.Contains("yang") {
		t.Error("Should have the built-in stopword set")
	}
	if comp.Reducer == nil || comp.Mapper == nil {
		t.Fatal("Should have reducer and mapper")
	}
	if _, ok := comp.Classifier.(*classify.Lexicon); !ok {
		t.Errorf("Expected lexicon classifier, got %T", comp.Classifier)
	}
	if comp.Location.String() != "Asia/Jakarta" {
		t.Errorf("location = %v", comp.Location)
	}
	if comp.Cloud.OutputDir != filepath.Join("out", "visuals") {
		t.Errorf("cloud output dir = %q", comp.Cloud.OutputDir)
	}
	if s, err := comp.Mapper.Canonical("Positive"); err != nil || s != "positif" {
		t.Errorf("Canonical(Positive) = %q, %v", s, err)
	}
}

func TestLoaderStopwordsAndDictionary(t *testing.T) {
	stopPath := writeFile(t, "stop.yaml", "terms:\n  - onepiece\n  - bendera\n")
	dictPath := writeFile(t, "roots.txt", "pasar\n")

	cfg := Default()
	cfg.Stopwords = Stopwords{Extra: []string{"agustus"}, Files: []string{stopPath}}
	cfg.DictionaryPath = dictPath

	comp, err := (&Loader{Config: cfg}).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	for _, w := range []string{"onepiece", "bendera", "agustus", "yang"} {
		if !comp.Stopwords.Contains(w) {
			t.Errorf("Expected %q in stopwords", w)
		}
	}
	if got := comp.Reducer.Word("pasarnya"); got != "pasar" {
		t.Errorf("Word(pasarnya) = %q, want pasar", got)
	}
}

func TestLoaderMissingFiles(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"stoplist", func(c *Config) { c.Stopwords.Files = []string{"/nonexistent/stop.yaml"} }},
		{"dictionary", func(c *Config) { c.DictionaryPath = "/nonexistent/roots.txt" }},
		{"lexicon", func(c *Config) { c.Classifier.LexiconPath = "/nonexistent/lexicon.tsv" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if _, err := (&Loader{Config: cfg}).Load(); err == nil {
				t.Errorf("Should error on nonexistent %s", tt.name)
			}
		})
	}
}

func TestLoaderHTTPClassifier(t *testing.T) {
	cfg := Default()
	cfg.Classifier.Kind = ClassifierHTTP
	cfg.Classifier.HTTP = inference.Config{Endpoint: "http://localhost:1/predict"}
	comp, err := (&Loader{Config: cfg}).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, ok := comp.Classifier.(*inference.Client); !ok {
		t.Errorf("Expected inference client, got %T", comp.Classifier)
	}
}

func TestLoaderInvalidConfig(t *testing.T) {
	cfg := Default()
	cfg.Classifier.Kind = "random"
	if _, err := (&Loader{Config: cfg}).Load(); !errors.Is(err, internalerr.ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig, got %v", err)
	}
}

func TestLoaderCustomLexicon(t *testing.T) {
	path := writeFile(t, "lexicon.tsv", "mantap\t0.9\nzonk\t-0.9\n")
	cfg := Default()
	cfg.Classifier.LexiconPath = path
	comp, err := (&Loader{Config: cfg}).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	raw, err := comp.Classifier.Classify(context.Background(), "mantap")
	if err != nil {
		t.Fatal(err)
	}
	if raw != classify.RawPositive {
		t.Errorf("Classify(mantap) = %q, want %q", raw, classify.RawPositive)
	}
}

func TestLoaderConfiguredLabelOverridesDefaultCase(t *testing.T) {
	cfg := Default()
	cfg.Labels = map[string]string{"Positive": "netral"}
	for i := 0; i < 20; i++ {
		comp, err := (&Loader{Config: cfg}).Load()
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if s, _ := comp.Mapper.Canonical("positive"); s != label.Netral {
			t.Fatalf("run %d: Canonical(positive) = %q, want %q", i, s, label.Netral)
		}
	}
}

func TestLoaderConflictingLabelSpellings(t *testing.T) {
	cfg := Default()
	cfg.Labels = map[string]string{"Positive": "netral", "POSITIVE": "negatif"}
	if _, err := (&Loader{Config: cfg}).Load(); !errors.Is(err, internalerr.ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig, got %v", err)
	}
}

func TestLoaderUncoveredClassifierLabels(t *testing.T) {
	cfg := Default()
	cfg.Classifier.Kind = ClassifierHTTP
	cfg.Classifier.HTTP = inference.Config{
		Endpoint: "http://localhost:1/predict",
		ID2Label: map[string]string{"0": "negative", "1": "sarcasm"},
	}
	_, err := (&Loader{Config: cfg}).Load()
	if !errors.Is(err, internalerr.ErrInvalidConfig) {
		t.Fatalf("Expected ErrInvalidConfig, got %v", err)
	}
	if !strings.Contains(err.Error(), "sarcasm") {
		t.Errorf("error should name the uncovered label: %v", err)
	}

	cfg.Labels = map[string]string{"sarcasm": "negatif"}
	if _, err := (&Loader{Config: cfg}).Load(); err != nil {
		t.Errorf("mapped labels should load: %v", err)
	}
}
