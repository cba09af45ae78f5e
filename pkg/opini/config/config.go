// Package config describes a whole pipeline run in one YAML document and
// builds the components it names.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/opini/pkg/opini/classify/inference"
	"github.com/cognicore/opini/pkg/opini/cloud"
	"github.com/cognicore/opini/pkg/opini/ingest"
	"github.com/cognicore/opini/pkg/opini/internalerr"
	"github.com/cognicore/opini/pkg/opini/label"
)

// Classifier kinds.
const (
	ClassifierLexicon = "lexicon"
	ClassifierHTTP    = "http"
)

// Config is the run configuration.
type Config struct {
	Input           ingest.Options    `yaml:"input"`
	Timezone        string            `yaml:"timezone"`
	Stopwords       Stopwords         `yaml:"stopwords"`
	ExtraTerms      []string          `yaml:"extra_terms"`
	MinTokenLength  int               `yaml:"min_token_length"`
	DictionaryPath  string            `yaml:"dictionary"`
	Labels          map[string]string `yaml:"labels"`
	Classifier      Classifier        `yaml:"classifier"`
	Cloud           cloud.Options     `yaml:"cloud"`
	OutputDir       string            `yaml:"output_dir"`
	Workers         int               `yaml:"workers"`
	StoreDSN        string            `yaml:"store_dsn"`
	MetricsTextfile string            `yaml:"metrics_textfile"`
	FailFast        bool              `yaml:"fail_fast"`
	StageTimeout    time.Duration     `yaml:"stage_timeout"`
}

// Stopwords lists caller additions to the built-in stopword set.
type Stopwords struct {
	Extra []string `yaml:"extra"`
	Files []string `yaml:"files"`
}

// Classifier selects and configures the sentiment classifier.
type Classifier struct {
	Kind        string           `yaml:"kind"`
	LexiconPath string           `yaml:"lexicon"`
	Threshold   float64          `yaml:"threshold"`
	HTTP        inference.Config `yaml:"http"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Timezone:       "Asia/Jakarta",
		MinTokenLength: 3,
		Classifier:     Classifier{Kind: ClassifierLexicon},
		Cloud:          cloud.DefaultOptions(),
		OutputDir:      "out",
	}
}

// Load reads a YAML file over Default. An empty path returns Default.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w: %w", path, internalerr.ErrInvalidConfig, err)
	}
	return cfg, nil
}

// Validate checks the configuration for values no component accepts.
func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("config: "+format+": %w", append(args, internalerr.ErrInvalidConfig)...)
	}

	switch c.Classifier.Kind {
	case ClassifierLexicon:
	case ClassifierHTTP:
		if strings.TrimSpace(c.Classifier.HTTP.Endpoint) == "" {
			return invalid("classifier.http.endpoint is required for kind %q", ClassifierHTTP)
		}
	default:
		return invalid("unknown classifier kind %q", c.Classifier.Kind)
	}
	if c.Classifier.Threshold < 0 || c.Classifier.Threshold >= 1 {
		return invalid("classifier.threshold %v outside [0,1)", c.Classifier.Threshold)
	}
	for raw, canonical := range c.Labels {
		if _, err := label.Parse(canonical); err != nil {
			return invalid("labels.%s: %q is not a sentiment label", raw, canonical)
		}
	}
	if c.Workers < 0 {
		return invalid("workers must not be negative")
	}
	if c.MinTokenLength < 0 {
		return invalid("min_token_length must not be negative")
	}
	if c.StageTimeout < 0 {
		return invalid("stage_timeout must not be negative")
	}
	if c.OutputDir == "" {
		return invalid("output_dir is required")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return c.Cloud.Validate()
}

// Location resolves Timezone. Empty means UTC.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("config: timezone %q: %w: %w", c.Timezone, internalerr.ErrInvalidConfig, err)
	}
	return loc, nil
}

// LabelTable returns the raw -> canonical label mapping: the defaults plus
// the configured entries, which win on conflict. Keys are in label.Key form,
// so "Positive" overrides the default "positive".
func (c *Config) LabelTable() (map[string]label.Sentiment, error) {
	table := make(map[string]label.Sentiment)
	for raw, s := range label.DefaultMapping() {
		table[label.Key(raw)] = s
	}
	overrides := make(map[string]label.Sentiment, len(c.Labels))
	for raw, canonical := range c.Labels {
		s, err := label.Parse(canonical)
		if err != nil {
			return nil, fmt.Errorf("config: labels.%s: %w", raw, internalerr.ErrInvalidConfig)
		}
		key := label.Key(raw)
		if prev, ok := overrides[key]; ok && prev != s {
			return nil, fmt.Errorf("config: labels.%s conflicts with another spelling of %q: %w", raw, key, internalerr.ErrInvalidConfig)
		}
		overrides[key] = s
	}
	for key, s := range overrides {
		table[key] = s
	}
	return table, nil
}
