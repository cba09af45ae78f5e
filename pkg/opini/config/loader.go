package config

import (
	"fmt"
	"net/http"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cognicore/opini/internal/logging"
	"github.com/cognicore/opini/pkg/opini/classify"
	"github.com/cognicore/opini/pkg/opini/classify/inference"
	"github.com/cognicore/opini/pkg/opini/cloud"
	"github.com/cognicore/opini/pkg/opini/ingest"
	"github.com/cognicore/opini/pkg/opini/internalerr"
	"github.com/cognicore/opini/pkg/opini/label"
	"github.com/cognicore/opini/pkg/opini/stem"
	"github.com/cognicore/opini/pkg/opini/stoplist"
)

// Loader loads the files a Config points at and constructs components
type Loader struct {
	Config     *Config
	Logger     logrus.FieldLogger
	HTTPClient *http.Client // http classifier transport; nil builds one from the timeout
}

// Components holds everything a run needs, built once and shared read-only
type Components struct {
	Stopwords  *stoplist.Set
	Reducer    *stem.Reducer
	Mapper     *label.Mapper
	Classifier classify.Classifier
	Location   *time.Location
	Input      ingest.Options
	Cloud      cloud.Options
}

// Load validates the configuration and returns initialized components
func (l *Loader) Load() (*Components, error) {
	cfg := l.Config
	if cfg == nil {
		cfg = Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log := logging.OrDiscard(l.Logger)
	comp := &Components{}

	// Stopwords: built-in lists, inline extras, then stoplist files
	comp.Stopwords = stoplist.Default(cfg.Stopwords.Extra...)
	for _, path := range cfg.Stopwords.Files {
		set, err := stoplist.LoadFile(path)
		if err != nil {
			return nil, fmt.Errorf("load stoplist: %w", err)
		}
		comp.Stopwords = comp.Stopwords.Union(set)
	}

	// Root dictionary extends the embedded one
	dict := stem.DefaultDictionary()
	if cfg.DictionaryPath != "" {
		extra, err := stem.LoadDictionary(cfg.DictionaryPath)
		if err != nil {
			return nil, fmt.Errorf("load dictionary: %w", err)
		}
		dict = dict.Merge(extra)
	}
	comp.Reducer = stem.New(stem.WithDictionary(dict))

	table, err := cfg.LabelTable()
	if err != nil {
		return nil, err
	}
	if comp.Mapper, err = label.NewMapper(table); err != nil {
		return nil, err
	}

	if comp.Classifier, err = l.classifier(cfg, comp.Reducer, log); err != nil {
		return nil, err
	}
	if missing := comp.Mapper.Covers(emittedLabels(cfg)); len(missing) > 0 {
		return nil, fmt.Errorf("config: classifier labels %s have no canonical mapping: %w",
			strings.Join(missing, ", "), internalerr.ErrInvalidConfig)
	}

	if comp.Location, err = cfg.Location(); err != nil {
		return nil, err
	}
	comp.Input = cfg.Input
	comp.Input.Location = comp.Location
	comp.Input.Logger = log

	comp.Cloud = cfg.Cloud
	if comp.Cloud.OutputDir == "" {
		comp.Cloud.OutputDir = cfg.OutputDir
	} else if !filepath.IsAbs(comp.Cloud.OutputDir) {
		comp.Cloud.OutputDir = filepath.Join(cfg.OutputDir, comp.Cloud.OutputDir)
	}

	log.WithFields(logging.Fields{
		"stopwords":  comp.Stopwords.Len(),
		"roots":      dict.Len(),
		"classifier": cfg.Classifier.Kind,
	}).Debug("Configuration loaded")
	return comp, nil
}

func (l *Loader) classifier(cfg *Config, reducer *stem.Reducer, log logrus.FieldLogger) (classify.Classifier, error) {
	switch cfg.Classifier.Kind {
	case ClassifierHTTP:
		client, err := inference.New(cfg.Classifier.HTTP, l.HTTPClient, log)
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		if cfg.Classifier.LexiconPath == "" {
			return classify.NewLexicon(classify.DefaultScores(), reducer, cfg.Classifier.Threshold), nil
		}
		scores, err := classify.LoadLexicon(cfg.Classifier.LexiconPath)
		if err != nil {
			return nil, fmt.Errorf("load lexicon: %w", err)
		}
		return classify.NewLexicon(scores, reducer, cfg.Classifier.Threshold), nil
	}
}

// emittedLabels lists the raw labels the configured classifier can return.
// An http classifier without id2label passes model labels through unchanged,
// so nothing is known up front.
func emittedLabels(cfg *Config) []string {
	if cfg.Classifier.Kind != ClassifierHTTP {
		return []string{classify.RawPositive, classify.RawNegative, classify.RawNeutral}
	}
	labels := make([]string, 0, len(cfg.Classifier.HTTP.ID2Label))
	for _, v := range cfg.Classifier.HTTP.ID2Label {
		labels = append(labels, v)
	}
	sort.Strings(labels)
	return labels
}
