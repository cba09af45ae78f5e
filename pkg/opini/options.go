package opini

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/cognicore/opini/pkg/opini/cloud"
	"github.com/cognicore/opini/pkg/opini/config"
	"github.com/cognicore/opini/pkg/opini/store"
	"github.com/cognicore/opini/pkg/opini/store/sqlite"
)

// FromConfig assembles Options from a validated configuration and the
// components its Loader built. Results go to a sqlite store at
// cfg.StoreDSN, in memory when the DSN is empty.
func FromConfig(cfg *config.Config, comp *config.Components, logger logrus.FieldLogger) (Options, error) {
	renderer, err := cloud.NewRenderer(comp.Cloud, logger)
	if err != nil {
		return Options{}, err
	}
	dsn := cfg.StoreDSN
	return Options{
		Classifier: comp.Classifier,
		Reducer:    comp.Reducer,
		Mapper:     comp.Mapper,
		Stopwords:  comp.Stopwords,
		Renderer:   renderer,
		OpenStore: func(ctx context.Context) (store.Store, error) {
			return sqlite.OpenFresh(ctx, dsn)
		},
		ExtraTerms:     cfg.ExtraTerms,
		MinTokenLength: cfg.MinTokenLength,
		Workers:        cfg.Workers,
		FailFast:       cfg.FailFast,
		StageTimeout:   cfg.StageTimeout,
		Logger:         logger,
	}, nil
}
