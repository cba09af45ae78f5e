// Package opini runs the sentiment batch: clean every post, classify it,
// canonicalize the label, aggregate, and draw one word cloud per label.
package opini

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/cognicore/opini/internal/logging"
	"github.com/cognicore/opini/internal/metrics"
	"github.com/cognicore/opini/pkg/opini/classify"
	"github.com/cognicore/opini/pkg/opini/cloud"
	"github.com/cognicore/opini/pkg/opini/ingest"
	"github.com/cognicore/opini/pkg/opini/internalerr"
	"github.com/cognicore/opini/pkg/opini/label"
	"github.com/cognicore/opini/pkg/opini/report"
	"github.com/cognicore/opini/pkg/opini/stem"
	"github.com/cognicore/opini/pkg/opini/stoplist"
	"github.com/cognicore/opini/pkg/opini/store"
	"github.com/cognicore/opini/pkg/opini/store/memstore"
	"github.com/cognicore/opini/pkg/opini/wordfreq"
)

// Stage names, as they appear in metrics and the summary durations.
const (
	StageClean     = "clean"
	StageClassify  = "classify"
	StageStore     = "store"
	StageAggregate = "aggregate"
	StageFrequency = "frequency"
	StageRender    = "render"
)

// DefaultTopTerms is how many ranked terms per label go into the summary.
const DefaultTopTerms = 20

// OpenStore opens the store for one run. The run closes it.
type OpenStore func(ctx context.Context) (store.Store, error)

// Opini is the pipeline facade. It holds no per-run state and may run
// several batches one after another.
type Opini struct {
	cleaner      *ingest.Cleaner
	classifier   classify.Classifier
	mapper       *label.Mapper
	stops        *stoplist.Set
	renderer     *cloud.Renderer
	openStore    OpenStore
	extraTerms   []string
	minLen       int
	topTerms     int
	workers      int
	failFast     bool
	stageTimeout time.Duration
	log          logrus.FieldLogger
	now          func() time.Time
}

// Options configures an Opini instance
type Options struct {
	Classifier     classify.Classifier // required
	Reducer        *stem.Reducer       // nil uses stem.Default()
	Mapper         *label.Mapper       // nil uses label.DefaultMapper()
	Stopwords      *stoplist.Set       // nil uses stoplist.Default()
	Renderer       *cloud.Renderer     // nil renders with cloud.DefaultOptions()
	OpenStore      OpenStore           // nil uses an in-memory store
	ExtraTerms     []string            // removed from texts before counting
	MinTokenLength int
	TopTerms       int
	Workers        int // GOMAXPROCS when <= 0
	FailFast       bool
	StageTimeout   time.Duration // per stage; 0 means no limit
	Logger         logrus.FieldLogger
	Now            func() time.Time
}

// New creates an Opini instance with the given dependencies
func New(opts Options) (*Opini, error) {
	if opts.Classifier == nil {
		return nil, fmt.Errorf("opini: classifier required: %w", internalerr.ErrInvalidConfig)
	}
	log := logging.OrDiscard(opts.Logger)

	o := &Opini{
		classifier:   opts.Classifier,
		mapper:       opts.Mapper,
		stops:        opts.Stopwords,
		renderer:     opts.Renderer,
		openStore:    opts.OpenStore,
		extraTerms:   opts.ExtraTerms,
		minLen:       opts.MinTokenLength,
		topTerms:     opts.TopTerms,
		workers:      opts.Workers,
		failFast:     opts.FailFast,
		stageTimeout: opts.StageTimeout,
		log:          log,
		now:          opts.Now,
	}
	reducer := opts.Reducer
	if reducer == nil {
		reducer = stem.Default()
	}
	o.cleaner = ingest.NewCleaner(reducer)
	if o.mapper == nil {
		o.mapper = label.DefaultMapper()
	}
	if o.stops == nil {
		o.stops = stoplist.Default()
	}
	if o.renderer == nil {
		r, err := cloud.NewRenderer(cloud.DefaultOptions(), log)
		if err != nil {
			return nil, err
		}
		o.renderer = r
	}
	if o.openStore == nil {
		o.openStore = func(context.Context) (store.Store, error) { return memstore.New(), nil }
	}
	if o.minLen <= 0 {
		o.minLen = 3
	}
	if o.topTerms <= 0 {
		o.topTerms = DefaultTopTerms
	}
	if o.workers <= 0 {
		o.workers = runtime.GOMAXPROCS(0)
	}
	if o.now == nil {
		o.now = time.Now
	}
	return o, nil
}

// Report is the outcome of one run.
type Report struct {
	Summary   report.Summary
	Results   []store.Result
	Tables    map[label.Sentiment]wordfreq.Table
	Artifacts map[label.Sentiment]*cloud.Artifact
	Metrics   *metrics.Collector
}

// Run processes one batch. Input and configuration errors stop the run;
// rows that fail classification are recorded with status error unless
// FailFast is set; clouds that fail to render are listed as skipped.
func (o *Opini) Run(ctx context.Context, posts []ingest.Post) (*Report, error) {
	if len(posts) == 0 {
		return nil, fmt.Errorf("opini: %w", internalerr.ErrEmptyDataset)
	}
	runID := ulid.Make().String()
	log := o.log.WithField("run_id", runID)
	m := metrics.New(runID)

	rep := &Report{
		Summary: report.Summary{
			RunID:     runID,
			Artifacts: make(map[label.Sentiment]string),
			Skipped:   make(map[label.Sentiment]string),
			Durations: make(map[string]string),
			TopTerms:  make(map[label.Sentiment][]wordfreq.Term),
		},
		Tables:    make(map[label.Sentiment]wordfreq.Table),
		Artifacts: make(map[label.Sentiment]*cloud.Artifact),
		Metrics:   m,
	}
	stage := func(name string, fn func(context.Context) error) error {
		sctx, cancel := ctx, context.CancelFunc(func() {})
		if o.stageTimeout > 0 {
			sctx, cancel = context.WithTimeout(ctx, o.stageTimeout)
		}
		defer cancel()
		start := time.Now()
		err := fn(sctx)
		elapsed := time.Since(start)
		m.ObserveStage(name, elapsed)
		rep.Summary.Durations[name] = elapsed.Round(time.Millisecond).String()
		if err != nil {
			return fmt.Errorf("opini: %s: %w", name, err)
		}
		log.WithField("elapsed", elapsed).Debugf("Stage %s done", name)
		return nil
	}

	st, err := o.openStore(ctx)
	if err != nil {
		return nil, fmt.Errorf("opini: open store: %w", err)
	}
	defer st.Close()

	var cleaned []string
	if err := stage(StageClean, func(ctx context.Context) error {
		cleaned, err = o.cleaner.CleanAll(ctx, posts, o.workers)
		return err
	}); err != nil {
		return nil, err
	}

	var results []store.Result
	if err := stage(StageClassify, func(ctx context.Context) error {
		results, err = o.classifyAll(ctx, posts, cleaned, m, log)
		return err
	}); err != nil {
		return nil, err
	}

	if err := stage(StageStore, func(ctx context.Context) error {
		for _, r := range results {
			if err := st.PutResult(ctx, r); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return nil, err
	}

	if err := stage(StageAggregate, func(ctx context.Context) error {
		if rep.Results, err = st.Results(ctx); err != nil {
			return err
		}
		if rep.Summary.Distribution, err = st.Distribution(ctx); err != nil {
			return err
		}
		rep.Summary.Daily, err = st.DailyCounts(ctx)
		return err
	}); err != nil {
		return nil, err
	}
	rep.Summary.Tally(rep.Results)

	if err := stage(StageFrequency, func(ctx context.Context) error {
		for _, l := range label.All() {
			texts, err := st.TextsByLabel(ctx, l)
			if err != nil {
				return err
			}
			table := wordfreq.Build(wordfreq.RemoveTerms(texts, o.extraTerms), o.stops, o.minLen)
			rep.Tables[l] = table
			rep.Summary.TopTerms[l] = table.Top(o.topTerms)
			log.WithFields(logging.Fields{
				"label":    l,
				"distinct": len(table),
				"tokens":   table.Total(),
			}).Debug("Frequency table built")
		}
		return nil
	}); err != nil {
		return nil, err
	}

	if err := stage(StageRender, func(ctx context.Context) error {
		o.renderAll(ctx, rep, m, log)
		return ctx.Err()
	}); err != nil && ctx.Err() != nil {
		return nil, err
	}

	finished := o.now()
	rep.Summary.GeneratedAt = finished
	m.Finish(finished)
	log.WithFields(logging.Fields{
		"total":   rep.Summary.Total,
		"failed":  rep.Summary.Failed,
		"clouds":  len(rep.Summary.Artifacts),
		"skipped": len(rep.Summary.Skipped),
	}).Info("Run complete")
	return rep, nil
}

// classifyAll labels every cleaned text with up to o.workers goroutines.
func (o *Opini) classifyAll(ctx context.Context, posts []ingest.Post, cleaned []string, m *metrics.Collector, log logrus.FieldLogger) ([]store.Result, error) {
	results := make([]store.Result, len(posts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.workers)
	for i := range posts {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			p := posts[i]
			r := store.Result{
				Seq:       i,
				ID:        p.ID,
				User:      p.User,
				Date:      p.Date,
				Content:   p.Content,
				CleanText: cleaned[i],
				Status:    store.StatusOK,
			}
			rowLog := log.WithFields(logging.Fields{"row": p.Row, "id": p.ID})

			raw, err := o.classifier.Classify(gctx, cleaned[i])
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				err = classify.Wrap(err)
				if o.failFast {
					return fmt.Errorf("row %d: %w", p.Row, err)
				}
				rowLog.WithError(err).Warn("Classification failed")
				m.RowFailed(metrics.ReasonClassifier)
				r.Status, r.Error = store.StatusError, err.Error()
				results[i] = r
				return nil
			}
			r.RawLabel = raw

			s, err := o.mapper.Canonical(raw)
			if err != nil {
				if o.failFast {
					return fmt.Errorf("row %d: %w", p.Row, err)
				}
				rowLog.WithField("raw_label", raw).Warn("Unmapped classifier label")
				m.RowFailed(metrics.ReasonUnmapped)
				r.Status, r.Error = store.StatusError, err.Error()
				results[i] = r
				return nil
			}
			r.Sentiment = s
			m.RowProcessed(string(s))
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// renderAll draws the three label clouds concurrently. A failed cloud is
// logged and recorded as skipped; it never fails the run.
func (o *Opini) renderAll(ctx context.Context, rep *Report, m *metrics.Collector, log logrus.FieldLogger) {
	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	for _, l := range label.All() {
		g.Go(func() error {
			art, err := o.renderer.Render(ctx, rep.Tables[l], string(l))
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				log.WithError(err).WithField("label", l).Warn("Word cloud skipped")
				rep.Summary.Skipped[l] = err.Error()
				m.CloudSkipped()
				return nil
			}
			rep.Artifacts[l] = art
			rep.Summary.Artifacts[l] = art.Path
			m.CloudRendered()
			return nil
		})
	}
	_ = g.Wait()
}

// Output file names written by Save.
const (
	ResultsFile = "results.csv"
	SummaryFile = "summary.json"
)

// Save writes the results CSV and the summary JSON under dir, and the
// metrics textfile when metricsPath is set.
func (r *Report) Save(dir, metricsPath string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if err := report.SaveCSV(filepath.Join(dir, ResultsFile), r.Results); err != nil {
		return fmt.Errorf("save results: %w", err)
	}
	if err := report.SaveJSON(filepath.Join(dir, SummaryFile), r.Summary); err != nil {
		return fmt.Errorf("save summary: %w", err)
	}
	if metricsPath == "" || r.Metrics == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(metricsPath), 0o755); err != nil {
		return err
	}
	if err := r.Metrics.WriteTextfile(metricsPath); err != nil {
		return fmt.Errorf("save metrics: %w", err)
	}
	return nil
}
