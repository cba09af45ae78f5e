package opini

import (
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/opini/pkg/opini/classify"
	"github.com/cognicore/opini/pkg/opini/cloud"
	"github.com/cognicore/opini/pkg/opini/ingest"
	"github.com/cognicore/opini/pkg/opini/internalerr"
	"github.com/cognicore/opini/pkg/opini/label"
	"github.com/cognicore/opini/pkg/opini/store"
	"github.com/cognicore/opini/pkg/opini/wordfreq"
)

func testRenderer(t *testing.T, dir string) *cloud.Renderer {
	t.Helper()
	opts := cloud.DefaultOptions()
	opts.MaskSize = 120
	opts.MaxTerms = 15
	opts.OutputDir = dir
	r, err := cloud.NewRenderer(opts, nil)
	require.NoError(t, err)
	return r
}

// keywordClassifier answers by keyword, like a tiny sentiment model.
var keywordClassifier = classify.Func(func(ctx context.Context, text string) (string, error) {
	switch {
	case strings.Contains(text, "senang"), strings.Contains(text, "bangga"):
		return "positive", nil
	case strings.Contains(text, "sedih"), strings.Contains(text, "bohong"):
		return "negative", nil
	default:
		return "neutral", nil
	}
})

func samplePosts() []ingest.Post {
	wib := time.FixedZone("WIB", 7*3600)
	return []ingest.Post{
		{ID: "1", Row: 1, Content: "Aku senang sekali, bendera merah putih berkibar! #17agustus", Date: time.Date(2024, 8, 17, 8, 0, 0, 0, wib)},
		{ID: "2", Row: 2, Content: "Bangga melihat bendera onepiece @budi", Date: time.Date(2024, 8, 17, 9, 0, 0, 0, wib)},
		{ID: "3", Row: 3, Content: "Sedih, janji pejabat bohong terus https://x.co/abc", Date: time.Date(2024, 8, 18, 10, 0, 0, 0, wib)},
		{ID: "4", Row: 4, Content: "Upacara di lapangan pukul 07.00"},
	}
}

func newTestOpini(t *testing.T, opts Options) *Opini {
	t.Helper()
	if opts.Classifier == nil {
		opts.Classifier = keywordClassifier
	}
	if opts.Renderer == nil {
		opts.Renderer = testRenderer(t, t.TempDir())
	}
	o, err := New(opts)
	require.NoError(t, err)
	return o
}

func TestNewRequiresClassifier(t *testing.T) {
	_, err := New(Options{})
	require.ErrorIs(t, err, internalerr.ErrInvalidConfig)
}

func TestRunEmptyDataset(t *testing.T) {
	o := newTestOpini(t, Options{})
	_, err := o.Run(context.Background(), nil)
	require.ErrorIs(t, err, internalerr.ErrEmptyDataset)
}

func TestRunEndToEnd(t *testing.T) {
	dir := t.TempDir()
	o := newTestOpini(t, Options{
		Renderer:   testRenderer(t, dir),
		ExtraTerms: []string{"onepiece", "bendera"},
		Workers:    2,
	})

	rep, err := o.Run(context.Background(), samplePosts())
	require.NoError(t, err)
	require.NotEmpty(t, rep.Summary.RunID)

	require.Len(t, rep.Results, 4)
	require.Equal(t, label.Positif, rep.Results[0].Sentiment)
	require.Equal(t, label.Positif, rep.Results[1].Sentiment)
	require.Equal(t, label.Negatif, rep.Results[2].Sentiment)
	require.Equal(t, label.Netral, rep.Results[3].Sentiment)
	require.Equal(t, "positive", rep.Results[0].RawLabel)
	require.NotContains(t, rep.Results[2].CleanText, "http")

	require.Equal(t, 4, rep.Summary.Total)
	require.Equal(t, 4, rep.Summary.Classified)
	require.Equal(t, 1, rep.Summary.Undated)
	require.Equal(t, map[label.Sentiment]int{label.Positif: 2, label.Negatif: 1, label.Netral: 1}, rep.Summary.Distribution)
	require.Len(t, rep.Summary.Daily, 2)
	require.Equal(t, "2024-08-17", rep.Summary.Daily[0].Day)
	require.Equal(t, 2, rep.Summary.Daily[0].Counts[label.Positif])
	require.Equal(t, 1, rep.Summary.Daily[1].Counts[label.Negatif])

	pos := rep.Tables[label.Positif]
	require.NotContains(t, pos, "bendera")
	require.NotContains(t, pos, "onepiece")
	require.Equal(t, 1, pos["merah"])

	for _, l := range label.All() {
		want := filepath.Join(dir, "wordcloud_"+string(l)+".png")
		require.Equal(t, want, rep.Summary.Artifacts[l])
		require.FileExists(t, want)
	}
	require.Empty(t, rep.Summary.Skipped)
	for _, stage := range []string{StageClean, StageClassify, StageStore, StageAggregate, StageFrequency, StageRender} {
		require.Contains(t, rep.Summary.Durations, stage)
	}
}

func TestRunCanonicalLabelInOutput(t *testing.T) {
	o := newTestOpini(t, Options{Classifier: classify.Fixed("positive")})
	rep, err := o.Run(context.Background(), []ingest.Post{{ID: "x", Row: 1, Content: "Merdeka!"}})
	require.NoError(t, err)
	require.Equal(t, label.Positif, rep.Results[0].Sentiment)

	out := t.TempDir()
	require.NoError(t, rep.Save(out, ""))
	f, err := os.Open(filepath.Join(out, ResultsFile))
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, "positif", records[1][5])
}

func TestRunRowErrorsDegrade(t *testing.T) {
	boom := errors.New("model unavailable")
	c := classify.Func(func(ctx context.Context, text string) (string, error) {
		switch {
		case strings.Contains(text, "sedih"):
			return "", boom
		case strings.Contains(text, "upacara"):
			return "LABEL_9", nil
		}
		return keywordClassifier(ctx, text)
	})
	logger, hook := test.NewNullLogger()
	o := newTestOpini(t, Options{Classifier: c, Logger: logger})

	rep, err := o.Run(context.Background(), samplePosts())
	require.NoError(t, err)

	require.Equal(t, 2, rep.Summary.Classified)
	require.Equal(t, 2, rep.Summary.Failed)
	require.Equal(t, store.StatusError, rep.Results[2].Status)
	require.Contains(t, rep.Results[2].Error, "model unavailable")
	require.Equal(t, store.StatusError, rep.Results[3].Status)
	require.Equal(t, "LABEL_9", rep.Results[3].RawLabel)
	require.Contains(t, rep.Results[3].Error, "LABEL_9")
	require.Equal(t, 0, rep.Summary.Distribution[label.Negatif])
	require.True(t, rep.Tables[label.Negatif].IsSentinel())

	var unmapped bool
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel && e.Data["raw_label"] == "LABEL_9" {
			unmapped = true
		}
	}
	require.True(t, unmapped, "expected a warning naming the raw label")
}

func TestRunFailFast(t *testing.T) {
	c := classify.Func(func(ctx context.Context, text string) (string, error) {
		return "", errors.New("timeout")
	})
	o := newTestOpini(t, Options{Classifier: c, FailFast: true})
	_, err := o.Run(context.Background(), samplePosts())
	require.ErrorIs(t, err, internalerr.ErrClassifier)

	o = newTestOpini(t, Options{Classifier: classify.Fixed("sarcastic"), FailFast: true})
	_, err = o.Run(context.Background(), samplePosts())
	require.ErrorIs(t, err, internalerr.ErrUnmappedLabel)
}

func TestRunCloudFailureIsSkipped(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	o := newTestOpini(t, Options{Renderer: testRenderer(t, blocker)})
	rep, err := o.Run(context.Background(), samplePosts())
	require.NoError(t, err)
	require.Len(t, rep.Summary.Skipped, 3)
	require.Empty(t, rep.Summary.Artifacts)
	require.Equal(t, 4, rep.Summary.Classified)
}

func TestRunCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	o := newTestOpini(t, Options{})
	_, err := o.Run(ctx, samplePosts())
	require.ErrorIs(t, err, context.Canceled)
}

func TestRunSentinelCloudForEmptyLabel(t *testing.T) {
	o := newTestOpini(t, Options{Classifier: classify.Fixed("neutral")})
	rep, err := o.Run(context.Background(), samplePosts())
	require.NoError(t, err)
	require.True(t, rep.Tables[label.Positif].IsSentinel())
	require.Equal(t, []wordfreq.Term{{Token: wordfreq.Sentinel, Count: 1}}, rep.Summary.TopTerms[label.Positif])
	require.Contains(t, rep.Summary.Artifacts, label.Positif)
}

func TestSaveWritesMetrics(t *testing.T) {
	o := newTestOpini(t, Options{})
	rep, err := o.Run(context.Background(), samplePosts())
	require.NoError(t, err)

	out := t.TempDir()
	metricsPath := filepath.Join(out, "textfile", "opini.prom")
	require.NoError(t, rep.Save(out, metricsPath))
	require.FileExists(t, filepath.Join(out, SummaryFile))

	data, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	require.Contains(t, string(data), "opini_rows_processed_total")
	require.Contains(t, string(data), `outcome="rendered"`)
}
