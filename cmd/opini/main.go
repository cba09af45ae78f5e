package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cognicore/opini/internal/logging"
	"github.com/cognicore/opini/pkg/opini"
	"github.com/cognicore/opini/pkg/opini/config"
	"github.com/cognicore/opini/pkg/opini/ingest"
	"github.com/cognicore/opini/pkg/opini/report"
)

type cliFlags struct {
	input      string
	configPath string
	outDir     string
	mask       string
	classifier string
	endpoint   string
	labels     string
	store      string
	metrics    string
	envFiles   string
	workers    int
	seed       int64
	failFast   bool
	timeout    time.Duration
}

func parseFlags(args []string, stderr io.Writer) (*cliFlags, error) {
	fs := flag.NewFlagSet("opini", flag.ContinueOnError)
	fs.SetOutput(stderr)

	f := &cliFlags{}
	fs.StringVar(&f.input, "input", "", "CSV, TSV or JSONL dataset (required)")
	fs.StringVar(&f.configPath, "config", "", "Run configuration YAML")
	fs.StringVar(&f.outDir, "out", "", "Output directory (overrides output_dir)")
	fs.StringVar(&f.mask, "mask", "", "Mask image for the word clouds")
	fs.StringVar(&f.classifier, "classifier", "", "Classifier kind: lexicon or http")
	fs.StringVar(&f.endpoint, "endpoint", "", "Inference endpoint for the http classifier")
	fs.StringVar(&f.labels, "labels", "", "Extra label mapping, e.g. LABEL_0=negatif,LABEL_2=positif")
	fs.StringVar(&f.store, "store", "", "SQLite result store path (default in memory)")
	fs.StringVar(&f.metrics, "metrics", "", "Write Prometheus metrics to this textfile")
	fs.StringVar(&f.envFiles, "env", "", "Comma-separated env files to load (default .env,.env.local)")
	fs.IntVar(&f.workers, "workers", 0, "Parallel workers (default GOMAXPROCS)")
	fs.Int64Var(&f.seed, "seed", 0, "Word cloud layout seed (overrides cloud.seed)")
	fs.BoolVar(&f.failFast, "fail-fast", false, "Abort on the first row that cannot be classified")
	fs.DurationVar(&f.timeout, "timeout", 0, "Overall run timeout")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if f.input == "" {
		return nil, fmt.Errorf("--input required")
	}
	return f, nil
}

// loadConfig layers the YAML file, OPINI_* variables and command-line flags,
// later layers winning.
func loadConfig(f *cliFlags, logger logrus.FieldLogger) (*config.Config, error) {
	var envFiles []string
	if f.envFiles != "" {
		envFiles = strings.Split(f.envFiles, ",")
	}
	config.LoadEnv(logger, envFiles...)

	cfg, err := config.Load(f.configPath)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv()

	if f.outDir != "" {
		cfg.OutputDir = f.outDir
	}
	if f.mask != "" {
		cfg.Cloud.MaskPath = f.mask
	}
	if f.classifier != "" {
		cfg.Classifier.Kind = f.classifier
	}
	if f.endpoint != "" {
		cfg.Classifier.HTTP.Endpoint = f.endpoint
	}
	if f.store != "" {
		cfg.StoreDSN = f.store
	}
	if f.metrics != "" {
		cfg.MetricsTextfile = f.metrics
	}
	if f.workers > 0 {
		cfg.Workers = f.workers
	}
	if f.seed != 0 {
		cfg.Cloud.Seed = f.seed
	}
	if f.failFast {
		cfg.FailFast = true
	}
	if f.labels != "" {
		if cfg.Labels == nil {
			cfg.Labels = make(map[string]string)
		}
		for _, pair := range strings.Split(f.labels, ",") {
			raw, canonical, ok := strings.Cut(pair, "=")
			if !ok {
				return nil, fmt.Errorf("--labels: %q is not raw=label", pair)
			}
			cfg.Labels[strings.TrimSpace(raw)] = strings.TrimSpace(canonical)
		}
	}
	return cfg, nil
}

func run(ctx context.Context, f *cliFlags, logger logrus.FieldLogger) (*opini.Report, error) {
	cfg, err := loadConfig(f, logger)
	if err != nil {
		return nil, err
	}

	loader := config.Loader{Config: cfg, Logger: logger}
	comp, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	posts, err := ingest.LoadFile(f.input, comp.Input)
	if err != nil {
		return nil, fmt.Errorf("load dataset: %w", err)
	}
	logger.Infof("Loaded %d posts from %s", len(posts), f.input)

	opts, err := opini.FromConfig(cfg, comp, logger)
	if err != nil {
		return nil, err
	}
	engine, err := opini.New(opts)
	if err != nil {
		return nil, err
	}

	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}
	rep, err := engine.Run(ctx, posts)
	if err != nil {
		return nil, err
	}
	if err := rep.Save(cfg.OutputDir, cfg.MetricsTextfile); err != nil {
		return nil, err
	}
	return rep, nil
}

func main() {
	logger := logging.New("opini")

	f, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		if err == flag.ErrHelp {
			return
		}
		logger.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rep, err := run(ctx, f, logger)
	if err != nil {
		logger.Fatalf("opini: %v", err)
	}

	s := rep.Summary
	logger.Infof("Processed %d/%d posts (%d failed, %d undated)", s.Classified, s.Total, s.Failed, s.Undated)
	for _, row := range report.DistributionRows(s) {
		logger.Infof("  %-8s %6s  %5s%%", row[0], row[1], row[2])
	}
	for l, path := range s.Artifacts {
		logger.WithField("label", l).Infof("Word cloud written to %s", path)
	}
	for l, reason := range s.Skipped {
		logger.WithField("label", l).Warnf("Word cloud skipped: %s", reason)
	}
}
