package main

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cognicore/opini/internal/logging"
	"github.com/cognicore/opini/pkg/opini"
	"github.com/cognicore/opini/pkg/opini/label"
)

const sampleCSV = `id,date,user,content
1,2024-08-17 08:00:00,budi,"Aku senang dan bangga, merdeka! #17agustus"
2,2024-08-17 09:30:00,sari,Sedih lihat janji yang bohong @pejabat
3,,andi,Upacara bendera di lapangan
`

const sampleConfig = `timezone: Asia/Jakarta
extra_terms: [bendera, agustus]
cloud:
  mask_size: 100
  max_terms: 10
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestParseFlags(t *testing.T) {
	_, err := parseFlags([]string{}, io.Discard)
	require.Error(t, err)

	f, err := parseFlags([]string{"--input", "posts.csv", "--classifier", "http", "--seed", "7", "--fail-fast"}, io.Discard)
	require.NoError(t, err)
	require.Equal(t, "posts.csv", f.input)
	require.Equal(t, "http", f.classifier)
	require.EqualValues(t, 7, f.seed)
	require.True(t, f.failFast)
}

func TestLoadConfigFlagsWin(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("OPINI_WORKERS", "2")
	f := &cliFlags{
		configPath: writeFile(t, dir, "opini.yaml", sampleConfig),
		outDir:     filepath.Join(dir, "out"),
		workers:    5,
		labels:     "LABEL_0=negatif, LABEL_2 = positif",
		envFiles:   filepath.Join(dir, "missing.env"),
	}
	cfg, err := loadConfig(f, logging.Discard())
	require.NoError(t, err)
	require.Equal(t, 5, cfg.Workers)
	require.Equal(t, f.outDir, cfg.OutputDir)
	require.Equal(t, "negatif", cfg.Labels["LABEL_0"])
	require.Equal(t, "positif", cfg.Labels["LABEL_2"])
	require.Equal(t, 100, cfg.Cloud.MaskSize)

	f.labels = "LABEL_1"
	_, err = loadConfig(f, logging.Discard())
	require.Error(t, err)
}

func TestRunWritesOutputs(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out")
	f := &cliFlags{
		input:      writeFile(t, dir, "posts.csv", sampleCSV),
		configPath: writeFile(t, dir, "opini.yaml", sampleConfig),
		outDir:     out,
		store:      filepath.Join(dir, "run.db"),
		metrics:    filepath.Join(dir, "opini.prom"),
		envFiles:   filepath.Join(dir, "missing.env"),
	}

	rep, err := run(context.Background(), f, logging.Discard())
	require.NoError(t, err)
	require.Equal(t, 3, rep.Summary.Total)
	require.Equal(t, label.Positif, rep.Results[0].Sentiment)
	require.Equal(t, label.Negatif, rep.Results[1].Sentiment)

	require.FileExists(t, filepath.Join(out, opini.ResultsFile))
	require.FileExists(t, filepath.Join(out, "visuals", "wordcloud_positif.png"))
	require.FileExists(t, filepath.Join(dir, "opini.prom"))

	data, err := os.ReadFile(filepath.Join(out, opini.SummaryFile))
	require.NoError(t, err)
	var summary map[string]any
	require.NoError(t, json.Unmarshal(data, &summary))
	require.Equal(t, rep.Summary.RunID, summary["run_id"])
}

func TestRunMissingInput(t *testing.T) {
	dir := t.TempDir()
	f := &cliFlags{input: filepath.Join(dir, "nope.csv"), envFiles: filepath.Join(dir, "missing.env")}
	_, err := run(context.Background(), f, logging.Discard())
	require.Error(t, err)
}
