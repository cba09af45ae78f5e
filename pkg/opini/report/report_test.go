package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cognicore/opini/pkg/opini/label"
	"github.com/cognicore/opini/pkg/opini/store"
	"github.com/cognicore/opini/pkg/opini/wordfreq"
)

func sampleResults() []store.Result {
	return []store.Result{
		{ID: "1", User: "budi", Date: time.Date(2024, 8, 17, 10, 0, 0, 0, time.UTC),
			Content: "Dirgahayu RI ke-79 🇮🇩, \"merdeka\"!\nBaris baru", CleanText: "dirgahayu ri ke merdeka baris baru",
			Sentiment: label.Positif, Status: store.StatusOK},
		{ID: "2", Content: "Señor café ☕", CleanText: "señor café", Status: store.StatusError, Error: "label: raw label \"LABEL_9\": unmapped"},
	}
}

func TestWriteCSVRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleResults()))
	require.True(t, bytes.HasPrefix(buf.Bytes(), []byte{0xEF, 0xBB, 0xBF}), "missing BOM")

	records, err := csv.NewReader(bytes.NewReader(buf.Bytes()[3:])).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	require.Equal(t, Columns, records[0])

	require.Equal(t, []string{
		"1", "2024-08-17T10:00:00Z", "budi",
		"Dirgahayu RI ke-79 🇮🇩, \"merdeka\"!\nBaris baru",
		"dirgahayu ri ke merdeka baris baru", "positif", "ok", "",
	}, records[1])
	require.Equal(t, "Señor café ☕", records[2][3])
	require.Equal(t, "", records[2][1])
	require.Equal(t, "", records[2][5])
	require.Equal(t, "error", records[2][6])
}

func TestSummary(t *testing.T) {
	s := Summary{
		RunID:        "01J5ZX",
		Distribution: map[label.Sentiment]int{label.Positif: 3, label.Negatif: 1, label.Netral: 0},
		TopTerms:     map[label.Sentiment][]wordfreq.Term{label.Positif: {{Token: "keren", Count: 3}}},
		Artifacts:    map[label.Sentiment]string{label.Positif: "visuals/wordcloud_positif.png"},
	}
	s.Tally(append(sampleResults(), store.Result{Status: store.StatusOK}, store.Result{Status: store.StatusOK}, store.Result{Status: store.StatusOK}))

	require.Equal(t, 5, s.Total)
	require.Equal(t, 4, s.Classified)
	require.Equal(t, 1, s.Failed)
	require.Equal(t, 4, s.Undated)
	require.InDelta(t, 75.0, s.Percent(label.Positif), 1e-9)
	require.Equal(t, [][]string{
		{"positif", "3", "75.0"},
		{"negatif", "1", "25.0"},
		{"netral", "0", "0.0"},
	}, DistributionRows(s))

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, s))
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Equal(t, "01J5ZX", decoded["run_id"])
	require.Equal(t, float64(3), decoded["distribution"].(map[string]any)["positif"])
	require.NotContains(t, decoded, "skipped_clouds")
	terms := decoded["top_terms"].(map[string]any)["positif"].([]any)
	require.Equal(t, "keren", terms[0].(map[string]any)["token"])
}

func TestPercentWithoutRows(t *testing.T) {
	require.Zero(t, Summary{}.Percent(label.Positif))
}

func TestSaveFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out", "nested")
	csvPath := filepath.Join(dir, "hasil.csv")
	jsonPath := filepath.Join(dir, "summary.json")

	require.NoError(t, SaveCSV(csvPath, sampleResults()))
	require.NoError(t, SaveJSON(jsonPath, Summary{RunID: "x"}))

	data, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	require.Contains(t, string(data), "Señor café ☕")

	data, err = os.ReadFile(jsonPath)
	require.NoError(t, err)
	require.Contains(t, string(data), `"run_id": "x"`)
}
