package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCollectorCounts(t *testing.T) {
	c := New("run-1")
	c.RowProcessed("positif")
	c.RowProcessed("positif")
	c.RowFailed(ReasonUnmapped)
	c.CloudRendered()
	c.CloudSkipped()
	c.ObserveStage("render", 250*time.Millisecond)

	if got := testutil.ToFloat64(c.rowsProcessed.WithLabelValues("positif")); got != 2 {
		t.Fatalf("rows_processed_total{positif} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.rowsFailed.WithLabelValues(ReasonUnmapped)); got != 1 {
		t.Fatalf("rows_failed_total = %v, want 1", got)
	}
	if got := testutil.CollectAndCount(c.clouds); got != 2 {
		t.Fatalf("clouds_total series = %d, want 2", got)
	}
}

func TestWriteTextfile(t *testing.T) {
	c := New("run-2")
	c.RowProcessed("netral")
	c.Finish(time.Unix(1723870800, 0))

	path := filepath.Join(t.TempDir(), "opini.prom")
	if err := c.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	out := string(data)
	for _, want := range []string{
		`opini_rows_processed_total{run_id="run-2",sentiment="netral"} 1`,
		`opini_last_run_timestamp_seconds{run_id="run-2"} 1.7238708e+09`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("textfile missing %q:\n%s", want, out)
		}
	}
}

func TestSeparateRegistries(t *testing.T) {
	a, b := New("a"), New("b")
	a.RowProcessed("positif")
	if got := testutil.ToFloat64(b.rowsProcessed.WithLabelValues("positif")); got != 0 {
		t.Fatalf("runs share state: %v", got)
	}
}
