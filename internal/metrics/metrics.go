// Package metrics collects per-run Prometheus metrics and writes them in the
// node_exporter textfile format.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "opini"

// Failure reasons recorded on rows_failed_total.
const (
	ReasonClassifier = "classifier"
	ReasonUnmapped   = "unmapped_label"
)

// Collector holds one run's metrics on a private registry, so repeated runs
// in one process never collide.
type Collector struct {
	registry *prometheus.Registry

	rowsProcessed *prometheus.CounterVec
	rowsFailed    *prometheus.CounterVec
	clouds        *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	lastRun       prometheus.Gauge
}

// New creates a collector labelled with the run id.
func New(runID string) *Collector {
	c := &Collector{registry: prometheus.NewRegistry()}
	constLabels := prometheus.Labels{"run_id": runID}

	c.rowsProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "rows_processed_total",
			Help:        "Rows classified successfully, by sentiment",
			ConstLabels: constLabels,
		},
		[]string{"sentiment"},
	)
	c.rowsFailed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "rows_failed_total",
			Help:        "Rows that could not be classified, by reason",
			ConstLabels: constLabels,
		},
		[]string{"reason"},
	)
	c.clouds = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "clouds_total",
			Help:        "Word clouds by outcome",
			ConstLabels: constLabels,
		},
		[]string{"outcome"},
	)
	c.stageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   namespace,
			Name:        "stage_duration_seconds",
			Help:        "Pipeline stage duration in seconds",
			Buckets:     []float64{.01, .05, .1, .5, 1, 2.5, 5, 10, 30, 60, 120},
			ConstLabels: constLabels,
		},
		[]string{"stage"},
	)
	c.lastRun = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace:   namespace,
		Name:        "last_run_timestamp_seconds",
		Help:        "Unix time the run finished",
		ConstLabels: constLabels,
	})

	c.registry.MustRegister(c.rowsProcessed, c.rowsFailed, c.clouds, c.stageDuration, c.lastRun)
	return c
}

// RowProcessed counts a successfully labelled row.
func (c *Collector) RowProcessed(sentiment string) {
	c.rowsProcessed.WithLabelValues(sentiment).Inc()
}

// RowFailed counts a row that ended in error.
func (c *Collector) RowFailed(reason string) {
	c.rowsFailed.WithLabelValues(reason).Inc()
}

// CloudRendered counts a written cloud.
func (c *Collector) CloudRendered() { c.clouds.WithLabelValues("rendered").Inc() }

// CloudSkipped counts a cloud that failed and was skipped.
func (c *Collector) CloudSkipped() { c.clouds.WithLabelValues("skipped").Inc() }

// ObserveStage records how long a stage took.
func (c *Collector) ObserveStage(stage string, d time.Duration) {
	c.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// Finish stamps the completion time.
func (c *Collector) Finish(at time.Time) {
	c.lastRun.Set(float64(at.Unix()))
}

// Registry exposes the underlying registry.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// WriteTextfile writes every metric to path for the textfile collector.
func (c *Collector) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, c.registry)
}
