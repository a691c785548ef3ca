// Package metrics exports per-run counters to a Prometheus Pushgateway. The
// job is a one-shot batch, so nothing is scraped from it; the run pushes its
// registry once when it ends.
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Recorder owns the collectors of one run.
type Recorder struct {
	registry *prometheus.Registry

	siteCalls    *prometheus.CounterVec
	siteRows     *prometheus.CounterVec
	siteDuration *prometheus.HistogramVec
	cells        *prometheus.CounterVec
	rowsDropped  *prometheus.CounterVec
	batches      *prometheus.CounterVec
	rowsWritten  *prometheus.CounterVec
	runDuration  prometheus.Gauge
	lastSuccess  prometheus.Gauge

	pushURL string
	job     string
}

// NewRecorder registers the collectors against a fresh registry. pushURL may
// be empty, in which case Push does nothing.
func NewRecorder(pushURL, job string) (*Recorder, error) {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		siteCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jobingest_site_calls_total",
			Help: "Board calls partitioned by site and result.",
		}, []string{"site", "result"}),
		siteRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jobingest_site_rows_total",
			Help: "Rows returned per site.",
		}, []string{"site"}),
		siteDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "jobingest_site_duration_seconds",
			Help:    "Board call duration per site.",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		}, []string{"site"}),
		cells: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jobingest_cells_total",
			Help: "Grid cells partitioned by outcome.",
		}, []string{"status"}),
		rowsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jobingest_rows_dropped_total",
			Help: "Rows removed during normalization partitioned by reason.",
		}, []string{"reason"}),
		batches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jobingest_upsert_batches_total",
			Help: "Upsert batches partitioned by sink and result.",
		}, []string{"sink", "result"}),
		rowsWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jobingest_rows_written_total",
			Help: "Rows accepted by the sink.",
		}, []string{"sink"}),
		runDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "jobingest_run_duration_seconds",
			Help: "Wall time of the last run.",
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "jobingest_last_success_timestamp_seconds",
			Help: "Unix time of the last run that persisted its rows.",
		}),
		pushURL: pushURL,
		job:     job,
	}
	for _, collector := range []prometheus.Collector{
		r.siteCalls,
		r.siteRows,
		r.siteDuration,
		r.cells,
		r.rowsDropped,
		r.batches,
		r.rowsWritten,
		r.runDuration,
		r.lastSuccess,
	} {
		if err := r.registry.Register(collector); err != nil {
			return nil, fmt.Errorf("register run collector: %w", err)
		}
	}
	return r, nil
}

// Registry exposes the collectors, mostly for tests.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// ObserveSite records one board call.
func (r *Recorder) ObserveSite(site string, rows int, d time.Duration, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	r.siteCalls.WithLabelValues(site, result).Inc()
	if err == nil {
		r.siteRows.WithLabelValues(site).Add(float64(rows))
	}
	if d > 0 {
		r.siteDuration.WithLabelValues(site).Observe(d.Seconds())
	}
}

// ObserveCell counts a finished cell by status.
func (r *Recorder) ObserveCell(status string) {
	r.cells.WithLabelValues(status).Inc()
}

// RowsDropped counts rows normalization removed.
func (r *Recorder) RowsDropped(reason string, n int) {
	if n > 0 {
		r.rowsDropped.WithLabelValues(reason).Add(float64(n))
	}
}

// BatchWritten counts an accepted batch of rows.
func (r *Recorder) BatchWritten(sink string, rows int) {
	r.batches.WithLabelValues(sink, "success").Inc()
	r.rowsWritten.WithLabelValues(sink).Add(float64(rows))
}

// BatchFailed counts a rejected batch.
func (r *Recorder) BatchFailed(sink string) {
	r.batches.WithLabelValues(sink, "error").Inc()
}

// RunFinished sets the run gauges. succeeded marks a run whose rows were all
// persisted, or that had nothing to persist.
func (r *Recorder) RunFinished(d time.Duration, succeeded bool, now time.Time) {
	r.runDuration.Set(d.Seconds())
	if succeeded {
		r.lastSuccess.Set(float64(now.Unix()))
	}
}

// Push sends the registry to the Pushgateway, replacing this job's group.
func (r *Recorder) Push(ctx context.Context) error {
	if r.pushURL == "" {
		return nil
	}
	if err := push.New(r.pushURL, r.job).Gatherer(r.registry).PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
