// Package metrics records pipeline counters with Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder holds the pipeline's Prometheus collectors. All methods are
// no-ops on a nil *Recorder.
type Recorder struct {
	registry       *prometheus.Registry
	requests       *prometheus.CounterVec
	softErrors     *prometheus.CounterVec
	pages          prometheus.Counter
	symbolsSkipped *prometheus.CounterVec
	rowsWritten    prometheus.Counter
	latency        prometheus.Histogram
}

// New creates a Recorder registered on its own registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		requests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "polyfetch_requests_total",
				Help: "Provider HTTP requests by final status code",
			},
			[]string{"status"},
		),
		softErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "polyfetch_soft_errors_total",
				Help: "Provider status=ERROR bodies by recovery outcome",
			},
			[]string{"outcome"},
		),
		pages: factory.NewCounter(prometheus.CounterOpts{
			Name: "polyfetch_pages_total",
			Help: "Result pages accumulated",
		}),
		symbolsSkipped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "polyfetch_symbols_skipped_total",
				Help: "Symbols skipped during bulk OHLC fetches",
			},
			[]string{"reason"},
		),
		rowsWritten: factory.NewCounter(prometheus.CounterOpts{
			Name: "polyfetch_rows_written_total",
			Help: "Rows persisted to the data directory",
		}),
		latency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "polyfetch_request_duration_seconds",
			Help:    "Provider request latency including transport retries",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// Registry exposes the underlying registry, e.g. for tests.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// Handler serves the recorder's metrics in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// RecordRequest records one provider request and its latency.
func (r *Recorder) RecordRequest(status int, d time.Duration) {
	if r == nil {
		return
	}
	r.requests.WithLabelValues(strconv.Itoa(status)).Inc()
	r.latency.Observe(d.Seconds())
}

// RecordSoftError records a soft provider error and how it was resolved:
// "recovered" or "degraded".
func (r *Recorder) RecordSoftError(outcome string) {
	if r == nil {
		return
	}
	r.softErrors.WithLabelValues(outcome).Inc()
}

// RecordPage records one accumulated result page.
func (r *Recorder) RecordPage() {
	if r == nil {
		return
	}
	r.pages.Inc()
}

// RecordSkipped records a symbol skipped for the given reason.
func (r *Recorder) RecordSkipped(reason string) {
	if r == nil {
		return
	}
	r.symbolsSkipped.WithLabelValues(reason).Inc()
}

// RecordRowsWritten adds n persisted rows.
func (r *Recorder) RecordRowsWritten(n int) {
	if r == nil {
		return
	}
	r.rowsWritten.Add(float64(n))
}
