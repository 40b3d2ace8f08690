package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics exposes batch progress for long parameter sweeps. A nil *Metrics
// records nothing.
type Metrics struct {
	registry *prometheus.Registry

	runs         *prometheus.CounterVec
	runDuration  prometheus.Histogram
	species      prometheus.Gauge
	fitScore     prometheus.Histogram
	endTime      prometheus.Histogram
	runsInFlight prometheus.Gauge
}

// NewMetrics registers the batch collectors on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		runs: f.NewCounterVec(prometheus.CounterOpts{
			Name: "salamanders_runs_total",
			Help: "Replicate runs finished, by status.",
		}, []string{"status"}),
		runDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "salamanders_run_duration_seconds",
			Help:    "Wall time of one replicate.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 14),
		}),
		species: f.NewGauge(prometheus.GaugeOpts{
			Name: "salamanders_last_run_species",
			Help: "Living species at the end of the most recent run.",
		}),
		fitScore: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "salamanders_fit_score",
			Help:    "ECDF fit score of finished runs.",
			Buckets: prometheus.LinearBuckets(0, 5, 16),
		}),
		endTime: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "salamanders_run_end_time_myr",
			Help:    "Simulated time reached before the run ended.",
			Buckets: prometheus.LinearBuckets(0, 5, 14),
		}),
		runsInFlight: f.NewGauge(prometheus.GaugeOpts{
			Name: "salamanders_runs_in_flight",
			Help: "Replicates currently executing.",
		}),
	}
}

// RunStarted marks a replicate as executing.
func (m *Metrics) RunStarted() {
	if m == nil {
		return
	}
	m.runsInFlight.Inc()
}

// ObserveRun records a finished replicate.
func (m *Metrics) ObserveRun(s RunSummary, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.runsInFlight.Dec()
	m.runs.WithLabelValues(s.Status).Inc()
	m.runDuration.Observe(elapsed.Seconds())
	if s.Status != StatusOK {
		return
	}
	m.species.Set(float64(s.NSpecies))
	m.fitScore.Observe(s.FitScore)
	m.endTime.Observe(s.EndTime)
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
