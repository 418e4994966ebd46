// Package metrics exposes Prometheus collectors for cross-section assembly
// and for the run API. A nil *Assembly or *Server is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "xsection"

type Assembly struct {
	reg *prometheus.Registry

	duration        *prometheus.HistogramVec
	rows            *prometheus.GaugeVec
	failures        *prometheus.CounterVec
	duplicateDates  prometheus.Counter
	collisions      prometheus.Counter
	missingFeatures *prometheus.CounterVec
	tickers         prometheus.Gauge
}

// New registers the assembly collectors on a private registry.
func New() *Assembly {
	m := &Assembly{
		reg: prometheus.NewRegistry(),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "feature_assembly_seconds",
			Help:      "Time spent assembling one feature's cross-sectional table.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}, []string{"feature"}),
		rows: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "feature_rows",
			Help:      "Rows in the most recent cross-sectional table per feature.",
		}, []string{"feature"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feature_failures_total",
			Help:      "Features that failed to assemble, by error kind.",
		}, []string{"feature", "kind"}),
		duplicateDates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "duplicate_dates_total",
			Help:      "Repeated date rows dropped from per-ticker inputs.",
		}),
		collisions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "join_collisions_total",
			Help:      "Ticker columns renamed because the identifier appeared more than once.",
		}),
		missingFeatures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "missing_features_total",
			Help:      "Tickers skipped for a feature because the column was absent.",
		}, []string{"feature"}),
		tickers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "input_tickers",
			Help:      "Tickers supplied to the most recent assembly.",
		}),
	}
	m.reg.MustRegister(m.duration, m.rows, m.failures, m.duplicateDates, m.collisions, m.missingFeatures, m.tickers)
	return m
}

func (m *Assembly) ObserveFeature(feature string, d time.Duration, rows int) {
	if m == nil {
		return
	}
	m.duration.WithLabelValues(feature).Observe(d.Seconds())
	m.rows.WithLabelValues(feature).Set(float64(rows))
}

func (m *Assembly) FeatureFailed(feature, kind string) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(feature, kind).Inc()
}

func (m *Assembly) DuplicateDates(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.duplicateDates.Add(float64(n))
}

func (m *Assembly) Collision() {
	if m == nil {
		return
	}
	m.collisions.Inc()
}

func (m *Assembly) MissingFeature(feature string) {
	if m == nil {
		return
	}
	m.missingFeatures.WithLabelValues(feature).Inc()
}

func (m *Assembly) Tickers(n int) {
	if m == nil {
		return
	}
	m.tickers.Set(float64(n))
}

// Registry is the private registry the collectors live on.
func (m *Assembly) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.reg
}

// WriteTextfile dumps the current values in the text exposition format,
// suitable for a node_exporter textfile collector after a batch run.
func (m *Assembly) WriteTextfile(path string) error {
	if m == nil {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.reg)
}

// Total sums every series of the named counter or gauge on the registry.
func (m *Assembly) Total(name string) float64 {
	if m == nil {
		return 0
	}
	return Total(m.reg, name)
}
