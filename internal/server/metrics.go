package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// metrics instruments the transform endpoint. Each server owns its
// registry so tests can run servers side by side without duplicate
// registration panics.
type metrics struct {
	registry   *prometheus.Registry
	transforms *prometheus.CounterVec
	duration   prometheus.Histogram
	atoms      prometheus.Counter
	exclusions prometheus.Counter
}

func newMetrics() *metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &metrics{
		registry: reg,
		transforms: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "plainview",
			Name:      "transforms_total",
			Help:      "Transform requests by mode and outcome.",
		}, []string{"mode", "status"}),
		duration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "plainview",
			Name:      "transform_duration_seconds",
			Help:      "End-to-end transform latency.",
			Buckets:   prometheus.DefBuckets,
		}),
		atoms: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "plainview",
			Name:      "atoms_total",
			Help:      "Atoms decomposed across all transforms.",
		}),
		exclusions: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "plainview",
			Name:      "exclusions_total",
			Help:      "Atoms excluded with a reason across all transforms.",
		}),
	}
}

func (m *metrics) observe(mode string, err error, seconds float64, included, excluded int) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.transforms.WithLabelValues(mode, status).Inc()
	m.duration.Observe(seconds)
	if err == nil {
		m.atoms.Add(float64(included + excluded))
		m.exclusions.Add(float64(excluded))
	}
}
