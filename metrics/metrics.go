// Package metrics exposes run counters for the seasonal comparison.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "kstail"

// Outcome labels of a comparison.
const (
	OutcomeDefined    = "defined"
	OutcomeDegenerate = "degenerate"
)

// Metrics holds the Prometheus collectors of one analysis run.
type Metrics struct {
	Comparisons     *prometheus.CounterVec // labels: pair, season, outcome
	EmptyThresholds *prometheus.CounterVec // labels: season
	SamplesCompared *prometheus.HistogramVec
	RunDuration     prometheus.Gauge
	Locations       prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg. A nil
// registerer leaves them unregistered, which is what tests want.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Comparisons: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "comparisons_total",
			Help:      "Two-sample comparisons by pair, season and outcome.",
		}, []string{"pair", "season", "outcome"}),
		EmptyThresholds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "empty_thresholds_total",
			Help:      "Locations whose season has no wet day in the observations.",
		}, []string{"season"}),
		SamplesCompared: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "filtered_samples",
			Help:      "Size of the thresholded sample sets fed to the comparison.",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250, 500, 1000},
		}, []string{"dataset"}),
		RunDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of the comparison stage of the last run.",
		}),
		Locations: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "locations",
			Help:      "Number of grid locations compared in the last run.",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.Comparisons,
			m.EmptyThresholds,
			m.SamplesCompared,
			m.RunDuration,
			m.Locations,
		)
	}
	return m
}
