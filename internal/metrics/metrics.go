// Package metrics exposes rover activity as Prometheus metrics.
package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Visit statuses.
const (
	StatusWatered   = "watered"
	StatusSatisfied = "satisfied"
	StatusSkipped   = "skipped"
	StatusFailed    = "failed"
)

// Metrics holds the rover's collectors on a private registry. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	detectionsTotal  *prometheus.CounterVec
	visitsTotal      *prometheus.CounterVec
	visitErrorsTotal *prometheus.CounterVec
	pipelineDuration prometheus.Histogram
	irrigationAmount prometheus.Histogram
}

// New creates and registers the collectors.
func New() (*Metrics, error) {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.detectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rover_detections_total",
			Help: "Leaf detections by identified species",
		},
		[]string{"species"},
	)
	m.visitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rover_visits_total",
			Help: "Plant visits by outcome",
		},
		[]string{"status"}, // watered, satisfied, skipped, failed
	)
	m.visitErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rover_visit_errors_total",
			Help: "Failed plant visits by pipeline stage",
		},
		[]string{"stage"},
	)
	m.pipelineDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name: "rover_pipeline_duration_seconds",
		Help: "Time to run leaf detection on one frame",
		// 10ms .. ~5s
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 10),
	})
	m.irrigationAmount = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "rover_irrigation_amount",
		Help:    "Computed irrigation amount per plant",
		Buckets: prometheus.LinearBuckets(0, 10, 12),
	})

	for _, c := range []prometheus.Collector{
		m.detectionsTotal, m.visitsTotal, m.visitErrorsTotal, m.pipelineDuration, m.irrigationAmount,
	} {
		if err := m.registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register metric: %w", err)
		}
	}
	return m, nil
}

// Registry returns the private registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordDetection counts a detection and its pipeline time.
func (m *Metrics) RecordDetection(species string, d time.Duration) {
	if m == nil {
		return
	}
	m.detectionsTotal.WithLabelValues(species).Inc()
	m.pipelineDuration.Observe(d.Seconds())
}

// RecordVisit counts a finished visit.
func (m *Metrics) RecordVisit(status string) {
	if m == nil {
		return
	}
	m.visitsTotal.WithLabelValues(status).Inc()
}

// RecordVisitError counts a failed visit by stage.
func (m *Metrics) RecordVisitError(stage string) {
	if m == nil {
		return
	}
	m.visitErrorsTotal.WithLabelValues(stage).Inc()
}

// RecordIrrigation observes a computed amount.
func (m *Metrics) RecordIrrigation(amount float64) {
	if m == nil {
		return
	}
	m.irrigationAmount.Observe(amount)
}
