// Package metrics counts what a batch run did so it can be scraped from a
// node-exporter textfile after the run finishes.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "zastat"

// Metrics holds the counters of one run on a private registry.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	// merges counts combinations by level (flavor, btag, region, production, era)
	// and result (ok, failed).
	merges *prometheus.CounterVec

	// skipped counts mass points left out of a combination level.
	skipped *prometheus.CounterVec

	edgesSnapped       prometheus.Counter
	integralMismatches prometheus.Counter

	// toolFailures counts non-zero exits of external tools by tool name.
	toolFailures *prometheus.CounterVec

	stageDuration *prometheus.HistogramVec
}

// New creates the run counters on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		merges: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "merges_total",
			Help:      "Combined datacards built, by combination level and result",
		}, []string{"level", "result"}),
		skipped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "masspoints_skipped_total",
			Help:      "Signal mass points skipped at a combination level",
		}, []string{"level"}),
		edgesSnapped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "edges_snapped_total",
			Help:      "Proposed bin edges snapped onto the reference binning",
		}),
		integralMismatches: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "integral_mismatch_total",
			Help:      "Rebinned histograms whose integral moved beyond tolerance",
		}),
		toolFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "external_tool_failures_total",
			Help:      "External tool invocations that exited non-zero",
		}, []string{"tool"}),
		stageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Wall time spent per pipeline stage",
			Buckets:   []float64{0.01, 0.1, 0.5, 1, 5, 15, 60, 300},
		}, []string{"stage"}),
	}
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// MergeOK records a successful combination at level.
func (m *Metrics) MergeOK(level string) {
	if m == nil {
		return
	}
	m.merges.WithLabelValues(level, "ok").Inc()
}

// MergeFailed records a failed combination at level.
func (m *Metrics) MergeFailed(level string) {
	if m == nil {
		return
	}
	m.merges.WithLabelValues(level, "failed").Inc()
}

// Skipped records a mass point left out at level.
func (m *Metrics) Skipped(level string) {
	if m == nil {
		return
	}
	m.skipped.WithLabelValues(level).Inc()
}

// EdgesSnapped adds n snapped edges.
func (m *Metrics) EdgesSnapped(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.edgesSnapped.Add(float64(n))
}

// IntegralMismatch records one integral check failure.
func (m *Metrics) IntegralMismatch() {
	if m == nil {
		return
	}
	m.integralMismatches.Inc()
}

// ToolFailure records a failed external tool call.
func (m *Metrics) ToolFailure(tool string) {
	if m == nil {
		return
	}
	m.toolFailures.WithLabelValues(tool).Inc()
}

// ObserveStage records how long a stage took since start.
func (m *Metrics) ObserveStage(stage string, start time.Time) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

// WriteTextfile writes the registry in the text exposition format to path.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}
