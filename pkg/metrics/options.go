// Package metrics provides Prometheus metrics for the mara-calc prediction service.
package metrics

import (
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Option applies a configuration option to the Manager.
type Option func(*Manager)

// WithNamespace sets the namespace for all metrics.
func WithNamespace(namespace string) Option {
	return func(m *Manager) {
		if namespace != "" {
			m.namespace = namespace
		}
	}
}

// WithSubsystem sets the subsystem for all metrics.
func WithSubsystem(subsystem string) Option {
	return func(m *Manager) {
		if subsystem != "" {
			m.subsystem = subsystem
		}
	}
}

// WithLatencyBuckets sets the millisecond buckets of the HTTP and error
// latency histograms.
func WithLatencyBuckets(buckets []float64) Option {
	return func(m *Manager) {
		if b := sortedBuckets(buckets); b != nil {
			m.latencyBuckets = b
		}
	}
}

// WithDurationBuckets sets the second buckets of the prediction duration
// histogram. Predictions are pure arithmetic, so the defaults start at 100ns.
func WithDurationBuckets(buckets []float64) Option {
	return func(m *Manager) {
		if b := sortedBuckets(buckets); b != nil {
			m.durationBuckets = b
		}
	}
}

// WithMinutesBuckets sets the buckets of the predicted marathon minutes histogram.
func WithMinutesBuckets(buckets []float64) Option {
	return func(m *Manager) {
		if b := sortedBuckets(buckets); b != nil {
			m.minutesBuckets = b
		}
	}
}

// sortedBuckets returns a sorted copy, or nil for an empty layout.
func sortedBuckets(buckets []float64) []float64 {
	if len(buckets) == 0 {
		return nil
	}
	b := append([]float64(nil), buckets...)
	sort.Float64s(b)
	return b
}

// WithMetricsEnabled enables or disables recording through the package functions.
func WithMetricsEnabled(enabled bool) Option {
	return func(m *Manager) {
		m.enabled = enabled
	}
}

// WithRefreshInterval sets the interval for refreshing service gauges.
func WithRefreshInterval(interval time.Duration) Option {
	return func(m *Manager) {
		if interval > 0 {
			m.refreshInterval = interval
		}
	}
}

// WithCustomLabels adds constant labels to all metrics, e.g. the deployment.
func WithCustomLabels(labels map[string]string) Option {
	return func(m *Manager) {
		if labels != nil {
			m.customLabels = labels
		}
	}
}

// WithMetricPrefix prefixes every metric name after the subsystem.
func WithMetricPrefix(prefix string) Option {
	return func(m *Manager) {
		if prefix != "" {
			m.metricPrefix = prefix
		}
	}
}

// WithPrometheusRegistry registers the collectors on registry instead of the
// default registerer.
func WithPrometheusRegistry(registry prometheus.Registerer) Option {
	return func(m *Manager) {
		if registry != nil {
			m.registry = registry
		}
	}
}
