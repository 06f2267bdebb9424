// Package metrics exposes Prometheus counters for the run lifecycle.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "apirush"

// Metrics holds the instrument set for one run. All methods are nil-safe
// so callers can keep metrics optional without guarding every call site.
type Metrics struct {
	registry *prometheus.Registry

	attemptsTotal     *prometheus.CounterVec
	requestsSucceeded prometheus.Counter
	requestsFailed    prometheus.Counter
	retriesTotal      prometheus.Counter
	inFlight          prometheus.Gauge
	attemptDuration   prometheus.Histogram
	proxyFailures     *prometheus.CounterVec
}

// New creates a metric set backed by its own registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		attemptsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "attempts_total",
			Help:      "HTTP attempts made, by outcome",
		}, []string{"outcome"}),
		requestsSucceeded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_succeeded_total",
			Help:      "Logical requests that completed successfully",
		}),
		requestsFailed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_failed_total",
			Help:      "Logical requests that exhausted their attempts",
		}),
		retriesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retries_total",
			Help:      "Attempts made beyond the first per logical request",
		}),
		inFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "attempts_in_flight",
			Help:      "Attempts currently executing",
		}),
		attemptDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "attempt_duration_seconds",
			Help:      "Wall time of individual attempts",
			Buckets:   prometheus.DefBuckets,
		}),
		proxyFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "proxy_failures_total",
			Help:      "Failures reported against proxy endpoints, by provider",
		}, []string{"provider"}),
	}
}

// Registry exposes the backing registry for the monitoring server.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) AttemptStarted() {
	if m == nil {
		return
	}
	m.inFlight.Inc()
}

func (m *Metrics) AttemptFinished(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.inFlight.Dec()
	m.attemptsTotal.WithLabelValues(outcome).Inc()
	m.attemptDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) RequestSucceeded() {
	if m == nil {
		return
	}
	m.requestsSucceeded.Inc()
}

func (m *Metrics) RequestFailed() {
	if m == nil {
		return
	}
	m.requestsFailed.Inc()
}

func (m *Metrics) RetryScheduled() {
	if m == nil {
		return
	}
	m.retriesTotal.Inc()
}

func (m *Metrics) ProxyFailure(provider string) {
	if m == nil {
		return
	}
	m.proxyFailures.WithLabelValues(provider).Inc()
}
