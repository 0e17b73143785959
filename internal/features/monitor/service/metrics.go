package service

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricsCollector manages Prometheus metrics for the resilience coordinator
type MetricsCollector struct {
	serviceUpGauge  *prometheus.GaugeVec
	probeLatency    *prometheus.HistogramVec
	connectCounter  *prometheus.CounterVec
	throttleCounter *prometheus.CounterVec
	recoveryCounter *prometheus.CounterVec
	registered      bool
	mu              sync.Mutex
}

// NewMetricsCollector creates a new metrics collector
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		serviceUpGauge: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "web3todo_service_up",
				Help: "Whether the service responded to its last probe (1=up, 0=down)",
			},
			[]string{"service"},
		),
		probeLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "web3todo_probe_duration_seconds",
				Help:    "Duration of health probes per service",
				Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
			},
			[]string{"service"},
		),
		connectCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "web3todo_store_connect_attempts_total",
				Help: "Count of store connect attempts by result",
			},
			[]string{"result"},
		),
		throttleCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "web3todo_ledger_throttle_rejections_total",
				Help: "Count of throttle rejections by operation type and reason",
			},
			[]string{"operation", "reason"},
		),
		recoveryCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "web3todo_recovery_attempts_total",
				Help: "Count of recovery attempts by service and outcome",
			},
			[]string{"service", "success"},
		),
	}
}

// Register registers metrics with Prometheus
func (m *MetricsCollector) Register() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.registered {
		return
	}

	prometheus.MustRegister(m.serviceUpGauge)
	prometheus.MustRegister(m.probeLatency)
	prometheus.MustRegister(m.connectCounter)
	prometheus.MustRegister(m.throttleCounter)
	prometheus.MustRegister(m.recoveryCounter)

	m.registered = true
}

// SetServiceUp updates the up gauge for a service
func (m *MetricsCollector) SetServiceUp(service string, up bool) {
	value := 0.0
	if up {
		value = 1.0
	}
	m.serviceUpGauge.WithLabelValues(service).Set(value)
}

// ObserveProbeDuration records the latency of one probe
func (m *MetricsCollector) ObserveProbeDuration(service string, seconds float64) {
	m.probeLatency.WithLabelValues(service).Observe(seconds)
}

// RecordConnectAttempt records a store connect attempt outcome
func (m *MetricsCollector) RecordConnectAttempt(success bool) {
	result := "failure"
	if success {
		result = "success"
	}
	m.connectCounter.WithLabelValues(result).Inc()
}

// RecordThrottleRejection records a throttler rejection
func (m *MetricsCollector) RecordThrottleRejection(operationType, reason string) {
	m.throttleCounter.WithLabelValues(operationType, reason).Inc()
}

// RecordRecoveryAttempt records a recovery attempt per service
func (m *MetricsCollector) RecordRecoveryAttempt(service string, successful bool) {
	successStr := "false"
	if successful {
		successStr = "true"
	}
	m.recoveryCounter.WithLabelValues(service, successStr).Inc()
}
