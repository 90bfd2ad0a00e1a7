package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/aman3729/Credit-Score-sub000/internal/core/domain"
)

// UploadMetrics records upload and retry outcomes.
type UploadMetrics struct {
	service string

	uploadsTotal   *prometheus.CounterVec
	uploadDuration *prometheus.HistogramVec
	records        *prometheus.CounterVec
	failedRecords  *prometheus.HistogramVec
	retryDecisions *prometheus.CounterVec
	breakerState   *prometheus.GaugeVec
}

func NewUploadMetrics(service string, registerer prometheus.Registerer) *UploadMetrics {
	uploadsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "upload",
			Name:      "attempts_total",
			Help:      "Finished upload and retry attempts by terminal state.",
		},
		[]string{"service", "kind", "state"},
	)
	uploadDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "upload",
			Name:      "duration_seconds",
			Help:      "Time from request start to response.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		},
		[]string{"service", "kind"},
	)
	records := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "upload",
			Name:      "records_total",
			Help:      "Records reported by the scoring service by outcome.",
		},
		[]string{"service", "kind", "outcome"},
	)
	failedRecords := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "upload",
			Name:      "failed_records",
			Help:      "Failed records left after an attempt.",
			Buckets:   []float64{0, 1, 5, 10, 50, 100, 500, 1000},
		},
		[]string{"service", "kind"},
	)
	retryDecisions := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "retry",
			Name:      "decisions_total",
			Help:      "Retry requests by decision.",
		},
		[]string{"service", "decision"},
	)
	breakerState := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "resilience",
			Name:      "circuit_open",
			Help:      "1 while the circuit breaker of an operation is not closed.",
		},
		[]string{"service", "operation"},
	)

	registerer.MustRegister(uploadsTotal, uploadDuration, records, failedRecords, retryDecisions, breakerState)

	return &UploadMetrics{
		service:        service,
		uploadsTotal:   uploadsTotal,
		uploadDuration: uploadDuration,
		records:        records,
		failedRecords:  failedRecords,
		retryDecisions: retryDecisions,
		breakerState:   breakerState,
	}
}

func (m *UploadMetrics) ObserveUpload(kind string, state domain.SessionState, result *domain.UploadResult, failed int, elapsedSeconds float64) {
	m.uploadsTotal.WithLabelValues(m.service, kind, string(state)).Inc()
	if elapsedSeconds > 0 {
		m.uploadDuration.WithLabelValues(m.service, kind).Observe(elapsedSeconds)
	}
	m.failedRecords.WithLabelValues(m.service, kind).Observe(float64(failed))
	if result == nil {
		return
	}
	m.records.WithLabelValues(m.service, kind, "success").Add(float64(max(result.Success, 0)))
	m.records.WithLabelValues(m.service, kind, "error").Add(float64(max(result.Errors, 0)))
}

func (m *UploadMetrics) ObserveRetryDecision(decision string) {
	if decision == "" {
		decision = "unknown"
	}
	m.retryDecisions.WithLabelValues(m.service, decision).Inc()
}

func (m *UploadMetrics) ObserveBreakerState(operation string, open bool) {
	value := 0.0
	if open {
		value = 1
	}
	m.breakerState.WithLabelValues(m.service, operation).Set(value)
}
