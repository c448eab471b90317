package metrics

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Config carries constant labels applied to every metric.
type Config struct {
	ServiceName string
	Environment string
}

const (
	ReconcilerJobReasonDeadlineExceeded = "deadline_exceeded"
	ReconcilerJobReasonGateway          = "gateway"
	ReconcilerJobReasonDB               = "db"
	ReconcilerJobReasonUnknown          = "unknown"
)

const (
	ConfirmationSourceManual  = "manual"
	ConfirmationSourceGateway = "gateway"
)

// ReconcilerMetrics captures payment reconciliation health signals.
type ReconcilerMetrics struct {
	jobRuns        *prometheus.CounterVec
	jobDuration    *prometheus.HistogramVec
	jobTimeouts    *prometheus.CounterVec
	jobErrors      *prometheus.CounterVec
	batchesSwept   *prometheus.CounterVec
	confirmations  *prometheus.CounterVec
	gatewayCalls   *prometheus.CounterVec
	gatewayLatency *prometheus.HistogramVec
	runLoopLag     prometheus.Observer
}

var (
	reconcilerMetricsOnce sync.Once
	reconcilerMetrics     *ReconcilerMetrics
)

// Reconciler returns the singleton reconciler metrics registry.
func Reconciler() *ReconcilerMetrics {
	return ReconcilerWithConfig(Config{})
}

// ReconcilerWithConfig returns the singleton reconciler metrics registry using config labels.
func ReconcilerWithConfig(cfg Config) *ReconcilerMetrics {
	reconcilerMetricsOnce.Do(func() {
		reconcilerMetrics = newReconcilerMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return reconcilerMetrics
}

func newReconcilerMetrics(registerer prometheus.Registerer, cfg Config) *ReconcilerMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "licenza"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	jobRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "licenza_reconciler_job_runs_total",
		Help:        "Reconciler job runs by name.",
		ConstLabels: constLabels,
	}, []string{"job"})
	jobDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        "licenza_reconciler_job_duration_seconds",
		Help:        "Reconciler job latency to keep settlement freshness within SLOs.",
		Buckets:     []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		ConstLabels: constLabels,
	}, []string{"job"})
	jobTimeouts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "licenza_reconciler_job_timeouts_total",
		Help:        "Reconciler job timeouts that delay batch activation.",
		ConstLabels: constLabels,
	}, []string{"job"})
	jobErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "licenza_reconciler_job_errors_total",
		Help:        "Reconciler job errors by low-cardinality reason.",
		ConstLabels: constLabels,
	}, []string{"job", "reason"})
	batchesSwept := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "licenza_reconciler_batches_swept_total",
		Help:        "Batches checked against the gateway per sweep job.",
		ConstLabels: constLabels,
	}, []string{"job"})
	confirmations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "licenza_batch_confirmations_total",
		Help:        "Batch payment confirmations by source.",
		ConstLabels: constLabels,
	}, []string{"source"})
	gatewayCalls := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "licenza_gateway_requests_total",
		Help:        "Payment gateway requests by operation and outcome.",
		ConstLabels: constLabels,
	}, []string{"operation", "outcome"})
	gatewayLatency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        "licenza_gateway_request_duration_seconds",
		Help:        "Payment gateway request latency.",
		Buckets:     []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		ConstLabels: constLabels,
	}, []string{"operation"})
	runLoopLag := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:        "licenza_reconciler_runloop_lag_seconds",
		Help:        "Reconciler run loop lag beyond the configured interval.",
		Buckets:     []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		ConstLabels: constLabels,
	})

	registerer.MustRegister(
		jobRuns,
		jobDuration,
		jobTimeouts,
		jobErrors,
		batchesSwept,
		confirmations,
		gatewayCalls,
		gatewayLatency,
		runLoopLag,
	)

	return &ReconcilerMetrics{
		jobRuns:        jobRuns,
		jobDuration:    jobDuration,
		jobTimeouts:    jobTimeouts,
		jobErrors:      jobErrors,
		batchesSwept:   batchesSwept,
		confirmations:  confirmations,
		gatewayCalls:   gatewayCalls,
		gatewayLatency: gatewayLatency,
		runLoopLag:     runLoopLag,
	}
}

func (m *ReconcilerMetrics) IncJobRun(job string) {
	if m == nil {
		return
	}
	m.jobRuns.WithLabelValues(job).Inc()
}

func (m *ReconcilerMetrics) ObserveJobDuration(job string, d time.Duration) {
	if m == nil {
		return
	}
	m.jobDuration.WithLabelValues(job).Observe(d.Seconds())
}

func (m *ReconcilerMetrics) IncJobTimeout(job string) {
	if m == nil {
		return
	}
	m.jobTimeouts.WithLabelValues(job).Inc()
}

func (m *ReconcilerMetrics) IncJobError(job string, err error) {
	if m == nil {
		return
	}
	m.jobErrors.WithLabelValues(job, reasonFromError(err)).Inc()
}

func (m *ReconcilerMetrics) AddBatchesSwept(job string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.batchesSwept.WithLabelValues(job).Add(float64(n))
}

func (m *ReconcilerMetrics) IncConfirmation(source string) {
	if m == nil {
		return
	}
	m.confirmations.WithLabelValues(source).Inc()
}

func (m *ReconcilerMetrics) ObserveGatewayCall(operation string, d time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.gatewayCalls.WithLabelValues(operation, outcome).Inc()
	m.gatewayLatency.WithLabelValues(operation).Observe(d.Seconds())
}

func (m *ReconcilerMetrics) ObserveRunLoopLag(lag time.Duration) {
	if m == nil || m.runLoopLag == nil {
		return
	}
	m.runLoopLag.Observe(lag.Seconds())
}

func reasonFromError(err error) string {
	switch {
	case err == nil:
		return ReconcilerJobReasonUnknown
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return ReconcilerJobReasonDeadlineExceeded
	default:
		return ReconcilerJobReasonUnknown
	}
}
