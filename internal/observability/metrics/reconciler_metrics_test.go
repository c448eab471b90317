package metrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func newTestMetrics(t *testing.T) (*ReconcilerMetrics, *prometheus.Registry) {
	t.Helper()
	registry := prometheus.NewRegistry()
	m := newReconcilerMetrics(registry, Config{ServiceName: "licenza", Environment: "test"})
	return m, registry
}

func TestJobCountersCarryConstLabels(t *testing.T) {
	m, registry := newTestMetrics(t)

	m.IncJobRun("settlement_sweep")
	m.IncJobRun("settlement_sweep")
	m.IncJobTimeout("settlement_sweep")

	labels := map[string]string{
		"service": "licenza",
		"env":     "test",
		"job":     "settlement_sweep",
	}
	if got := getCounterValue(t, registry, "licenza_reconciler_job_runs_total", labels); got != 2 {
		t.Fatalf("expected 2 job runs, got %v", got)
	}
	if got := getCounterValue(t, registry, "licenza_reconciler_job_timeouts_total", labels); got != 1 {
		t.Fatalf("expected 1 timeout, got %v", got)
	}
}

func TestJobErrorReasonClassification(t *testing.T) {
	m, registry := newTestMetrics(t)

	m.IncJobError("settlement_sweep", context.DeadlineExceeded)
	m.IncJobError("settlement_sweep", errors.New("boom"))

	deadline := map[string]string{
		"service": "licenza",
		"env":     "test",
		"job":     "settlement_sweep",
		"reason":  ReconcilerJobReasonDeadlineExceeded,
	}
	if got := getCounterValue(t, registry, "licenza_reconciler_job_errors_total", deadline); got != 1 {
		t.Fatalf("expected 1 deadline error, got %v", got)
	}

	unknown := map[string]string{
		"service": "licenza",
		"env":     "test",
		"job":     "settlement_sweep",
		"reason":  ReconcilerJobReasonUnknown,
	}
	if got := getCounterValue(t, registry, "licenza_reconciler_job_errors_total", unknown); got != 1 {
		t.Fatalf("expected 1 unknown error, got %v", got)
	}
}

func TestConfirmationAndGatewayCounters(t *testing.T) {
	m, registry := newTestMetrics(t)

	m.IncConfirmation(ConfirmationSourceManual)
	m.IncConfirmation(ConfirmationSourceGateway)
	m.IncConfirmation(ConfirmationSourceGateway)
	m.ObserveGatewayCall("get_invoice", 20*time.Millisecond, nil)
	m.ObserveGatewayCall("get_invoice", 20*time.Millisecond, errors.New("status 500"))

	manual := map[string]string{"service": "licenza", "env": "test", "source": ConfirmationSourceManual}
	if got := getCounterValue(t, registry, "licenza_batch_confirmations_total", manual); got != 1 {
		t.Fatalf("expected 1 manual confirmation, got %v", got)
	}
	gateway := map[string]string{"service": "licenza", "env": "test", "source": ConfirmationSourceGateway}
	if got := getCounterValue(t, registry, "licenza_batch_confirmations_total", gateway); got != 2 {
		t.Fatalf("expected 2 gateway confirmations, got %v", got)
	}

	ok := map[string]string{"service": "licenza", "env": "test", "operation": "get_invoice", "outcome": "ok"}
	if got := getCounterValue(t, registry, "licenza_gateway_requests_total", ok); got != 1 {
		t.Fatalf("expected 1 ok gateway request, got %v", got)
	}
	failed := map[string]string{"service": "licenza", "env": "test", "operation": "get_invoice", "outcome": "error"}
	if got := getCounterValue(t, registry, "licenza_gateway_requests_total", failed); got != 1 {
		t.Fatalf("expected 1 failed gateway request, got %v", got)
	}
}

func TestNilReceiverIsSafe(t *testing.T) {
	var m *ReconcilerMetrics
	m.IncJobRun("x")
	m.IncJobError("x", errors.New("boom"))
	m.IncConfirmation(ConfirmationSourceManual)
	m.ObserveGatewayCall("x", time.Millisecond, nil)
	m.ObserveRunLoopLag(time.Millisecond)
}

func getCounterValue(t *testing.T, registry *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	metricFamilies, err := registry.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for _, mf := range metricFamilies {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.Metric {
			if !labelsMatch(metric, labels) {
				continue
			}
			if metric.Counter == nil {
				t.Fatalf("metric %s is not a counter", name)
			}
			return metric.GetCounter().GetValue()
		}
	}
	t.Fatalf("metric %s with labels %v not found", name, labels)
	return 0
}

func labelsMatch(metric *dto.Metric, labels map[string]string) bool {
	if len(metric.Label) != len(labels) {
		return false
	}
	for _, label := range metric.Label {
		if labels[label.GetName()] != label.GetValue() {
			return false
		}
	}
	return true
}
