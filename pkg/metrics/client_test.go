package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestClientMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewClientMetrics(reg)

	metrics.IncRealtimeEvent("model", "nested")
	metrics.IncRealtimeEvent("model", "nested")
	metrics.IncToast("notification")
	metrics.IncRetry("notifications.list")
	metrics.ObserveRequest("notifications.list", 200, 150*time.Millisecond)
	metrics.ObserveRequest("notifications.list", 0, time.Millisecond)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "propnest_client_realtime_events_total", "shape", "nested"); err != nil {
		t.Fatalf("fetch events: %v", err)
	} else if got != 2 {
		t.Fatalf("expected events=2, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "propnest_client_toasts_total", "kind", "notification"); err != nil {
		t.Fatalf("fetch toasts: %v", err)
	} else if got != 1 {
		t.Fatalf("expected toasts=1, got %f", got)
	}

	if got, err := fetchHistogramSum(mfs, "propnest_client_request_duration_seconds", "status", "200"); err != nil {
		t.Fatalf("fetch duration: %v", err)
	} else if got <= 0 {
		t.Fatalf("expected duration sum > 0, got %f", got)
	}

	if _, err := fetchHistogramSum(mfs, "propnest_client_request_duration_seconds", "status", "error"); err != nil {
		t.Fatalf("expected transport failures under status=error: %v", err)
	}
}

func TestNilClientMetricsIsNoop(t *testing.T) {
	var metrics *ClientMetrics
	metrics.IncToast("notification")
	metrics.ObserveRequest("x", 200, time.Second)

	NewClientMetrics(nil).IncRealtimeRejected("user")
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetHistogram().GetSampleSum(), nil
		}
	}
	return 0, fmt.Errorf("histogram %q missing label %s=%s", name, label, value)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabel(labels []*dto.LabelPair, name, value string) bool {
	for _, label := range labels {
		if label.GetName() == name && label.GetValue() == value {
			return true
		}
	}
	return false
}
