package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "propnest_client"

// ClientMetrics records realtime, toast and request activity for the client runtime.
type ClientMetrics struct {
	realtimeEvents   *prometheus.CounterVec
	realtimeRejected *prometheus.CounterVec
	toasts           *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	requestRetries   *prometheus.CounterVec
	connections      *prometheus.CounterVec
}

// NewClientMetrics registers the client metrics on the provided registerer.
// A nil registerer yields a no-op collector.
func NewClientMetrics(reg prometheus.Registerer) *ClientMetrics {
	if reg == nil {
		return &ClientMetrics{}
	}
	realtimeEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "realtime_events_total",
		Help:      "Realtime notification events received, by channel convention and payload shape.",
	}, []string{"convention", "shape"})
	realtimeRejected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "realtime_events_rejected_total",
		Help:      "Realtime payloads that could not be decoded into a notification.",
	}, []string{"convention"})
	toasts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "toasts_total",
		Help:      "Toasts surfaced to the user.",
	}, []string{"kind"})
	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "request_duration_seconds",
		Help:      "Backend request duration in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"endpoint", "status"})
	requestRetries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "request_retries_total",
		Help:      "Backend request retries.",
	}, []string{"endpoint"})
	connections := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "realtime_connections_total",
		Help:      "Realtime connection attempts by outcome.",
	}, []string{"outcome"})
	reg.MustRegister(realtimeEvents, realtimeRejected, toasts, requestDuration, requestRetries, connections)
	return &ClientMetrics{
		realtimeEvents:   realtimeEvents,
		realtimeRejected: realtimeRejected,
		toasts:           toasts,
		requestDuration:  requestDuration,
		requestRetries:   requestRetries,
		connections:      connections,
	}
}

// IncRealtimeEvent counts a decoded realtime notification.
func (c *ClientMetrics) IncRealtimeEvent(convention, shape string) {
	if c == nil || c.realtimeEvents == nil {
		return
	}
	c.realtimeEvents.WithLabelValues(normalizeLabel(convention), normalizeLabel(shape)).Inc()
}

// IncRealtimeRejected counts a payload the subscriber could not decode.
func (c *ClientMetrics) IncRealtimeRejected(convention string) {
	if c == nil || c.realtimeRejected == nil {
		return
	}
	c.realtimeRejected.WithLabelValues(normalizeLabel(convention)).Inc()
}

// IncToast counts a surfaced toast.
func (c *ClientMetrics) IncToast(kind string) {
	if c == nil || c.toasts == nil {
		return
	}
	c.toasts.WithLabelValues(normalizeLabel(kind)).Inc()
}

// ObserveRequest records the duration of a backend call.
func (c *ClientMetrics) ObserveRequest(endpoint string, status int, duration time.Duration) {
	if c == nil || c.requestDuration == nil {
		return
	}
	c.requestDuration.WithLabelValues(normalizeLabel(endpoint), statusLabel(status)).Observe(duration.Seconds())
}

// IncRetry counts a retried backend call.
func (c *ClientMetrics) IncRetry(endpoint string) {
	if c == nil || c.requestRetries == nil {
		return
	}
	c.requestRetries.WithLabelValues(normalizeLabel(endpoint)).Inc()
}

// IncConnection counts a realtime connection attempt.
func (c *ClientMetrics) IncConnection(outcome string) {
	if c == nil || c.connections == nil {
		return
	}
	c.connections.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}

func statusLabel(status int) string {
	if status <= 0 {
		return "error"
	}
	return strconv.Itoa(status)
}
