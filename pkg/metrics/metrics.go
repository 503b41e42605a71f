package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the daemon's Prometheus collectors. Each composition
// root creates its own instance; there is no package-level registry.
type Metrics struct {
	registry *prometheus.Registry

	TasksTotal        *prometheus.CounterVec
	ActiveTasks       prometheus.Gauge
	ReplansTotal      prometheus.Counter
	SecurityBlocks    prometheus.Counter
	SubscriberDrops   prometheus.Counter
	InferenceDuration *prometheus.HistogramVec
}

// New registers the daemon collectors on a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		TasksTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "remotepilot",
			Name:      "tasks_total",
			Help:      "Tasks finished, by terminal status.",
		}, []string{"status"}),
		ActiveTasks: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "remotepilot",
			Name:      "active_tasks",
			Help:      "Lifecycle workers currently running.",
		}),
		ReplansTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "remotepilot",
			Name:      "replans_total",
			Help:      "Re-planning pivots triggered by failed verification.",
		}),
		SecurityBlocks: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "remotepilot",
			Name:      "security_blocks_total",
			Help:      "Plans rejected by the security screen.",
		}),
		SubscriberDrops: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "remotepilot",
			Name:      "subscriber_drops_total",
			Help:      "Event subscribers dropped for falling behind.",
		}),
		InferenceDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "remotepilot",
			Name:      "inference_request_duration_seconds",
			Help:      "Latency of inference endpoint calls, by operation.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
	}
}

// Handler exposes the registry in Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
