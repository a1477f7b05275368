package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects task and dev-server counters on a private registry.
// It satisfies dag.Observer.
type Metrics struct {
	registry     *prometheus.Registry
	taskRuns     *prometheus.CounterVec
	taskDuration *prometheus.HistogramVec
	reloads      *prometheus.CounterVec
	watchEvents  *prometheus.CounterVec
	clients      prometheus.Gauge
}

// New creates and registers the collectors
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		taskRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sitebuild_task_runs_total",
				Help: "Total number of leaf task runs",
			},
			[]string{"task", "result"},
		),
		taskDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sitebuild_task_duration_seconds",
				Help:    "Duration of leaf task runs",
				Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
			},
			[]string{"task"},
		),
		reloads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sitebuild_livereload_notifications_total",
				Help: "Live-reload notifications sent to browsers",
			},
			[]string{"type"},
		),
		watchEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sitebuild_watch_events_total",
				Help: "Debounced filesystem changes handled by the watch loop",
			},
			[]string{"watch"},
		),
		clients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sitebuild_livereload_clients",
			Help: "Browsers currently connected for live reload",
		}),
	}

	m.registry.MustRegister(m.taskRuns, m.taskDuration, m.reloads, m.watchEvents, m.clients)
	return m
}

// TaskStarted is part of dag.Observer
func (m *Metrics) TaskStarted(string) {}

// TaskFinished records the outcome of a leaf task run
func (m *Metrics) TaskFinished(name string, duration time.Duration, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	m.taskRuns.WithLabelValues(name, result).Inc()
	m.taskDuration.WithLabelValues(name).Observe(duration.Seconds())
}

// ReloadSent counts a live-reload broadcast of the given type
func (m *Metrics) ReloadSent(kind string) {
	m.reloads.WithLabelValues(kind).Inc()
}

// WatchTriggered counts a change handled by the named watch
func (m *Metrics) WatchTriggered(watch string) {
	m.watchEvents.WithLabelValues(watch).Inc()
}

// ClientConnected tracks live-reload connections
func (m *Metrics) ClientConnected() { m.clients.Inc() }

// ClientDisconnected tracks live-reload connections
func (m *Metrics) ClientDisconnected() { m.clients.Dec() }

// Registry exposes the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the metrics in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
