package graph

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exposes Prometheus-compatible instrumentation for scheduler
// activity, namespaced "fngraph_". Adapted from the teacher's
// PrometheusMetrics, trimmed to the signals this scheduler actually
// produces: inflight task count, queue depth, task outcome totals, and
// per-invocation duration.
type Metrics struct {
	inflightTasks prometheus.Gauge
	queueDepth    prometheus.Gauge

	tasksTotal          *prometheus.CounterVec
	invocationDurations *prometheus.HistogramVec

	mu      sync.RWMutex
	enabled bool
}

// NewMetrics registers fngraph's metrics against registerer (the global
// registry if nil).
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registerer)

	m := &Metrics{enabled: true}

	m.inflightTasks = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: "fngraph",
		Name:      "inflight_tasks",
		Help:      "Current number of dispatch jobs executing concurrently",
	})

	m.queueDepth = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: "fngraph",
		Name:      "queue_depth",
		Help:      "Number of dispatch jobs waiting to be scheduled",
	})

	m.tasksTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fngraph",
		Name:      "tasks_total",
		Help:      "Cumulative count of dispatch jobs by node and outcome",
	}, []string{"node_id", "outcome"}) // outcome: success, error

	m.invocationDurations = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "fngraph",
		Name:      "invocation_duration_seconds",
		Help:      "End-to-end invocation duration in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"graph_name", "outcome"}) // outcome: success, error

	return m
}

// UpdateInflightTasks sets the current count of in-flight dispatch jobs.
func (m *Metrics) UpdateInflightTasks(n int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.enabled {
		return
	}
	m.inflightTasks.Set(float64(n))
}

// UpdateQueueDepth sets the current count of queued dispatch jobs.
func (m *Metrics) UpdateQueueDepth(n int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.enabled {
		return
	}
	m.queueDepth.Set(float64(n))
}

// RecordTask increments the task outcome counter for nodeID.
func (m *Metrics) RecordTask(nodeID, outcome string) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.enabled {
		return
	}
	m.tasksTotal.WithLabelValues(nodeID, outcome).Inc()
}

// RecordInvocation observes the duration of a completed invocation.
func (m *Metrics) RecordInvocation(graphName, outcome string, d time.Duration) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.enabled {
		return
	}
	m.invocationDurations.WithLabelValues(graphName, outcome).Observe(d.Seconds())
}

// Disable stops metric recording.
func (m *Metrics) Disable() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enabled = false
}
