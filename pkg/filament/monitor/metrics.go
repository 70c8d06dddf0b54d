package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes the core's counters as prometheus collectors.
//
// Registration is opt-in: the server works without a registry, and tests can
// use their own to avoid global-state collisions.
type Metrics struct {
	RequestsTotal  prometheus.Counter
	ResponsesTotal *prometheus.CounterVec
	WorkerPanics   prometheus.Counter
	PoolOverloads  prometheus.Counter
	WorkersLive    prometheus.Gauge
	OpenConns      prometheus.Gauge
}

// NewMetrics creates the collector set. namespace is prefixed to every metric
// name ("filament" is a sensible default).
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		RequestsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Requests parsed off connections.",
		}),
		ResponsesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "responses_total",
			Help:      "Responses written, by status class.",
		}, []string{"class"}),
		WorkerPanics: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "worker_panics_total",
			Help:      "Pool workers replaced after a panic.",
		}),
		PoolOverloads: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pool_overloads_total",
			Help:      "Tasks that waited more than the overload threshold in the queue.",
		}),
		WorkersLive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "workers_live",
			Help:      "Current worker count in the thread pool.",
		}),
		OpenConns: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "open_connections",
			Help:      "Connections currently owned by a driver.",
		}),
	}
}

// Register registers all collectors with the given registerer.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{
		m.RequestsTotal, m.ResponsesTotal, m.WorkerPanics,
		m.PoolOverloads, m.WorkersLive, m.OpenConns,
	} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// StatusClass buckets a status code for the responses counter.
func StatusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "1xx"
	}
}
