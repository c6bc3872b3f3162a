// Package metrics exposes the prometheus collectors a Context reports: a
// plain struct of pre-built collectors registered together via a thin
// Describe/Collect delegation rather than relying on a global registry.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics groups the counters and gauges one Context's Port, Client and
// Server update while they run.
type Metrics struct {
	collectors []prometheus.Collector

	SlotsInUse      prometheus.Gauge
	CallsInFlight   prometheus.Gauge
	RegistrySize    prometheus.Gauge
	DispatchLatency *prometheus.HistogramVec
	Errors          *prometheus.CounterVec
}

// New builds a Metrics set under namespace, ready to be registered with a
// prometheus.Registerer.
func New(namespace string) *Metrics {
	m := &Metrics{
		SlotsInUse: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "call_slots_in_use",
			Help:      "Call slots currently checked out by the Client.",
		}),
		CallsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "calls_in_flight",
			Help:      "Outbound calls awaiting a response.",
		}),
		RegistrySize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "registry_size",
			Help:      "Service objects currently exported by this Port.",
		}),
		DispatchLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dispatch_latency_seconds",
			Help:      "Time a Server worker spent on one inbound call.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"service_id", "method"}),
		Errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Errors observed, by kind.",
		}, []string{"kind"}),
	}
	m.collectors = []prometheus.Collector{
		m.SlotsInUse, m.CallsInFlight, m.RegistrySize, m.DispatchLatency, m.Errors,
	}
	return m
}

// Describe implements prometheus.Collector.
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	for _, c := range m.collectors {
		c.Describe(ch)
	}
}

// Collect implements prometheus.Collector.
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	for _, c := range m.collectors {
		c.Collect(ch)
	}
}

var _ prometheus.Collector = (*Metrics)(nil)
