package cas

import "github.com/prometheus/client_golang/prometheus"

const namespace = "jobmarket"

// Metrics counts content store operations.
type Metrics struct {
	fetches  *prometheus.CounterVec
	failures *prometheus.CounterVec
}

// Fetch sources.
const (
	sourceCache   = "cache"
	sourceGateway = "gateway"
)

// Operations.
const (
	opPublish = "publish"
	opFetch   = "fetch"
	opOpen    = "open"
)

// NewMetrics creates and registers content store metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cas",
			Name:      "fetches_total",
			Help:      "Number of fetched contents by source",
		}, []string{"source"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cas",
			Name:      "failures_total",
			Help:      "Number of failed content store operations",
		}, []string{"operation"}),
	}
	reg.MustRegister(m.fetches, m.failures)
	return m
}

func (m *Metrics) fetched(source string) {
	if m != nil {
		m.fetches.WithLabelValues(source).Inc()
	}
}

func (m *Metrics) failed(op string) {
	if m != nil {
		m.failures.WithLabelValues(op).Inc()
	}
}
