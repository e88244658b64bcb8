package stepwire

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	dirEncode = "encode"
	dirDecode = "decode"
)

type metrics struct {
	items       *prometheus.CounterVec
	bytes       *prometheus.CounterVec
	suspensions *prometheus.CounterVec
	failures    *prometheus.CounterVec
}

func newMetrics(registerer prometheus.Registerer, namespace, subsystem string) *metrics {
	m := metrics{
		items: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "items",
			Help:      "Number of items fully encoded or decoded",
		}, []string{"direction"}),
		bytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "bytes",
			Help:      "Number of bytes written or read",
		}, []string{"direction"}),
		suspensions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "suspensions",
			Help:      "Number of times an item was suspended waiting for I/O",
		}, []string{"direction"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "failures",
			Help:      "Number of terminal stream failures",
		}, []string{"direction", "kind"}),
	}

	if registerer != nil {
		registerer = prometheus.WrapRegistererWith(
			prometheus.Labels{"component": "stepwire"},
			registerer,
		)
		m.items = register(registerer, m.items)
		m.bytes = register(registerer, m.bytes)
		m.suspensions = register(registerer, m.suspensions)
		m.failures = register(registerer, m.failures)
	}

	return &m
}

// register returns the collector already registered under the same
// descriptor, so several streams can share one registry.
func register[C prometheus.Collector](r prometheus.Registerer, c C) C {
	err := r.Register(c)
	if err == nil {
		return c
	}
	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(C); ok {
			return existing
		}
	}
	panic(err)
}

func (m *metrics) failed(direction string, err error) {
	kind := string(KindOf(err))
	if kind == "" {
		kind = "io"
	}
	m.failures.WithLabelValues(direction, kind).Inc()
}
