package registry

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	opens       *prometheus.CounterVec
	open        prometheus.Gauge
	readBytes   prometheus.Counter
	writeBytes  prometheus.Counter
	systemCalls prometheus.Counter
}

func newMetrics(namespace string) *metrics {
	return &metrics{
		opens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "opens_total",
			Help:      "Open attempts by plugin and result.",
		}, []string{"plugin", "result"}),
		open: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "open_descriptors",
			Help:      "Descriptors currently open.",
		}),
		readBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "read_bytes_total",
			Help:      "Bytes read through descriptors.",
		}),
		writeBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "written_bytes_total",
			Help:      "Bytes written through descriptors.",
		}),
		systemCalls: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "system_commands_total",
			Help:      "System commands forwarded to plugins.",
		}),
	}
}

func (m *metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{m.opens, m.open, m.readBytes, m.writeBytes, m.systemCalls}
}

// register adds every collector to r. A collector that is already
// registered is reused, so several registries can share one registerer.
func (m *metrics) register(r prometheus.Registerer) error {
	if r == nil {
		return nil
	}
	for _, c := range m.collectors() {
		if err := r.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if !errors.As(err, &are) {
				return err
			}
			m.adopt(c, are.ExistingCollector)
		}
	}
	return nil
}

func (m *metrics) adopt(mine, existing prometheus.Collector) {
	switch mine {
	case m.opens:
		if v, ok := existing.(*prometheus.CounterVec); ok {
			m.opens = v
		}
	case m.open:
		if v, ok := existing.(prometheus.Gauge); ok {
			m.open = v
		}
	case m.readBytes:
		if v, ok := existing.(prometheus.Counter); ok {
			m.readBytes = v
		}
	case m.writeBytes:
		if v, ok := existing.(prometheus.Counter); ok {
			m.writeBytes = v
		}
	case m.systemCalls:
		if v, ok := existing.(prometheus.Counter); ok {
			m.systemCalls = v
		}
	}
}
