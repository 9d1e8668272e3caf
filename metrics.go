package wakeonwrite

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

type (
	metrics struct {
		polls   *prometheus.CounterVec
		wakes   *prometheus.CounterVec
		pending prometheus.Gauge
	}
)

func newMetrics(registerer prometheus.Registerer) (*metrics, error) {
	m := metrics{
		polls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "wakeonwrite",
				Subsystem: "scheduler",
				Name:      "polls_total",
				Help:      "Total number of task polls",
			},
			[]string{"key"},
		),
		wakes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "wakeonwrite",
				Subsystem: "scheduler",
				Name:      "wakes_total",
				Help:      "Total number of task wakes, excluding those coalesced with a pending wake",
			},
			[]string{"key"},
		),
		pending: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "wakeonwrite",
				Subsystem: "scheduler",
				Name:      "pending_tasks",
				Help:      "Number of tasks which have not completed",
			},
		),
	}

	for _, c := range []prometheus.Collector{m.polls, m.wakes, m.pending} {
		if err := registerer.Register(c); err != nil {
			return nil, fmt.Errorf(`wakeonwrite: register metrics: %w`, err)
		}
	}

	return &m, nil
}

func (x *metrics) label(key any) string {
	return fmt.Sprint(key)
}
