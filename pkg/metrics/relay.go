package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Drain outcomes.
const (
	OutcomeOK      = "ok"
	OutcomeTimeout = "timeout"
	OutcomeError   = "error"
)

// Repair outcomes.
const (
	RepairRecovered = "recovered"
	RepairFailed    = "failed"
)

// RelayMetrics tracks drains, enqueues and payload repairs.
type RelayMetrics struct {
	drainDuration *prometheus.HistogramVec
	drainedSales  prometheus.Counter
	enqueued      prometheus.Counter
	repairs       *prometheus.CounterVec
}

// NewRelayMetrics registers relay collectors. A nil registerer yields no-op metrics.
func NewRelayMetrics(reg prometheus.Registerer) *RelayMetrics {
	if reg == nil {
		return &RelayMetrics{}
	}
	drainDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "sales_drain_duration_seconds",
		Help:      "Duration of atomic sales drains by outcome.",
		Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
	}, []string{"outcome"})
	drainedSales := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sales_drained_total",
		Help:      "Sales returned by successful drains.",
	})
	enqueued := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sales_enqueued_total",
		Help:      "Sales appended to centre queues.",
	})
	repairs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "payload_repairs_total",
		Help:      "Repair attempts on request bodies that failed strict parsing.",
	}, []string{"outcome"})
	reg.MustRegister(drainDuration, drainedSales, enqueued, repairs)
	return &RelayMetrics{
		drainDuration: drainDuration,
		drainedSales:  drainedSales,
		enqueued:      enqueued,
		repairs:       repairs,
	}
}

// ObserveDrain records one drain attempt.
func (m *RelayMetrics) ObserveDrain(outcome string, duration time.Duration, drained int) {
	if m == nil || m.drainDuration == nil {
		return
	}
	m.drainDuration.WithLabelValues(normalizeLabel(outcome)).Observe(duration.Seconds())
	if drained > 0 {
		m.drainedSales.Add(float64(drained))
	}
}

// IncEnqueued counts one accepted sale.
func (m *RelayMetrics) IncEnqueued() {
	if m == nil || m.enqueued == nil {
		return
	}
	m.enqueued.Inc()
}

// ObserveRepair records whether a repair attempt produced parseable JSON.
func (m *RelayMetrics) ObserveRepair(recovered bool) {
	if m == nil || m.repairs == nil {
		return
	}
	outcome := RepairFailed
	if recovered {
		outcome = RepairRecovered
	}
	m.repairs.WithLabelValues(outcome).Inc()
}
