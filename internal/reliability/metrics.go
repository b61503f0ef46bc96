package reliability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics tracks routing outcomes per topic, grounded on protoflow's
// DLQMetrics collector shape but scoped to the three router outcomes.
type Metrics struct {
	mu sync.Mutex

	outcomesTotal *prometheus.CounterVec
	retryDelay    *prometheus.HistogramVec

	registerer prometheus.Registerer
	registered bool
}

func newOutcomeCounterVec() *prometheus.CounterVec {
	return prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "eventspine",
			Subsystem: "reliability",
			Name:      "outcomes_total",
			Help:      "Total number of routing outcomes observed, by topic and outcome.",
		},
		[]string{"topic", "outcome"},
	)
}

func newRetryDelayHistogram() *prometheus.HistogramVec {
	return prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "eventspine",
			Subsystem: "reliability",
			Name:      "retry_delay_seconds",
			Help:      "Delay applied before a retry-topic record is handed to its handler.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300},
		},
		[]string{"topic"},
	)
}

// NewMetrics constructs a Metrics collector. Pass nil to use the default
// Prometheus registerer.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	return &Metrics{
		registerer:    registerer,
		outcomesTotal: newOutcomeCounterVec(),
		retryDelay:    newRetryDelayHistogram(),
	}
}

// Register registers the collectors. Safe to call multiple times.
func (m *Metrics) Register() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.registered {
		return nil
	}
	for _, c := range []prometheus.Collector{m.outcomesTotal, m.retryDelay} {
		if err := m.registerer.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}
	m.registered = true
	return nil
}

// ObserveSuccess records a terminal, successful observation.
func (m *Metrics) ObserveSuccess(topic string) {
	m.outcomesTotal.WithLabelValues(topic, OutcomeSuccess.String()).Inc()
}

// ObserveRetry records a republish to a retry topic.
func (m *Metrics) ObserveRetry(topic string) {
	m.outcomesTotal.WithLabelValues(topic, OutcomeRetry.String()).Inc()
}

// ObserveDead records a republish to a dead-letter topic.
func (m *Metrics) ObserveDead(topic string) {
	m.outcomesTotal.WithLabelValues(topic, OutcomeDead.String()).Inc()
}

// ObserveRetryDelaySeconds records how long a retry-topic record waited
// before its handler ran.
func (m *Metrics) ObserveRetryDelaySeconds(topic string, seconds float64) {
	m.retryDelay.WithLabelValues(topic).Observe(seconds)
}
