package metrics

import "github.com/prometheus/client_golang/prometheus"

// ConversationMetrics exposes counters/histograms for the assistant pipeline.
type ConversationMetrics struct {
	turnsTotal   *prometheus.CounterVec
	turnLatency  *prometheus.HistogramVec
	evictedTotal prometheus.Counter
	cleanedTotal prometheus.Counter
}

func NewConversationMetrics(reg prometheus.Registerer) *ConversationMetrics {
	m := &ConversationMetrics{
		turnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "concierge",
			Subsystem: "conversation",
			Name:      "turns_total",
			Help:      "Processed conversation turns by effective intent and outcome",
		}, []string{"intent", "status"}),
		turnLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "concierge",
			Subsystem: "conversation",
			Name:      "turn_latency_seconds",
			Help:      "Latency of full turn processing",
			Buckets:   prometheus.DefBuckets,
		}, []string{"intent"}),
		evictedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "concierge",
			Subsystem: "conversation",
			Name:      "sessions_evicted_total",
			Help:      "Sessions removed by idle eviction",
		}),
		cleanedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "concierge",
			Subsystem: "store",
			Name:      "appointments_cleaned_total",
			Help:      "Expired appointments removed by cleanup",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.turnsTotal, m.turnLatency, m.evictedTotal, m.cleanedTotal)
	return m
}

func (m *ConversationMetrics) ObserveTurn(intent string, success bool, seconds float64) {
	if m == nil {
		return
	}
	status := "ok"
	if !success {
		status = "failed"
	}
	m.turnsTotal.WithLabelValues(intent, status).Inc()
	m.turnLatency.WithLabelValues(intent).Observe(seconds)
}

func (m *ConversationMetrics) ObserveEvictions(count int) {
	if m == nil || count <= 0 {
		return
	}
	m.evictedTotal.Add(float64(count))
}

func (m *ConversationMetrics) ObserveCleanup(count int) {
	if m == nil || count <= 0 {
		return
	}
	m.cleanedTotal.Add(float64(count))
}
