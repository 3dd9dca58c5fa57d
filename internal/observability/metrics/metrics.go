package metrics

import "github.com/prometheus/client_golang/prometheus"

// IntakeMetrics exposes counters/histograms for the conversation flow.
type IntakeMetrics struct {
	turnsTotal     *prometheus.CounterVec
	llmLatency     prometheus.Histogram
	leadsSaved     prometheus.Counter
	leadsSkipped   *prometheus.CounterVec
	extractionHits *prometheus.CounterVec
}

func NewIntakeMetrics(reg prometheus.Registerer) *IntakeMetrics {
	m := &IntakeMetrics{
		turnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dental",
			Subsystem: "intake",
			Name:      "turns_total",
			Help:      "Total processed conversation turns",
		}, []string{"channel", "status"}),
		llmLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "dental",
			Subsystem: "intake",
			Name:      "llm_latency_seconds",
			Help:      "Latency of chat model completions",
			Buckets:   prometheus.DefBuckets,
		}),
		leadsSaved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dental",
			Subsystem: "intake",
			Name:      "leads_saved_total",
			Help:      "Total leads persisted from conversations",
		}),
		leadsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dental",
			Subsystem: "intake",
			Name:      "leads_skipped_total",
			Help:      "Lead persistence attempts that did not write a row",
		}, []string{"reason"}),
		extractionHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dental",
			Subsystem: "intake",
			Name:      "extraction_hits_total",
			Help:      "Memory slots newly filled by the extractor",
		}, []string{"slot"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.turnsTotal, m.llmLatency, m.leadsSaved, m.leadsSkipped, m.extractionHits)
	return m
}

func (m *IntakeMetrics) ObserveTurn(channel, status string) {
	if m == nil {
		return
	}
	m.turnsTotal.WithLabelValues(channel, status).Inc()
}

func (m *IntakeMetrics) ObserveLLMLatency(seconds float64) {
	if m == nil {
		return
	}
	m.llmLatency.Observe(seconds)
}

func (m *IntakeMetrics) ObserveLeadSaved() {
	if m == nil {
		return
	}
	m.leadsSaved.Inc()
}

func (m *IntakeMetrics) ObserveLeadSkipped(reason string) {
	if m == nil {
		return
	}
	m.leadsSkipped.WithLabelValues(reason).Inc()
}

func (m *IntakeMetrics) ObserveExtractionHit(slot string) {
	if m == nil {
		return
	}
	m.extractionHits.WithLabelValues(slot).Inc()
}
