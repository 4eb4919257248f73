package metrics

import "github.com/prometheus/client_golang/prometheus"

// DialogueMetrics exposes counters/histograms for the dialogue engine.
type DialogueMetrics struct {
	turnsTotal      *prometheus.CounterVec
	storeErrors     *prometheus.CounterVec
	intentFallbacks *prometheus.CounterVec
	questionsOpened *prometheus.CounterVec
	turnLatency     prometheus.Histogram
}

func NewDialogueMetrics(reg prometheus.Registerer) *DialogueMetrics {
	m := &DialogueMetrics{
		turnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "autosales",
			Subsystem: "dialogue",
			Name:      "turns_total",
			Help:      "Total processed chat turns",
		}, []string{"intent", "outcome"}),
		storeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "autosales",
			Subsystem: "dialogue",
			Name:      "store_errors_total",
			Help:      "Session store calls that failed and were skipped",
		}, []string{"op"}),
		intentFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "autosales",
			Subsystem: "dialogue",
			Name:      "intent_fallback_total",
			Help:      "Intent classifications that fell back to ambiguous",
		}, []string{"reason"}),
		questionsOpened: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "autosales",
			Subsystem: "dialogue",
			Name:      "questions_opened_total",
			Help:      "Clarification questions opened per slot",
		}, []string{"slot"}),
		turnLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "autosales",
			Subsystem: "dialogue",
			Name:      "turn_latency_seconds",
			Help:      "Latency of a full chat turn",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.turnsTotal, m.storeErrors, m.intentFallbacks, m.questionsOpened, m.turnLatency)
	return m
}

func (m *DialogueMetrics) ObserveTurn(intent, outcome string, seconds float64) {
	if m == nil {
		return
	}
	if intent == "" {
		intent = "none"
	}
	m.turnsTotal.WithLabelValues(intent, outcome).Inc()
	m.turnLatency.Observe(seconds)
}

func (m *DialogueMetrics) ObserveStoreError(op string) {
	if m == nil {
		return
	}
	m.storeErrors.WithLabelValues(op).Inc()
}

func (m *DialogueMetrics) ObserveIntentFallback(reason string) {
	if m == nil {
		return
	}
	m.intentFallbacks.WithLabelValues(reason).Inc()
}

func (m *DialogueMetrics) ObserveQuestionOpened(slot string) {
	if m == nil {
		return
	}
	m.questionsOpened.WithLabelValues(slot).Inc()
}
