package triage

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds Prometheus metrics for the triage subsystem.
type Metrics struct {
	PredictionsTotal  *prometheus.CounterVec
	OverridesTotal    *prometheus.CounterVec
	PredictErrors     *prometheus.CounterVec
	CoercionFallbacks *prometheus.CounterVec
	PredictDuration   *prometheus.HistogramVec
	PriorityScore     prometheus.Histogram
	VisitsTotal       *prometheus.CounterVec
}

// NewMetrics registers and returns triage metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		PredictionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "umeed_triage_predictions_total",
			Help: "Total triage predictions by category and final risk label.",
		}, []string{"category", "risk_label"}),
		OverridesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "umeed_triage_overrides_total",
			Help: "Predictions escalated to High by a safety rule.",
		}, []string{"category", "rule"}),
		PredictErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "umeed_triage_predict_errors_total",
			Help: "Pipeline runs that failed in the predictor.",
		}, []string{"category"}),
		CoercionFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "umeed_triage_coercion_fallbacks_total",
			Help: "Feature values replaced with 0 because they were not numeric.",
		}, []string{"category", "field"}),
		PredictDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "umeed_triage_predict_duration_seconds",
			Help:    "Duration of triage pipeline runs in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12), // 0.5ms .. ~1s
		}, []string{"category"}),
		PriorityScore: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "umeed_triage_priority_score",
			Help:    "Priority score per prediction.",
			Buckets: prometheus.LinearBuckets(10, 15, 9), // 10 .. 130
		}),
		VisitsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "umeed_visits_recorded_total",
			Help: "Visit recording attempts by result.",
		}, []string{"result"}),
	}

	reg.MustRegister(
		m.PredictionsTotal,
		m.OverridesTotal,
		m.PredictErrors,
		m.CoercionFallbacks,
		m.PredictDuration,
		m.PriorityScore,
		m.VisitsTotal,
	)

	return m
}

// Hooks returns an EngineHooks that increments the corresponding metrics.
func (m *Metrics) Hooks() EngineHooks {
	return EngineHooks{
		OnPredict: func(e *PredictEvent) {
			cat := string(e.Category)
			m.PredictionsTotal.WithLabelValues(cat, e.FinalClass.Label()).Inc()
			m.PredictDuration.WithLabelValues(cat).Observe(e.Duration)
			m.PriorityScore.Observe(float64(e.PriorityScore))
			if e.OverrideTriggered {
				m.OverridesTotal.WithLabelValues(cat, e.OverrideRule).Inc()
			}
		},
		OnPredictError: func(c Category) {
			m.PredictErrors.WithLabelValues(string(c)).Inc()
		},
		OnCoercionFallback: func(c Category, field string) {
			m.CoercionFallbacks.WithLabelValues(string(c), field).Inc()
		},
	}
}
