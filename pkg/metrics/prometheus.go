package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "nichescope"

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	evaluations      *prometheus.CounterVec
	droppedKeywords  *prometheus.CounterVec
	scenarioFailures *prometheus.CounterVec
	providerCalls    *prometheus.CounterVec
	errorsTotal      *prometheus.CounterVec
	nicheScore       prometheus.Histogram
	latency          *prometheus.HistogramVec
}

// New creates a Prometheus metrics recorder registered on reg, or on the default
// registry when reg is nil.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Recorder{
		evaluations: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "evaluations_total",
				Help:      "Niche evaluation runs by outcome",
			},
			[]string{"outcome"},
		),
		droppedKeywords: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "dropped_keywords_total",
				Help:      "Keywords dropped from the candidate pool by pipeline stage",
			},
			[]string{"stage"},
		),
		scenarioFailures: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "scenario_failures_total",
				Help:      "Stress scenarios excluded from aggregation after failing",
			},
			[]string{"scenario"},
		),
		providerCalls: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "provider_calls_total",
				Help:      "Trend and product provider lookups by outcome",
			},
			[]string{"provider", "outcome"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_total",
				Help:      "Total number of errors encountered",
			},
			[]string{"type"},
		),
		nicheScore: f.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "niche_overall_score",
				Help:      "Overall score of ranked niches",
				Buckets:   prometheus.LinearBuckets(0, 10, 11),
			},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "operation_duration_seconds",
				Help:      "Duration of operations in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

func (r *Recorder) RecordEvaluation(outcome string) {
	r.evaluations.WithLabelValues(outcome).Inc()
}

func (r *Recorder) RecordDroppedKeyword(stage string) {
	r.droppedKeywords.WithLabelValues(stage).Inc()
}

func (r *Recorder) RecordScenarioFailure(scenario string) {
	r.scenarioFailures.WithLabelValues(scenario).Inc()
}

func (r *Recorder) RecordNicheScore(score float64) {
	r.nicheScore.Observe(score)
}

func (r *Recorder) RecordProviderCall(provider, outcome string) {
	r.providerCalls.WithLabelValues(provider, outcome).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// Nop discards every measurement.
type Nop struct{}

func (Nop) RecordEvaluation(string)           {}
func (Nop) RecordDroppedKeyword(string)       {}
func (Nop) RecordScenarioFailure(string)      {}
func (Nop) RecordNicheScore(float64)          {}
func (Nop) RecordProviderCall(string, string) {}
func (Nop) RecordError(string)                {}
func (Nop) RecordLatency(string, float64)     {}
