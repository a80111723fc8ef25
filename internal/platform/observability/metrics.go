package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	Predictions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tagger_predictions_total",
		Help: "The total number of tag predictions by status",
	}, []string{"status"})

	PredictionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "tagger_prediction_duration_seconds",
		Help:    "Duration of a single tag prediction",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
	})

	PredictionsNeedingReview = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tagger_predictions_needing_review_total",
		Help: "Total number of predictions flagged for human review",
	})

	ValidationFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tagger_validation_failures_total",
		Help: "Total number of items rejected before prediction by reason",
	}, []string{"reason"})

	EvaluationRuns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tagger_evaluation_runs_total",
		Help: "The total number of completed evaluation runs",
	})

	EvaluationPredictions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tagger_evaluation_predictions_total",
		Help: "Predictions made during evaluation runs by status",
	}, []string{"status"})

	EvaluationPredictionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "tagger_evaluation_prediction_duration_seconds",
		Help:    "Duration of one prediction inside an evaluation run, including retries and panics",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
	})

	EvaluationItems = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tagger_evaluation_items_total",
		Help: "Total number of evaluated items by outcome",
	}, []string{"outcome"})

	EvaluationAccuracyAt1 = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tagger_evaluation_accuracy_at_1",
		Help: "Accuracy@1 of the most recent evaluation run",
	})

	EvaluationF1 = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tagger_evaluation_f1",
		Help: "Micro-averaged F1 of the most recent evaluation run",
	})

	LLMTokensPrompt = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tagger_llm_tokens_prompt_total",
		Help: "Total number of prompt tokens used",
	}, []string{"provider", "model"})

	LLMTokensCompletion = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tagger_llm_tokens_completion_total",
		Help: "Total number of completion tokens used",
	}, []string{"provider", "model"})

	LLMRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tagger_llm_requests_total",
		Help: "Total number of LLM requests",
	}, []string{"provider", "model", "status"})

	LLMRequestLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tagger_llm_request_latency_seconds",
		Help:    "Latency of LLM requests",
		Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
	}, []string{"provider", "model"})

	LLMCircuitBreakerOpens = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tagger_llm_circuit_breaker_opens_total",
		Help: "Total number of times LLM circuit breaker opened",
	}, []string{"provider"})

	// LLM estimated costs (in millicents to avoid floating point issues)
	LLMEstimatedCost = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tagger_llm_estimated_cost_millicents_total",
		Help: "Estimated LLM cost in millicents (1/1000 of a cent)",
	}, []string{"provider", "model"})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tagger_http_requests_total",
		Help: "API requests by route and status code",
	}, []string{"route", "code"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tagger_http_request_duration_seconds",
		Help:    "API request latency by route",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
)

const (
	outcomeHitAt1 = "hit_at_1"
	outcomeMiss   = "miss"
	outcomeFailed = "failed"
)

// Recorder exports evaluation progress to Prometheus. It implements
// ports.Recorder.
type Recorder struct{}

// NewRecorder creates a Prometheus-backed recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// ObservePrediction counts one evaluation prediction and its latency.
func (Recorder) ObservePrediction(status string, duration time.Duration) {
	EvaluationPredictions.WithLabelValues(status).Inc()
	EvaluationPredictionDuration.Observe(duration.Seconds())
}

// ObserveRun publishes the headline numbers of a finished run.
func (Recorder) ObserveRun(accuracyAt1, f1 float64, items, failed int) {
	EvaluationRuns.Inc()
	EvaluationAccuracyAt1.Set(accuracyAt1)
	EvaluationF1.Set(f1)

	hits := int(accuracyAt1*float64(items) + 0.5)

	EvaluationItems.WithLabelValues(outcomeFailed).Add(float64(failed))
	EvaluationItems.WithLabelValues(outcomeHitAt1).Add(float64(hits))

	if rest := items - hits - failed; rest > 0 {
		EvaluationItems.WithLabelValues(outcomeMiss).Add(float64(rest))
	}
}
