package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "subtrans"

var (
	llmCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "llm",
		Name:      "calls_total",
		Help:      "LLM calls by engine and outcome",
	}, []string{"engine", "status"})

	llmLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "llm",
		Name:      "call_duration_seconds",
		Help:      "Duration of LLM calls including backoff",
		Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80, 160},
	}, []string{"engine"})

	batches = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "translate",
		Name:      "batches_total",
		Help:      "Translation batches by validation result",
	}, []string{"result"})

	retryRounds = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "translate",
		Name:      "retry_rounds_total",
		Help:      "Repair rounds run after the initial translation pass",
	})

	unresolved = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "translate",
		Name:      "unresolved_segments_total",
		Help:      "Segments still failing after the last repair round",
	})

	jobs = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "jobs",
		Name:      "finished_total",
		Help:      "Finished jobs by type and status",
	}, []string{"type", "status"})

	jobDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "jobs",
		Name:      "duration_seconds",
		Help:      "Job run time",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
	}, []string{"type"})
)

// ObserveLLMCall records one client call; status is "ok" or "error"
func ObserveLLMCall(engine, status string, took time.Duration) {
	llmCalls.WithLabelValues(engine, status).Inc()
	llmLatency.WithLabelValues(engine).Observe(took.Seconds())
}

// ObserveBatch records a validated batch; result is a validation error name or "ok"
func ObserveBatch(result string) {
	batches.WithLabelValues(result).Inc()
}

func IncRetryRound() {
	retryRounds.Inc()
}

func AddUnresolved(n int) {
	if n > 0 {
		unresolved.Add(float64(n))
	}
}

// ObserveJob records a finished job
func ObserveJob(jobType, status string, took time.Duration) {
	jobs.WithLabelValues(jobType, status).Inc()
	jobDuration.WithLabelValues(jobType).Observe(took.Seconds())
}

// Handler serves the default registry
func Handler() http.Handler {
	return promhttp.Handler()
}
