// Package metrics exposes Prometheus collectors for the evaluation
// pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"hunter/src/core/evaluation"
)

var (
	JudgeCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hunter_judge_call_duration_seconds",
			Help:    "Judge call duration per metric, retries included",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"metric", "status"},
	)

	JudgeCallTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hunter_judge_calls_total",
			Help: "Total judge calls per metric and outcome",
		},
		[]string{"metric", "status"},
	)

	ScoreDistribution = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hunter_score_distribution",
			Help:    "Valid score distribution per metric",
			Buckets: []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
		},
		[]string{"metric"},
	)

	EvaluationRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hunter_evaluation_runs_total",
			Help: "Total evaluation runs per outcome",
		},
		[]string{"status"},
	)

	CasesEvaluatedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hunter_cases_evaluated_total",
			Help: "Total test cases per outcome (scored or rejected)",
		},
		[]string{"status"},
	)
)

// Init registers all collectors. Call once at startup.
func Init() {
	prometheus.MustRegister(
		JudgeCallDuration,
		JudgeCallTotal,
		ScoreDistribution,
		EvaluationRunsTotal,
		CasesEvaluatedTotal,
	)
}

// Handler returns the scrape endpoint handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveResults records counters and score distributions for a batch of
// score results.
func ObserveResults(results []evaluation.ScoreResult) {
	for _, r := range results {
		metric := string(r.Metric)
		duration := time.Duration(r.LatencyMS) * time.Millisecond

		if r.Failed() {
			JudgeCallTotal.WithLabelValues(metric, "error").Inc()
			JudgeCallDuration.WithLabelValues(metric, "error").Observe(duration.Seconds())
			continue
		}
		JudgeCallTotal.WithLabelValues(metric, "ok").Inc()
		JudgeCallDuration.WithLabelValues(metric, "ok").Observe(duration.Seconds())
		ScoreDistribution.WithLabelValues(metric).Observe(r.Score)
	}
}
