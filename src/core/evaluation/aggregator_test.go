package evaluation_test

import (
	"errors"
	"math"
	"math/rand"
	"reflect"
	"testing"

	"hunter/src/core/evaluation"
)

func result(caseID, model string, metric evaluation.Metric, score float64) evaluation.ScoreResult {
	return evaluation.ScoreResult{
		TestCaseID: caseID,
		ModelName:  model,
		Metric:     metric,
		Score:      score,
	}
}

func TestAggregateComputesMeanAndPassRate(t *testing.T) {
	agg := evaluation.NewAggregator()
	results := []evaluation.ScoreResult{
		result("c1", "model-a", evaluation.MetricGroundedness, 0.9),
		result("c2", "model-a", evaluation.MetricGroundedness, 0.5),
	}

	summaries, err := agg.Aggregate(results)
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}

	key := evaluation.SummaryKey{ModelName: "model-a", Metric: evaluation.MetricGroundedness}
	s, ok := summaries[key]
	if !ok {
		t.Fatalf("summary for %v missing", key)
	}
	if math.Abs(s.MeanScore-0.7) > 1e-9 {
		t.Errorf("MeanScore = %v, want 0.7", s.MeanScore)
	}
	if s.PassRate != 0.5 {
		t.Errorf("PassRate = %v, want 0.5", s.PassRate)
	}
	if s.SampleCount != 2 || s.FailureCount != 0 {
		t.Errorf("counts = (%d, %d), want (2, 0)", s.SampleCount, s.FailureCount)
	}
}

func TestAggregateIsOrderInsensitive(t *testing.T) {
	var results []evaluation.ScoreResult
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 40; i++ {
		model := "model-a"
		if i%3 == 0 {
			model = "model-b"
		}
		for _, m := range evaluation.KnownMetrics() {
			results = append(results, result("c", model, m, rng.Float64()))
		}
	}

	agg := evaluation.NewAggregator()
	want, err := agg.Aggregate(results)
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}

	for trial := 0; trial < 5; trial++ {
		shuffled := make([]evaluation.ScoreResult, len(results))
		copy(shuffled, results)
		rng.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})

		got, err := agg.Aggregate(shuffled)
		if err != nil {
			t.Fatalf("Aggregate() error = %v", err)
		}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("trial %d: shuffled aggregation differs from original", trial)
		}
	}
}

func TestAggregateExcludesFailedResultsFromMean(t *testing.T) {
	agg := evaluation.NewAggregator()
	failed := result("c2", "model-a", evaluation.MetricCoherence, 0)
	failed.Error = "Judge unavailable"

	summaries, err := agg.Aggregate([]evaluation.ScoreResult{
		result("c1", "model-a", evaluation.MetricCoherence, 0.8),
		failed,
	})
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}

	s := summaries[evaluation.SummaryKey{ModelName: "model-a", Metric: evaluation.MetricCoherence}]
	if s.MeanScore != 0.8 {
		t.Errorf("MeanScore = %v, want 0.8 (failed result must not dilute it)", s.MeanScore)
	}
	if s.SampleCount != 1 {
		t.Errorf("SampleCount = %d, want 1", s.SampleCount)
	}
	if s.FailureCount != 1 {
		t.Errorf("FailureCount = %d, want 1", s.FailureCount)
	}
}

func TestAggregateScoreAtThresholdPasses(t *testing.T) {
	agg := evaluation.NewAggregator(evaluation.WithPassThreshold(0.7))
	summaries, err := agg.Aggregate([]evaluation.ScoreResult{
		result("c1", "m", evaluation.MetricRelevance, 0.7),
	})
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}

	s := summaries[evaluation.SummaryKey{ModelName: "m", Metric: evaluation.MetricRelevance}]
	if s.PassRate != 1 {
		t.Errorf("PassRate = %v, want 1 (threshold is inclusive)", s.PassRate)
	}
}

func TestAggregateRejectsUnknownMetric(t *testing.T) {
	agg := evaluation.NewAggregator()
	_, err := agg.Aggregate([]evaluation.ScoreResult{
		result("c1", "m", evaluation.Metric("sentiment"), 0.5),
	})
	if !errors.Is(err, evaluation.ErrAggregation) {
		t.Errorf("Aggregate() error = %v, want ErrAggregation", err)
	}
}

func TestAggregateEmptyInput(t *testing.T) {
	summaries, err := evaluation.NewAggregator().Aggregate(nil)
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}
	if len(summaries) != 0 {
		t.Errorf("Aggregate(nil) produced %d summaries, want 0", len(summaries))
	}
}

func TestHallucinationRate(t *testing.T) {
	agg := evaluation.NewAggregator(evaluation.WithPassThreshold(0.7))
	failed := result("c4", "m", evaluation.MetricGroundedness, 0)
	failed.Error = "boom"

	rate := agg.HallucinationRate([]evaluation.ScoreResult{
		result("c1", "m", evaluation.MetricGroundedness, 0.9),
		result("c2", "m", evaluation.MetricGroundedness, 0.4),
		result("c3", "m", evaluation.MetricRelevance, 0.1),
		failed,
	})
	if rate != 0.5 {
		t.Errorf("HallucinationRate = %v, want 0.5", rate)
	}

	if got := agg.HallucinationRate(nil); got != 0 {
		t.Errorf("HallucinationRate(nil) = %v, want 0", got)
	}
}

func TestVerdictTiers(t *testing.T) {
	tests := []struct {
		score float64
		want  evaluation.Verdict
	}{
		{0.95, evaluation.VerdictGrounded},
		{0.8, evaluation.VerdictGrounded},
		{0.79, evaluation.VerdictPartiallyGrounded},
		{0.5, evaluation.VerdictPartiallyGrounded},
		{0.49, evaluation.VerdictHallucination},
		{0, evaluation.VerdictHallucination},
	}
	for _, tt := range tests {
		if got := evaluation.VerdictFor(tt.score); got != tt.want {
			t.Errorf("VerdictFor(%v) = %q, want %q", tt.score, got, tt.want)
		}
	}
}

func TestMeanLatencyByModel(t *testing.T) {
	cases := []evaluation.TestCase{
		{ModelName: "a", LatencyMS: 100},
		{ModelName: "a", LatencyMS: 300},
		{ModelName: "b", LatencyMS: 50},
		{ModelName: "b"}, // unknown latency, skipped
	}

	got := evaluation.MeanLatencyByModel(cases)
	if got["a"] != 200 {
		t.Errorf("mean latency for a = %v, want 200", got["a"])
	}
	if got["b"] != 50 {
		t.Errorf("mean latency for b = %v, want 50", got["b"])
	}
}
