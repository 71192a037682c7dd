package evaluation_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"hunter/src/core/evaluation"
)

func validCase() evaluation.TestCase {
	return evaluation.TestCase{
		ID:                 "case-1",
		Question:           "What is the capital of France?",
		ReferenceDocuments: []string{"Paris is the capital of France."},
		CandidateAnswer:    "The capital of France is Paris.",
		ModelName:          "model-a",
	}
}

func allGood(score float64) map[evaluation.Metric]evaluation.Judgment {
	judgments := make(map[evaluation.Metric]evaluation.Judgment)
	for _, m := range evaluation.KnownMetrics() {
		judgments[m] = evaluation.Judgment{Score: score, Rationale: "looks fine"}
	}
	return judgments
}

func TestEvaluateRejectsInvalidInput(t *testing.T) {
	judge := &evaluation.ScriptedJudge{Judgments: allGood(0.9)}
	e, err := evaluation.NewEvaluator(judge)
	if err != nil {
		t.Fatalf("NewEvaluator() error = %v", err)
	}

	tests := []struct {
		name   string
		mutate func(tc *evaluation.TestCase)
	}{
		{
			name:   "empty answer",
			mutate: func(tc *evaluation.TestCase) { tc.CandidateAnswer = "   " },
		},
		{
			name:   "no references",
			mutate: func(tc *evaluation.TestCase) { tc.ReferenceDocuments = nil },
		},
		{
			name:   "blank reference",
			mutate: func(tc *evaluation.TestCase) { tc.ReferenceDocuments = []string{""} },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tc := validCase()
			tt.mutate(&tc)

			results, err := e.Evaluate(context.Background(), tc)
			if !errors.Is(err, evaluation.ErrInvalidInput) {
				t.Errorf("Evaluate() error = %v, want ErrInvalidInput", err)
			}
			if len(results) != 0 {
				t.Errorf("Evaluate() returned %d results for invalid input, want 0", len(results))
			}
			if got := judge.Calls(evaluation.MetricGroundedness); got != 0 {
				t.Errorf("judge was called %d times for invalid input, want 0", got)
			}
		})
	}
}

func TestEvaluateScoresAllMetricsInOrder(t *testing.T) {
	judge := &evaluation.ScriptedJudge{Judgments: map[evaluation.Metric]evaluation.Judgment{
		evaluation.MetricGroundedness: {Score: 0.9, Rationale: "supported"},
		evaluation.MetricRelevance:    {Score: 0.8},
		evaluation.MetricCoherence:    {Score: 0.7},
		evaluation.MetricCompleteness: {Score: 0.6},
	}}
	e, err := evaluation.NewEvaluator(judge)
	if err != nil {
		t.Fatalf("NewEvaluator() error = %v", err)
	}

	results, err := e.Evaluate(context.Background(), validCase())
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if len(results) != 4 {
		t.Fatalf("Evaluate() returned %d results, want 4", len(results))
	}

	wantScores := []float64{0.9, 0.8, 0.7, 0.6}
	for i, metric := range evaluation.KnownMetrics() {
		r := results[i]
		if r.Metric != metric {
			t.Errorf("results[%d].Metric = %q, want %q", i, r.Metric, metric)
		}
		if r.Score != wantScores[i] {
			t.Errorf("results[%d].Score = %v, want %v", i, r.Score, wantScores[i])
		}
		if r.TestCaseID != "case-1" || r.ModelName != "model-a" {
			t.Errorf("results[%d] identity = (%q, %q), want (case-1, model-a)", i, r.TestCaseID, r.ModelName)
		}
		if r.Failed() {
			t.Errorf("results[%d] unexpectedly failed: %s", i, r.Error)
		}
	}
	if results[0].Rationale != "supported" {
		t.Errorf("groundedness rationale = %q, want %q", results[0].Rationale, "supported")
	}
}

func TestEvaluateIsolatesMetricFailures(t *testing.T) {
	judge := &evaluation.ScriptedJudge{
		Judgments: allGood(0.9),
		Errs: map[evaluation.Metric]error{
			evaluation.MetricRelevance: evaluation.ErrJudgeUnavailable,
		},
	}
	e, err := evaluation.NewEvaluator(judge,
		evaluation.WithMaxRetries(0),
	)
	if err != nil {
		t.Fatalf("NewEvaluator() error = %v", err)
	}

	results, err := e.Evaluate(context.Background(), validCase())
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if len(results) != 4 {
		t.Fatalf("Evaluate() returned %d results, want 4", len(results))
	}

	for _, r := range results {
		if r.Metric == evaluation.MetricRelevance {
			if !r.Failed() {
				t.Error("relevance result should carry the judge error")
			}
			if r.Score != 0 {
				t.Errorf("failed result Score = %v, want 0", r.Score)
			}
			continue
		}
		if r.Failed() {
			t.Errorf("%s result failed although only relevance was broken: %s", r.Metric, r.Error)
		}
	}
}

func TestEvaluateMarksAllMetricsWhenJudgeIsDown(t *testing.T) {
	errs := make(map[evaluation.Metric]error)
	for _, m := range evaluation.KnownMetrics() {
		errs[m] = evaluation.ErrJudgeUnavailable
	}
	judge := &evaluation.ScriptedJudge{Errs: errs}
	e, err := evaluation.NewEvaluator(judge, evaluation.WithMaxRetries(0))
	if err != nil {
		t.Fatalf("NewEvaluator() error = %v", err)
	}

	results, err := e.Evaluate(context.Background(), validCase())
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	for _, r := range results {
		if !r.Failed() {
			t.Errorf("%s result should be marked failed", r.Metric)
		}
	}
}

// flakyJudge fails the first n calls per metric, then defers to the inner
// judge.
type flakyJudge struct {
	inner    evaluation.Judge
	failures int

	mu    sync.Mutex
	calls map[evaluation.Metric]int
}

func (j *flakyJudge) attempt(metric evaluation.Metric) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.calls == nil {
		j.calls = make(map[evaluation.Metric]int)
	}
	j.calls[metric]++
	if j.calls[metric] <= j.failures {
		return evaluation.ErrJudgeUnavailable
	}
	return nil
}

func (j *flakyJudge) ScoreGroundedness(ctx context.Context, answer string, references []string) (evaluation.Judgment, error) {
	if err := j.attempt(evaluation.MetricGroundedness); err != nil {
		return evaluation.Judgment{}, err
	}
	return j.inner.ScoreGroundedness(ctx, answer, references)
}

func (j *flakyJudge) ScoreRelevance(ctx context.Context, question, answer string) (evaluation.Judgment, error) {
	if err := j.attempt(evaluation.MetricRelevance); err != nil {
		return evaluation.Judgment{}, err
	}
	return j.inner.ScoreRelevance(ctx, question, answer)
}

func (j *flakyJudge) ScoreCoherence(ctx context.Context, answer string) (evaluation.Judgment, error) {
	if err := j.attempt(evaluation.MetricCoherence); err != nil {
		return evaluation.Judgment{}, err
	}
	return j.inner.ScoreCoherence(ctx, answer)
}

func (j *flakyJudge) ScoreCompleteness(ctx context.Context, question, answer string) (evaluation.Judgment, error) {
	if err := j.attempt(evaluation.MetricCompleteness); err != nil {
		return evaluation.Judgment{}, err
	}
	return j.inner.ScoreCompleteness(ctx, question, answer)
}

func TestEvaluateRetriesTransientFailures(t *testing.T) {
	judge := &flakyJudge{
		inner:    &evaluation.ScriptedJudge{Judgments: allGood(0.85)},
		failures: 1,
	}
	e, err := evaluation.NewEvaluator(judge,
		evaluation.WithMaxRetries(2),
		evaluation.WithRetryBackoff(time.Millisecond),
	)
	if err != nil {
		t.Fatalf("NewEvaluator() error = %v", err)
	}

	results, err := e.Evaluate(context.Background(), validCase())
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	for _, r := range results {
		if r.Failed() {
			t.Errorf("%s result failed despite retry budget: %s", r.Metric, r.Error)
		}
		if r.Score != 0.85 {
			t.Errorf("%s Score = %v, want 0.85", r.Metric, r.Score)
		}
	}
}

func TestEvaluateHonorsJudgeTimeout(t *testing.T) {
	judge := &evaluation.ScriptedJudge{
		Judgments: allGood(0.9),
		Delay:     200 * time.Millisecond,
	}
	e, err := evaluation.NewEvaluator(judge,
		evaluation.WithJudgeTimeout(10*time.Millisecond),
		evaluation.WithMaxRetries(0),
	)
	if err != nil {
		t.Fatalf("NewEvaluator() error = %v", err)
	}

	results, err := e.Evaluate(context.Background(), validCase())
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	for _, r := range results {
		if !r.Failed() {
			t.Errorf("%s result should have timed out", r.Metric)
			continue
		}
		if !strings.Contains(r.Error, "timed out") {
			t.Errorf("%s error = %q, want a timeout classification", r.Metric, r.Error)
		}
	}
}

func TestEvaluateClampsOutOfRangeScores(t *testing.T) {
	judge := &evaluation.ScriptedJudge{Judgments: map[evaluation.Metric]evaluation.Judgment{
		evaluation.MetricGroundedness: {Score: 1.5},
		evaluation.MetricRelevance:    {Score: -0.2},
		evaluation.MetricCoherence:    {Score: 0.4},
		evaluation.MetricCompleteness: {Score: 1.0},
	}}
	e, err := evaluation.NewEvaluator(judge)
	if err != nil {
		t.Fatalf("NewEvaluator() error = %v", err)
	}

	results, err := e.Evaluate(context.Background(), validCase())
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}

	want := map[evaluation.Metric]float64{
		evaluation.MetricGroundedness: 1,
		evaluation.MetricRelevance:    0,
		evaluation.MetricCoherence:    0.4,
		evaluation.MetricCompleteness: 1,
	}
	for _, r := range results {
		if r.Score != want[r.Metric] {
			t.Errorf("%s Score = %v, want %v", r.Metric, r.Score, want[r.Metric])
		}
	}
}
