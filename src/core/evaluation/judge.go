package evaluation

import (
	"context"
	"sync"
	"time"
)

// Judgment is a single judge verdict: a score in [0,1] and an optional
// explanation of how the judge arrived at it.
type Judgment struct {
	Score     float64 `json:"score"`
	Rationale string  `json:"rationale,omitempty"`
}

// Judge scores candidate answers. Each method covers exactly one metric so
// implementations can be swapped per metric contract: an LLM-backed judge, a
// deterministic lexical judge, or a cached wrapper around either.
//
// Implementations return scores in [0,1]. Failures are reported as errors;
// ErrJudgeTimeout and ErrJudgeUnavailable mark retryable transport failures.
type Judge interface {
	// ScoreGroundedness measures the fraction of answer claims supported by
	// the reference documents.
	ScoreGroundedness(ctx context.Context, answer string, references []string) (Judgment, error)
	// ScoreRelevance measures whether the answer addresses the question,
	// independent of the references.
	ScoreRelevance(ctx context.Context, question, answer string) (Judgment, error)
	// ScoreCoherence measures the internal logical consistency of the answer.
	ScoreCoherence(ctx context.Context, answer string) (Judgment, error)
	// ScoreCompleteness measures whether all sub-aspects of the question are
	// addressed.
	ScoreCompleteness(ctx context.Context, question, answer string) (Judgment, error)
}

// ScriptedJudge returns preconfigured judgments per metric. It stands in for
// a real judge when the evaluation pipeline itself is under test.
type ScriptedJudge struct {
	Judgments map[Metric]Judgment
	Errs      map[Metric]error
	// Delay blocks every call until it elapses or the context is done.
	Delay time.Duration

	mu    sync.Mutex
	calls map[Metric]int
}

func (j *ScriptedJudge) ScoreGroundedness(ctx context.Context, answer string, references []string) (Judgment, error) {
	return j.respond(ctx, MetricGroundedness)
}

func (j *ScriptedJudge) ScoreRelevance(ctx context.Context, question, answer string) (Judgment, error) {
	return j.respond(ctx, MetricRelevance)
}

func (j *ScriptedJudge) ScoreCoherence(ctx context.Context, answer string) (Judgment, error) {
	return j.respond(ctx, MetricCoherence)
}

func (j *ScriptedJudge) ScoreCompleteness(ctx context.Context, question, answer string) (Judgment, error) {
	return j.respond(ctx, MetricCompleteness)
}

// Calls reports how often the given metric was judged.
func (j *ScriptedJudge) Calls(metric Metric) int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.calls[metric]
}

func (j *ScriptedJudge) respond(ctx context.Context, metric Metric) (Judgment, error) {
	j.mu.Lock()
	if j.calls == nil {
		j.calls = make(map[Metric]int)
	}
	j.calls[metric]++
	j.mu.Unlock()

	if j.Delay > 0 {
		timer := time.NewTimer(j.Delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return Judgment{}, ctx.Err()
		case <-timer.C:
		}
	}

	if err, ok := j.Errs[metric]; ok && err != nil {
		return Judgment{}, err
	}
	return j.Judgments[metric], nil
}
