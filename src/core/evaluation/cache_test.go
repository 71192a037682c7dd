package evaluation_test

import (
	"context"
	"errors"
	"testing"

	"hunter/src/core/evaluation"
)

func TestCacheKeyResistsBoundaryShifts(t *testing.T) {
	// "ab"+"c" and "a"+"bc" concatenate identically; the keys must not.
	a := evaluation.CacheKey(evaluation.MetricGroundedness, "ab", "c")
	b := evaluation.CacheKey(evaluation.MetricGroundedness, "a", "bc")
	if a == b {
		t.Error("keys for different input splits collided")
	}

	g := evaluation.CacheKey(evaluation.MetricGroundedness, "x")
	r := evaluation.CacheKey(evaluation.MetricRelevance, "x")
	if g == r {
		t.Error("keys for different metrics collided")
	}

	if evaluation.CacheKey(evaluation.MetricCoherence, "x") != evaluation.CacheKey(evaluation.MetricCoherence, "x") {
		t.Error("identical inputs must produce identical keys")
	}
}

func TestMemoryCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	cache := evaluation.NewMemoryCache()

	if _, ok, err := cache.Get(ctx, "absent"); err != nil || ok {
		t.Errorf("Get(absent) = (ok=%v, err=%v), want a clean miss", ok, err)
	}

	want := evaluation.Judgment{Score: 0.8, Rationale: "ok"}
	if err := cache.Set(ctx, "k", want); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	got, ok, err := cache.Get(ctx, "k")
	if err != nil || !ok {
		t.Fatalf("Get(k) = (ok=%v, err=%v), want a hit", ok, err)
	}
	if got != want {
		t.Errorf("Get(k) = %+v, want %+v", got, want)
	}
	if cache.Len() != 1 {
		t.Errorf("Len() = %d, want 1", cache.Len())
	}
}

func TestCachedJudgeSkipsRepeatCalls(t *testing.T) {
	ctx := context.Background()
	inner := &evaluation.ScriptedJudge{Judgments: allGood(0.9)}
	judge := evaluation.NewCachedJudge(inner, evaluation.NewMemoryCache())

	first, err := judge.ScoreRelevance(ctx, "q", "a")
	if err != nil {
		t.Fatalf("ScoreRelevance() error = %v", err)
	}
	second, err := judge.ScoreRelevance(ctx, "q", "a")
	if err != nil {
		t.Fatalf("ScoreRelevance() error = %v", err)
	}
	if first != second {
		t.Errorf("cached judgment %+v differs from original %+v", second, first)
	}
	if calls := inner.Calls(evaluation.MetricRelevance); calls != 1 {
		t.Errorf("inner judge called %d times, want 1", calls)
	}

	// Different inputs must miss.
	if _, err := judge.ScoreRelevance(ctx, "q", "other"); err != nil {
		t.Fatalf("ScoreRelevance() error = %v", err)
	}
	if calls := inner.Calls(evaluation.MetricRelevance); calls != 2 {
		t.Errorf("inner judge called %d times after distinct input, want 2", calls)
	}
}

// brokenCache fails every operation.
type brokenCache struct{}

func (brokenCache) Get(ctx context.Context, key string) (evaluation.Judgment, bool, error) {
	return evaluation.Judgment{}, false, errors.New("connection refused")
}

func (brokenCache) Set(ctx context.Context, key string, judgment evaluation.Judgment) error {
	return errors.New("connection refused")
}

func TestCachedJudgeSurvivesCacheFailures(t *testing.T) {
	inner := &evaluation.ScriptedJudge{Judgments: allGood(0.75)}
	judge := evaluation.NewCachedJudge(inner, brokenCache{})

	got, err := judge.ScoreCoherence(context.Background(), "an answer")
	if err != nil {
		t.Fatalf("ScoreCoherence() error = %v, cache failures must not surface", err)
	}
	if got.Score != 0.75 {
		t.Errorf("Score = %v, want 0.75", got.Score)
	}
}

func TestCachedJudgePropagatesJudgeErrors(t *testing.T) {
	inner := &evaluation.ScriptedJudge{Errs: map[evaluation.Metric]error{
		evaluation.MetricCoherence: evaluation.ErrJudgeUnavailable,
	}}
	judge := evaluation.NewCachedJudge(inner, evaluation.NewMemoryCache())

	_, err := judge.ScoreCoherence(context.Background(), "an answer")
	if !errors.Is(err, evaluation.ErrJudgeUnavailable) {
		t.Errorf("ScoreCoherence() error = %v, want ErrJudgeUnavailable", err)
	}
}
