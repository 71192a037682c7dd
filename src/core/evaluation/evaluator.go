package evaluation

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"hunter/src/log"
)

const (
	DefaultJudgeTimeout = 30 * time.Second
	DefaultMaxRetries   = 2
	DefaultRetryBackoff = 2 * time.Second
)

// Evaluator produces one ScoreResult per metric for a test case. The four
// metric judgments run concurrently; each judge call gets its own timeout
// and retry budget, and a failure on one metric never blocks the others.
type Evaluator struct {
	judge      Judge
	timeout    time.Duration
	maxRetries int
	backoff    time.Duration
}

type EvaluatorOption func(e *Evaluator)

// WithJudgeTimeout sets the per-judge-call timeout.
func WithJudgeTimeout(d time.Duration) EvaluatorOption {
	return func(e *Evaluator) {
		e.timeout = d
	}
}

// WithMaxRetries sets how many times a failed judge call is retried before
// it is recorded as a permanent failure for that metric.
func WithMaxRetries(n int) EvaluatorOption {
	return func(e *Evaluator) {
		e.maxRetries = n
	}
}

// WithRetryBackoff sets the base delay between retries; the delay doubles
// on each attempt.
func WithRetryBackoff(d time.Duration) EvaluatorOption {
	return func(e *Evaluator) {
		e.backoff = d
	}
}

func NewEvaluator(judge Judge, opts ...EvaluatorOption) (*Evaluator, error) {
	if judge == nil {
		return nil, errors.New("judge is required")
	}

	e := &Evaluator{
		judge:      judge,
		timeout:    DefaultJudgeTimeout,
		maxRetries: DefaultMaxRetries,
		backoff:    DefaultRetryBackoff,
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.timeout <= 0 {
		e.timeout = DefaultJudgeTimeout
	}
	if e.maxRetries < 0 {
		e.maxRetries = 0
	}

	return e, nil
}

// Evaluate scores the test case on every known metric. The returned slice
// always follows KnownMetrics order no matter which judge call finishes
// first. Invalid input fails with ErrInvalidInput and produces no results.
func (e *Evaluator) Evaluate(ctx context.Context, tc TestCase) ([]ScoreResult, error) {
	if err := tc.Validate(); err != nil {
		return nil, err
	}

	metrics := KnownMetrics()
	results := make([]ScoreResult, len(metrics))

	var wg sync.WaitGroup
	for i, metric := range metrics {
		wg.Add(1)
		go func(slot int, m Metric) {
			defer wg.Done()
			results[slot] = e.scoreMetric(ctx, tc, m)
		}(i, metric)
	}
	wg.Wait()

	return results, nil
}

// scoreMetric runs one judge call with retries and converts the outcome
// into a ScoreResult. Judge failures land in the result's Error field.
func (e *Evaluator) scoreMetric(ctx context.Context, tc TestCase, metric Metric) ScoreResult {
	start := time.Now()
	judgment, err := e.judgeWithRetry(ctx, tc, metric)

	result := ScoreResult{
		TestCaseID: tc.ID,
		ModelName:  tc.ModelName,
		Metric:     metric,
		LatencyMS:  time.Since(start).Milliseconds(),
	}

	if err != nil {
		log.Debug("judge call failed", "case", tc.ID, "metric", metric, "error", err.Error())
		result.Error = err.Error()
		return result
	}

	result.Score = clamp01(judgment.Score)
	result.Rationale = judgment.Rationale
	return result
}

func (e *Evaluator) judgeWithRetry(ctx context.Context, tc TestCase, metric Metric) (Judgment, error) {
	var lastErr error

	for attempt := 0; attempt <= e.maxRetries; attempt++ {
		if attempt > 0 {
			if err := e.waitBackoff(ctx, attempt); err != nil {
				return Judgment{}, lastErr
			}
			log.Debug("retrying judge call", "case", tc.ID, "metric", metric, "attempt", attempt)
		}

		callCtx, cancel := context.WithTimeout(ctx, e.timeout)
		judgment, err := e.dispatch(callCtx, tc, metric)
		cancel()

		if err == nil {
			if math.IsNaN(judgment.Score) || math.IsInf(judgment.Score, 0) {
				lastErr = fmt.Errorf("judge returned a non-finite %s score", metric)
				continue
			}
			return judgment, nil
		}

		lastErr = e.classify(err, metric)
		if ctx.Err() != nil {
			// The batch deadline passed or it was cancelled; retrying would
			// only burn time the caller no longer has.
			return Judgment{}, lastErr
		}
	}

	return Judgment{}, lastErr
}

// classify maps raw judge errors onto the core taxonomy so downstream
// consumers can tell timeouts from transport failures.
func (e *Evaluator) classify(err error, metric Metric) error {
	switch {
	case errors.Is(err, ErrJudgeTimeout) || errors.Is(err, ErrJudgeUnavailable):
		return err
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %s judgment exceeded %s", ErrJudgeTimeout, metric, e.timeout)
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("%s judgment cancelled: %w", metric, err)
	default:
		return fmt.Errorf("failed to judge %s: %w", metric, err)
	}
}

func (e *Evaluator) waitBackoff(ctx context.Context, attempt int) error {
	delay := e.backoff * time.Duration(1<<(attempt-1))
	if delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (e *Evaluator) dispatch(ctx context.Context, tc TestCase, metric Metric) (Judgment, error) {
	switch metric {
	case MetricGroundedness:
		return e.judge.ScoreGroundedness(ctx, tc.CandidateAnswer, tc.ReferenceDocuments)
	case MetricRelevance:
		return e.judge.ScoreRelevance(ctx, tc.Question, tc.CandidateAnswer)
	case MetricCoherence:
		return e.judge.ScoreCoherence(ctx, tc.CandidateAnswer)
	case MetricCompleteness:
		return e.judge.ScoreCompleteness(ctx, tc.Question, tc.CandidateAnswer)
	default:
		return Judgment{}, fmt.Errorf("%w: %q", ErrAggregation, metric)
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
