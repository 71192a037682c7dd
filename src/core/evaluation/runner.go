package evaluation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"hunter/src/log"
)

const DefaultConcurrency = 4

// CaseError records a test case that was rejected before evaluation.
type CaseError struct {
	TestCaseID string
	Err        error
}

// BatchResult carries everything a batch run produced, including partial
// output when the run was cancelled midway.
type BatchResult struct {
	Results  []ScoreResult
	Rejected []CaseError
	Elapsed  time.Duration
}

// Runner evaluates batches of test cases on a bounded worker pool. Cases
// are independent, so the pool size only caps how many judge backends are
// hit at once.
type Runner struct {
	evaluator   *Evaluator
	concurrency int
	progress    func(done, total int)
}

type RunnerOption func(r *Runner)

// WithConcurrency bounds how many cases are evaluated at the same time.
func WithConcurrency(n int) RunnerOption {
	return func(r *Runner) {
		r.concurrency = n
	}
}

// WithProgress registers a callback invoked after each case settles,
// rejected cases included.
func WithProgress(fn func(done, total int)) RunnerOption {
	return func(r *Runner) {
		r.progress = fn
	}
}

func NewRunner(evaluator *Evaluator, opts ...RunnerOption) (*Runner, error) {
	if evaluator == nil {
		return nil, fmt.Errorf("evaluator is required")
	}

	r := &Runner{
		evaluator:   evaluator,
		concurrency: DefaultConcurrency,
	}

	for _, opt := range opts {
		opt(r)
	}

	if r.concurrency < 1 {
		r.concurrency = 1
	}

	return r, nil
}

// Run evaluates every case and collects the score results. Invalid cases
// and duplicate IDs are rejected up front and reported per-case; they never
// abort the batch. On cancellation the results produced so far are returned
// together with the context error.
func (r *Runner) Run(ctx context.Context, cases []TestCase) (*BatchResult, error) {
	start := time.Now()
	total := len(cases)

	sink := newResultSink()
	sem := make(chan struct{}, r.concurrency)
	var wg sync.WaitGroup

	seen := make(map[string]struct{}, total)

dispatch:
	for _, tc := range cases {
		if _, dup := seen[tc.ID]; dup {
			sink.reject(CaseError{
				TestCaseID: tc.ID,
				Err:        fmt.Errorf("%w: duplicate test case id %q", ErrInvalidInput, tc.ID),
			})
			r.reportProgress(sink, total)
			continue
		}
		seen[tc.ID] = struct{}{}

		if err := tc.Validate(); err != nil {
			sink.reject(CaseError{TestCaseID: tc.ID, Err: err})
			r.reportProgress(sink, total)
			continue
		}

		select {
		case <-ctx.Done():
			break dispatch
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(tc TestCase) {
			defer wg.Done()
			defer func() { <-sem }()

			results, err := r.evaluator.Evaluate(ctx, tc)
			if err != nil {
				sink.reject(CaseError{TestCaseID: tc.ID, Err: err})
			} else {
				sink.append(results)
			}
			r.reportProgress(sink, total)
		}(tc)
	}

	wg.Wait()

	batch := &BatchResult{
		Results:  sink.results(),
		Rejected: sink.rejects(),
		Elapsed:  time.Since(start),
	}

	if err := ctx.Err(); err != nil {
		log.Info("batch evaluation cancelled",
			"scored", len(batch.Results), "rejected", len(batch.Rejected), "total", total)
		return batch, err
	}

	log.Debug("batch evaluation finished",
		"scored", len(batch.Results), "rejected", len(batch.Rejected), "elapsed", batch.Elapsed.String())
	return batch, nil
}

func (r *Runner) reportProgress(sink *resultSink, total int) {
	if r.progress == nil {
		return
	}
	r.progress(sink.settled(), total)
}

// resultSink is the append-only collection point for a batch. Results are
// only ever added, never mutated in place.
type resultSink struct {
	mu       sync.Mutex
	scored   []ScoreResult
	rejected []CaseError
	done     int
}

func newResultSink() *resultSink {
	return &resultSink{}
}

func (s *resultSink) append(results []ScoreResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scored = append(s.scored, results...)
	s.done++
}

func (s *resultSink) reject(ce CaseError) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rejected = append(s.rejected, ce)
	s.done++
}

func (s *resultSink) settled() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

func (s *resultSink) results() []ScoreResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ScoreResult, len(s.scored))
	copy(out, s.scored)
	return out
}

func (s *resultSink) rejects() []CaseError {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]CaseError, len(s.rejected))
	copy(out, s.rejected)
	return out
}
