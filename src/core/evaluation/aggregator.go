package evaluation

import (
	"fmt"
	"sort"
)

const DefaultPassThreshold = 0.7

// Aggregator folds ScoreResults into per-(model, metric) summaries. The
// fold is commutative: the same multiset of results produces byte-identical
// summaries no matter what order they arrived in.
type Aggregator struct {
	threshold float64
}

type AggregatorOption func(a *Aggregator)

// WithPassThreshold sets the score a result must reach to count as a pass.
func WithPassThreshold(t float64) AggregatorOption {
	return func(a *Aggregator) {
		a.threshold = t
	}
}

func NewAggregator(opts ...AggregatorOption) *Aggregator {
	a := &Aggregator{threshold: DefaultPassThreshold}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Threshold returns the configured pass threshold.
func (a *Aggregator) Threshold() float64 {
	return a.threshold
}

// Aggregate builds the summary mapping from a result set. Error-marked
// results are excluded from mean and pass rate but counted in the failure
// tally. A result carrying a metric outside the known set indicates a core
// invariant violation and fails with ErrAggregation.
func (a *Aggregator) Aggregate(results []ScoreResult) (map[SummaryKey]ModelSummary, error) {
	type bucket struct {
		scores []float64
		failed int
	}

	buckets := make(map[SummaryKey]*bucket)
	for _, r := range results {
		if !r.Metric.Valid() {
			return nil, fmt.Errorf("%w: %q (case %q)", ErrAggregation, r.Metric, r.TestCaseID)
		}

		key := SummaryKey{ModelName: r.ModelName, Metric: r.Metric}
		b := buckets[key]
		if b == nil {
			b = &bucket{}
			buckets[key] = b
		}

		if r.Failed() {
			b.failed++
			continue
		}
		b.scores = append(b.scores, r.Score)
	}

	summaries := make(map[SummaryKey]ModelSummary, len(buckets))
	for key, b := range buckets {
		// Summing in sorted order keeps float accumulation identical for
		// identical multisets, whatever order results completed in.
		sort.Float64s(b.scores)

		var sum float64
		passed := 0
		for _, s := range b.scores {
			sum += s
			if s >= a.threshold {
				passed++
			}
		}

		summary := ModelSummary{
			ModelName:    key.ModelName,
			Metric:       key.Metric,
			SampleCount:  len(b.scores),
			FailureCount: b.failed,
		}
		if len(b.scores) > 0 {
			summary.MeanScore = sum / float64(len(b.scores))
			summary.PassRate = float64(passed) / float64(len(b.scores))
		}
		summaries[key] = summary
	}

	return summaries, nil
}

// HallucinationRate returns the fraction of valid groundedness scores below
// the pass threshold. Zero when no valid groundedness scores exist.
func (a *Aggregator) HallucinationRate(results []ScoreResult) float64 {
	valid, below := 0, 0
	for _, r := range results {
		if r.Metric != MetricGroundedness || r.Failed() {
			continue
		}
		valid++
		if r.Score < a.threshold {
			below++
		}
	}
	if valid == 0 {
		return 0
	}
	return float64(below) / float64(valid)
}

// MeanLatencyByModel averages the answer generation latency recorded on the
// cases, per model. Cases without latency data are skipped.
func MeanLatencyByModel(cases []TestCase) map[string]float64 {
	sums := make(map[string]int64)
	counts := make(map[string]int)
	for _, tc := range cases {
		if tc.LatencyMS <= 0 {
			continue
		}
		sums[tc.ModelName] += tc.LatencyMS
		counts[tc.ModelName]++
	}

	means := make(map[string]float64, len(sums))
	for model, sum := range sums {
		means[model] = float64(sum) / float64(counts[model])
	}
	return means
}
