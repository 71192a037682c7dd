package evaluation

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidInput     = errors.New("Invalid test case input")
	ErrJudgeTimeout     = errors.New("Judge call timed out")
	ErrJudgeUnavailable = errors.New("Judge unavailable")
	ErrAggregation      = errors.New("Unknown metric in aggregation")
)

// Metric identifies one of the four evaluation dimensions.
type Metric string

const (
	MetricGroundedness Metric = "groundedness"
	MetricRelevance    Metric = "relevance"
	MetricCoherence    Metric = "coherence"
	MetricCompleteness Metric = "completeness"
)

// KnownMetrics returns the metrics every evaluation pass scores, in the
// order results are reported.
func KnownMetrics() []Metric {
	return []Metric{MetricGroundedness, MetricRelevance, MetricCoherence, MetricCompleteness}
}

// Valid reports whether m is one of the known metrics.
func (m Metric) Valid() bool {
	switch m {
	case MetricGroundedness, MetricRelevance, MetricCoherence, MetricCompleteness:
		return true
	}
	return false
}

// Verdict is the tier a groundedness score falls into.
type Verdict string

const (
	VerdictGrounded          Verdict = "Grounded"
	VerdictPartiallyGrounded Verdict = "Partially Grounded"
	VerdictHallucination     Verdict = "Hallucination"

	groundedFloor = 0.8
	partialFloor  = 0.5
)

// VerdictFor maps a groundedness score to its verdict tier.
func VerdictFor(score float64) Verdict {
	switch {
	case score >= groundedFloor:
		return VerdictGrounded
	case score >= partialFloor:
		return VerdictPartiallyGrounded
	default:
		return VerdictHallucination
	}
}

// TestCase is one question/answer pair to evaluate. Immutable once loaded.
type TestCase struct {
	ID                 string   `json:"id"`
	Question           string   `json:"question"`
	ReferenceDocuments []string `json:"referenceDocuments"`
	CandidateAnswer    string   `json:"candidateAnswer"`
	ModelName          string   `json:"modelName"`
	// LatencyMS is the answer generation latency captured at ingestion, in
	// milliseconds. Zero means unknown.
	LatencyMS int64 `json:"latencyMs,omitempty"`
}

// Validate checks the field constraints evaluation requires. Violations are
// reported as ErrInvalidInput and the case must not be evaluated.
func (tc TestCase) Validate() error {
	if strings.TrimSpace(tc.CandidateAnswer) == "" {
		return fmt.Errorf("%w: candidate answer is empty (case %q)", ErrInvalidInput, tc.ID)
	}
	if len(tc.ReferenceDocuments) == 0 {
		return fmt.Errorf("%w: no reference documents (case %q)", ErrInvalidInput, tc.ID)
	}
	for i, doc := range tc.ReferenceDocuments {
		if strings.TrimSpace(doc) == "" {
			return fmt.Errorf("%w: reference document %d is empty (case %q)", ErrInvalidInput, i, tc.ID)
		}
	}
	return nil
}

// ScoreResult is the outcome of judging one metric for one test case. A
// failed judge call yields a result with Error set and no usable score.
type ScoreResult struct {
	TestCaseID string  `json:"testCaseId"`
	ModelName  string  `json:"modelName"`
	Metric     Metric  `json:"metric"`
	Score      float64 `json:"score"`
	Rationale  string  `json:"rationale,omitempty"`
	Error      string  `json:"error,omitempty"`
	// LatencyMS is the judge call latency in milliseconds.
	LatencyMS int64 `json:"latencyMs"`
}

// Failed reports whether the judge call behind this result failed.
func (r ScoreResult) Failed() bool {
	return r.Error != ""
}

// SummaryKey identifies one (model, metric) summary.
type SummaryKey struct {
	ModelName string `json:"modelName"`
	Metric    Metric `json:"metric"`
}

// ModelSummary is the aggregate over all ScoreResults for one model and
// metric. Derived, never stored; recompute it from the current result set.
type ModelSummary struct {
	ModelName    string  `json:"modelName"`
	Metric       Metric  `json:"metric"`
	MeanScore    float64 `json:"meanScore"`
	PassRate     float64 `json:"passRate"`
	SampleCount  int     `json:"sampleCount"`
	FailureCount int     `json:"failureCount"`
}
