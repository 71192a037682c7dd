package report_test

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"hunter/src/core/evaluation"
	"hunter/src/report"
)

func sampleData() report.Data {
	cases := []evaluation.TestCase{
		{
			ID:                 "c1",
			Question:           "What is the capital of France?",
			ReferenceDocuments: []string{"Paris is the capital of France."},
			CandidateAnswer:    "The capital of France is Paris.",
			ModelName:          "model-a",
			LatencyMS:          150,
		},
		{
			ID:                 "c2",
			Question:           "What color is the sky?",
			ReferenceDocuments: []string{"The sky appears blue in daylight."},
			CandidateAnswer:    "The sky is green.",
			ModelName:          "model-a",
			LatencyMS:          250,
		},
	}
	results := []evaluation.ScoreResult{
		{TestCaseID: "c1", ModelName: "model-a", Metric: evaluation.MetricGroundedness, Score: 0.9, Rationale: "supported"},
		{TestCaseID: "c1", ModelName: "model-a", Metric: evaluation.MetricRelevance, Score: 1.0},
		{TestCaseID: "c2", ModelName: "model-a", Metric: evaluation.MetricGroundedness, Score: 0.2, Rationale: "contradicted"},
		{TestCaseID: "c2", ModelName: "model-a", Metric: evaluation.MetricRelevance, Score: 0, Error: "Judge unavailable"},
	}

	agg := evaluation.NewAggregator()
	summaries, err := agg.Aggregate(results)
	if err != nil {
		panic(err)
	}

	return report.Data{
		Name:              "Nightly Run",
		Threshold:         agg.Threshold(),
		Cases:             cases,
		Results:           results,
		Summaries:         summaries,
		Rejected:          []evaluation.CaseError{{TestCaseID: "c3", Err: errors.New("empty answer")}},
		HallucinationRate: agg.HallucinationRate(results),
		Elapsed:           1200 * time.Millisecond,
	}
}

func TestMarkdown(t *testing.T) {
	md := report.Markdown(sampleData())

	for _, want := range []string{
		"# Nightly Run",
		"Test cases evaluated: 2",
		"Rejected before evaluation: 1",
		"Models evaluated: model-a",
		"Pass threshold: 0.70",
		"Hallucination rate: 50.0%",
		"| Model | Metric | Mean | Pass rate | Samples | Failures |",
		"| model-a | groundedness |",
		"## Answer latency",
		"| model-a | 200 |",
		"## Rejected cases",
		"- c3: empty answer",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("Markdown() missing %q\n---\n%s", want, md)
		}
	}
}

func TestMarkdownEmptyRun(t *testing.T) {
	md := report.Markdown(report.Data{})
	if !strings.Contains(md, "# Evaluation Report") {
		t.Error("empty run should fall back to the default title")
	}
	if !strings.Contains(md, "Models evaluated: none") {
		t.Error("empty run should report no models")
	}
}

func TestWriteCSV(t *testing.T) {
	data := sampleData()
	var buf bytes.Buffer
	if err := report.WriteCSV(&buf, data.Results); err != nil {
		t.Fatalf("WriteCSV() error = %v", err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("reading exported CSV: %v", err)
	}
	if len(rows) != len(data.Results)+1 {
		t.Fatalf("CSV has %d rows, want %d", len(rows), len(data.Results)+1)
	}
	if rows[0][0] != "test_case_id" {
		t.Errorf("header = %v", rows[0])
	}

	// The failed result exports an empty score and the error text.
	last := rows[len(rows)-1]
	if last[3] != "" || last[5] != "Judge unavailable" {
		t.Errorf("failed result row = %v, want empty score and the error", last)
	}
}

func TestTraces(t *testing.T) {
	data := sampleData()
	traces := report.Traces(data.Cases, data.Results)
	if len(traces) != 2 {
		t.Fatalf("Traces() returned %d traces, want 2", len(traces))
	}

	first := traces[0]
	if first.ID != "c1" {
		t.Fatalf("first trace ID = %q, want c1", first.ID)
	}
	if first.Verdict != string(evaluation.VerdictGrounded) {
		t.Errorf("c1 verdict = %q, want %q", first.Verdict, evaluation.VerdictGrounded)
	}
	if first.Rationale != "supported" {
		t.Errorf("c1 rationale = %q, want the groundedness rationale", first.Rationale)
	}
	if first.Scores["relevance"] != 1.0 {
		t.Errorf("c1 relevance score = %v, want 1", first.Scores["relevance"])
	}

	second := traces[1]
	if second.Verdict != string(evaluation.VerdictHallucination) {
		t.Errorf("c2 verdict = %q, want %q", second.Verdict, evaluation.VerdictHallucination)
	}
	if second.Failures["relevance"] != "Judge unavailable" {
		t.Errorf("c2 failures = %v, want the relevance error", second.Failures)
	}
	if _, ok := second.Scores["relevance"]; ok {
		t.Error("failed metrics must not appear in Scores")
	}
}

func TestWriteTraceJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := report.WriteTraceJSON(&buf, sampleData()); err != nil {
		t.Fatalf("WriteTraceJSON() error = %v", err)
	}

	var decoded []report.CaseTrace
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("decoding trace JSON: %v", err)
	}
	if len(decoded) != 2 {
		t.Errorf("trace JSON has %d entries, want 2", len(decoded))
	}
}
