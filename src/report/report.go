// Package report formats evaluation output for humans and for export. All
// scoring lives in the evaluation core; this package only renders what the
// core produced.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"hunter/src/core/evaluation"
)

// Data is everything one batch run produced, collected for rendering.
type Data struct {
	Name              string
	Threshold         float64
	Cases             []evaluation.TestCase
	Results           []evaluation.ScoreResult
	Summaries         map[evaluation.SummaryKey]evaluation.ModelSummary
	Rejected          []evaluation.CaseError
	HallucinationRate float64
	Elapsed           time.Duration
}

// Models returns the evaluated model names, sorted and deduplicated.
func (d Data) Models() []string {
	seen := make(map[string]struct{})
	for key := range d.Summaries {
		seen[key.ModelName] = struct{}{}
	}
	models := make([]string, 0, len(seen))
	for model := range seen {
		models = append(models, model)
	}
	sort.Strings(models)
	return models
}

// Markdown renders the summary report: totals, per-model metric table,
// hallucination rate and mean answer latency.
func Markdown(d Data) string {
	var b strings.Builder

	title := d.Name
	if title == "" {
		title = "Evaluation Report"
	}
	fmt.Fprintf(&b, "# %s\n\n", title)

	models := d.Models()
	fmt.Fprintf(&b, "- Test cases evaluated: %d\n", len(d.Cases))
	fmt.Fprintf(&b, "- Rejected before evaluation: %d\n", len(d.Rejected))
	fmt.Fprintf(&b, "- Models evaluated: %s\n", joinOrNone(models))
	fmt.Fprintf(&b, "- Pass threshold: %.2f\n", d.Threshold)
	fmt.Fprintf(&b, "- Hallucination rate: %.1f%%\n", d.HallucinationRate*100)
	if d.Elapsed > 0 {
		fmt.Fprintf(&b, "- Elapsed: %s\n", d.Elapsed.Round(time.Millisecond))
	}
	b.WriteString("\n")

	b.WriteString("## Scores by model\n\n")
	b.WriteString("| Model | Metric | Mean | Pass rate | Samples | Failures |\n")
	b.WriteString("|---|---|---|---|---|---|\n")
	for _, key := range sortedKeys(d.Summaries) {
		s := d.Summaries[key]
		fmt.Fprintf(&b, "| %s | %s | %.3f | %.1f%% | %d | %d |\n",
			s.ModelName, s.Metric, s.MeanScore, s.PassRate*100, s.SampleCount, s.FailureCount)
	}

	latencies := evaluation.MeanLatencyByModel(d.Cases)
	if len(latencies) > 0 {
		b.WriteString("\n## Answer latency\n\n")
		b.WriteString("| Model | Mean latency (ms) |\n")
		b.WriteString("|---|---|\n")
		names := make([]string, 0, len(latencies))
		for model := range latencies {
			names = append(names, model)
		}
		sort.Strings(names)
		for _, model := range names {
			fmt.Fprintf(&b, "| %s | %.0f |\n", model, latencies[model])
		}
	}

	if len(d.Rejected) > 0 {
		b.WriteString("\n## Rejected cases\n\n")
		for _, rej := range d.Rejected {
			fmt.Fprintf(&b, "- %s: %v\n", rej.TestCaseID, rej.Err)
		}
	}

	return b.String()
}

// WriteCSV exports raw score result rows.
func WriteCSV(w io.Writer, results []evaluation.ScoreResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"test_case_id", "model", "metric", "score", "rationale", "error", "latency_ms"}); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, r := range results {
		score := ""
		if !r.Failed() {
			score = strconv.FormatFloat(r.Score, 'f', 4, 64)
		}
		row := []string{r.TestCaseID, r.ModelName, string(r.Metric), score, r.Rationale, r.Error,
			strconv.FormatInt(r.LatencyMS, 10)}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// CaseTrace is the per-case export record: the case, its scores and the
// groundedness verdict.
type CaseTrace struct {
	ID         string             `json:"id"`
	ModelName  string             `json:"modelName"`
	Question   string             `json:"question"`
	References []string           `json:"references"`
	Answer     string             `json:"answer"`
	LatencyMS  int64              `json:"latencyMs,omitempty"`
	Scores     map[string]float64 `json:"scores"`
	Failures   map[string]string  `json:"failures,omitempty"`
	Verdict    string             `json:"verdict,omitempty"`
	Rationale  string             `json:"rationale,omitempty"`
}

// Traces joins cases with their results. The verdict and rationale come
// from the groundedness score; cases with no valid groundedness score carry
// no verdict.
func Traces(cases []evaluation.TestCase, results []evaluation.ScoreResult) []CaseTrace {
	byCase := make(map[string][]evaluation.ScoreResult)
	for _, r := range results {
		byCase[r.TestCaseID] = append(byCase[r.TestCaseID], r)
	}

	traces := make([]CaseTrace, 0, len(cases))
	for _, tc := range cases {
		trace := CaseTrace{
			ID:         tc.ID,
			ModelName:  tc.ModelName,
			Question:   tc.Question,
			References: tc.ReferenceDocuments,
			Answer:     tc.CandidateAnswer,
			LatencyMS:  tc.LatencyMS,
			Scores:     make(map[string]float64),
		}

		for _, r := range byCase[tc.ID] {
			if r.Failed() {
				if trace.Failures == nil {
					trace.Failures = make(map[string]string)
				}
				trace.Failures[string(r.Metric)] = r.Error
				continue
			}
			trace.Scores[string(r.Metric)] = r.Score
			if r.Metric == evaluation.MetricGroundedness {
				trace.Verdict = string(evaluation.VerdictFor(r.Score))
				trace.Rationale = r.Rationale
			}
		}

		traces = append(traces, trace)
	}
	return traces
}

// WriteTraceJSON exports the per-case traces as indented JSON.
func WriteTraceJSON(w io.Writer, d Data) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(Traces(d.Cases, d.Results)); err != nil {
		return fmt.Errorf("failed to encode trace JSON: %w", err)
	}
	return nil
}

func sortedKeys(summaries map[evaluation.SummaryKey]evaluation.ModelSummary) []evaluation.SummaryKey {
	keys := make([]evaluation.SummaryKey, 0, len(summaries))
	for key := range summaries {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].ModelName != keys[j].ModelName {
			return keys[i].ModelName < keys[j].ModelName
		}
		return keys[i].Metric < keys[j].Metric
	})
	return keys
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}
