package evaluation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"text/template"

	"golang.org/x/time/rate"

	"hunter/src/log"
)

const (
	DefaultEvidenceTopK = 3
	// DefaultMaxInlineRefChars is the reference size above which the judge
	// switches from inlining full documents to retrieved passages.
	DefaultMaxInlineRefChars = 6000
)

// LLMProvider is the reasoning backend an LLMJudge scores with.
type LLMProvider interface {
	Reasoning(ctx context.Context, system string, prompt string) (string, error)
}

// Passage is a retrieved slice of a reference document.
type Passage struct {
	Content    string  `json:"content"`
	DocumentID string  `json:"documentId"`
	Score      float64 `json:"score"`
}

// EvidenceRetriever narrows long reference sets down to the passages most
// related to a query, so judge prompts stay within model context limits.
type EvidenceRetriever interface {
	TopPassages(ctx context.Context, references []string, query string, limit int) ([]Passage, error)
}

// LLMJudge prompts a reasoning model for each metric and parses the JSON
// verdict it returns.
type LLMJudge struct {
	provider          LLMProvider
	retriever         EvidenceRetriever
	topK              int
	maxInlineRefChars int
	limiter           *rate.Limiter
}

type LLMJudgeOption func(j *LLMJudge)

// WithEvidenceRetriever plugs in passage retrieval for groundedness judging
// of long reference sets.
func WithEvidenceRetriever(r EvidenceRetriever, topK int) LLMJudgeOption {
	return func(j *LLMJudge) {
		j.retriever = r
		if topK > 0 {
			j.topK = topK
		}
	}
}

// WithMaxInlineRefChars sets the total reference length above which passage
// retrieval kicks in.
func WithMaxInlineRefChars(n int) LLMJudgeOption {
	return func(j *LLMJudge) {
		j.maxInlineRefChars = n
	}
}

// WithRateLimit caps judge calls at rps requests per second across all
// metrics. Zero or negative disables the limiter.
func WithRateLimit(rps float64) LLMJudgeOption {
	return func(j *LLMJudge) {
		if rps <= 0 {
			j.limiter = nil
			return
		}
		j.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

func NewLLMJudge(provider LLMProvider, opts ...LLMJudgeOption) (*LLMJudge, error) {
	if provider == nil {
		return nil, errors.New("llm provider is required")
	}

	j := &LLMJudge{
		provider:          provider,
		topK:              DefaultEvidenceTopK,
		maxInlineRefChars: DefaultMaxInlineRefChars,
	}

	for _, opt := range opts {
		opt(j)
	}

	return j, nil
}

func (j *LLMJudge) ScoreGroundedness(ctx context.Context, answer string, references []string) (Judgment, error) {
	refs := j.selectReferences(ctx, answer, references)
	data := PromptData{
		Answer:     answer,
		References: formatReferences(refs),
	}
	return j.judge(ctx, MetricGroundedness, GroundednessSystemMessageTmpl, GroundednessPromptTmpl, data)
}

func (j *LLMJudge) ScoreRelevance(ctx context.Context, question, answer string) (Judgment, error) {
	data := PromptData{Question: question, Answer: answer}
	return j.judge(ctx, MetricRelevance, RelevanceSystemMessageTmpl, RelevancePromptTmpl, data)
}

func (j *LLMJudge) ScoreCoherence(ctx context.Context, answer string) (Judgment, error) {
	data := PromptData{Answer: answer}
	return j.judge(ctx, MetricCoherence, CoherenceSystemMessageTmpl, CoherencePromptTmpl, data)
}

func (j *LLMJudge) ScoreCompleteness(ctx context.Context, question, answer string) (Judgment, error) {
	data := PromptData{Question: question, Answer: answer}
	return j.judge(ctx, MetricCompleteness, CompletenessSystemMessageTmpl, CompletenessPromptTmpl, data)
}

// selectReferences swaps full documents for retrieved passages when the
// reference set is too large to inline and a retriever is configured.
func (j *LLMJudge) selectReferences(ctx context.Context, answer string, references []string) []string {
	if j.retriever == nil {
		return references
	}

	total := 0
	for _, doc := range references {
		total += len(doc)
	}
	if total <= j.maxInlineRefChars {
		return references
	}

	passages, err := j.retriever.TopPassages(ctx, references, answer, j.topK)
	if err != nil {
		log.Error(err, "evidence retrieval failed, judging against full references")
		return references
	}
	if len(passages) == 0 {
		return references
	}

	refs := make([]string, len(passages))
	for i, p := range passages {
		refs[i] = p.Content
	}
	log.Debug("judging against retrieved passages", "passages", len(refs), "reference_chars", total)
	return refs
}

func (j *LLMJudge) judge(ctx context.Context, metric Metric, systemTmpl, promptTmpl string, data PromptData) (Judgment, error) {
	system, prompt, err := executeTemplates(systemTmpl, promptTmpl, data)
	if err != nil {
		return Judgment{}, fmt.Errorf("failed to prepare %s templates: %w", metric, err)
	}

	if j.limiter != nil {
		if err := j.limiter.Wait(ctx); err != nil {
			return Judgment{}, fmt.Errorf("rate limit wait for %s: %w", metric, err)
		}
	}

	log.Debug("judging", "metric", metric, "system", system, "prompt", prompt)
	raw, err := j.provider.Reasoning(ctx, system, prompt)
	if err != nil {
		log.Error(err, "failed to get judgment", "metric", metric)
		return Judgment{}, fmt.Errorf("failed to get %s judgment: %w", metric, err)
	}
	log.Debug("judgment received", "metric", metric, "raw", raw)

	judgment, err := ParseJudgment(raw)
	if err != nil {
		return Judgment{}, fmt.Errorf("malformed %s judgment: %w", metric, err)
	}

	if judgment.Score < 0 || judgment.Score > 1 {
		normalized := normalizeScore(judgment.Score)
		log.Debug("normalized out-of-range judge score", "metric", metric, "raw_score", judgment.Score, "score", normalized)
		judgment.Score = normalized
	}

	return judgment, nil
}

// ParseJudgment extracts the {"score": ..., "rationale": ...} object from a
// raw model response. Markdown code fences and any prose around the JSON
// object are tolerated.
func ParseJudgment(raw string) (Judgment, error) {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
		s = strings.TrimSpace(s)
	}

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return Judgment{}, fmt.Errorf("no JSON object in response %q", truncate(raw, 120))
	}
	s = s[start : end+1]

	var parsed struct {
		Score     *float64 `json:"score"`
		Rationale string   `json:"rationale"`
	}
	if err := json.Unmarshal([]byte(s), &parsed); err != nil {
		return Judgment{}, fmt.Errorf("failed to decode judgment JSON: %w", err)
	}
	if parsed.Score == nil {
		return Judgment{}, errors.New("judgment JSON has no score field")
	}

	return Judgment{Score: *parsed.Score, Rationale: parsed.Rationale}, nil
}

// normalizeScore maps scores handed back on a 0-10 or 0-100 scale into
// [0,1]; anything else is clamped.
func normalizeScore(score float64) float64 {
	switch {
	case score > 1 && score <= 10:
		return score / 10
	case score > 10 && score <= 100:
		return score / 100
	default:
		return clamp01(score)
	}
}

func executeTemplates(systemTmpl, promptTmpl string, data PromptData) (string, string, error) {
	var systemBuf, promptBuf bytes.Buffer

	sysT := template.Must(template.New("system").Parse(systemTmpl))
	if err := sysT.Execute(&systemBuf, data); err != nil {
		return "", "", fmt.Errorf("failed to execute system template: %w", err)
	}

	prmptT := template.Must(template.New("prompt").Parse(promptTmpl))
	if err := prmptT.Execute(&promptBuf, data); err != nil {
		return "", "", fmt.Errorf("failed to execute prompt template: %w", err)
	}

	return systemBuf.String(), promptBuf.String(), nil
}

func formatReferences(references []string) string {
	if len(references) == 1 {
		return references[0]
	}

	var b strings.Builder
	for i, doc := range references {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[%d] %s", i+1, doc)
	}
	return b.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
