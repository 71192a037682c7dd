package evaluation

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// LexicalJudge scores answers with deterministic token-overlap heuristics.
// It needs no network access, so it doubles as the fallback backend and as
// the reproducible judge in tests. Known limitation: an answer that is
// correct but shares no wording with the question (a bare entity name, a
// paraphrase) scores low on relevance; an LLM judge handles those.
type LexicalJudge struct{}

func NewLexicalJudge() *LexicalJudge {
	return &LexicalJudge{}
}

// ScoreGroundedness splits the answer into claims and checks each claim's
// content terms against the reference documents. The score is the mean
// supported fraction across checkable claims.
func (j *LexicalJudge) ScoreGroundedness(ctx context.Context, answer string, references []string) (Judgment, error) {
	refSets := make([]map[string]struct{}, len(references))
	for i, doc := range references {
		refSets[i] = tokenSet(Tokenize(doc))
	}

	checked := 0
	fullySupported := 0
	var sum float64

	for _, claim := range SplitSentences(answer) {
		terms := contentTokens(claim)
		if len(terms) == 0 {
			continue
		}
		checked++

		best := 0.0
		for _, set := range refSets {
			if c := coverage(terms, set); c > best {
				best = c
			}
		}
		sum += best
		if best == 1 {
			fullySupported++
		}
	}

	if checked == 0 {
		return Judgment{Score: 1, Rationale: "answer makes no checkable claims"}, nil
	}

	return Judgment{
		Score:     sum / float64(checked),
		Rationale: fmt.Sprintf("%d/%d claims fully supported by the references", fullySupported, checked),
	}, nil
}

// ScoreRelevance measures how much of the question's content terms the
// answer picks up.
func (j *LexicalJudge) ScoreRelevance(ctx context.Context, question, answer string) (Judgment, error) {
	terms := contentTokens(question)
	if len(terms) == 0 {
		return Judgment{Score: 0.5, Rationale: "question has no content terms to match"}, nil
	}

	answerSet := tokenSet(Tokenize(answer))
	score := coverage(terms, answerSet)

	covered := 0
	for _, term := range terms {
		if _, ok := answerSet[term]; ok {
			covered++
		}
	}

	return Judgment{
		Score:     score,
		Rationale: fmt.Sprintf("answer covers %d/%d question terms", covered, len(terms)),
	}, nil
}

// ScoreCoherence penalizes repeated sentences and direct self-contradictions
// (two sentences identical except for negation).
func (j *LexicalJudge) ScoreCoherence(ctx context.Context, answer string) (Judgment, error) {
	sentences := SplitSentences(answer)
	if len(sentences) <= 1 {
		return Judgment{Score: 1, Rationale: "single statement"}, nil
	}

	type shape struct {
		key     string
		negated bool
	}
	shapes := make([]shape, len(sentences))
	duplicates := 0
	seen := make(map[string]struct{}, len(sentences))

	for i, sentence := range sentences {
		tokens := Tokenize(sentence)

		var stripped []string
		negated := false
		for _, tok := range tokens {
			if _, neg := negations[tok]; neg {
				negated = true
				continue
			}
			stripped = append(stripped, tok)
		}
		sort.Strings(stripped)
		shapes[i] = shape{key: strings.Join(stripped, " "), negated: negated}

		exact := strings.Join(tokens, " ")
		if _, dup := seen[exact]; dup {
			duplicates++
		}
		seen[exact] = struct{}{}
	}

	contradictions := 0
	for i := 0; i < len(shapes); i++ {
		for k := i + 1; k < len(shapes); k++ {
			if shapes[i].key != "" && shapes[i].key == shapes[k].key && shapes[i].negated != shapes[k].negated {
				contradictions++
			}
		}
	}

	score := clamp01(1 - float64(duplicates)/float64(len(sentences)) - 0.5*float64(contradictions))
	return Judgment{
		Score:     score,
		Rationale: fmt.Sprintf("%d repeated and %d contradictory statements across %d sentences", duplicates, contradictions, len(sentences)),
	}, nil
}

// ScoreCompleteness splits a compound question into parts and averages how
// well the answer covers each part's content terms.
func (j *LexicalJudge) ScoreCompleteness(ctx context.Context, question, answer string) (Judgment, error) {
	parts := questionParts(question)
	if len(parts) == 0 {
		return Judgment{Score: 0.5, Rationale: "question has no content terms to match"}, nil
	}

	answerSet := tokenSet(Tokenize(answer))
	addressed := 0
	var sum float64
	for _, part := range parts {
		c := coverage(contentTokens(part), answerSet)
		sum += c
		if c >= 0.5 {
			addressed++
		}
	}

	return Judgment{
		Score:     sum / float64(len(parts)),
		Rationale: fmt.Sprintf("answer addresses %d/%d question parts", addressed, len(parts)),
	}, nil
}
