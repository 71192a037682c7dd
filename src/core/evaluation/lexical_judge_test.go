package evaluation_test

import (
	"context"
	"math"
	"testing"

	"hunter/src/core/evaluation"
)

func TestLexicalGroundedness(t *testing.T) {
	refs := []string{"Paris is the capital of France."}

	tests := []struct {
		name   string
		answer string
		want   float64
	}{
		{
			name:   "fully supported",
			answer: "The capital of France is Paris.",
			want:   1,
		},
		{
			name:   "unsupported claim",
			answer: "The capital of France is Lyon.",
			want:   2.0 / 3.0, // capital and france match, lyon does not
		},
		{
			name:   "mixed claims",
			answer: "Paris is the capital of France. It orbits the sun.",
			want:   0.5,
		},
	}

	judge := evaluation.NewLexicalJudge()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := judge.ScoreGroundedness(context.Background(), tt.answer, refs)
			if err != nil {
				t.Fatalf("ScoreGroundedness() error = %v", err)
			}
			if math.Abs(got.Score-tt.want) > 1e-9 {
				t.Errorf("Score = %v, want %v", got.Score, tt.want)
			}
			if got.Rationale == "" {
				t.Error("Rationale should explain the score")
			}
		})
	}
}

func TestLexicalRelevance(t *testing.T) {
	judge := evaluation.NewLexicalJudge()
	question := "What is the capital of France?"

	on, err := judge.ScoreRelevance(context.Background(), question, "The capital of France is Paris.")
	if err != nil {
		t.Fatalf("ScoreRelevance() error = %v", err)
	}
	if on.Score != 1 {
		t.Errorf("on-topic Score = %v, want 1", on.Score)
	}

	off, err := judge.ScoreRelevance(context.Background(), question, "The sky is blue.")
	if err != nil {
		t.Fatalf("ScoreRelevance() error = %v", err)
	}
	if off.Score >= 0.3 {
		t.Errorf("off-topic Score = %v, want below 0.3", off.Score)
	}
}

func TestLexicalCoherence(t *testing.T) {
	judge := evaluation.NewLexicalJudge()

	tests := []struct {
		name   string
		answer string
		check  func(t *testing.T, score float64)
	}{
		{
			name:   "clean answer",
			answer: "Paris is the capital. It sits on the Seine.",
			check: func(t *testing.T, score float64) {
				if score != 1 {
					t.Errorf("Score = %v, want 1", score)
				}
			},
		},
		{
			name:   "repeated sentence",
			answer: "Paris is great. Paris is great. Paris is great.",
			check: func(t *testing.T, score float64) {
				if math.Abs(score-1.0/3.0) > 1e-9 {
					t.Errorf("Score = %v, want 1/3 after two repeats", score)
				}
			},
		},
		{
			name:   "self contradiction",
			answer: "The sky is blue. The sky is not blue.",
			check: func(t *testing.T, score float64) {
				if score > 0.5 {
					t.Errorf("Score = %v, want at most 0.5 for a contradiction", score)
				}
			},
		},
		{
			name:   "single statement",
			answer: "Paris.",
			check: func(t *testing.T, score float64) {
				if score != 1 {
					t.Errorf("Score = %v, want 1", score)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := judge.ScoreCoherence(context.Background(), tt.answer)
			if err != nil {
				t.Fatalf("ScoreCoherence() error = %v", err)
			}
			tt.check(t, got.Score)
		})
	}
}

func TestLexicalCompleteness(t *testing.T) {
	judge := evaluation.NewLexicalJudge()
	question := "What is the capital of France and what is its population?"

	partial, err := judge.ScoreCompleteness(context.Background(), question, "The capital of France is Paris.")
	if err != nil {
		t.Fatalf("ScoreCompleteness() error = %v", err)
	}
	if math.Abs(partial.Score-0.5) > 1e-9 {
		t.Errorf("partial answer Score = %v, want 0.5", partial.Score)
	}

	full, err := judge.ScoreCompleteness(context.Background(), question,
		"The capital of France is Paris, and its population is about two million.")
	if err != nil {
		t.Fatalf("ScoreCompleteness() error = %v", err)
	}
	if full.Score != 1 {
		t.Errorf("full answer Score = %v, want 1", full.Score)
	}
}

func TestSplitSentences(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "basic",
			text: "One. Two! Three?",
			want: []string{"One.", "Two!", "Three?"},
		},
		{
			name: "trailing fragment",
			text: "Complete sentence. dangling tail",
			want: []string{"Complete sentence.", "dangling tail"},
		},
		{
			name: "decimal point survives",
			text: "The rate is 3.5 percent. Done.",
			want: []string{"The rate is 3.5 percent.", "Done."},
		},
		{
			name: "punctuation run",
			text: "Really?! Yes.",
			want: []string{"Really?!", "Yes."},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := evaluation.SplitSentences(tt.text)
			if len(got) != len(tt.want) {
				t.Fatalf("SplitSentences() = %q, want %q", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("sentence %d = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}
