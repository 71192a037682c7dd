package evaluation

import (
	"strings"
	"unicode"
)

// stopwords are skipped when extracting content terms; scoring only cares
// about the words that carry meaning.
var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "is": {}, "are": {}, "was": {}, "were": {},
	"be": {}, "been": {}, "being": {}, "am": {}, "do": {}, "does": {}, "did": {},
	"of": {}, "to": {}, "in": {}, "on": {}, "at": {}, "for": {}, "with": {},
	"and": {}, "or": {}, "but": {}, "if": {}, "then": {}, "than": {}, "so": {},
	"what": {}, "which": {}, "who": {}, "whom": {}, "whose": {}, "when": {},
	"where": {}, "why": {}, "how": {}, "there": {}, "here": {}, "it": {},
	"its": {}, "this": {}, "that": {}, "these": {}, "those": {}, "as": {},
	"by": {}, "from": {}, "about": {}, "he": {}, "she": {}, "they": {},
	"them": {}, "his": {}, "her": {}, "their": {}, "you": {}, "your": {},
	"i": {}, "we": {}, "us": {}, "our": {}, "me": {}, "my": {}, "can": {},
	"could": {}, "will": {}, "would": {}, "shall": {}, "should": {},
	"may": {}, "might": {}, "must": {}, "have": {}, "has": {}, "had": {},
}

// negations flip the meaning of a sentence; they are kept out of the
// stopword set on purpose so contradiction checks can see them.
var negations = map[string]struct{}{
	"not": {}, "no": {}, "never": {}, "none": {}, "neither": {}, "nor": {},
}

// Tokenize lowercases the text and splits it into letter/digit runs.
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

// SplitSentences breaks text into sentences at ., ! and ? boundaries. It is
// deliberately simple; judge scoring only needs claim-sized pieces, not a
// full sentence parser.
func SplitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		current.WriteRune(r)

		if r != '.' && r != '!' && r != '?' {
			continue
		}
		// Consume trailing punctuation runs like "?!" or "...".
		for i+1 < len(runes) && (runes[i+1] == '.' || runes[i+1] == '!' || runes[i+1] == '?') {
			i++
			current.WriteRune(runes[i])
		}
		if i+1 < len(runes) && !unicode.IsSpace(runes[i+1]) {
			continue
		}

		if s := strings.TrimSpace(current.String()); s != "" {
			sentences = append(sentences, s)
		}
		current.Reset()
	}

	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

func contentTokens(text string) []string {
	var out []string
	for _, tok := range Tokenize(text) {
		if _, skip := stopwords[tok]; skip {
			continue
		}
		if _, skip := negations[tok]; skip {
			continue
		}
		out = append(out, tok)
	}
	return out
}

func tokenSet(tokens []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		set[tok] = struct{}{}
	}
	return set
}

// coverage is the fraction of tokens present in the set.
func coverage(tokens []string, set map[string]struct{}) float64 {
	if len(tokens) == 0 {
		return 0
	}
	hit := 0
	for _, tok := range tokens {
		if _, ok := set[tok]; ok {
			hit++
		}
	}
	return float64(hit) / float64(len(tokens))
}

// questionParts splits a compound question into its sub-questions, one per
// "?"-terminated segment and per "and"/";" conjunction inside a segment.
// Parts without content terms are dropped.
func questionParts(question string) []string {
	var parts []string
	for _, segment := range strings.Split(question, "?") {
		for _, piece := range strings.Split(segment, ";") {
			for _, part := range strings.Split(piece, " and ") {
				if len(contentTokens(part)) == 0 {
					continue
				}
				parts = append(parts, strings.TrimSpace(part))
			}
		}
	}
	return parts
}
