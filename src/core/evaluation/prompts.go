package evaluation

// PromptData holds the fields the judge prompt templates interpolate.
type PromptData struct {
	Question   string
	Answer     string
	References string
}

const (
	GroundednessSystemMessageTmpl = `
You are an expert fact-checking judge. You verify whether the claims in an answer are supported by reference documents, and nothing else.
`
	GroundednessPromptTmpl = `
Your task is to measure how well the answer is grounded in the reference documents. \
A claim is grounded only if the references state it or directly entail it; general knowledge that the references do not contain does not count.

The reference documents and the answer are delimited by XML tags <REFERENCES></REFERENCES> and <ANSWER></ANSWER>:

<REFERENCES>
{{.References}}
</REFERENCES>

<ANSWER>
{{.Answer}}
</ANSWER>

Score the fraction of the answer's claims that the references support, from 0.0 (every claim unsupported) to 1.0 (every claim supported).

Respond with ONLY a JSON object and nothing else:
{"score": <number between 0.0 and 1.0>, "rationale": "<one or two sentences naming any unsupported claims>"}
`

	RelevanceSystemMessageTmpl = `
You are an expert judge of answer relevance. You assess whether an answer addresses the question it was given, ignoring whether the answer is factually correct.
`
	RelevancePromptTmpl = `
Your task is to measure whether the answer addresses the question. Do not judge correctness or completeness, only whether the answer speaks to what was asked.

The question and the answer are delimited by XML tags <QUESTION></QUESTION> and <ANSWER></ANSWER>:

<QUESTION>
{{.Question}}
</QUESTION>

<ANSWER>
{{.Answer}}
</ANSWER>

Score from 0.0 (the answer is about something else entirely) to 1.0 (the answer directly addresses the question).

Respond with ONLY a JSON object and nothing else:
{"score": <number between 0.0 and 1.0>, "rationale": "<one or two sentences>"}
`

	CoherenceSystemMessageTmpl = `
You are an expert judge of logical coherence. You assess whether a text is internally consistent and well ordered.
`
	CoherencePromptTmpl = `
Your task is to measure the internal logical consistency of the answer: contradictions, circular statements, abrupt topic jumps and incoherent repetition all lower the score. Factual accuracy is out of scope.

The answer is delimited by XML tags <ANSWER></ANSWER>:

<ANSWER>
{{.Answer}}
</ANSWER>

Score from 0.0 (self-contradictory or incoherent) to 1.0 (fully consistent).

Respond with ONLY a JSON object and nothing else:
{"score": <number between 0.0 and 1.0>, "rationale": "<one or two sentences>"}
`

	CompletenessSystemMessageTmpl = `
You are an expert judge of answer completeness. You assess whether an answer covers every part of the question that was asked.
`
	CompletenessPromptTmpl = `
Your task is to measure whether the answer addresses all sub-aspects of the question. Identify the distinct things the question asks for, then check each one against the answer.

The question and the answer are delimited by XML tags <QUESTION></QUESTION> and <ANSWER></ANSWER>:

<QUESTION>
{{.Question}}
</QUESTION>

<ANSWER>
{{.Answer}}
</ANSWER>

Score from 0.0 (no part of the question answered) to 1.0 (every part answered).

Respond with ONLY a JSON object and nothing else:
{"score": <number between 0.0 and 1.0>, "rationale": "<one or two sentences naming any missing parts>"}
`
)
