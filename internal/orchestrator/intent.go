package orchestrator

import "regexp"

// Intent is the kind of turn a question asks for.
type Intent int

const (
	IntentAsk Intent = iota
	IntentSummarize
)

func (i Intent) String() string {
	switch i {
	case IntentSummarize:
		return "summarize"
	default:
		return "ask"
	}
}

const (
	// end of the request, e.g. "give me a summary please."
	requestEnd = `\s*(?:please)?\s*[.!?]*\s*$`
	// a reference to the uploaded material: "it", "this", "the whole pdf"
	docRef = `(?:(?:the|this|that|these|those|my|our|your|all|entire|whole|full|uploaded|attached)\s+)*` +
		`(?:it|this|that|them|everything|documents?|docs?|pdfs?|files?|text|uploads?|contents?)\b`
)

var (
	summarizeVerbRe = regexp.MustCompile(`(?i)\b(?:summari[sz]e|sum\s+up)(?:` + requestEnd + `|\s+` + docRef + `)`)
	summaryNounRe   = regexp.MustCompile(`(?i)\b(?:summary|overview|tl;?dr)(?:` + requestEnd + `|\s+(?:of|for|on)\s+` + docRef + `)`)
)

// Classify returns IntentSummarize when the question asks for a summary of
// the documents themselves ("summarize this", "give me an overview of the
// file"). A summary or overview of some topic inside them, or a question
// about a "summary table", stays IntentAsk and goes through retrieval.
func Classify(question string) Intent {
	if summarizeVerbRe.MatchString(question) || summaryNounRe.MatchString(question) {
		return IntentSummarize
	}
	return IntentAsk
}
