// Package qa is the local extractive question-answering backend: it answers
// with the context sentence that best overlaps the question.
package qa

import (
	"context"
	"strings"

	"docchat/internal/domain"
	"docchat/internal/textutil"
)

// NoAnswer is returned when no context sentence shares a content word with
// the question.
const NoAnswer = "I could not find an answer to that in the document."

type Extractive struct {
	// Neighbors adds this many sentences after the best one.
	Neighbors int
}

var _ domain.AnsweringBackend = (*Extractive)(nil)

func NewExtractive() *Extractive { return &Extractive{} }

func (e *Extractive) Name() string { return "extractive" }

func (e *Extractive) Answer(ctx context.Context, req domain.AnswerRequest, sink domain.TokenSink) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	answer := BestSpan(req.Question, req.Context, e.Neighbors)
	if answer == "" {
		answer = NoAnswer
	}
	if sink != nil {
		sink(answer)
	}
	return answer, nil
}

// BestSpan returns the sentence of passage with the highest question overlap
// plus up to neighbors following sentences. Ties keep the earliest sentence.
// It returns "" when nothing overlaps.
func BestSpan(question, passage string, neighbors int) string {
	q := textutil.ContentSet(question)
	if len(q) == 0 {
		return ""
	}
	sentences := textutil.Sentences(passage)
	best, bestScore := -1, 0
	for i, s := range sentences {
		if score := textutil.Overlap(q, s); score > bestScore {
			best, bestScore = i, score
		}
	}
	if best < 0 {
		return ""
	}
	end := min(best+1+max(neighbors, 0), len(sentences))
	return strings.Join(sentences[best:end], " ")
}
