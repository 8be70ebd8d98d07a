package chunker

import (
	"fmt"
	"strings"

	"docchat/internal/domain"
	"docchat/internal/textutil"
)

const DefaultSentencesPerChunk = 5

// SentenceChunker groups whole sentences into windows. Consecutive windows
// of one document repeat the last overlap sentences of the previous one.
type SentenceChunker struct {
	per     int
	overlap int
}

var _ domain.Chunker = (*SentenceChunker)(nil)

// NewSentenceChunker falls back to DefaultSentencesPerChunk for per <= 0.
// An overlap outside [0, per) fails with domain.ErrInvalidConfig.
func NewSentenceChunker(per, overlap int) (*SentenceChunker, error) {
	if per <= 0 {
		per = DefaultSentencesPerChunk
	}
	if overlap < 0 || overlap >= per {
		return nil, fmt.Errorf("%w: sentence overlap %d must be in [0, %d)", domain.ErrInvalidConfig, overlap, per)
	}
	return &SentenceChunker{per: per, overlap: overlap}, nil
}

func (c *SentenceChunker) Chunk(doc domain.DocumentText) ([]domain.TextChunk, error) {
	sentences := textutil.Sentences(doc.Text)
	if len(sentences) == 0 {
		return nil, nil
	}
	step := c.per - c.overlap
	chunks := make([]domain.TextChunk, 0, (len(sentences)+step-1)/step)
	for start := 0; start < len(sentences); start += step {
		end := min(start+c.per, len(sentences))
		chunks = append(chunks, domain.TextChunk{
			Index:   len(chunks),
			Content: strings.Join(sentences[start:end], " "),
			Source:  doc.Name,
		})
		if end == len(sentences) {
			break
		}
	}
	return chunks, nil
}
