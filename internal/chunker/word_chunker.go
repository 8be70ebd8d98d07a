package chunker

import (
	"fmt"
	"strings"

	"docchat/internal/domain"
)

const (
	DefaultChunkSize = 1500
	DefaultOverlap   = 200
)

// Split cuts text into windows of at most size words, consecutive windows
// sharing exactly overlap words. Words are whitespace-delimited.
func Split(text string, size, overlap int) ([]string, error) {
	if err := validate(size, overlap); err != nil {
		return nil, err
	}
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil, nil
	}
	step := size - overlap
	var out []string
	for start := 0; start < len(words); start += step {
		end := start + size
		if end > len(words) {
			end = len(words)
		}
		out = append(out, strings.Join(words[start:end], " "))
		if end == len(words) {
			break
		}
	}
	return out, nil
}

func validate(size, overlap int) error {
	if size <= 0 {
		return fmt.Errorf("%w: chunk size must be positive, got %d", domain.ErrInvalidConfig, size)
	}
	if overlap < 0 {
		return fmt.Errorf("%w: overlap must not be negative, got %d", domain.ErrInvalidConfig, overlap)
	}
	if overlap >= size {
		return fmt.Errorf("%w: overlap %d must be smaller than chunk size %d", domain.ErrInvalidConfig, overlap, size)
	}
	return nil
}

// WordChunker splits each document into overlapping word windows.
type WordChunker struct {
	size    int
	overlap int
}

var _ domain.Chunker = (*WordChunker)(nil)

// NewWordChunker fails fast when overlap >= size.
func NewWordChunker(size, overlap int) (*WordChunker, error) {
	if err := validate(size, overlap); err != nil {
		return nil, err
	}
	return &WordChunker{size: size, overlap: overlap}, nil
}

func (c *WordChunker) Chunk(doc domain.DocumentText) ([]domain.TextChunk, error) {
	windows, err := Split(doc.Text, c.size, c.overlap)
	if err != nil {
		return nil, err
	}
	chunks := make([]domain.TextChunk, len(windows))
	for i, w := range windows {
		chunks[i] = domain.TextChunk{Index: i, Content: w, Source: doc.Name}
	}
	return chunks, nil
}

// Overlap reports the configured overlap in words.
func (c *WordChunker) Overlap() int { return c.overlap }
