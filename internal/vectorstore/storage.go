// Package vectorstore holds what the index implementations share: input
// validation and the publish point for the active corpus.
package vectorstore

import (
	"fmt"
	"math"
	"sync/atomic"

	"docchat/internal/domain"
)

// Validate checks build input and returns the common vector dimension.
// An empty input has dimension 0.
func Validate(chunks []domain.TextChunk, vectors [][]float32) (int, error) {
	if len(chunks) != len(vectors) {
		return 0, fmt.Errorf("%w: %d chunks but %d vectors", domain.ErrDimensionMismatch, len(chunks), len(vectors))
	}
	if len(vectors) == 0 {
		return 0, nil
	}
	dim := len(vectors[0])
	if dim == 0 {
		return 0, fmt.Errorf("%w: zero-length vector", domain.ErrDimensionMismatch)
	}
	for i, v := range vectors {
		if len(v) != dim {
			return 0, fmt.Errorf("%w: vector %d has dimension %d, want %d", domain.ErrDimensionMismatch, i, len(v), dim)
		}
	}
	return dim, nil
}

// Normalize returns a unit-length copy of v, or a zero copy when v is zero.
func Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	out := make([]float32, len(v))
	if sum == 0 {
		return out
	}
	n := math.Sqrt(sum)
	for i, x := range v {
		out[i] = float32(float64(x) / n)
	}
	return out
}

// IsZero reports whether every component of v is zero.
func IsZero(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}

// Holder publishes the active corpus. Readers load a consistent corpus
// without locking; a rebuild is prepared off to the side and swapped in.
type Holder struct {
	current atomic.Pointer[domain.Corpus]
	gen     atomic.Int64
}

// Load returns the active corpus, or nil before the first publish.
func (h *Holder) Load() *domain.Corpus { return h.current.Load() }

// NextGeneration reserves a generation number for a build in progress.
func (h *Holder) NextGeneration() int64 { return h.gen.Add(1) }

// Swap publishes c and returns the corpus it replaced.
func (h *Holder) Swap(c *domain.Corpus) *domain.Corpus { return h.current.Swap(c) }
