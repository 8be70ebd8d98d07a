package memory

import (
	"context"
	"fmt"

	"docchat/internal/domain"
	"docchat/internal/vectorstore"
)

// Builder builds in-memory indexes.
type Builder struct{}

var _ domain.IndexBuilder = Builder{}

func NewBuilder() Builder { return Builder{} }

// Build copies chunks and unit-normalised vectors into a new Index.
func (Builder) Build(_ context.Context, chunks []domain.TextChunk, vectors [][]float32) (domain.VectorIndex, error) {
	dim, err := vectorstore.Validate(chunks, vectors)
	if err != nil {
		return nil, err
	}
	idx := &Index{
		dimension: dim,
		chunks:    append([]domain.TextChunk(nil), chunks...),
		vectors:   make([][]float32, len(vectors)),
	}
	for i, v := range vectors {
		idx.vectors[i] = vectorstore.Normalize(v)
	}
	return idx, nil
}

// Index is an immutable brute-force cosine similarity index.
type Index struct {
	dimension int
	vectors   [][]float32
	chunks    []domain.TextChunk
}

var _ domain.VectorIndex = (*Index)(nil)

func (s *Index) Size() int { return len(s.chunks) }

func (s *Index) Release(context.Context) error { return nil }

// Query returns the min(k, Size) most similar chunks, best first.
func (s *Index) Query(_ context.Context, vector []float32, k int) ([]domain.SearchResult, error) {
	if k <= 0 || len(s.chunks) == 0 {
		return []domain.SearchResult{}, nil
	}
	if len(vector) != s.dimension {
		return nil, fmt.Errorf("%w: query has dimension %d, index %d", domain.ErrDimensionMismatch, len(vector), s.dimension)
	}
	q := vectorstore.Normalize(vector)
	scores := make([]float64, len(s.vectors))
	for i := range s.vectors {
		scores[i] = dot(s.vectors[i], q)
	}
	idxs := argsortDesc(scores)
	if k > len(idxs) {
		k = len(idxs)
	}
	results := make([]domain.SearchResult, 0, k)
	for i := 0; i < k; i++ {
		j := idxs[i]
		results = append(results, domain.SearchResult{Chunk: s.chunks[j], Score: scores[j]})
	}
	return results, nil
}

func dot(a, b []float32) float64 {
	sum := 0.0
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func argsortDesc(vals []float64) []int {
	idxs := make([]int, len(vals))
	for i := range vals {
		idxs[i] = i
	}
	quicksort(idxs, vals, 0, len(idxs)-1)
	return idxs
}

func quicksort(idxs []int, vals []float64, lo, hi int) {
	if lo >= hi {
		return
	}
	i, j := lo, hi
	pivot := vals[idxs[(lo+hi)/2]]
	for i <= j {
		for vals[idxs[i]] > pivot { // desc order
			i++
		}
		for vals[idxs[j]] < pivot {
			j--
		}
		if i <= j {
			idxs[i], idxs[j] = idxs[j], idxs[i]
			i++
			j--
		}
	}
	if lo < j {
		quicksort(idxs, vals, lo, j)
	}
	if i < hi {
		quicksort(idxs, vals, i, hi)
	}
}
