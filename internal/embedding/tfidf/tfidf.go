package tfidf

import (
	"context"
	"fmt"
	"math"
	"sort"

	"docchat/internal/domain"
	"docchat/internal/embedding"
	"docchat/internal/textutil"
)

// Embedder implements a simple TF-IDF vectorizer. The zero-vocabulary
// Embedder returned by NewEmbedder must be fitted before it can embed.
type Embedder struct {
	vocabulary map[string]int
	idf        []float64
	dimension  int
}

var (
	_ domain.Embedder = (*Embedder)(nil)
	_ domain.Fitter   = (*Embedder)(nil)
)

// NewEmbedder creates an unfitted TF-IDF embedder.
func NewEmbedder() *Embedder { return &Embedder{} }

// Name returns the identifier of this embedder implementation.
func (e *Embedder) Name() string { return "tfidf" }

// Fit builds the vocabulary and IDF values from corpus and returns the
// fitted embedder.
func (e *Embedder) Fit(_ context.Context, corpus []string) (domain.Embedder, error) {
	if len(corpus) == 0 {
		return nil, fmt.Errorf("%w: empty corpus for TF-IDF fit", domain.ErrEmbedding)
	}
	// Build vocabulary and document frequencies
	df := make(map[string]int)
	for _, text := range corpus {
		seen := make(map[string]struct{})
		for _, tok := range e.tokenize(text) {
			if _, ok := seen[tok]; ok {
				continue
			}
			seen[tok] = struct{}{}
			df[tok]++
		}
	}
	// Create stable ordering for vocabulary
	terms := make([]string, 0, len(df))
	for term := range df {
		terms = append(terms, term)
	}
	sort.Strings(terms)
	if len(terms) == 0 {
		return nil, fmt.Errorf("%w: no tokens found in corpus", domain.ErrEmbedding)
	}
	fitted := &Embedder{
		vocabulary: make(map[string]int, len(terms)),
		idf:        make([]float64, len(terms)),
		dimension:  len(terms),
	}
	N := float64(len(corpus))
	for i, term := range terms {
		fitted.vocabulary[term] = i
		// Smoothed IDF
		fitted.idf[i] = math.Log((1+N)/(1+float64(df[term]))) + 1.0
	}
	return fitted, nil
}

// Dimension returns the dimensionality of the produced embedding vectors.
func (e *Embedder) Dimension() int { return e.dimension }

// Embed computes L2-normalised TF-IDF vectors. Texts without known terms map
// to the zero vector.
func (e *Embedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if e.dimension == 0 {
		return nil, fmt.Errorf("%w: tfidf embedder not fitted", domain.ErrEmbedding)
	}
	if err := embedding.CheckBatch(texts); err != nil {
		return nil, err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = e.embedOne(t)
	}
	return out, nil
}

func (e *Embedder) embedOne(text string) []float32 {
	vec := make([]float64, e.dimension)
	tf := make(map[int]int)
	total := 0
	for _, tok := range e.tokenize(text) {
		if idx, ok := e.vocabulary[tok]; ok {
			tf[idx]++
			total++
		}
	}
	out := make([]float32, e.dimension)
	if total == 0 {
		return out
	}
	for idx, count := range tf {
		vec[idx] = float64(count) / float64(total) * e.idf[idx]
	}
	norm := 0.0
	for _, v := range vec {
		norm += v * v
	}
	norm = math.Sqrt(norm)
	for i, v := range vec {
		out[i] = float32(v / norm)
	}
	return out
}

func (e *Embedder) tokenize(text string) []string {
	raw := textutil.Tokens(text)
	out := raw[:0]
	for _, t := range raw {
		if !textutil.IsStopword(t) {
			out = append(out, t)
		}
	}
	return out
}
