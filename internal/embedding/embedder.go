// Package embedding holds helpers shared by the embedder implementations.
package embedding

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"docchat/internal/domain"
)

// CheckBatch rejects batches an embedder must not be called with.
func CheckBatch(texts []string) error {
	if len(texts) == 0 {
		return fmt.Errorf("%w: empty batch", domain.ErrEmbedding)
	}
	for i, t := range texts {
		if strings.TrimSpace(t) == "" {
			return fmt.Errorf("%w: item %d is empty", domain.ErrEmbedding, i)
		}
	}
	return nil
}

// CheckResult verifies a provider returned one vector per input, all of one
// dimension.
func CheckResult(texts []string, vectors [][]float32) error {
	if len(vectors) != len(texts) {
		return fmt.Errorf("%w: got %d vectors for %d inputs", domain.ErrEmbedding, len(vectors), len(texts))
	}
	for i, v := range vectors {
		if len(v) == 0 {
			return fmt.Errorf("%w: empty vector at %d", domain.ErrEmbedding, i)
		}
		if len(v) != len(vectors[0]) {
			return fmt.Errorf("%w: vector %d has dimension %d, want %d", domain.ErrEmbedding, i, len(v), len(vectors[0]))
		}
	}
	return nil
}

// Batched splits calls to next into batches of at most size texts.
func Batched(next domain.Embedder, size int) domain.Embedder {
	if size <= 0 {
		return next
	}
	return &batched{next: next, size: size}
}

type batched struct {
	next domain.Embedder
	size int
}

func (b *batched) Name() string { return b.next.Name() }

func (b *batched) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := CheckBatch(texts); err != nil {
		return nil, err
	}
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += b.size {
		end := min(start+b.size, len(texts))
		vecs, err := b.next.Embed(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, vecs...)
	}
	return out, nil
}

// Fitted fits e on corpus when it is a Fitter and returns e otherwise.
func Fitted(ctx context.Context, e domain.Embedder, corpus []string) (domain.Embedder, error) {
	f, ok := e.(domain.Fitter)
	if !ok {
		return e, nil
	}
	return f.Fit(ctx, corpus)
}

func (b *batched) Fit(ctx context.Context, corpus []string) (domain.Embedder, error) {
	next, err := Fitted(ctx, b.next, corpus)
	if err != nil {
		return nil, err
	}
	return Batched(next, b.size), nil
}

// Memo caches vectors by exact text. Fitting yields a fresh cache since the
// vector space changes.
func Memo(next domain.Embedder) domain.Embedder {
	return &memo{next: next, cache: make(map[string][]float32)}
}

type memo struct {
	next  domain.Embedder
	mu    sync.Mutex
	cache map[string][]float32
}

func (m *memo) Name() string { return m.next.Name() }

func (m *memo) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := CheckBatch(texts); err != nil {
		return nil, err
	}
	out := make([][]float32, len(texts))
	var missing []string
	var missingIdx []int
	m.mu.Lock()
	for i, t := range texts {
		if v, ok := m.cache[t]; ok {
			out[i] = v
			continue
		}
		missing = append(missing, t)
		missingIdx = append(missingIdx, i)
	}
	m.mu.Unlock()
	if len(missing) == 0 {
		return out, nil
	}
	vecs, err := m.next.Embed(ctx, missing)
	if err != nil {
		return nil, err
	}
	if err := CheckResult(missing, vecs); err != nil {
		return nil, err
	}
	m.mu.Lock()
	for j, v := range vecs {
		m.cache[missing[j]] = v
		out[missingIdx[j]] = v
	}
	m.mu.Unlock()
	return out, nil
}

func (m *memo) Fit(ctx context.Context, corpus []string) (domain.Embedder, error) {
	if _, ok := m.next.(domain.Fitter); !ok {
		return m, nil
	}
	next, err := Fitted(ctx, m.next, corpus)
	if err != nil {
		return nil, err
	}
	return Memo(next), nil
}
