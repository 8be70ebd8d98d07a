package qdrant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docchat/internal/domain"
)

type fakeQdrant struct {
	mu       sync.Mutex
	requests []string
	points   map[string][]map[string]any
}

func (f *fakeQdrant) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, r.Method+" "+r.URL.Path)
	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/collections/"), "/")
	name := parts[0]
	switch {
	case r.Method == http.MethodPut && len(parts) == 1:
		f.points[name] = nil
		_, _ = w.Write([]byte(`{"result":true}`))
	case r.Method == http.MethodPut && len(parts) == 2:
		var body struct {
			Points []map[string]any `json:"points"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.points[name] = append(f.points[name], body.Points...)
		_, _ = w.Write([]byte(`{"result":{"status":"completed"}}`))
	case r.Method == http.MethodPost:
		var body struct {
			Limit int `json:"limit"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		var result []map[string]any
		for i, p := range f.points[name] {
			if i == body.Limit {
				break
			}
			result = append(result, map[string]any{"score": 1.0 - float64(i)*0.1, "payload": p["payload"]})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"result": result})
	case r.Method == http.MethodDelete:
		delete(f.points, name)
		_, _ = w.Write([]byte(`{"result":true}`))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func TestBuildQueryRelease(t *testing.T) {
	fake := &fakeQdrant{points: map[string][]map[string]any{}}
	srv := httptest.NewServer(fake)
	defer srv.Close()
	ctx := context.Background()

	b := NewBuilder(Config{URL: srv.URL, Collection: "test"})
	chunks := []domain.TextChunk{
		{Index: 0, Content: "first", Source: "a.pdf"},
		{Index: 1, Content: "second", Source: "a.pdf"},
		{Index: 0, Content: "third", Source: "b.docx"},
	}
	vectors := [][]float32{{1, 0}, {0, 1}, {1, 1}}
	idx, err := b.Build(ctx, chunks, vectors)
	require.NoError(t, err)
	assert.Equal(t, 3, idx.Size())

	name := idx.(*Index).Collection()
	assert.True(t, strings.HasPrefix(name, "test-"))

	res, err := idx.Query(ctx, []float32{1, 0}, 50)
	require.NoError(t, err)
	require.Len(t, res, 3)
	assert.Equal(t, "first", res[0].Chunk.Content)
	assert.Equal(t, "b.docx", res[2].Chunk.Source)

	none, err := idx.Query(ctx, []float32{1, 0}, 0)
	require.NoError(t, err)
	assert.Empty(t, none)

	require.NoError(t, idx.Release(ctx))
	_, exists := fake.points[name]
	assert.False(t, exists)
}

func TestBuildsUseDistinctCollections(t *testing.T) {
	fake := &fakeQdrant{points: map[string][]map[string]any{}}
	srv := httptest.NewServer(fake)
	defer srv.Close()
	ctx := context.Background()

	b := NewBuilder(Config{URL: srv.URL})
	chunks := []domain.TextChunk{{Content: "x"}}
	first, err := b.Build(ctx, chunks, [][]float32{{1}})
	require.NoError(t, err)
	second, err := b.Build(ctx, chunks, [][]float32{{1}})
	require.NoError(t, err)
	assert.NotEqual(t, first.(*Index).Collection(), second.(*Index).Collection())
}

func TestBuildValidates(t *testing.T) {
	b := NewBuilder(Config{URL: "http://127.0.0.1:1"})
	_, err := b.Build(context.Background(), []domain.TextChunk{{}}, nil)
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}
