package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"docchat/internal/domain"
	"docchat/internal/vectorstore"
)

const upsertBatch = 256

// Config contains connection details for a Qdrant server.
type Config struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
}

// Builder creates one fresh Qdrant collection per build, named
// <collection>-<uuid>, so a rebuild never touches the collection that
// in-flight queries are reading.
type Builder struct {
	client *client
	prefix string
}

var _ domain.IndexBuilder = (*Builder)(nil)

func NewBuilder(cfg Config) *Builder {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	prefix := cfg.Collection
	if prefix == "" {
		prefix = "docchat"
	}
	return &Builder{
		client: &client{url: cfg.URL, apiKey: cfg.APIKey, http: &http.Client{Timeout: timeout}},
		prefix: prefix,
	}
}

func (b *Builder) Build(ctx context.Context, chunks []domain.TextChunk, vectors [][]float32) (domain.VectorIndex, error) {
	dim, err := vectorstore.Validate(chunks, vectors)
	if err != nil {
		return nil, err
	}
	idx := &Index{client: b.client, collection: b.prefix + "-" + uuid.NewString(), dimension: dim, size: len(chunks)}
	if len(chunks) == 0 {
		return idx, nil
	}
	body := map[string]any{
		"vectors": map[string]any{
			"size":     dim,
			"distance": "Cosine",
		},
	}
	if err := b.client.do(ctx, http.MethodPut, "/collections/"+idx.collection, body, nil); err != nil {
		return nil, err
	}
	for start := 0; start < len(chunks); start += upsertBatch {
		end := min(start+upsertBatch, len(chunks))
		points := make([]map[string]any, 0, end-start)
		for i := start; i < end; i++ {
			points = append(points, map[string]any{
				"id":     uuid.NewString(),
				"vector": vectors[i],
				"payload": map[string]any{
					"source":  chunks[i].Source,
					"index":   chunks[i].Index,
					"content": chunks[i].Content,
				},
			})
		}
		if err := b.client.do(ctx, http.MethodPut, "/collections/"+idx.collection+"/points?wait=true", map[string]any{"points": points}, nil); err != nil {
			_ = idx.Release(ctx)
			return nil, err
		}
	}
	return idx, nil
}

// Index is a read-only view of one generation collection.
type Index struct {
	client     *client
	collection string
	dimension  int
	size       int
}

var _ domain.VectorIndex = (*Index)(nil)

func (s *Index) Size() int { return s.size }

// Collection returns the generation collection name.
func (s *Index) Collection() string { return s.collection }

func (s *Index) Query(ctx context.Context, vector []float32, k int) ([]domain.SearchResult, error) {
	if k <= 0 || s.size == 0 {
		return []domain.SearchResult{}, nil
	}
	if len(vector) != s.dimension {
		return nil, fmt.Errorf("%w: query has dimension %d, index %d", domain.ErrDimensionMismatch, len(vector), s.dimension)
	}
	k = min(k, s.size)
	req := map[string]any{
		"vector":       vector,
		"limit":        k,
		"with_payload": true,
	}
	var resp struct {
		Result []struct {
			Score   float64 `json:"score"`
			Payload struct {
				Source  string `json:"source"`
				Index   int    `json:"index"`
				Content string `json:"content"`
			} `json:"payload"`
		} `json:"result"`
	}
	if err := s.client.do(ctx, http.MethodPost, "/collections/"+s.collection+"/points/search", req, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrRetrieval, err)
	}
	results := make([]domain.SearchResult, 0, len(resp.Result))
	for _, r := range resp.Result {
		results = append(results, domain.SearchResult{
			Chunk: domain.TextChunk{Index: r.Payload.Index, Content: r.Payload.Content, Source: r.Payload.Source},
			Score: r.Score,
		})
	}
	return results, nil
}

// Release drops the generation collection.
func (s *Index) Release(ctx context.Context) error {
	if s.size == 0 {
		return nil
	}
	return s.client.do(ctx, http.MethodDelete, "/collections/"+s.collection, nil, nil)
}

type client struct {
	url    string
	apiKey string
	http   *http.Client
}

func (c *client) do(ctx context.Context, method, path string, body, out any) error {
	var payload *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		payload = bytes.NewReader(data)
	} else {
		payload = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.url+path, payload)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("api-key", c.apiKey)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant %s %s failed: %s", method, path, resp.Status)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
