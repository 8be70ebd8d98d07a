// Package ollama embeds text with a local Ollama server.
package ollama

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	ollamaapi "github.com/ollama/ollama/api"

	"docchat/internal/domain"
	"docchat/internal/embedding"
)

const (
	DefaultBaseURL = "http://localhost:11434"
	// DefaultModel is all-MiniLM-L6-v2 as published in the Ollama library.
	DefaultModel = "all-minilm"
)

// Embedder calls the Ollama /api/embed endpoint.
type Embedder struct {
	client *ollamaapi.Client
	model  string
}

var _ domain.Embedder = (*Embedder)(nil)

// Config configures the Ollama embedder.
type Config struct {
	BaseURL string
	Model   string
	Timeout time.Duration
}

func NewEmbedder(cfg Config) (*Embedder, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama base URL: %w", err)
	}
	return &Embedder{
		client: ollamaapi.NewClient(base, &http.Client{Timeout: cfg.Timeout}),
		model:  cfg.Model,
	}, nil
}

func (e *Embedder) Name() string { return "ollama:" + e.model }

func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := embedding.CheckBatch(texts); err != nil {
		return nil, err
	}
	resp, err := e.client.Embed(ctx, &ollamaapi.EmbedRequest{
		Model: e.model,
		Input: texts,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: ollama embed: %v", domain.ErrEmbedding, err)
	}
	if err := embedding.CheckResult(texts, resp.Embeddings); err != nil {
		return nil, err
	}
	return resp.Embeddings, nil
}
