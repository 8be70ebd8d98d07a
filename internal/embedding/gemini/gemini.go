// Package gemini embeds text with the Google Gemini embedding models.
package gemini

import (
	"context"
	"fmt"
	"os"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"docchat/internal/domain"
	"docchat/internal/embedding"
)

const DefaultModel = "text-embedding-004"

type Embedder struct {
	model *genai.EmbeddingModel
	name  string
}

var _ domain.Embedder = (*Embedder)(nil)

type Config struct {
	APIKeyEnv string
	Model     string
}

func NewEmbedder(ctx context.Context, cfg Config) (*Embedder, error) {
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("missing API key in env %s", cfg.APIKeyEnv)
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(key))
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return &Embedder{model: client.EmbeddingModel(cfg.Model), name: cfg.Model}, nil
}

func (e *Embedder) Name() string { return "gemini:" + e.name }

func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := embedding.CheckBatch(texts); err != nil {
		return nil, err
	}
	batch := e.model.NewBatch()
	for _, t := range texts {
		batch.AddContent(genai.Text(t))
	}
	res, err := e.model.BatchEmbedContents(ctx, batch)
	if err != nil {
		return nil, fmt.Errorf("%w: gemini embed: %v", domain.ErrEmbedding, err)
	}
	out := make([][]float32, 0, len(res.Embeddings))
	for _, emb := range res.Embeddings {
		out = append(out, emb.Values)
	}
	if err := embedding.CheckResult(texts, out); err != nil {
		return nil, err
	}
	return out, nil
}
