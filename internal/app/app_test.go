package app

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docchat/internal/config"
	"docchat/internal/domain"
	"docchat/internal/extractor"
	"docchat/internal/llm"
	"docchat/internal/logging"
	"docchat/internal/qa"
	"docchat/internal/summarizer"
	"docchat/internal/testutil"
)

func offline() *config.AppConfig {
	cfg := config.Default()
	cfg.Embedder = config.EmbedderConfig{Type: "tfidf", BatchSize: 16, Cache: true}
	cfg.Answering = config.AnsweringConfig{Type: "extractive"}
	cfg.Summarizer = config.SummarizerConfig{Type: "llm", MaxSentences: 3}
	cfg.Extractor.OCR.Pdftoppm = "definitely-not-installed-pdftoppm"
	return cfg
}

func TestBuildOffline(t *testing.T) {
	ctx := context.Background()
	svc, err := Build(ctx, offline(), logging.Discard())
	require.NoError(t, err)

	data := testutil.PDF([]string{"The sky is blue."})
	_, err = svc.Upload(ctx, []domain.Upload{{Name: "sky.pdf", MimeType: extractor.MimePDF, Body: bytes.NewReader(data)}})
	require.NoError(t, err)

	reply, _ := svc.Ask(ctx, "What color is the sky?", nil)
	require.False(t, reply.Failed, reply.Text)
	assert.Contains(t, reply.Text, "blue")
}

func TestUnknownComponents(t *testing.T) {
	ctx := context.Background()
	_, err := NewEmbedder(ctx, config.EmbedderConfig{Type: "word2vec"})
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)

	_, err = NewChunker(config.ChunkerConfig{Type: "paragraph"})
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)

	_, err = NewIndexBuilder(config.VectorStoreConfig{Type: "faiss"})
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)

	_, err = NewChatModel(ctx, config.AnsweringConfig{Type: "bard"})
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)

	_, err = NewSummarizer(config.SummarizerConfig{Type: "magic"}, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}

func TestWordChunkerRejectsBadWindow(t *testing.T) {
	_, err := NewChunker(config.ChunkerConfig{Type: "word", ChunkSize: 10, Overlap: 10})
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}

func TestSentenceChunkerRejectsBadWindow(t *testing.T) {
	_, err := NewChunker(config.ChunkerConfig{Type: "sentence", SentencesPerChunk: 2, OverlapSentences: 2})
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}

func TestHostedChatNeedsKey(t *testing.T) {
	t.Setenv("DOCCHAT_TEST_MISSING_KEY", "")
	_, err := NewChatModel(context.Background(), config.AnsweringConfig{
		Type:   "openai",
		OpenAI: &config.ChatConfig{APIKeyEnv: "DOCCHAT_TEST_MISSING_KEY", Model: "m"},
	})
	assert.Error(t, err)
}

func TestBackendAndSummarizerSelection(t *testing.T) {
	backend := NewBackend(config.AnsweringConfig{Neighbors: 1}, nil)
	assert.IsType(t, &qa.Extractive{}, backend)

	sum, err := NewSummarizer(config.SummarizerConfig{Type: "llm"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &summarizer.FrequencySummarizer{}, sum)

	var chat llm.ChatModel = stubChat{}
	assert.IsType(t, &llm.ChatBackend{}, NewBackend(config.AnsweringConfig{}, chat))
	sum, err = NewSummarizer(config.SummarizerConfig{Type: "llm"}, chat)
	require.NoError(t, err)
	assert.IsType(t, &llm.ChatSummarizer{}, sum)
}

type stubChat struct{}

func (stubChat) Name() string { return "stub" }

func (stubChat) Stream(context.Context, []domain.ChatMessage) (<-chan llm.StreamToken, error) {
	ch := make(chan llm.StreamToken, 1)
	ch <- llm.StreamToken{Done: true}
	close(ch)
	return ch, nil
}
