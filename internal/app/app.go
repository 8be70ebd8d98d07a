// Package app assembles the service from configuration.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"docchat/internal/chunker"
	"docchat/internal/config"
	"docchat/internal/domain"
	"docchat/internal/embedding"
	"docchat/internal/embedding/gemini"
	"docchat/internal/embedding/ollama"
	"docchat/internal/embedding/openai"
	"docchat/internal/embedding/tfidf"
	"docchat/internal/extractor"
	"docchat/internal/llm"
	llmanthropic "docchat/internal/llm/anthropic"
	llmgemini "docchat/internal/llm/gemini"
	llmollama "docchat/internal/llm/ollama"
	llmopenai "docchat/internal/llm/openai"
	"docchat/internal/orchestrator"
	"docchat/internal/qa"
	"docchat/internal/service"
	"docchat/internal/summarizer"
	"docchat/internal/vectorstore/memory"
	"docchat/internal/vectorstore/qdrant"
)

func secs(n int) time.Duration { return time.Duration(n) * time.Second }

// Build wires every component named in cfg into a service.
func Build(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger) (*service.Service, error) {
	ext, err := NewExtractor(cfg.Extractor, logger)
	if err != nil {
		return nil, err
	}
	ch, err := NewChunker(cfg.Chunker)
	if err != nil {
		return nil, err
	}
	emb, err := NewEmbedder(ctx, cfg.Embedder)
	if err != nil {
		return nil, err
	}
	builder, err := NewIndexBuilder(cfg.VectorStore)
	if err != nil {
		return nil, err
	}
	chat, err := NewChatModel(ctx, cfg.Answering)
	if err != nil {
		return nil, err
	}
	backend := NewBackend(cfg.Answering, chat)
	sum, err := NewSummarizer(cfg.Summarizer, chat)
	if err != nil {
		return nil, err
	}
	orch := orchestrator.New(backend, sum,
		orchestrator.WithConfig(orchestrator.Config{
			K:                 cfg.Retrieval.K,
			MinScore:          cfg.Retrieval.MinScore,
			MaxSummaryChars:   cfg.Retrieval.MaxSummaryChars,
			FallbackSentences: cfg.Retrieval.FallbackSentences,
			MaxDocumentChars:  cfg.Retrieval.MaxDocumentChars,
		}),
		orchestrator.WithLogger(logger.With("component", "orchestrator")),
	)
	logger.Debug("service assembled",
		"embedder", emb.Name(),
		"chunker", cfg.Chunker.Type,
		"vector_store", cfg.VectorStore.Type,
		"backend", backend.Name(),
		"summarizer", cfg.Summarizer.Type,
	)
	return service.New(ext, ch, emb, builder, orch,
		service.WithWorkers(cfg.Extractor.Workers),
		service.WithLogger(logger.With("component", "service")),
	), nil
}

func NewExtractor(cfg config.ExtractorConfig, logger *slog.Logger) (*extractor.Extractor, error) {
	opts := []extractor.Option{extractor.WithLogger(logger.With("component", "extractor"))}
	if cfg.OCR.Enabled {
		ocr := extractor.NewTesseractOCR()
		ocr.Pdftoppm = cfg.OCR.Pdftoppm
		ocr.Tesseract = cfg.OCR.Tesseract
		ocr.DPI = cfg.OCR.DPI
		ocr.Language = cfg.OCR.Language
		if ocr.Available() {
			opts = append(opts, extractor.WithOCR(ocr, extractor.Strategy(cfg.OCR.Strategy)))
		} else {
			logger.Warn("ocr disabled: pdftoppm or tesseract not found", "pdftoppm", ocr.Pdftoppm, "tesseract", ocr.Tesseract)
		}
	}
	if cfg.UniofficeLicenseEnv != "" {
		r, err := extractor.NewUniofficeReader(os.Getenv(cfg.UniofficeLicenseEnv))
		if err != nil {
			return nil, err
		}
		opts = append(opts, extractor.WithParagraphReader(r))
	}
	return extractor.New(opts...), nil
}

func NewChunker(cfg config.ChunkerConfig) (domain.Chunker, error) {
	switch cfg.Type {
	case "word", "":
		c, err := chunker.NewWordChunker(cfg.ChunkSize, cfg.Overlap)
		if err != nil {
			return nil, err
		}
		return c, nil
	case "sentence":
		c, err := chunker.NewSentenceChunker(cfg.SentencesPerChunk, cfg.OverlapSentences)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("%w: unknown chunker %q", domain.ErrInvalidConfig, cfg.Type)
	}
}

func NewEmbedder(ctx context.Context, cfg config.EmbedderConfig) (domain.Embedder, error) {
	var emb domain.Embedder
	switch cfg.Type {
	case "tfidf":
		return tfidf.NewEmbedder(), nil
	case "openai":
		c, err := openai.NewClient(openai.Config{
			BaseURL:   cfg.OpenAI.BaseURL,
			APIKeyEnv: cfg.OpenAI.APIKeyEnv,
			Model:     cfg.OpenAI.Model,
			Timeout:   secs(cfg.OpenAI.TimeoutSecs),
		})
		if err != nil {
			return nil, fmt.Errorf("openai embedder init failed: %w", err)
		}
		emb = c
	case "ollama":
		e, err := ollama.NewEmbedder(ollama.Config{
			BaseURL: cfg.Ollama.BaseURL,
			Model:   cfg.Ollama.Model,
			Timeout: secs(cfg.Ollama.TimeoutSecs),
		})
		if err != nil {
			return nil, fmt.Errorf("ollama embedder init failed: %w", err)
		}
		emb = e
	case "gemini":
		e, err := gemini.NewEmbedder(ctx, gemini.Config{APIKeyEnv: cfg.Gemini.APIKeyEnv, Model: cfg.Gemini.Model})
		if err != nil {
			return nil, fmt.Errorf("gemini embedder init failed: %w", err)
		}
		emb = e
	default:
		return nil, fmt.Errorf("%w: unknown embedder %q", domain.ErrInvalidConfig, cfg.Type)
	}
	emb = embedding.Batched(emb, cfg.BatchSize)
	if cfg.Cache {
		emb = embedding.Memo(emb)
	}
	return emb, nil
}

func NewIndexBuilder(cfg config.VectorStoreConfig) (domain.IndexBuilder, error) {
	switch cfg.Type {
	case "memory", "":
		return memory.NewBuilder(), nil
	case "qdrant":
		if cfg.Qdrant == nil {
			return nil, fmt.Errorf("%w: qdrant config missing", domain.ErrInvalidConfig)
		}
		return qdrant.NewBuilder(qdrant.Config{
			URL:        cfg.Qdrant.URL,
			APIKey:     cfg.Qdrant.APIKey,
			Collection: cfg.Qdrant.Collection,
			Timeout:    secs(cfg.Qdrant.TimeoutSecs),
		}), nil
	default:
		return nil, fmt.Errorf("%w: unknown vector store %q", domain.ErrInvalidConfig, cfg.Type)
	}
}

func params(c *config.ChatConfig) llm.Params {
	return llm.Params{Model: c.Model, Temperature: c.Temperature, TopP: c.TopP, MaxTokens: c.MaxTokens}
}

// NewChatModel returns the hosted chat model for cfg, or nil for the
// extractive backend.
func NewChatModel(ctx context.Context, cfg config.AnsweringConfig) (llm.ChatModel, error) {
	var (
		chat llm.ChatModel
		err  error
	)
	switch cfg.Type {
	case "extractive", "":
		return nil, nil
	case "openai":
		chat, err = llmopenai.New(llmopenai.Config{
			BaseURL:   cfg.OpenAI.BaseURL,
			APIKeyEnv: cfg.OpenAI.APIKeyEnv,
			Timeout:   secs(cfg.OpenAI.TimeoutSecs),
			Params:    params(cfg.OpenAI),
		})
	case "anthropic":
		chat, err = llmanthropic.New(llmanthropic.Config{
			BaseURL:   cfg.Anthropic.BaseURL,
			APIKeyEnv: cfg.Anthropic.APIKeyEnv,
			Params:    params(cfg.Anthropic),
		})
	case "ollama":
		chat, err = llmollama.New(llmollama.Config{
			BaseURL: cfg.Ollama.BaseURL,
			Timeout: secs(cfg.Ollama.TimeoutSecs),
			Params:  params(cfg.Ollama),
		})
	case "gemini":
		chat, err = llmgemini.New(ctx, llmgemini.Config{
			APIKeyEnv: cfg.Gemini.APIKeyEnv,
			Params:    params(cfg.Gemini),
		})
	default:
		return nil, fmt.Errorf("%w: unknown answering backend %q", domain.ErrInvalidConfig, cfg.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("%s chat init failed: %w", cfg.Type, err)
	}
	return chat, nil
}

func NewBackend(cfg config.AnsweringConfig, chat llm.ChatModel) domain.AnsweringBackend {
	if chat == nil {
		return &qa.Extractive{Neighbors: cfg.Neighbors}
	}
	return llm.NewChatBackend(chat)
}

func NewSummarizer(cfg config.SummarizerConfig, chat llm.ChatModel) (domain.Summarizer, error) {
	switch cfg.Type {
	case "frequency", "":
		return summarizer.NewFrequencySummarizer(cfg.MaxSentences), nil
	case "llm":
		if chat == nil {
			return summarizer.NewFrequencySummarizer(cfg.MaxSentences), nil
		}
		return llm.NewChatSummarizer(chat), nil
	default:
		return nil, fmt.Errorf("%w: unknown summarizer %q", domain.ErrInvalidConfig, cfg.Type)
	}
}
