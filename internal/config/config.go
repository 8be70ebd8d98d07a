package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"docchat/internal/domain"
)

// OpenAIEmbedderConfig holds configuration for the OpenAI-compatible embedder.
type OpenAIEmbedderConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// OllamaEmbedderConfig configures embeddings from a local Ollama server.
type OllamaEmbedderConfig struct {
	BaseURL     string `yaml:"base_url"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// GeminiEmbedderConfig configures Gemini embeddings.
type GeminiEmbedderConfig struct {
	APIKeyEnv string `yaml:"api_key_env"`
	Model     string `yaml:"model"`
}

// EmbedderConfig selects and configures the text embedder implementation.
type EmbedderConfig struct {
	Type      string                `yaml:"type"`
	BatchSize int                   `yaml:"batch_size"`
	Cache     bool                  `yaml:"cache"`
	OpenAI    *OpenAIEmbedderConfig `yaml:"openai,omitempty"`
	Ollama    *OllamaEmbedderConfig `yaml:"ollama,omitempty"`
	Gemini    *GeminiEmbedderConfig `yaml:"gemini,omitempty"`
}

// ChunkerConfig configures how documents are split into chunks.
type ChunkerConfig struct {
	Type              string `yaml:"type"`
	ChunkSize         int    `yaml:"chunk_size"`
	Overlap           int    `yaml:"overlap"`
	SentencesPerChunk int    `yaml:"sentences_per_chunk"`
	OverlapSentences  int    `yaml:"overlap_sentences"`
}

// VectorStoreConfig selects and configures the vector store implementation.
type VectorStoreConfig struct {
	Type   string        `yaml:"type"`
	Qdrant *QdrantConfig `yaml:"qdrant,omitempty"`
}

// QdrantConfig contains connection details for a Qdrant vector store.
// Collection is the prefix of the per-build collections.
type QdrantConfig struct {
	URL         string `yaml:"url"`
	APIKey      string `yaml:"api_key"`
	Collection  string `yaml:"collection"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// SummarizerConfig selects and configures the summarizer. Type "llm" uses
// the answering chat model.
type SummarizerConfig struct {
	Type         string `yaml:"type"`
	MaxSentences int    `yaml:"max_sentences"`
}

// RetrievalConfig bounds retrieval and prompt sizes.
type RetrievalConfig struct {
	K                 int     `yaml:"k"`
	MinScore          float64 `yaml:"min_score"`
	MaxSummaryChars   int     `yaml:"max_summary_chars"`
	FallbackSentences int     `yaml:"fallback_sentences"`
	MaxDocumentChars  int     `yaml:"max_document_chars"`
}

// ChatConfig configures one hosted chat provider.
type ChatConfig struct {
	BaseURL     string  `yaml:"base_url,omitempty"`
	APIKeyEnv   string  `yaml:"api_key_env,omitempty"`
	Model       string  `yaml:"model"`
	Temperature float32 `yaml:"temperature"`
	TopP        float32 `yaml:"top_p"`
	MaxTokens   int     `yaml:"max_tokens"`
	TimeoutSecs int     `yaml:"timeout_secs"`
}

// AnsweringConfig selects the answering backend: extractive, openai,
// anthropic, ollama or gemini.
type AnsweringConfig struct {
	Type      string      `yaml:"type"`
	Neighbors int         `yaml:"neighbors"`
	OpenAI    *ChatConfig `yaml:"openai,omitempty"`
	Anthropic *ChatConfig `yaml:"anthropic,omitempty"`
	Ollama    *ChatConfig `yaml:"ollama,omitempty"`
	Gemini    *ChatConfig `yaml:"gemini,omitempty"`
}

// OCRConfig configures the tesseract fallback for image-only PDF pages.
type OCRConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Strategy  string `yaml:"strategy"`
	DPI       int    `yaml:"dpi"`
	Language  string `yaml:"language"`
	Pdftoppm  string `yaml:"pdftoppm"`
	Tesseract string `yaml:"tesseract"`
}

// ExtractorConfig configures text extraction.
type ExtractorConfig struct {
	Workers int       `yaml:"workers"`
	OCR     OCRConfig `yaml:"ocr"`
	// UniofficeLicenseEnv names the env var holding a unioffice metered
	// key. When set, Word documents are read with unioffice.
	UniofficeLicenseEnv string `yaml:"unioffice_license_env,omitempty"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	Debug bool   `yaml:"debug"`
	JSON  bool   `yaml:"json"`
	File  string `yaml:"file"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Embedder    EmbedderConfig    `yaml:"embedder"`
	Chunker     ChunkerConfig     `yaml:"chunker"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Summarizer  SummarizerConfig  `yaml:"summarizer"`
	Retrieval   RetrievalConfig   `yaml:"retrieval"`
	Answering   AnsweringConfig   `yaml:"answering"`
	Extractor   ExtractorConfig   `yaml:"extractor"`
	Server      ServerConfig      `yaml:"server"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, err
	}
	cfg := baseConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	applyConfigDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/docchat/config.yaml.
// If neither exists, it writes defaults to ~/.config/docchat/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := DefaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := Default()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func DefaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "docchat", "config.yaml"), nil
}

// Default returns the hosted setup: Ollama embeddings and Groq chat.
func Default() *AppConfig {
	cfg := baseConfig()
	applyConfigDefaults(&cfg)
	return &cfg
}

// baseConfig holds the settings whose zero value is not the default. Files are
// decoded on top of it so omitted keys keep these values.
func baseConfig() AppConfig {
	return AppConfig{Extractor: ExtractorConfig{OCR: OCRConfig{Enabled: true}}}
}

// Validate rejects settings that cannot work, such as an overlap that is
// not smaller than the chunk size.
func (c *AppConfig) Validate() error {
	switch c.Chunker.Type {
	case "word":
		if c.Chunker.ChunkSize <= 0 || c.Chunker.Overlap < 0 || c.Chunker.Overlap >= c.Chunker.ChunkSize {
			return fmt.Errorf("%w: chunker overlap %d must be in [0, chunk_size %d)",
				domain.ErrInvalidConfig, c.Chunker.Overlap, c.Chunker.ChunkSize)
		}
	case "sentence":
		if c.Chunker.OverlapSentences < 0 || c.Chunker.OverlapSentences >= c.Chunker.SentencesPerChunk {
			return fmt.Errorf("%w: chunker overlap_sentences %d must be in [0, sentences_per_chunk %d)",
				domain.ErrInvalidConfig, c.Chunker.OverlapSentences, c.Chunker.SentencesPerChunk)
		}
	default:
		return fmt.Errorf("%w: unknown chunker %q", domain.ErrInvalidConfig, c.Chunker.Type)
	}
	switch c.Extractor.OCR.Strategy {
	case "whole", "per_page":
	default:
		return fmt.Errorf("%w: unknown ocr strategy %q", domain.ErrInvalidConfig, c.Extractor.OCR.Strategy)
	}
	if c.Retrieval.K <= 0 {
		return fmt.Errorf("%w: retrieval k must be positive", domain.ErrInvalidConfig)
	}
	return nil
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Embedder.Type == "" {
		cfg.Embedder.Type = "ollama"
	}
	if cfg.Embedder.BatchSize == 0 {
		cfg.Embedder.BatchSize = 32
	}
	switch cfg.Embedder.Type {
	case "openai":
		if cfg.Embedder.OpenAI == nil {
			cfg.Embedder.OpenAI = &OpenAIEmbedderConfig{}
		}
		e := cfg.Embedder.OpenAI
		if e.BaseURL == "" {
			e.BaseURL = "https://api.openai.com/v1"
		}
		if e.APIKeyEnv == "" {
			e.APIKeyEnv = "OPENAI_API_KEY"
		}
		if e.Model == "" {
			e.Model = "text-embedding-3-small"
		}
		if e.TimeoutSecs == 0 {
			e.TimeoutSecs = 30
		}
	case "ollama":
		if cfg.Embedder.Ollama == nil {
			cfg.Embedder.Ollama = &OllamaEmbedderConfig{}
		}
		e := cfg.Embedder.Ollama
		if e.BaseURL == "" {
			e.BaseURL = "http://localhost:11434"
		}
		if e.Model == "" {
			e.Model = "all-minilm"
		}
		if e.TimeoutSecs == 0 {
			e.TimeoutSecs = 60
		}
	case "gemini":
		if cfg.Embedder.Gemini == nil {
			cfg.Embedder.Gemini = &GeminiEmbedderConfig{}
		}
		if cfg.Embedder.Gemini.APIKeyEnv == "" {
			cfg.Embedder.Gemini.APIKeyEnv = "GEMINI_API_KEY"
		}
	}

	if cfg.Chunker.Type == "" {
		cfg.Chunker.Type = "word"
	}
	if cfg.Chunker.ChunkSize == 0 {
		cfg.Chunker.ChunkSize = 1500
		if cfg.Chunker.Overlap == 0 {
			cfg.Chunker.Overlap = 200
		}
	}
	if cfg.Chunker.SentencesPerChunk == 0 {
		cfg.Chunker.SentencesPerChunk = 5
	}

	if cfg.VectorStore.Type == "" {
		cfg.VectorStore.Type = "memory"
	}
	if cfg.VectorStore.Type == "qdrant" {
		if cfg.VectorStore.Qdrant == nil {
			cfg.VectorStore.Qdrant = &QdrantConfig{}
		}
		if cfg.VectorStore.Qdrant.URL == "" {
			cfg.VectorStore.Qdrant.URL = "http://localhost:6333"
		}
		if cfg.VectorStore.Qdrant.TimeoutSecs == 0 {
			cfg.VectorStore.Qdrant.TimeoutSecs = 30
		}
	}

	if cfg.Summarizer.Type == "" {
		cfg.Summarizer.Type = "llm"
	}
	if cfg.Summarizer.MaxSentences == 0 {
		cfg.Summarizer.MaxSentences = 5
	}

	if cfg.Retrieval.K == 0 {
		cfg.Retrieval.K = 50
	}
	if cfg.Retrieval.MaxSummaryChars == 0 {
		cfg.Retrieval.MaxSummaryChars = 4000
	}
	if cfg.Retrieval.FallbackSentences == 0 {
		cfg.Retrieval.FallbackSentences = 10
	}
	if cfg.Retrieval.MaxDocumentChars == 0 {
		cfg.Retrieval.MaxDocumentChars = 12000
	}

	if cfg.Answering.Type == "" {
		cfg.Answering.Type = "openai"
	}
	chatDefaults(&cfg.Answering)

	if cfg.Extractor.Workers == 0 {
		cfg.Extractor.Workers = 4
	}
	ocr := &cfg.Extractor.OCR
	if ocr.Strategy == "" {
		ocr.Strategy = "whole"
	}
	if ocr.DPI == 0 {
		ocr.DPI = 300
	}
	if ocr.Language == "" {
		ocr.Language = "eng"
	}
	if ocr.Pdftoppm == "" {
		ocr.Pdftoppm = "pdftoppm"
	}
	if ocr.Tesseract == "" {
		ocr.Tesseract = "tesseract"
	}

	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
}

func chatDefaults(a *AnsweringConfig) {
	var (
		c     **ChatConfig
		model string
		env   string
		base  string
	)
	switch a.Type {
	case "openai":
		c, model, env, base = &a.OpenAI, "llama-3.3-70b-versatile", "GROQ_API_KEY", "https://api.groq.com/openai/v1"
	case "anthropic":
		c, model, env = &a.Anthropic, "claude-3-5-haiku-latest", "ANTHROPIC_API_KEY"
	case "ollama":
		c, model, base = &a.Ollama, "llama3.2", "http://localhost:11434"
	case "gemini":
		c, model, env = &a.Gemini, "gemini-1.5-flash", "GEMINI_API_KEY"
	default:
		return
	}
	if *c == nil {
		*c = &ChatConfig{}
	}
	cc := *c
	if cc.Model == "" {
		cc.Model = model
	}
	if cc.APIKeyEnv == "" {
		cc.APIKeyEnv = env
	}
	if cc.BaseURL == "" {
		cc.BaseURL = base
	}
	if cc.Temperature == 0 {
		cc.Temperature = 1
	}
	if cc.TopP == 0 {
		cc.TopP = 1
	}
	if cc.MaxTokens == 0 {
		cc.MaxTokens = 1024
	}
	if cc.TimeoutSecs == 0 {
		cc.TimeoutSecs = 120
	}
}
