package domain

import (
	"context"
	"io"
)

// Kind is the source format of an uploaded document.
type Kind string

const (
	KindPDF  Kind = "pdf"
	KindDOCX Kind = "docx"
)

// Upload is a file as handed over by an upload collaborator (CLI, HTTP, TUI).
type Upload struct {
	Name     string
	MimeType string
	Size     int64
	Body     io.Reader
}

// Document is a classified upload. It is not modified after creation.
type Document struct {
	Name string
	Kind Kind
	Data []byte
}

// DocumentText is the extracted text of one document.
type DocumentText struct {
	Name string
	Text string
}

// TextChunk is a bounded word window over one document's text.
type TextChunk struct {
	Index   int
	Content string
	Source  string
}

// SearchResult represents a matching chunk with a relevance score.
type SearchResult struct {
	Chunk TextChunk
	Score float64
}

// Exchange is one question/answer pair of conversation history.
type Exchange struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Role tags a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatMessage is one role-tagged message of a chat prompt.
type ChatMessage struct {
	Role    Role
	Content string
}

// AnswerRequest carries everything a backend variant may need. Extractive
// backends read Question and Context; chat backends read Messages.
type AnswerRequest struct {
	Question string
	Context  string
	Messages []ChatMessage
}

// TokenSink receives partial output of a streaming backend. It may be nil.
type TokenSink func(token string)

// Extractor converts a document into plain text.
type Extractor interface {
	Extract(ctx context.Context, doc Document) (string, error)
}

// Chunker splits a document's text into retrieval chunks.
type Chunker interface {
	Chunk(doc DocumentText) ([]TextChunk, error)
}

// Embedder maps a batch of texts to vectors of one fixed dimension,
// preserving order and length.
type Embedder interface {
	Name() string
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Fitter is implemented by embedders that must be fitted on the corpus
// before use. Fit returns a new embedder and leaves the receiver untouched,
// so an index built with the fitted embedder keeps using it for queries.
type Fitter interface {
	Fit(ctx context.Context, corpus []string) (Embedder, error)
}

// VectorIndex is an immutable, queryable set of (chunk, vector) pairs.
type VectorIndex interface {
	Query(ctx context.Context, vector []float32, k int) ([]SearchResult, error)
	Size() int
	Release(ctx context.Context) error
}

// IndexBuilder constructs a VectorIndex in one bulk operation.
type IndexBuilder interface {
	Build(ctx context.Context, chunks []TextChunk, vectors [][]float32) (VectorIndex, error)
}

// AnsweringBackend answers a question from retrieved context.
type AnsweringBackend interface {
	Name() string
	Answer(ctx context.Context, req AnswerRequest, sink TokenSink) (string, error)
}

// Summarizer produces a brief summary of bounded text.
type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}

// Corpus is one published build of the document set: the chunks, the index
// over them and the embedder whose vector space the index lives in. A Corpus
// is read-only once published.
type Corpus struct {
	Generation int64
	Documents  []string
	Chunks     []TextChunk
	Overlap    int
	Index      VectorIndex
	Embedder   Embedder
}
