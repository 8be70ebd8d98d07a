// Package orchestrator turns a question plus the published corpus into an
// answer: it picks the summarize or ask path, retrieves context, builds the
// prompt and calls the answering backend.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"docchat/internal/domain"
	"docchat/internal/textutil"
	"docchat/internal/vectorstore"
)

const (
	// NoRelevantInfo answers a question for which retrieval found nothing.
	NoRelevantInfo = "I couldn't find any relevant information in the uploaded documents."
	// NoDocuments answers a question asked before anything was indexed.
	NoDocuments = "Please upload a document first."

	instruction = "Answer questions based on the document content below. Use outside knowledge only to supplement it."
)

// Config holds the retrieval and prompt limits.
type Config struct {
	K                 int
	MinScore          float64
	MaxSummaryChars   int
	FallbackSentences int
	// MaxDocumentChars caps the system message content. A document that fits
	// is sent whole. Otherwise the retrieved passages are sent, best first,
	// truncated to the cap. Zero always sends the retrieved passages uncut.
	MaxDocumentChars int
}

func DefaultConfig() Config {
	return Config{
		K:                 50,
		MinScore:          0,
		MaxSummaryChars:   4000,
		FallbackSentences: 10,
		MaxDocumentChars:  12000,
	}
}

type Request struct {
	Question string
	Corpus   *domain.Corpus
	History  []domain.Exchange
}

// Reply is the outcome of one turn. A failed turn carries narrated text in
// Text and the cause in Err; it must not be recorded in history.
type Reply struct {
	Text   string
	Intent Intent
	Cached bool
	Failed bool
	Err    error
}

type Orchestrator struct {
	mu         sync.Mutex
	backend    domain.AnsweringBackend
	summarizer domain.Summarizer
	cfg        Config
	logger     *slog.Logger
}

type Option func(*Orchestrator)

func WithConfig(cfg Config) Option {
	return func(o *Orchestrator) { o.cfg = cfg }
}

func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

func New(backend domain.AnsweringBackend, summarizer domain.Summarizer, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		backend:    backend,
		summarizer: summarizer,
		cfg:        DefaultConfig(),
		logger:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.cfg.K <= 0 {
		o.cfg.K = DefaultConfig().K
	}
	if o.cfg.MaxSummaryChars <= 0 {
		o.cfg.MaxSummaryChars = DefaultConfig().MaxSummaryChars
	}
	if o.cfg.FallbackSentences <= 0 {
		o.cfg.FallbackSentences = DefaultConfig().FallbackSentences
	}
	return o
}

// Answer runs one turn. Turns are serialised; tokens are passed to sink as
// the backend produces them.
func (o *Orchestrator) Answer(ctx context.Context, req Request, sink domain.TokenSink) Reply {
	o.mu.Lock()
	defer o.mu.Unlock()

	question := strings.TrimSpace(req.Question)
	intent := Classify(question)
	if answer, ok := lookup(req.History, question); ok {
		o.logger.Debug("duplicate question served from history", "question", question)
		if sink != nil {
			sink(answer)
		}
		return Reply{Text: answer, Intent: intent, Cached: true}
	}
	if req.Corpus == nil || len(req.Corpus.Chunks) == 0 {
		return Reply{Text: NoDocuments, Intent: intent, Failed: true, Err: domain.ErrNoDocuments}
	}

	var (
		text string
		err  error
	)
	switch intent {
	case IntentSummarize:
		text, err = o.summarize(ctx, req.Corpus, sink)
	default:
		text, err = o.ask(ctx, question, req, sink)
	}
	if err == nil && ctx.Err() != nil {
		err = fmt.Errorf("%w: %v", domain.ErrStreamInterrupted, ctx.Err())
	}
	if err != nil {
		o.logger.Warn("turn failed", "intent", intent.String(), "error", err)
		return Reply{Text: narrate(err), Intent: intent, Failed: true, Err: err}
	}
	return Reply{Text: text, Intent: intent}
}

func lookup(history []domain.Exchange, question string) (string, bool) {
	for _, ex := range history {
		if strings.EqualFold(strings.TrimSpace(ex.Question), question) {
			return ex.Answer, true
		}
	}
	return "", false
}

func (o *Orchestrator) summarize(ctx context.Context, corpus *domain.Corpus, sink domain.TokenSink) (string, error) {
	text := textutil.Truncate(DocumentText(corpus), o.cfg.MaxSummaryChars)
	summary, err := o.summarizer.Summarize(ctx, text)
	if err != nil {
		if errors.Is(err, domain.ErrStreamInterrupted) {
			return "", err
		}
		if ctx.Err() != nil {
			return "", fmt.Errorf("%w: %v", domain.ErrStreamInterrupted, err)
		}
		return "", fmt.Errorf("%w: summarize: %v", domain.ErrBackend, err)
	}
	if strings.TrimSpace(summary) == "" {
		summary = fallbackSummary(text, o.cfg.FallbackSentences)
	}
	summary = textutil.Truncate(strings.TrimSpace(summary), o.cfg.MaxSummaryChars)
	if sink != nil {
		sink(summary)
	}
	return summary, nil
}

func fallbackSummary(text string, n int) string {
	sentences := textutil.Sentences(text)
	if len(sentences) > n {
		sentences = sentences[:n]
	}
	parts := make([]string, 0, len(sentences))
	for _, s := range sentences {
		if s = strings.TrimRight(s, ".!? "); s != "" {
			parts = append(parts, s)
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return strings.Join(parts, ". ") + "."
}

func (o *Orchestrator) ask(ctx context.Context, question string, req Request, sink domain.TokenSink) (string, error) {
	results, err := o.Retrieve(ctx, req.Corpus, question)
	if err != nil {
		return "", err
	}
	if len(results) == 0 {
		o.logger.Debug("no relevant chunks", "question", question)
		if sink != nil {
			sink(NoRelevantInfo)
		}
		return NoRelevantInfo, nil
	}
	passages := make([]string, len(results))
	for i, r := range results {
		passages[i] = r.Chunk.Content
	}
	retrieved := strings.Join(passages, "\n\n")
	ar := domain.AnswerRequest{
		Question: question,
		Context:  retrieved,
		Messages: o.messages(req, question, retrieved),
	}
	o.logger.Debug("calling backend", "backend", o.backend.Name(), "chunks", len(results))
	answer, err := o.backend.Answer(ctx, ar, sink)
	if err != nil {
		if errors.Is(err, domain.ErrStreamInterrupted) || errors.Is(err, domain.ErrBackend) {
			return "", err
		}
		if ctx.Err() != nil {
			return "", fmt.Errorf("%w: %v", domain.ErrStreamInterrupted, err)
		}
		return "", fmt.Errorf("%w: %v", domain.ErrBackend, err)
	}
	return answer, nil
}

// Retrieve returns the chunks relevant to question, best first. A question
// that embeds to the zero vector is ranked lexically instead.
func (o *Orchestrator) Retrieve(ctx context.Context, corpus *domain.Corpus, question string) ([]domain.SearchResult, error) {
	vecs, err := corpus.Embedder.Embed(ctx, []string{question})
	if err != nil {
		if errors.Is(err, domain.ErrEmbedding) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrEmbedding, err)
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("%w: got %d query vectors", domain.ErrEmbedding, len(vecs))
	}
	if vectorstore.IsZero(vecs[0]) {
		return lexicalSearch(corpus.Chunks, question, o.cfg.K), nil
	}
	res, err := corpus.Index.Query(ctx, vecs[0], o.cfg.K)
	if err != nil {
		if errors.Is(err, domain.ErrRetrieval) || errors.Is(err, domain.ErrDimensionMismatch) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrRetrieval, err)
	}
	out := make([]domain.SearchResult, 0, len(res))
	for _, r := range res {
		if r.Score > o.cfg.MinScore {
			out = append(out, r)
		}
	}
	return out, nil
}

func lexicalSearch(chunks []domain.TextChunk, query string, k int) []domain.SearchResult {
	qset := textutil.ContentSet(query)
	if len(qset) == 0 {
		return nil
	}
	var out []domain.SearchResult
	for _, ch := range chunks {
		if score := textutil.Ochiai(qset, ch.Content); score > 0 {
			out = append(out, domain.SearchResult{Chunk: ch, Score: score})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > k {
		out = out[:k]
	}
	return out
}

func (o *Orchestrator) messages(req Request, question, retrieved string) []domain.ChatMessage {
	content := retrieved
	if limit := o.cfg.MaxDocumentChars; limit > 0 {
		if doc := DocumentText(req.Corpus); len(doc) <= limit {
			content = doc
		} else {
			content = textutil.Truncate(retrieved, limit)
		}
	}
	msgs := make([]domain.ChatMessage, 0, 2+2*len(req.History))
	msgs = append(msgs, domain.ChatMessage{Role: domain.RoleSystem, Content: instruction + "\n\n" + content})
	for _, ex := range req.History {
		msgs = append(msgs,
			domain.ChatMessage{Role: domain.RoleUser, Content: ex.Question},
			domain.ChatMessage{Role: domain.RoleAssistant, Content: ex.Answer},
		)
	}
	return append(msgs, domain.ChatMessage{Role: domain.RoleUser, Content: question})
}

// DocumentText rebuilds the corpus text from its chunks in order, dropping
// the words each chunk repeats from its predecessor in the same document.
func DocumentText(corpus *domain.Corpus) string {
	var (
		b    strings.Builder
		prev string
	)
	for i, ch := range corpus.Chunks {
		words := strings.Fields(ch.Content)
		same := i > 0 && ch.Source == prev
		if same {
			words = words[min(corpus.Overlap, len(words)):]
			if len(words) > 0 {
				b.WriteByte(' ')
			}
		} else if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(strings.Join(words, " "))
		prev = ch.Source
	}
	return b.String()
}

func narrate(err error) string {
	switch {
	case errors.Is(err, domain.ErrStreamInterrupted):
		return "The answer was interrupted before it finished."
	case errors.Is(err, domain.ErrEmbedding):
		return "Sorry, the question could not be embedded: " + cause(err)
	case errors.Is(err, domain.ErrRetrieval), errors.Is(err, domain.ErrDimensionMismatch):
		return "Sorry, searching the documents failed: " + cause(err)
	default:
		return "Sorry, the answering service failed: " + cause(err)
	}
}

// cause shortens an error chain to its last segment.
func cause(err error) string {
	msg := err.Error()
	if i := strings.LastIndex(msg, ": "); i >= 0 && i+2 < len(msg) {
		msg = msg[i+2:]
	}
	return textutil.Truncate(msg, 160)
}
