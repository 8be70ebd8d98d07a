// Package service wires ingestion, retrieval and the conversation session
// behind the handlers the display layers call: Upload, Ask, Delete and
// Refresh.
package service

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"docchat/internal/domain"
	"docchat/internal/embedding"
	"docchat/internal/extractor"
	"docchat/internal/orchestrator"
	"docchat/internal/session"
	"docchat/internal/vectorstore"
)

// IngestReport describes one upload batch. Files that failed or yielded no
// text are listed in Warnings and left out of the index.
type IngestReport struct {
	Documents []string `json:"documents"`
	Chunks    int      `json:"chunks"`
	Warnings  []string `json:"warnings"`
}

type overlapper interface {
	Overlap() int
}

type Service struct {
	extractor domain.Extractor
	chunker   domain.Chunker
	embedder  domain.Embedder
	builder   domain.IndexBuilder
	orch      *orchestrator.Orchestrator
	session   *session.Session
	workers   int
	logger    *slog.Logger

	corpus vectorstore.Holder

	// ingest serialises uploads; retired is the corpus replaced by the
	// last publish, released on the next one.
	ingest  sync.Mutex
	retired *domain.Corpus
}

type Option func(*Service)

func WithWorkers(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.workers = n
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithSession(sess *session.Session) Option {
	return func(s *Service) { s.session = sess }
}

func New(ext domain.Extractor, ch domain.Chunker, emb domain.Embedder, builder domain.IndexBuilder, orch *orchestrator.Orchestrator, opts ...Option) *Service {
	s := &Service{
		extractor: ext,
		chunker:   ch,
		embedder:  emb,
		builder:   builder,
		orch:      orch,
		workers:   4,
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.session == nil {
		s.session = session.New()
	}
	return s
}

type extracted struct {
	name string
	hash string
	text string
	err  error
}

// Upload extracts, chunks, embeds and indexes the batch, then publishes the
// new corpus in place of the previous one. A batch that yields no chunks
// returns domain.ErrNoDocuments and leaves the current corpus in place.
func (s *Service) Upload(ctx context.Context, uploads []domain.Upload) (IngestReport, error) {
	s.ingest.Lock()
	defer s.ingest.Unlock()

	report := IngestReport{Documents: []string{}, Warnings: []string{}}
	results := make([]extracted, len(uploads))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, u := range uploads {
		g.Go(func() error {
			results[i] = s.extractOne(gctx, u)
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return report, err
	}

	var chunks []domain.TextChunk
	seen := map[string]string{}
	for _, r := range results {
		switch {
		case r.err != nil:
			s.logger.Warn("skipping file", "file", r.name, "error", r.err)
			report.Warnings = append(report.Warnings, fmt.Sprintf("%s: %v", r.name, r.err))
			continue
		case strings.TrimSpace(r.text) == "":
			report.Warnings = append(report.Warnings, fmt.Sprintf("%s: no text could be extracted", r.name))
			continue
		}
		if first, ok := seen[r.hash]; ok {
			report.Warnings = append(report.Warnings, fmt.Sprintf("%s: duplicate of %s", r.name, first))
			continue
		}
		seen[r.hash] = r.name
		docChunks, err := s.chunker.Chunk(domain.DocumentText{Name: r.name, Text: r.text})
		if err != nil {
			return report, err
		}
		if len(docChunks) == 0 {
			report.Warnings = append(report.Warnings, fmt.Sprintf("%s: no text could be extracted", r.name))
			continue
		}
		for _, c := range docChunks {
			c.Index = len(chunks)
			chunks = append(chunks, c)
		}
		report.Documents = append(report.Documents, r.name)
	}
	if len(chunks) == 0 {
		return report, domain.ErrNoDocuments
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	emb, err := embedding.Fitted(ctx, s.embedder, texts)
	if err != nil {
		return report, err
	}
	vectors, err := emb.Embed(ctx, texts)
	if err != nil {
		return report, err
	}
	index, err := s.builder.Build(ctx, chunks, vectors)
	if err != nil {
		return report, err
	}
	overlap := 0
	if o, ok := s.chunker.(overlapper); ok {
		overlap = o.Overlap()
	}
	corpus := &domain.Corpus{
		Generation: s.corpus.NextGeneration(),
		Documents:  append([]string(nil), report.Documents...),
		Chunks:     chunks,
		Overlap:    overlap,
		Index:      index,
		Embedder:   emb,
	}
	s.publish(ctx, corpus)
	report.Chunks = len(chunks)
	s.logger.Info("corpus published",
		"generation", corpus.Generation,
		"documents", len(report.Documents),
		"chunks", len(chunks),
		"embedder", emb.Name(),
		"warnings", len(report.Warnings),
	)
	return report, nil
}

func (s *Service) extractOne(ctx context.Context, u domain.Upload) extracted {
	r := extracted{name: u.Name}
	doc, err := extractor.Classify(u)
	if err != nil {
		r.err = err
		return r
	}
	r.hash = hashBytes(doc.Data)
	r.text, r.err = s.extractor.Extract(ctx, doc)
	return r
}

// publish swaps c in. The corpus it replaces stays queryable until the next
// publish so that a turn already holding it can finish.
func (s *Service) publish(ctx context.Context, c *domain.Corpus) {
	prev := s.corpus.Swap(c)
	if s.retired != nil {
		if err := s.retired.Index.Release(ctx); err != nil {
			s.logger.Warn("releasing index failed", "generation", s.retired.Generation, "error", err)
		}
	}
	s.retired = prev
}

// Ask answers one question against the published corpus. Only complete,
// fresh answers are recorded in history.
func (s *Service) Ask(ctx context.Context, question string, sink domain.TokenSink) (orchestrator.Reply, session.Snapshot) {
	if strings.TrimSpace(question) == "" {
		return orchestrator.Reply{Text: "Please enter a question.", Failed: true}, s.Snapshot()
	}
	reply := s.orch.Answer(ctx, orchestrator.Request{
		Question: question,
		Corpus:   s.corpus.Load(),
		History:  s.session.List(),
	}, sink)
	if !reply.Failed && !reply.Cached {
		s.session.Append(strings.TrimSpace(question), reply.Text)
	}
	return reply, s.Snapshot()
}

// Delete removes history entry i.
func (s *Service) Delete(i int) (session.Snapshot, error) {
	err := s.session.Delete(i)
	return s.Snapshot(), err
}

// Refresh clears the history.
func (s *Service) Refresh() session.Snapshot {
	s.session.Clear()
	return s.Snapshot()
}

func (s *Service) Snapshot() session.Snapshot {
	return s.session.Snapshot(s.corpus.Load())
}

// Close releases the published and retired indexes.
func (s *Service) Close(ctx context.Context) error {
	s.ingest.Lock()
	defer s.ingest.Unlock()
	var errs []error
	if c := s.corpus.Swap(nil); c != nil {
		errs = append(errs, c.Index.Release(ctx))
	}
	if s.retired != nil {
		errs = append(errs, s.retired.Index.Release(ctx))
		s.retired = nil
	}
	return errors.Join(errs...)
}

func hashBytes(b []byte) string {
	h := sha1.Sum(b)
	return hex.EncodeToString(h[:8])
}
