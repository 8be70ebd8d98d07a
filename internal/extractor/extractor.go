// Package extractor turns uploaded PDF and Word documents into plain text.
package extractor

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"docchat/internal/domain"
)

// Strategy selects how OCR output is combined with directly extracted text.
type Strategy string

const (
	// StrategyWhole OCRs every page once any page lacks a text layer.
	StrategyWhole Strategy = "whole"
	// StrategyPerPage keeps text-bearing pages and OCRs only the others.
	StrategyPerPage Strategy = "per_page"
)

var (
	pdfSignature  = []byte("%PDF")
	docxSignature = []byte("PK\x03\x04")
)

// PageReader returns the directly extractable text of each PDF page.
type PageReader interface {
	ReadPages(ctx context.Context, data []byte) ([]string, error)
}

// ParagraphReader returns the paragraphs of a Word document in order.
type ParagraphReader interface {
	ReadParagraphs(ctx context.Context, data []byte) ([]string, error)
}

// OCR recognises the text of every page of a PDF, in page order.
type OCR interface {
	RecognizePDF(ctx context.Context, data []byte) ([]string, error)
}

// Extractor implements domain.Extractor.
type Extractor struct {
	pages      PageReader
	paragraphs ParagraphReader
	ocr        OCR
	strategy   Strategy
	logger     *slog.Logger
}

var _ domain.Extractor = (*Extractor)(nil)

type Option func(*Extractor)

// WithOCR enables the OCR fallback for image-only pages.
func WithOCR(ocr OCR, strategy Strategy) Option {
	return func(e *Extractor) {
		e.ocr = ocr
		if strategy != "" {
			e.strategy = strategy
		}
	}
}

// WithParagraphReader replaces the built-in OOXML reader.
func WithParagraphReader(r ParagraphReader) Option {
	return func(e *Extractor) { e.paragraphs = r }
}

// WithPageReader replaces the built-in PDF text reader.
func WithPageReader(r PageReader) Option {
	return func(e *Extractor) { e.pages = r }
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Extractor) { e.logger = l }
}

func New(opts ...Option) *Extractor {
	e := &Extractor{
		pages:      PDFReader{},
		paragraphs: OOXMLReader{},
		strategy:   StrategyWhole,
		logger:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract returns the document's plain text. A document that yields no text
// returns "" without error; callers report it as low yield.
func (e *Extractor) Extract(ctx context.Context, doc domain.Document) (string, error) {
	if len(doc.Data) == 0 {
		return "", fmt.Errorf("%w: %s", domain.ErrEmptyFile, doc.Name)
	}
	switch doc.Kind {
	case domain.KindPDF:
		if !bytes.HasPrefix(doc.Data, pdfSignature) {
			return "", fmt.Errorf("%w: %s does not start with %%PDF", domain.ErrInvalidFormat, doc.Name)
		}
		return e.extractPDF(ctx, doc)
	case domain.KindDOCX:
		if !bytes.HasPrefix(doc.Data, docxSignature) {
			return "", fmt.Errorf("%w: %s is not a Word (OOXML) document", domain.ErrInvalidFormat, doc.Name)
		}
		paras, err := e.paragraphs.ReadParagraphs(ctx, doc.Data)
		if err != nil {
			return "", &domain.ExtractionError{Name: doc.Name, Cause: err}
		}
		return strings.Join(paras, "\n"), nil
	default:
		return "", fmt.Errorf("%w: %s (%s)", domain.ErrUnsupportedType, doc.Name, doc.Kind)
	}
}

func (e *Extractor) extractPDF(ctx context.Context, doc domain.Document) (string, error) {
	pages, err := e.pages.ReadPages(ctx, doc.Data)
	if err != nil {
		return "", &domain.ExtractionError{Name: doc.Name, Cause: err}
	}
	var missing []int
	for i, p := range pages {
		if strings.TrimSpace(p) == "" {
			missing = append(missing, i)
		}
	}
	if len(missing) == 0 || e.ocr == nil {
		if len(missing) > 0 {
			e.logger.Warn("pdf has image-only pages and OCR is disabled",
				"document", doc.Name, "pages", len(pages), "image_only", len(missing))
		}
		return joinPages(pages), nil
	}

	e.logger.Info("running OCR", "document", doc.Name, "strategy", string(e.strategy), "image_only", len(missing))
	ocrPages, err := e.ocr.RecognizePDF(ctx, doc.Data)
	if err != nil {
		return "", &domain.ExtractionError{Name: doc.Name, Cause: fmt.Errorf("ocr: %w", err)}
	}
	if e.strategy == StrategyWhole {
		return joinPages(ocrPages), nil
	}
	merged := append([]string(nil), pages...)
	for _, i := range missing {
		if i < len(ocrPages) {
			merged[i] = ocrPages[i]
		}
	}
	return joinPages(merged), nil
}

func joinPages(pages []string) string {
	var b strings.Builder
	for _, p := range pages {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(p)
	}
	return b.String()
}
