package extractor

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docchat/internal/domain"
	"docchat/internal/testutil"
)

type stubPages struct {
	pages []string
	err   error
}

func (s stubPages) ReadPages(context.Context, []byte) ([]string, error) { return s.pages, s.err }

type stubOCR struct {
	pages []string
	calls int
}

func (s *stubOCR) RecognizePDF(context.Context, []byte) ([]string, error) {
	s.calls++
	return s.pages, nil
}

func pdfDoc(name string) domain.Document {
	return domain.Document{Name: name, Kind: domain.KindPDF, Data: []byte("%PDF-1.4 fake")}
}

func TestExtractDigitalPDF(t *testing.T) {
	data := testutil.PDF([]string{"The sky is blue. The grass is green."})
	text, err := New().Extract(context.Background(), domain.Document{Name: "a.pdf", Kind: domain.KindPDF, Data: data})
	require.NoError(t, err)
	assert.Contains(t, text, "sky is blue")
	assert.Contains(t, text, "green")
}

func TestPDFReaderMarksImageOnlyPages(t *testing.T) {
	data := testutil.PDF([]string{"first page"}, nil, []string{"third page"})
	pages, err := PDFReader{}.ReadPages(context.Background(), data)
	require.NoError(t, err)
	require.Len(t, pages, 3)
	assert.Contains(t, pages[0], "first")
	assert.Empty(t, strings.TrimSpace(pages[1]))
	assert.Contains(t, pages[2], "third")
}

func TestExtractRejectsEmptyFile(t *testing.T) {
	_, err := New().Extract(context.Background(), domain.Document{Name: "e.pdf", Kind: domain.KindPDF})
	assert.ErrorIs(t, err, domain.ErrEmptyFile)
}

func TestExtractChecksSignature(t *testing.T) {
	e := New()
	_, err := e.Extract(context.Background(), domain.Document{Name: "x.pdf", Kind: domain.KindPDF, Data: []byte("PK\x03\x04...")})
	assert.ErrorIs(t, err, domain.ErrInvalidFormat)

	_, err = e.Extract(context.Background(), domain.Document{Name: "x.docx", Kind: domain.KindDOCX, Data: []byte("%PDF-1.7")})
	assert.ErrorIs(t, err, domain.ErrInvalidFormat)
}

func TestExtractWrapsParseFailure(t *testing.T) {
	cause := errors.New("broken xref")
	e := New(WithPageReader(stubPages{err: cause}))
	_, err := e.Extract(context.Background(), pdfDoc("bad.pdf"))

	var xerr *domain.ExtractionError
	require.ErrorAs(t, err, &xerr)
	assert.Equal(t, "bad.pdf", xerr.Name)
	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, domain.ErrExtraction)
}

func TestExtractMalformedPDF(t *testing.T) {
	_, err := New().Extract(context.Background(), domain.Document{Name: "m.pdf", Kind: domain.KindPDF, Data: []byte("%PDF-1.4\nnot really a pdf")})
	assert.ErrorIs(t, err, domain.ErrExtraction)
}

func TestOCRWholeDocument(t *testing.T) {
	ocr := &stubOCR{pages: []string{"ocr one", "ocr two", "ocr three"}}
	e := New(WithPageReader(stubPages{pages: []string{"direct one", "  ", "direct three"}}), WithOCR(ocr, StrategyWhole))

	text, err := e.Extract(context.Background(), pdfDoc("scan.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "ocr one\nocr two\nocr three", text)
	assert.Equal(t, 1, ocr.calls)
}

func TestOCRPerPage(t *testing.T) {
	ocr := &stubOCR{pages: []string{"ocr one", "ocr two", "ocr three"}}
	e := New(WithPageReader(stubPages{pages: []string{"direct one", "", "direct three"}}), WithOCR(ocr, StrategyPerPage))

	text, err := e.Extract(context.Background(), pdfDoc("scan.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "direct one\nocr two\ndirect three", text)
}

func TestOCRSkippedWhenAllPagesHaveText(t *testing.T) {
	ocr := &stubOCR{}
	e := New(WithPageReader(stubPages{pages: []string{"a", "b"}}), WithOCR(ocr, StrategyWhole))

	text, err := e.Extract(context.Background(), pdfDoc("ok.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "a\nb", text)
	assert.Zero(t, ocr.calls)
}

func TestLowYieldIsNotAnError(t *testing.T) {
	e := New(WithPageReader(stubPages{pages: []string{"", ""}}))
	text, err := e.Extract(context.Background(), pdfDoc("blank.pdf"))
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestExtractDOCX(t *testing.T) {
	data := testutil.DOCX("First paragraph.", "Second |paragraph| here.", "Third & last.")
	text, err := New().Extract(context.Background(), domain.Document{Name: "w.docx", Kind: domain.KindDOCX, Data: data})
	require.NoError(t, err)
	assert.Equal(t, "First paragraph.\nSecond paragraph here.\nThird & last.", text)
}

func TestExtractCorruptDOCX(t *testing.T) {
	_, err := New().Extract(context.Background(), domain.Document{Name: "c.docx", Kind: domain.KindDOCX, Data: []byte("PK\x03\x04garbage")})
	assert.ErrorIs(t, err, domain.ErrExtraction)
}

func TestClassify(t *testing.T) {
	docx := testutil.DOCX("hello")
	cases := []struct {
		name   string
		upload domain.Upload
		want   domain.Kind
		err    error
	}{
		{"declared pdf", domain.Upload{Name: "x", MimeType: MimePDF, Body: bytes.NewReader([]byte("%PDF"))}, domain.KindPDF, nil},
		{"declared docx with params", domain.Upload{Name: "x", MimeType: MimeDOCX + "; charset=binary", Body: bytes.NewReader(docx)}, domain.KindDOCX, nil},
		{"extension", domain.Upload{Name: "Report.PDF", MimeType: "application/octet-stream", Body: bytes.NewReader([]byte("%PDF"))}, domain.KindPDF, nil},
		{"sniffed pdf", domain.Upload{Name: "upload", Body: bytes.NewReader([]byte("%PDF-1.4\n%âãÏÓ\n"))}, domain.KindPDF, nil},
		{"plain text", domain.Upload{Name: "notes.txt", MimeType: "text/plain", Body: strings.NewReader("hi")}, "", domain.ErrUnsupportedType},
		{"legacy doc", domain.Upload{Name: "old.doc", MimeType: "application/msword", Body: strings.NewReader("x")}, "", domain.ErrUnsupportedType},
		{"empty unknown type", domain.Upload{Name: "blank.bin", MimeType: "application/octet-stream", Body: strings.NewReader("")}, "", domain.ErrEmptyFile},
		{"empty pdf", domain.Upload{Name: "blank.pdf", Body: strings.NewReader("")}, "", domain.ErrEmptyFile},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			doc, err := Classify(tc.upload)
			if tc.err != nil {
				assert.ErrorIs(t, err, tc.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, doc.Kind)
		})
	}
}

func TestTesseractOCROrdersPages(t *testing.T) {
	o := NewTesseractOCR()
	o.Run = func(_ context.Context, name string, args ...string) ([]byte, error) {
		if name == o.Pdftoppm {
			prefix := args[len(args)-1]
			for _, n := range []string{"10", "02", "01"} {
				require.NoError(t, os.WriteFile(prefix+"-"+n+".png", nil, 0o600))
			}
			return nil, nil
		}
		return []byte("text of " + filepath.Base(args[0])), nil
	}

	pages, err := o.RecognizePDF(context.Background(), []byte("%PDF"))
	require.NoError(t, err)
	assert.Equal(t, []string{"text of page-01.png", "text of page-02.png", "text of page-10.png"}, pages)
}
