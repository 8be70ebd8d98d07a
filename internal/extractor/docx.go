package extractor

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/unidoc/unioffice/v2/common/license"
	"github.com/unidoc/unioffice/v2/document"
)

const wordMLNamespace = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"

// OOXMLReader reads paragraphs straight from word/document.xml.
type OOXMLReader struct{}

func (OOXMLReader) ReadParagraphs(_ context.Context, data []byte) ([]string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open docx: %w", err)
	}
	var body *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			body = f
			break
		}
	}
	if body == nil {
		return nil, errors.New("word/document.xml not found")
	}
	rc, err := body.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return parseParagraphs(rc)
}

// parseParagraphs collects the text of every w:p in document order,
// including paragraphs nested in tables.
func parseParagraphs(r io.Reader) ([]string, error) {
	dec := xml.NewDecoder(r)
	var (
		paras  []string
		cur    strings.Builder
		depth  int
		inText bool
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse document.xml: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Space != wordMLNamespace {
				continue
			}
			switch t.Name.Local {
			case "p":
				if depth == 0 {
					cur.Reset()
				}
				depth++
			case "t":
				inText = true
			case "tab":
				if depth > 0 {
					cur.WriteByte('\t')
				}
			case "br", "cr":
				if depth > 0 {
					cur.WriteByte('\n')
				}
			}
		case xml.EndElement:
			if t.Name.Space != wordMLNamespace {
				continue
			}
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				depth--
				if depth == 0 {
					if s := strings.TrimSpace(cur.String()); s != "" {
						paras = append(paras, s)
					}
				}
			}
		case xml.CharData:
			if inText && depth > 0 {
				cur.Write(t)
			}
		}
	}
	return paras, nil
}

// UniofficeReader reads paragraphs with unioffice. It needs a UniDoc
// metered license key.
type UniofficeReader struct{}

func NewUniofficeReader(licenseKey string) (*UniofficeReader, error) {
	if licenseKey == "" {
		return nil, errors.New("unioffice license key is empty")
	}
	if err := license.SetMeteredKey(licenseKey); err != nil {
		return nil, fmt.Errorf("unioffice license: %w", err)
	}
	return &UniofficeReader{}, nil
}

func (*UniofficeReader) ReadParagraphs(_ context.Context, data []byte) ([]string, error) {
	doc, err := document.Read(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open docx: %w", err)
	}
	defer doc.Close()
	var paras []string
	for _, p := range doc.Paragraphs() {
		var b strings.Builder
		for _, run := range p.Runs() {
			b.WriteString(run.Text())
		}
		if s := strings.TrimSpace(b.String()); s != "" {
			paras = append(paras, s)
		}
	}
	return paras, nil
}
