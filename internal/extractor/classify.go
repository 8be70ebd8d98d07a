package extractor

import (
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"docchat/internal/domain"
)

const (
	MimePDF  = "application/pdf"
	MimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

// MaxUploadBytes bounds how much of one upload is read into memory.
const MaxUploadBytes = 64 << 20

// Classify reads an upload and decides its kind from the declared content
// type, then the file extension, then a content sniff.
func Classify(u domain.Upload) (domain.Document, error) {
	if u.Body == nil {
		return domain.Document{}, fmt.Errorf("%w: %s", domain.ErrEmptyFile, u.Name)
	}
	data, err := io.ReadAll(io.LimitReader(u.Body, MaxUploadBytes+1))
	if err != nil {
		return domain.Document{}, fmt.Errorf("read %s: %w", u.Name, err)
	}
	if len(data) > MaxUploadBytes {
		return domain.Document{}, fmt.Errorf("%w: %s exceeds %d bytes", domain.ErrUnsupportedType, u.Name, MaxUploadBytes)
	}
	if len(data) == 0 {
		return domain.Document{}, fmt.Errorf("%w: %s", domain.ErrEmptyFile, u.Name)
	}
	kind, ok := kindOf(u.MimeType, u.Name, data)
	if !ok {
		return domain.Document{}, fmt.Errorf("%w: %s", domain.ErrUnsupportedType, u.Name)
	}
	return domain.Document{Name: u.Name, Kind: kind, Data: data}, nil
}

func kindOf(declared, name string, data []byte) (domain.Kind, bool) {
	if mt, _, err := mime.ParseMediaType(declared); err == nil {
		switch mt {
		case MimePDF:
			return domain.KindPDF, true
		case MimeDOCX:
			return domain.KindDOCX, true
		}
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return domain.KindPDF, true
	case ".docx":
		return domain.KindDOCX, true
	}
	detected := mimetype.Detect(data)
	switch {
	case detected.Is(MimePDF):
		return domain.KindPDF, true
	case detected.Is(MimeDOCX):
		return domain.KindDOCX, true
	}
	return "", false
}
