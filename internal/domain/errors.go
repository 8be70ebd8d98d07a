package domain

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyFile         = errors.New("empty file")
	ErrInvalidFormat     = errors.New("invalid file format")
	ErrUnsupportedType   = errors.New("unsupported file type")
	ErrExtraction        = errors.New("extraction failed")
	ErrEmbedding         = errors.New("embedding failed")
	ErrDimensionMismatch = errors.New("dimension mismatch")
	ErrRetrieval         = errors.New("retrieval failed")
	ErrBackend           = errors.New("answering backend failed")
	ErrStreamInterrupted = errors.New("response stream interrupted")
	ErrIndex             = errors.New("history index out of range")
	ErrInvalidConfig     = errors.New("invalid configuration")
	ErrNoDocuments       = errors.New("no text could be indexed from the uploaded files")
)

// ExtractionError reports a parse failure for a named document.
type ExtractionError struct {
	Name  string
	Cause error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s: %v", e.Name, e.Cause)
}

func (e *ExtractionError) Unwrap() error { return e.Cause }

// Is lets errors.Is(err, ErrExtraction) match any ExtractionError.
func (e *ExtractionError) Is(target error) bool { return target == ErrExtraction }
