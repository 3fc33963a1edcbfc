package core

import (
	"errors"
	"fmt"

	"github.com/vish4lsharma/extractor/internal/models"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrExtraction        = errors.New("extraction failed")
	ErrInvalidTransition = errors.New("invalid task transition")
	ErrInfected          = errors.New("file rejected by malware scan")
	ErrMissingOCREngine  = errors.New("OCR engine not available")
	ErrTaskNotReady      = errors.New("task has not completed")
)

// UnsupportedFormatError names the rejected extension.
type UnsupportedFormatError struct {
	Ext string
}

func (e *UnsupportedFormatError) Error() string {
	if e.Ext == "" {
		return "unsupported file format: no extension"
	}
	return fmt.Sprintf("unsupported file format: %s", e.Ext)
}

func (e *UnsupportedFormatError) Is(target error) bool {
	return target == ErrUnsupportedFormat
}

// ExtractionError wraps a failure inside an extractor.
type ExtractionError struct {
	Kind models.ExtractorKind
	Op   string
	Err  error
}

func (e *ExtractionError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s extraction: %s: %v", e.Kind, e.Op, e.Err)
	}
	return fmt.Sprintf("%s extraction: %v", e.Kind, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

func (e *ExtractionError) Is(target error) bool {
	return target == ErrExtraction
}

// NewExtractionError builds an ExtractionError, returning nil for a nil cause.
func NewExtractionError(kind models.ExtractorKind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &ExtractionError{Kind: kind, Op: op, Err: err}
}

// NotFoundf wraps ErrNotFound with context.
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrNotFound)
}
