package core

import (
	"context"

	"github.com/vish4lsharma/extractor/internal/models"
)

// Extractor turns a document on disk into an ExtractionResult.
// Implementations must be safe for concurrent use and must not modify the file.
type Extractor interface {
	Extract(ctx context.Context, path string) (*models.ExtractionResult, error)
}

// LayoutExtractor is implemented by extractors that can preserve block layout.
type LayoutExtractor interface {
	ExtractLayout(ctx context.Context, path string) (*models.ExtractionResult, error)
}

// PageExtractor returns the text of a single 1-based page.
type PageExtractor interface {
	ExtractPage(ctx context.Context, path string, page int) (string, error)
}

// SheetExtractor returns a single named worksheet.
type SheetExtractor interface {
	ExtractSheet(ctx context.Context, path, name string) (*models.SheetData, error)
}

// OCRWord is one recognised word with its tesseract block number.
type OCRWord struct {
	Text     string
	BlockNum int
}

// OCREngine recognises text in an image file.
type OCREngine interface {
	Text(ctx context.Context, path string) (string, error)
	Words(ctx context.Context, path string) ([]OCRWord, error)
}
