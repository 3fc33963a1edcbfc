//go:build !ocr

package extractors

import (
	"context"

	"github.com/vish4lsharma/extractor/internal/core"
)

// TesseractEngine is a placeholder used when the binary is built without the
// ocr tag. Every call fails with ErrMissingOCREngine.
type TesseractEngine struct{}

func NewTesseractEngine(languages []string) core.OCREngine {
	return &TesseractEngine{}
}

func (*TesseractEngine) Text(context.Context, string) (string, error) {
	return "", core.ErrMissingOCREngine
}

func (*TesseractEngine) Words(context.Context, string) ([]core.OCRWord, error) {
	return nil, core.ErrMissingOCREngine
}
