//go:build ocr

package extractors

import (
	"context"
	"fmt"

	"github.com/otiai10/gosseract/v2"

	"github.com/vish4lsharma/extractor/internal/core"
)

// TesseractEngine runs tesseract through gosseract. A client is created per
// call because gosseract clients are not safe for concurrent use.
type TesseractEngine struct {
	languages []string
}

func NewTesseractEngine(languages []string) core.OCREngine {
	return &TesseractEngine{languages: languages}
}

func (t *TesseractEngine) client(path string) (*gosseract.Client, error) {
	c := gosseract.NewClient()
	if len(t.languages) > 0 {
		if err := c.SetLanguage(t.languages...); err != nil {
			c.Close()
			return nil, fmt.Errorf("set language: %w", err)
		}
	}
	if err := c.SetImage(path); err != nil {
		c.Close()
		return nil, fmt.Errorf("set image: %w", err)
	}
	return c, nil
}

func (t *TesseractEngine) Text(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	c, err := t.client(path)
	if err != nil {
		return "", err
	}
	defer c.Close()
	return c.Text()
}

func (t *TesseractEngine) Words(ctx context.Context, path string) ([]core.OCRWord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c, err := t.client(path)
	if err != nil {
		return nil, err
	}
	defer c.Close()

	boxes, err := c.GetBoundingBoxesVerbose()
	if err != nil {
		return nil, err
	}
	words := make([]core.OCRWord, 0, len(boxes))
	for _, b := range boxes {
		words = append(words, core.OCRWord{Text: b.Word, BlockNum: b.BlockNum})
	}
	return words, nil
}
