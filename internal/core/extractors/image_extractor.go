package extractors

import (
	"context"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"

	"github.com/vish4lsharma/extractor/internal/core"
	"github.com/vish4lsharma/extractor/internal/models"
)

var (
	_ core.Extractor       = (*ImageExtractor)(nil)
	_ core.LayoutExtractor = (*ImageExtractor)(nil)
)

// ImageExtractor runs OCR over a single raster image.
type ImageExtractor struct {
	ocr core.OCREngine
}

func NewImageExtractor(ocr core.OCREngine) *ImageExtractor {
	return &ImageExtractor{ocr: ocr}
}

func (e *ImageExtractor) Extract(ctx context.Context, path string) (res *models.ExtractionResult, err error) {
	meta, err := e.inspect(path)
	if err != nil {
		return nil, err
	}
	defer recoverPanic(models.KindImage, "ocr", &err)

	text, err := e.ocr.Text(ctx, path)
	if err != nil {
		return nil, core.NewExtractionError(models.KindImage, "ocr", err)
	}
	return &models.ExtractionResult{
		Content:   strings.TrimSpace(text),
		PageCount: 1,
		Metadata:  meta,
	}, nil
}

// ExtractLayout groups recognised words into blocks by tesseract block
// number, skipping whitespace-only words. Blocks are joined by blank lines.
func (e *ImageExtractor) ExtractLayout(ctx context.Context, path string) (res *models.ExtractionResult, err error) {
	meta, err := e.inspect(path)
	if err != nil {
		return nil, err
	}
	defer recoverPanic(models.KindImage, "ocr", &err)

	words, err := e.ocr.Words(ctx, path)
	if err != nil {
		return nil, core.NewExtractionError(models.KindImage, "ocr", err)
	}

	blocks := groupBlocks(words)
	texts := make([]string, len(blocks))
	for i, b := range blocks {
		texts[i] = b.Text
	}
	return &models.ExtractionResult{
		Content:        strings.Join(texts, "\n\n"),
		PageCount:      1,
		Metadata:       meta,
		StructuredData: &models.StructuredData{Blocks: blocks},
	}, nil
}

func groupBlocks(words []core.OCRWord) []models.LayoutBlock {
	var (
		blocks  []models.LayoutBlock
		current []string
		num     = -1
	)
	flush := func() {
		if len(current) > 0 {
			blocks = append(blocks, models.LayoutBlock{BlockNum: num, Text: strings.Join(current, " ")})
		}
		current = nil
	}
	for _, w := range words {
		if w.BlockNum != num {
			flush()
			num = w.BlockNum
		}
		if strings.TrimSpace(w.Text) != "" {
			current = append(current, w.Text)
		}
	}
	flush()
	return blocks
}

// inspect validates the image header and returns format, size and mode.
func (e *ImageExtractor) inspect(path string) (map[string]any, error) {
	if err := checkSource(models.KindImage, path); err != nil {
		return nil, err
	}
	if e.ocr == nil {
		return nil, core.NewExtractionError(models.KindImage, "ocr", core.ErrMissingOCREngine)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, core.NewExtractionError(models.KindImage, "open", err)
	}
	defer f.Close()

	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		return nil, core.NewExtractionError(models.KindImage, "decode", err)
	}
	return map[string]any{
		"format": strings.ToUpper(format),
		"size":   fmt.Sprintf("%dx%d", cfg.Width, cfg.Height),
		"mode":   colorMode(cfg.ColorModel),
	}, nil
}

// colorMode names a color model with a short mode string such as RGB or L.
func colorMode(m color.Model) string {
	if _, ok := m.(color.Palette); ok {
		return "P"
	}
	switch m {
	case color.RGBAModel, color.RGBA64Model, color.YCbCrModel:
		return "RGB"
	case color.NRGBAModel, color.NRGBA64Model:
		return "RGBA"
	case color.GrayModel:
		return "L"
	case color.Gray16Model:
		return "I;16"
	case color.CMYKModel:
		return "CMYK"
	case color.AlphaModel, color.Alpha16Model:
		return "A"
	}
	return "unknown"
}
