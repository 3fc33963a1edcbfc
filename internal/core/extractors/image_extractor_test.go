package extractors

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vish4lsharma/extractor/internal/core"
)

type fakeOCR struct {
	text  string
	words []core.OCRWord
	err   error
	calls int
}

func (f *fakeOCR) Text(context.Context, string) (string, error) {
	f.calls++
	return f.text, f.err
}

func (f *fakeOCR) Words(context.Context, string) ([]core.OCRWord, error) {
	f.calls++
	return f.words, f.err
}

func writePNG(t *testing.T, img image.Image) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scan.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
	return path
}

func opaqueRGBA(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.White)
		}
	}
	return img
}

func TestImageExtract(t *testing.T) {
	path := writePNG(t, opaqueRGBA(40, 20))
	ocr := &fakeOCR{text: "  Invoice 42\n"}

	res, err := NewImageExtractor(ocr).Extract(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, "Invoice 42", res.Content)
	assert.Equal(t, 1, res.PageCount)
	assert.Equal(t, map[string]any{"format": "PNG", "size": "40x20", "mode": "RGB"}, res.Metadata)
	assert.Nil(t, res.StructuredData)
}

func TestImageModes(t *testing.T) {
	tests := []struct {
		name string
		img  image.Image
		want string
	}{
		{"gray", image.NewGray(image.Rect(0, 0, 2, 2)), "L"},
		{"paletted", image.NewPaletted(image.Rect(0, 0, 2, 2), color.Palette{color.Black, color.White}), "P"},
		{"alpha", image.NewNRGBA(image.Rect(0, 0, 2, 2)), "RGBA"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := NewImageExtractor(&fakeOCR{}).Extract(context.Background(), writePNG(t, tt.img))
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Metadata["mode"])
		})
	}
}

func TestImageExtractLayout(t *testing.T) {
	path := writePNG(t, opaqueRGBA(4, 4))
	ocr := &fakeOCR{words: []core.OCRWord{
		{Text: "Dear", BlockNum: 1},
		{Text: "Sir", BlockNum: 1},
		{Text: "  ", BlockNum: 2},
		{Text: "Total:", BlockNum: 3},
		{Text: "12", BlockNum: 3},
	}}

	res, err := NewImageExtractor(ocr).ExtractLayout(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, "Dear Sir\n\nTotal: 12", res.Content)
	require.NotNil(t, res.StructuredData)
	require.Len(t, res.StructuredData.Blocks, 2)
	assert.Equal(t, 3, res.StructuredData.Blocks[1].BlockNum)
}

func TestImageErrors(t *testing.T) {
	_, err := NewImageExtractor(&fakeOCR{}).Extract(context.Background(), filepath.Join(t.TempDir(), "gone.png"))
	assert.ErrorIs(t, err, core.ErrNotFound)

	ocr := &fakeOCR{}
	_, err = NewImageExtractor(ocr).Extract(context.Background(), writeFile(t, "bad.png", "not an image"))
	assert.ErrorIs(t, err, core.ErrExtraction)
	assert.Zero(t, ocr.calls, "OCR is not attempted on undecodable input")

	path := writePNG(t, opaqueRGBA(2, 2))
	_, err = NewImageExtractor(nil).Extract(context.Background(), path)
	assert.ErrorIs(t, err, core.ErrMissingOCREngine)
	assert.ErrorIs(t, err, core.ErrExtraction)

	_, err = NewImageExtractor(&fakeOCR{err: errors.New("tesseract crashed")}).Extract(context.Background(), path)
	assert.ErrorIs(t, err, core.ErrExtraction)
	assert.Contains(t, err.Error(), "tesseract crashed")
}
