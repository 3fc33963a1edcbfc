// Package extractors holds the format specific extractors and the router that
// picks one for a filename.
package extractors

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/vish4lsharma/extractor/internal/core"
	"github.com/vish4lsharma/extractor/internal/models"
)

var extensions = map[string]models.ExtractorKind{
	".pdf":  models.KindPDF,
	".jpg":  models.KindImage,
	".jpeg": models.KindImage,
	".png":  models.KindImage,
	".tiff": models.KindImage,
	".bmp":  models.KindImage,
	".xlsx": models.KindSpreadsheet,
	".xls":  models.KindSpreadsheet,
	".csv":  models.KindSpreadsheet,
}

// Classify maps a filename to an extractor kind by its lower-cased extension.
// The file content is never inspected.
func Classify(filename string) (models.ExtractorKind, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	kind, ok := extensions[ext]
	if !ok {
		return "", &core.UnsupportedFormatError{Ext: ext}
	}
	return kind, nil
}

// SupportedFormats lists accepted extensions per kind, sorted.
func SupportedFormats() map[models.ExtractorKind][]string {
	out := make(map[models.ExtractorKind][]string)
	for ext, kind := range extensions {
		out[kind] = append(out[kind], ext)
	}
	for _, exts := range out {
		sort.Strings(exts)
	}
	return out
}

// Registry maps each kind to its extractor.
type Registry struct {
	byKind map[models.ExtractorKind]core.Extractor
}

func NewRegistry(pdf, image, spreadsheet core.Extractor) *Registry {
	return &Registry{byKind: map[models.ExtractorKind]core.Extractor{
		models.KindPDF:         pdf,
		models.KindImage:       image,
		models.KindSpreadsheet: spreadsheet,
	}}
}

// For returns the extractor registered for kind.
func (r *Registry) For(kind models.ExtractorKind) (core.Extractor, error) {
	ex, ok := r.byKind[kind]
	if !ok || ex == nil {
		return nil, fmt.Errorf("no extractor registered for %q: %w", kind, core.ErrUnsupportedFormat)
	}
	return ex, nil
}

// Route classifies filename and returns the matching extractor.
func (r *Registry) Route(filename string) (models.ExtractorKind, core.Extractor, error) {
	kind, err := Classify(filename)
	if err != nil {
		return "", nil, err
	}
	ex, err := r.For(kind)
	if err != nil {
		return "", nil, err
	}
	return kind, ex, nil
}
