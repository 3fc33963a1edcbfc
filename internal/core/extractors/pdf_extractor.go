package extractors

import (
	"context"
	"fmt"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"github.com/rs/zerolog"

	"github.com/vish4lsharma/extractor/internal/core"
	"github.com/vish4lsharma/extractor/internal/models"
)

var (
	_ core.Extractor     = (*PDFExtractor)(nil)
	_ core.PageExtractor = (*PDFExtractor)(nil)
)

func init() {
	// pdfcpu would otherwise create a config directory under $HOME.
	api.DisableConfigDir()
}

// fitzInfoKeys maps MuPDF metadata keys onto Info dictionary names.
var fitzInfoKeys = map[string]string{
	"title":        "Title",
	"author":       "Author",
	"subject":      "Subject",
	"keywords":     "Keywords",
	"creator":      "Creator",
	"producer":     "Producer",
	"creationDate": "CreationDate",
	"modDate":      "ModDate",
}

// PDFExtractor reads page text with MuPDF and document info with pdfcpu.
type PDFExtractor struct {
	log zerolog.Logger
}

func NewPDFExtractor(log zerolog.Logger) *PDFExtractor {
	return &PDFExtractor{log: log.With().Str("extractor", "pdf").Logger()}
}

func (e *PDFExtractor) Extract(ctx context.Context, path string) (res *models.ExtractionResult, err error) {
	if err := checkSource(models.KindPDF, path); err != nil {
		return nil, err
	}
	defer recoverPanic(models.KindPDF, "parse", &err)

	doc, err := fitz.New(path)
	if err != nil {
		return nil, core.NewExtractionError(models.KindPDF, "open", err)
	}
	defer doc.Close()

	n := doc.NumPage()
	if n < 1 {
		return nil, core.NewExtractionError(models.KindPDF, "parse", fmt.Errorf("document has no pages"))
	}

	pages := make([]string, 0, n)
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		text, err := doc.Text(i)
		if err != nil {
			return nil, core.NewExtractionError(models.KindPDF, fmt.Sprintf("page %d", i+1), err)
		}
		pages = append(pages, text)
	}

	meta, err := infoDict(path)
	if err != nil {
		e.log.Debug().Err(err).Str("path", path).Msg("pdfcpu could not read info dict, using MuPDF metadata")
		meta = fitzMetadata(doc.Metadata())
	}

	return &models.ExtractionResult{
		Content:   strings.Join(pages, "\n\n"),
		PageCount: n,
		Metadata:  meta,
	}, nil
}

// ExtractPage returns the text of a single 1-based page.
func (e *PDFExtractor) ExtractPage(ctx context.Context, path string, page int) (text string, err error) {
	if err := checkSource(models.KindPDF, path); err != nil {
		return "", err
	}
	defer recoverPanic(models.KindPDF, "parse", &err)

	doc, err := fitz.New(path)
	if err != nil {
		return "", core.NewExtractionError(models.KindPDF, "open", err)
	}
	defer doc.Close()

	if page < 1 || page > doc.NumPage() {
		return "", core.NewExtractionError(models.KindPDF, "page", fmt.Errorf("invalid page number: %d", page))
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	text, err = doc.Text(page - 1)
	if err != nil {
		return "", core.NewExtractionError(models.KindPDF, fmt.Sprintf("page %d", page), err)
	}
	return text, nil
}

// infoDict reads the trailer Info dictionary, keeping non-empty values.
func infoDict(path string) (map[string]any, error) {
	pdfCtx, err := api.ReadContextFile(path)
	if err != nil {
		return nil, err
	}
	meta := map[string]any{}
	if pdfCtx.Info == nil {
		return meta, nil
	}
	d, err := pdfCtx.DereferenceDict(*pdfCtx.Info)
	if err != nil || d == nil {
		return meta, err
	}
	for key, obj := range d {
		obj, err := pdfCtx.Dereference(obj)
		if err != nil || obj == nil {
			continue
		}
		var val string
		switch v := obj.(type) {
		case types.StringLiteral:
			val, err = types.StringLiteralToString(v)
		case types.HexLiteral:
			val, err = types.HexLiteralToString(v)
		case types.Name:
			val = string(v)
		default:
			val = v.String()
		}
		if err != nil {
			continue
		}
		if val = strings.TrimSpace(val); val != "" {
			meta[key] = val
		}
	}
	return meta, nil
}

func fitzMetadata(raw map[string]string) map[string]any {
	meta := map[string]any{}
	for k, v := range raw {
		name, ok := fitzInfoKeys[k]
		if !ok || strings.TrimSpace(v) == "" {
			continue
		}
		meta[name] = v
	}
	return meta
}
