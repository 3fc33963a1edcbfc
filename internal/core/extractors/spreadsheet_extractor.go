package extractors

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"

	"github.com/vish4lsharma/extractor/internal/core"
	"github.com/vish4lsharma/extractor/internal/models"
)

var (
	_ core.Extractor      = (*SpreadsheetExtractor)(nil)
	_ core.SheetExtractor = (*SpreadsheetExtractor)(nil)
)

const csvSheetName = "Sheet1"

// rawSheet is a worksheet as read from disk, before header handling.
type rawSheet struct {
	name string
	rows [][]string
}

// SpreadsheetExtractor reads CSV, XLSX and XLS files. The first row of every
// sheet is its header.
type SpreadsheetExtractor struct{}

func NewSpreadsheetExtractor() *SpreadsheetExtractor {
	return &SpreadsheetExtractor{}
}

func (e *SpreadsheetExtractor) Extract(ctx context.Context, path string) (*models.ExtractionResult, error) {
	format, raw, err := e.read(ctx, path)
	if err != nil {
		return nil, err
	}

	sheets := make([]models.SheetData, 0, len(raw))
	parts := make([]string, 0, 3*len(raw))
	for _, rs := range raw {
		sd := buildSheet(rs)
		sheets = append(sheets, sd)

		parts = append(parts, "Sheet: "+sd.Name)
		if len(sd.Data) == 0 {
			parts = append(parts, "(Empty sheet)")
		} else {
			parts = append(parts, renderTable(sd))
		}
		parts = append(parts, "\n")
	}

	meta := map[string]any{"format": format}
	if format == "CSV" {
		meta["rows"] = len(sheets[0].Data)
		meta["columns"] = len(sheets[0].Columns)
	} else {
		names := make([]string, len(sheets))
		for i, s := range sheets {
			names[i] = s.Name
		}
		meta["sheet_count"] = len(sheets)
		meta["sheet_names"] = names
	}

	pageCount := len(sheets)
	if pageCount < 1 {
		pageCount = 1
	}

	return &models.ExtractionResult{
		Content:        strings.Join(parts, "\n"),
		PageCount:      pageCount,
		Metadata:       meta,
		StructuredData: &models.StructuredData{Sheets: sheets},
	}, nil
}

// ExtractSheet returns one sheet by name. CSV files expose a single sheet
// named Sheet1.
func (e *SpreadsheetExtractor) ExtractSheet(ctx context.Context, path, name string) (*models.SheetData, error) {
	_, raw, err := e.read(ctx, path)
	if err != nil {
		return nil, err
	}
	for _, rs := range raw {
		if rs.name == name {
			sd := buildSheet(rs)
			return &sd, nil
		}
	}
	return nil, core.NotFoundf("sheet %q", name)
}

func (e *SpreadsheetExtractor) read(ctx context.Context, path string) (format string, sheets []rawSheet, err error) {
	if err := checkSource(models.KindSpreadsheet, path); err != nil {
		return "", nil, err
	}
	if err := ctx.Err(); err != nil {
		return "", nil, err
	}
	defer recoverPanic(models.KindSpreadsheet, "parse", &err)

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		sheets, err = readCSV(path)
		format = "CSV"
	case ".xlsx":
		sheets, err = readXLSX(ctx, path)
		format = "XLSX"
	case ".xls":
		sheets, err = readXLS(ctx, path)
		format = "XLS"
	default:
		return "", nil, core.NewExtractionError(models.KindSpreadsheet, "open", &core.UnsupportedFormatError{Ext: ext})
	}
	if err != nil {
		return "", nil, core.NewExtractionError(models.KindSpreadsheet, "read "+format, err)
	}
	return format, sheets, nil
}

func readCSV(path string) ([]rawSheet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var rows [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, rec)
	}
	if len(rows) > 0 && len(rows[0]) > 0 {
		rows[0][0] = strings.TrimPrefix(rows[0][0], "\ufeff")
	}
	return []rawSheet{{name: csvSheetName, rows: rows}}, nil
}

func readXLSX(ctx context.Context, path string) ([]rawSheet, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	names := f.GetSheetList()
	sheets := make([]rawSheet, 0, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rows, err := f.GetRows(name)
		if err != nil {
			return nil, fmt.Errorf("sheet %q: %w", name, err)
		}
		sheets = append(sheets, rawSheet{name: name, rows: rows})
	}
	return sheets, nil
}

func readXLS(ctx context.Context, path string) ([]rawSheet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	wb, err := xls.OpenReader(f, "utf-8")
	if err != nil {
		return nil, err
	}
	if wb == nil {
		return nil, fmt.Errorf("no workbook stream found")
	}

	sheets := make([]rawSheet, 0, wb.NumSheets())
	for i := 0; i < wb.NumSheets(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ws := wb.GetSheet(i)
		if ws == nil {
			continue
		}
		var rows [][]string
		for r := 0; r <= int(ws.MaxRow); r++ {
			row := xlsRow(ws, r)
			if row == nil {
				rows = append(rows, nil)
				continue
			}
			cells := make([]string, 0, row.LastCol()+1)
			for c := 0; c <= row.LastCol(); c++ {
				cells = append(cells, row.Col(c))
			}
			rows = append(rows, trimTrailingBlank(cells))
		}
		sheets = append(sheets, rawSheet{name: ws.Name, rows: trimTrailingRows(rows)})
	}
	return sheets, nil
}

// xlsRow returns nil for rows the sheet never stored; the library panics on them.
func xlsRow(ws *xls.WorkSheet, i int) (row *xls.Row) {
	defer func() {
		if recover() != nil {
			row = nil
		}
	}()
	return ws.Row(i)
}

func trimTrailingBlank(cells []string) []string {
	n := len(cells)
	for n > 0 && strings.TrimSpace(cells[n-1]) == "" {
		n--
	}
	return cells[:n]
}

func trimTrailingRows(rows [][]string) [][]string {
	n := len(rows)
	for n > 0 && isBlankRow(rows[n-1]) {
		n--
	}
	return rows[:n]
}

func isBlankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// buildSheet turns the first row into column names and every following
// non-blank row into a record.
func buildSheet(rs rawSheet) models.SheetData {
	sd := models.SheetData{Name: rs.name, Columns: []string{}, Data: []map[string]any{}}

	start := 0
	for start < len(rs.rows) && isBlankRow(rs.rows[start]) {
		start++
	}
	if start == len(rs.rows) {
		return sd
	}
	header := rs.rows[start]
	body := rs.rows[start+1:]

	width := len(header)
	for _, row := range body {
		if len(row) > width {
			width = len(row)
		}
	}
	sd.Columns = columnNames(header, width)

	for _, row := range body {
		if isBlankRow(row) {
			continue
		}
		rec := make(map[string]any, width)
		for i, col := range sd.Columns {
			if i < len(row) {
				rec[col] = cellValue(row[i])
			} else {
				rec[col] = nil
			}
		}
		sd.Data = append(sd.Data, rec)
	}
	return sd
}

func columnNames(header []string, width int) []string {
	cols := make([]string, width)
	seen := make(map[string]int, width)
	for i := 0; i < width; i++ {
		name := ""
		if i < len(header) {
			name = strings.TrimSpace(header[i])
		}
		if name == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}
		if n, dup := seen[name]; dup {
			base := name
			for {
				n++
				name = fmt.Sprintf("%s.%d", base, n)
				if _, taken := seen[name]; !taken {
					break
				}
			}
			seen[base] = n
		}
		seen[name] = 0
		cols[i] = name
	}
	return cols
}

// cellValue converts a raw cell into an int64, float64, nil or string.
// NaN and infinities stay strings; JSON cannot carry them.
func cellValue(s string) any {
	t := strings.TrimSpace(s)
	if t == "" {
		return nil
	}
	if n, err := strconv.ParseInt(t, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(t, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return f
	}
	return s
}

func formatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return "NaN"
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case string:
		return strings.ReplaceAll(strings.ReplaceAll(x, "\t", " "), "\n", " ")
	default:
		return fmt.Sprint(x)
	}
}

// renderTable prints a sheet as a right-aligned text table without a row index.
func renderTable(sd models.SheetData) string {
	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', tabwriter.AlignRight)

	for _, c := range sd.Columns {
		fmt.Fprint(w, formatCell(c), "\t")
	}
	fmt.Fprintln(w)
	for _, rec := range sd.Data {
		for _, c := range sd.Columns {
			fmt.Fprint(w, formatCell(rec[c]), "\t")
		}
		fmt.Fprintln(w)
	}
	_ = w.Flush()
	return strings.TrimRight(buf.String(), "\n")
}
