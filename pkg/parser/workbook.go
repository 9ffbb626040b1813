package parser

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"sapauth/pkg/cell"
	"sapauth/pkg/schema"
)

// ErrWorkbook is returned when the input cannot be read as a workbook or CSV.
var ErrWorkbook = errors.New("unreadable workbook")

var zipMagic = []byte("PK\x03\x04")

// Result is the outcome of loading an authorization export.
type Result struct {
	Tables   schema.Tables  `json:"tables"`
	Sheets   []string       `json:"sheets"`
	Warnings []ParseWarning `json:"warnings"`
}

// Load parses an export into the four raw tables. XLSX workbooks are detected by
// their zip signature; anything else is read as a single CSV sheet named after
// the file, so a "Users.csv" lands in the Users table.
func Load(filename string, data []byte) (*Result, error) {
	var (
		sheets   []schema.Sheet
		warnings []ParseWarning
		err      error
	)
	if bytes.HasPrefix(data, zipMagic) {
		sheets, warnings, err = ParseWorkbook(data)
	} else {
		name := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
		var sheet schema.Sheet
		sheet, warnings, err = ParseCSV(name, data)
		sheets = []schema.Sheet{sheet}
	}
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(sheets))
	for _, s := range sheets {
		names = append(names, s.Name)
	}
	return &Result{
		Tables:   schema.BuildTables(sheets),
		Sheets:   names,
		Warnings: warnings,
	}, nil
}

// ParseWorkbook reads every sheet of an XLSX workbook whose name matches one of
// the authorization tables. Cells are read raw so dates arrive as serial numbers.
// Only cells stored as numbers become numeric; text cells stay text.
func ParseWorkbook(data []byte) ([]schema.Sheet, []ParseWarning, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrWorkbook, err)
	}
	defer func() { _ = f.Close() }()

	var (
		sheets   []schema.Sheet
		warnings []ParseWarning
	)
	for _, name := range f.GetSheetList() {
		if _, ok := schema.MatchSheet(name); !ok {
			continue
		}
		rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
		if err != nil {
			warnings = append(warnings, ParseWarning{Sheet: name, Message: fmt.Sprintf("sheet skipped: %v", err)})
			continue
		}
		sheet, sheetWarnings := sheetFromRows(name, rows, func(col, row int, raw string) cell.Value {
			return typedCell(f, name, col, row, raw)
		})
		sheets = append(sheets, sheet)
		warnings = append(warnings, sheetWarnings...)
	}
	return sheets, warnings, nil
}

// typedCell classifies one raw cell by its stored type. Cells without a type
// attribute are numbers in the XLSX format.
func typedCell(f *excelize.File, sheet string, col, row int, raw string) cell.Value {
	if strings.TrimSpace(raw) == "" {
		return cell.Value{}
	}
	axis, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return cell.Text(raw)
	}
	typ, err := f.GetCellType(sheet, axis)
	if err != nil {
		return cell.Text(raw)
	}
	switch typ {
	case excelize.CellTypeUnset, excelize.CellTypeNumber:
		return cell.Parse(raw)
	}
	return cell.Text(raw)
}

// sheetFromRows treats the first row as headers and classifies the remaining
// cells with classify, which receives 1-based column and row numbers.
// excelize omits trailing empty cells, so short rows are padded silently
// rather than warned about.
func sheetFromRows(name string, rows [][]string, classify func(col, row int, raw string) cell.Value) (schema.Sheet, []ParseWarning) {
	sheet := schema.Sheet{Name: name}
	if len(rows) == 0 {
		return sheet, nil
	}
	sheet.Headers = trimHeaders(rows[0])

	var warnings []ParseWarning
	for i, row := range rows[1:] {
		rowNum := i + 2
		values := make([]cell.Value, max(len(row), len(sheet.Headers)))
		for c, raw := range row {
			values[c] = classify(c+1, rowNum, raw)
		}
		rec, warning := toRecord(sheet.Headers, values)
		if warning != "" {
			warnings = append(warnings, ParseWarning{Sheet: name, Row: rowNum, Message: warning})
		}
		if rec != nil {
			sheet.Records = append(sheet.Records, rec)
		}
	}
	return sheet, warnings
}
