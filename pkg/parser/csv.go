package parser

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"sapauth/pkg/cell"
	"sapauth/pkg/schema"
)

// ParseWarning represents a non-fatal issue encountered while reading a sheet.
type ParseWarning struct {
	Sheet   string `json:"sheet"`
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// ParseCSV parses one CSV export into a named sheet.
// It handles mismatched column counts (pad/truncate) and skips malformed rows
// with a warning. A file with a header but no rows yields an empty sheet.
func ParseCSV(name string, data []byte) (schema.Sheet, []ParseWarning, error) {
	decoded, _, err := DetectAndDecode(data)
	if err != nil {
		return schema.Sheet{}, nil, fmt.Errorf("%w: encoding detection failed: %w", ErrWorkbook, err)
	}

	reader := csv.NewReader(bytes.NewReader(decoded))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.Comma = sniffDelimiter(decoded)

	headers, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return schema.Sheet{}, nil, fmt.Errorf("%w: empty file: no header row found", ErrWorkbook)
		}
		return schema.Sheet{}, nil, fmt.Errorf("%w: failed to read header row: %w", ErrWorkbook, err)
	}

	sheet := schema.Sheet{Name: name, Headers: trimHeaders(headers)}
	var warnings []ParseWarning
	rowNum := 1 // header is row 1

	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		rowNum++

		if err != nil {
			warnings = append(warnings, ParseWarning{Sheet: name, Row: rowNum, Message: fmt.Sprintf("parse error: %v", err)})
			continue
		}

		rec, warning := toRecord(sheet.Headers, textCells(row))
		if warning != "" {
			warnings = append(warnings, ParseWarning{Sheet: name, Row: rowNum, Message: warning})
		}
		if rec != nil {
			sheet.Records = append(sheet.Records, rec)
		}
	}

	return sheet, warnings, nil
}

// textCells keeps every CSV field as text. CSV carries no types, so numeric
// looking identifiers such as "00123" must not be coerced; dates still parse
// from numeric text.
func textCells(row []string) []cell.Value {
	out := make([]cell.Value, len(row))
	for i, raw := range row {
		out[i] = cell.Text(raw)
	}
	return out
}

// toRecord pads or truncates row to the header width.
// Rows where every cell is blank return a nil record.
func toRecord(headers []string, row []cell.Value) (schema.Record, string) {
	var warning string
	if len(row) != len(headers) {
		if len(row) < len(headers) {
			warning = fmt.Sprintf("row has %d columns, expected %d; padding with empty values", len(row), len(headers))
			padded := make([]cell.Value, len(headers))
			copy(padded, row)
			row = padded
		} else {
			warning = fmt.Sprintf("row has %d columns, expected %d; truncating extra columns", len(row), len(headers))
			row = row[:len(headers)]
		}
	}

	rec := make(schema.Record, len(headers))
	blank := true
	for i, h := range headers {
		if h == "" {
			continue
		}
		if !row[i].IsEmpty() {
			blank = false
		}
		rec[h] = row[i]
	}
	if blank {
		return nil, warning
	}
	return rec, warning
}

func trimHeaders(headers []string) []string {
	out := make([]string, len(headers))
	for i, h := range headers {
		out[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}
	return out
}

// sniffDelimiter picks the separator used by the header line. European SAP
// exports use semicolons and tab-delimited downloads are common.
func sniffDelimiter(data []byte) rune {
	line := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		line = data[:i]
	}
	best, bestCount := ',', bytes.Count(line, []byte{','})
	for _, d := range []rune{';', '\t'} {
		if n := bytes.Count(line, []byte(string(d))); n > bestCount {
			best, bestCount = d, n
		}
	}
	return best
}
