// Package export writes derived tables to XLSX workbooks and CSV files.
package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"sapauth/pkg/engine"
	"sapauth/pkg/report"
)

// Kind selects which derived table to export.
type Kind string

const (
	KindUsers  Kind = "users"
	KindRoles  Kind = "roles"
	KindTCodes Kind = "tcodes"
	KindUnused Kind = "unused"
)

// Kinds lists every exportable table in workbook order.
var Kinds = []Kind{KindUsers, KindRoles, KindTCodes, KindUnused}

// Sheet names used in exported workbooks.
var sheetNames = map[Kind]string{
	KindUsers:  "Users",
	KindRoles:  "Roles",
	KindTCodes: "TCodes",
	KindUnused: "Unused Roles",
}

// ParseKind validates a kind name.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if _, ok := sheetNames[k]; !ok {
		return "", fmt.Errorf("unknown export kind %q (want users, roles, tcodes or unused)", s)
	}
	return k, nil
}

// Sheet is one exported table.
type Sheet struct {
	Name    string
	Headers []string
	Rows    [][]any
}

// Build renders one kind of table from a snapshot. Unused roles are those at
// 0% utilization under the snapshot window.
func Build(s *engine.Snapshot, kind Kind) (Sheet, error) {
	sheet := Sheet{Name: sheetNames[kind]}
	switch kind {
	case KindUsers:
		sheet.Headers, sheet.Rows = report.UserTable.Headers(), report.UserTable.Values(s.Users)
	case KindRoles:
		sheet.Headers, sheet.Rows = report.RoleTable.Headers(), report.RoleTable.Values(s.Roles)
	case KindTCodes:
		sheet.Headers, sheet.Rows = report.TCodeTable.Headers(), report.TCodeTable.Values(s.TCodes)
	case KindUnused:
		sheet.Headers, sheet.Rows = report.UnusedRoleTable.Headers(), report.UnusedRoleTable.Values(report.Unused(s.Roles))
	default:
		return Sheet{}, fmt.Errorf("unknown export kind %q", kind)
	}
	return sheet, nil
}

// WriteXLSX writes the requested tables as sheets of one workbook, in the order
// given. No kinds means every table.
func WriteXLSX(w io.Writer, s *engine.Snapshot, kinds ...Kind) error {
	if len(kinds) == 0 {
		kinds = Kinds
	}

	f := excelize.NewFile()
	defer f.Close()

	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	for i, kind := range kinds {
		sheet, err := Build(s, kind)
		if err != nil {
			return err
		}
		if i == 0 {
			// Reuse the default sheet so the workbook has no empty leftover.
			if err := f.SetSheetName(f.GetSheetName(0), sheet.Name); err != nil {
				return fmt.Errorf("rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(sheet.Name); err != nil {
			return fmt.Errorf("create sheet %s: %w", sheet.Name, err)
		}
		if err := writeSheet(f, sheet, header); err != nil {
			return fmt.Errorf("write sheet %s: %w", sheet.Name, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet Sheet, headerStyle int) error {
	headers := make([]any, len(sheet.Headers))
	for i, h := range sheet.Headers {
		headers[i] = h
	}
	if err := f.SetSheetRow(sheet.Name, "A1", &headers); err != nil {
		return err
	}
	if err := f.SetRowStyle(sheet.Name, 1, 1, headerStyle); err != nil {
		return err
	}
	for i, row := range sheet.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet.Name, cell, &row); err != nil {
			return err
		}
	}
	return f.SetPanes(sheet.Name, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

// WriteCSV writes one table as CSV with a header row.
func WriteCSV(w io.Writer, s *engine.Snapshot, kind Kind) error {
	sheet, err := Build(s, kind)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(sheet.Headers); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	record := make([]string, len(sheet.Headers))
	for _, row := range sheet.Rows {
		for i, v := range row {
			record[i] = fmt.Sprint(v)
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
