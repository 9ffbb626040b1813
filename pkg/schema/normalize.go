package schema

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"sapauth/pkg/cell"
)

// columns resolves canonical column names against one sheet's records.
type columns map[string]string // canonical -> original header

func resolveColumns(table Table, headers []string) columns {
	cols := make(columns)
	for header, canonical := range InferMappings(table, headers) {
		cols[canonical] = header
	}
	return cols
}

func (c columns) value(rec Record, canonical string) cell.Value {
	header, ok := c[canonical]
	if !ok {
		return cell.Value{}
	}
	return rec[header]
}

func (c columns) text(rec Record, canonical string) string {
	return cell.String(c.value(rec, canonical))
}

// headersOf returns the sheet headers, falling back to the keys of the first
// record when the sheet was built without an explicit header row.
func headersOf(sheet Sheet) []string {
	if len(sheet.Headers) > 0 || len(sheet.Records) == 0 {
		return sheet.Headers
	}
	headers := make([]string, 0, len(sheet.Records[0]))
	for h := range sheet.Records[0] {
		headers = append(headers, h)
	}
	sort.Strings(headers)
	return headers
}

// NormalizeUsers converts a Users sheet into typed rows. Text fields are trimmed;
// date fields keep the raw cell so the engine can parse them.
func NormalizeUsers(sheet Sheet) []UserRow {
	cols := resolveColumns(TableUsers, headersOf(sheet))
	result := make([]UserRow, 0, len(sheet.Records))
	for _, rec := range sheet.Records {
		result = append(result, UserRow{
			User:       cols.text(rec, ColUser),
			Team:       cols.text(rec, ColTeam),
			ValidTo:    cols.value(rec, ColValidTo),
			LastLogon:  cols.value(rec, ColLastLogon),
			LockReason: cols.text(rec, ColLockReason),
		})
	}
	return result
}

// NormalizeUserRoles converts a User role sheet into assignment edges.
func NormalizeUserRoles(sheet Sheet) []UserRoleRow {
	cols := resolveColumns(TableUserRoles, headersOf(sheet))
	result := make([]UserRoleRow, 0, len(sheet.Records))
	for _, rec := range sheet.Records {
		result = append(result, UserRoleRow{
			Role:     cols.text(rec, ColRole),
			UserName: cols.text(rec, ColUserName),
		})
	}
	return result
}

// NormalizeRoleTCodes converts a Role_tcode sheet into authorization edges.
func NormalizeRoleTCodes(sheet Sheet) []RoleTCodeRow {
	cols := resolveColumns(TableRoleTCodes, headersOf(sheet))
	result := make([]RoleTCodeRow, 0, len(sheet.Records))
	for _, rec := range sheet.Records {
		result = append(result, RoleTCodeRow{
			Role:  cols.text(rec, ColRole),
			TCode: cols.text(rec, ColTCode),
		})
	}
	return result
}

// NormalizeTransactionLogs converts a Transaction logs sheet into execution rows.
func NormalizeTransactionLogs(sheet Sheet) []TransactionLogRow {
	cols := resolveColumns(TableTransactionLogs, headersOf(sheet))
	result := make([]TransactionLogRow, 0, len(sheet.Records))
	for _, rec := range sheet.Records {
		result = append(result, TransactionLogRow{
			TCode: cols.text(rec, ColTCode),
			Text:  cols.text(rec, ColText),
			Date:  cols.value(rec, ColDate),
		})
	}
	return result
}

// BuildTables matches sheets to tables by name and normalizes each one.
// The first sheet matching a table wins; unmatched tables stay empty.
func BuildTables(sheets []Sheet) Tables {
	var tables Tables
	seen := make(map[Table]bool)
	for _, sheet := range sheets {
		table, ok := MatchSheet(sheet.Name)
		if !ok || seen[table] {
			continue
		}
		seen[table] = true
		switch table {
		case TableUsers:
			tables.Users = NormalizeUsers(sheet)
		case TableUserRoles:
			tables.UserRoles = NormalizeUserRoles(sheet)
		case TableRoleTCodes:
			tables.RoleTCodes = NormalizeRoleTCodes(sheet)
		case TableTransactionLogs:
			tables.TransactionLogs = NormalizeTransactionLogs(sheet)
		}
	}
	return tables
}

// FoldKey lowercases s and strips diacritics so identifiers typed with
// different casing or accents compare equal.
func FoldKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return s
	}
	decomposed := norm.NFD.String(s)
	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
