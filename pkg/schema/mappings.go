package schema

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Table identifies one of the four sheets of an authorization export.
type Table string

const (
	TableUsers           Table = "users"
	TableUserRoles       Table = "userRoles"
	TableRoleTCodes      Table = "roleTCodes"
	TableTransactionLogs Table = "transactionLogs"
)

// AllTables lists the tables in load order.
var AllTables = []Table{TableUsers, TableUserRoles, TableRoleTCodes, TableTransactionLogs}

// Canonical column names.
const (
	ColUser       = "user"
	ColTeam       = "team"
	ColValidTo    = "validTo"
	ColLastLogon  = "lastLogon"
	ColLockReason = "lockReason"
	ColRole       = "role"
	ColUserName   = "userName"
	ColTCode      = "tCode"
	ColText       = "text"
	ColDate       = "date"
)

// Alias lists the accepted spellings of one canonical column.
type Alias struct {
	Canonical string
	Spellings []string
}

// ColumnAliases maps each table to its canonical columns and their accepted
// header spellings. Spellings are compared after normalizeHeader, so case,
// spaces, underscores, hyphens and dots do not matter.
var ColumnAliases = map[Table][]Alias{
	TableUsers: {
		{ColUser, []string{"User", "User ID", "Userid", "User Name", "Bname"}},
		{ColTeam, []string{"Team", "User Group", "Group", "Class"}},
		{ColValidTo, []string{"Valid to", "Valid To", "Valid Through", "Valid Until"}},
		{ColLastLogon, []string{"Date of Last Logon", "Last Logon", "Last Logon Date", "Last Login"}},
		{ColLockReason, []string{"Reason for User Lock", "Lock Reason", "Reason for Lock", "Lock Status"}},
	},
	TableUserRoles: {
		{ColRole, []string{"Role", "Role Name", "Agr Name"}},
		{ColUserName, []string{"User Name", "User name", "User", "Userid"}},
	},
	TableRoleTCodes: {
		{ColRole, []string{"Role", "Role Name", "Agr Name"}},
		{ColTCode, []string{"Authorization value", "Authorization Value", "TCode", "Transaction Code", "Low"}},
	},
	TableTransactionLogs: {
		{ColTCode, []string{"Variable Data", "Transaction Code", "TCode"}},
		{ColText, []string{"Transaction Text", "Description"}},
		{ColDate, []string{"Date", "Stat. Date", "Start Date", "Execution Date"}},
	},
}

// SheetAliases lists the accepted sheet names per table.
var SheetAliases = map[Table][]string{
	TableUsers:           {"Users", "User"},
	TableUserRoles:       {"User role", "User roles", "User_role"},
	TableRoleTCodes:      {"Role_tcode", "Role tcode", "Role tcodes"},
	TableTransactionLogs: {"Transaction logs", "Transaction log", "Transactionlogs"},
}

// substringHints is the fallback when no spelling matches exactly.
// Order matters: more specific substrings come before generic ones.
var substringHints = map[Table][]struct {
	Substring string
	Target    string
}{
	TableUsers: {
		{"lastlogon", ColLastLogon},
		{"lastlogin", ColLastLogon},
		{"validto", ColValidTo},
		{"lock", ColLockReason},
		{"team", ColTeam},
		{"group", ColTeam},
		{"user", ColUser},
	},
	TableUserRoles: {
		{"role", ColRole},
		{"user", ColUserName},
	},
	TableRoleTCodes: {
		{"authorization", ColTCode},
		{"tcode", ColTCode},
		{"role", ColRole},
	},
	TableTransactionLogs: {
		{"variabledata", ColTCode},
		{"transactiontext", ColText},
		{"tcode", ColTCode},
		{"date", ColDate},
	},
}

// spelling is a resolved accepted spelling; rank is its position in the alias list.
type spelling struct {
	canonical string
	rank      int
}

// lookup is built once from ColumnAliases: table -> normalized spelling -> canonical.
var lookup = buildLookup()

func buildLookup() map[Table]map[string]spelling {
	out := make(map[Table]map[string]spelling, len(ColumnAliases))
	for table, aliases := range ColumnAliases {
		m := make(map[string]spelling)
		for _, a := range aliases {
			for rank, s := range a.Spellings {
				key := normalizeHeader(s)
				if _, exists := m[key]; !exists {
					m[key] = spelling{canonical: a.Canonical, rank: rank}
				}
			}
		}
		out[table] = m
	}
	return out
}

// InferMappings takes the headers of a sheet and returns header -> canonical column.
//  1. Normalize the header
//  2. Exact match against the table's accepted spellings
//  3. Substring match against the table's hints
//  4. No match -> leave unmapped
//
// Each canonical column is claimed by at most one header.
func InferMappings(table Table, headers []string) map[string]string {
	result := make(map[string]string, len(headers))
	used := make(map[string]bool)
	exact := lookup[table]

	// Exact matches are resolved first so a fuzzy header cannot steal a column
	// that another header names precisely. When two headers spell the same
	// column, the spelling listed earlier in ColumnAliases wins.
	best := make(map[string]int)
	for _, header := range headers {
		sp, ok := exact[normalizeHeader(header)]
		if !ok {
			continue
		}
		if prev, seen := best[sp.canonical]; seen && prev <= sp.rank {
			continue
		}
		best[sp.canonical] = sp.rank
		for h, target := range result {
			if target == sp.canonical {
				delete(result, h)
			}
		}
		result[header] = sp.canonical
		used[sp.canonical] = true
	}

	for _, header := range headers {
		if _, done := result[header]; done {
			continue
		}
		normalized := normalizeHeader(header)
		for _, hint := range substringHints[table] {
			if strings.Contains(normalized, hint.Substring) && !used[hint.Target] {
				result[header] = hint.Target
				used[hint.Target] = true
				break
			}
		}
	}

	return result
}

// MatchSheet reports which table a sheet name belongs to.
func MatchSheet(name string) (Table, bool) {
	key := normalizeHeader(name)
	for _, table := range AllTables {
		for _, alias := range SheetAliases[table] {
			if normalizeHeader(alias) == key {
				return table, true
			}
		}
	}
	return "", false
}

// normalizeHeader folds a header to NFKC, lowercases it, and strips whitespace,
// underscores, hyphens and dots.
func normalizeHeader(header string) string {
	s := strings.ToLower(strings.TrimSpace(norm.NFKC.String(header)))
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\r', '\n', '\u00a0', '_', '-', '.':
			return -1
		}
		return r
	}, s)
}
