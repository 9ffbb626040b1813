package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sapauth/pkg/cell"
)

func TestInferMappings_Spellings(t *testing.T) {
	got := InferMappings(TableRoleTCodes, []string{"ROLE ", "Authorization Value"})
	assert.Equal(t, map[string]string{"ROLE ": ColRole, "Authorization Value": ColTCode}, got)

	got = InferMappings(TableRoleTCodes, []string{"Role", "authorization_value"})
	assert.Equal(t, ColTCode, got["authorization_value"])

	got = InferMappings(TableTransactionLogs, []string{"VARIABLE DATA", "Transaction text", "Stat. Date"})
	assert.Equal(t, ColTCode, got["VARIABLE DATA"])
	assert.Equal(t, ColText, got["Transaction text"])
	assert.Equal(t, ColDate, got["Stat. Date"])
}

func TestInferMappings_EarlierSpellingWins(t *testing.T) {
	got := InferMappings(TableUsers, []string{"User Name", "User"})
	assert.Equal(t, ColUser, got["User"])
	_, mapped := got["User Name"]
	assert.False(t, mapped)
}

func TestInferMappings_SubstringFallback(t *testing.T) {
	got := InferMappings(TableUsers, []string{"User", "Date of last logon (UTC)", "User Lock Reason Text"})
	assert.Equal(t, ColUser, got["User"])
	assert.Equal(t, ColLastLogon, got["Date of last logon (UTC)"])
	assert.Equal(t, ColLockReason, got["User Lock Reason Text"])
}

func TestMatchSheet(t *testing.T) {
	tests := map[string]Table{
		"Users":            TableUsers,
		" users ":          TableUsers,
		"User role":        TableUserRoles,
		"USERROLE":         TableUserRoles,
		"Role_tcode":       TableRoleTCodes,
		"Role tcode":       TableRoleTCodes,
		"Transaction logs": TableTransactionLogs,
		"TransactionLogs":  TableTransactionLogs,
	}
	for name, want := range tests {
		got, ok := MatchSheet(name)
		require.True(t, ok, name)
		assert.Equal(t, want, got, name)
	}

	_, ok := MatchSheet("Summary")
	assert.False(t, ok)
}

func TestBuildTables(t *testing.T) {
	sheets := []Sheet{
		{
			Name:    "Users",
			Headers: []string{"User", "Team", "Valid to", "Date of Last Logon", "Reason for User Lock"},
			Records: []Record{{
				"User":                 cell.Text(" JDOE "),
				"Team":                 cell.Text("FI_USERS"),
				"Valid to":             cell.Number(46000),
				"Date of Last Logon":   cell.Text("2024-01-15"),
				"Reason for User Lock": cell.Text(""),
			}},
		},
		{
			Name:    "Role tcode",
			Headers: []string{"Role", "Authorization Value"},
			Records: []Record{{"Role": cell.Text("Z_FI"), "Authorization Value": cell.Text("FB01 ")}},
		},
		{
			Name:    "Role_tcode",
			Headers: []string{"Role", "Authorization value"},
			Records: []Record{{"Role": cell.Text("IGNORED"), "Authorization value": cell.Text("X")}},
		},
	}

	tables := BuildTables(sheets)

	require.Len(t, tables.Users, 1)
	assert.Equal(t, "JDOE", tables.Users[0].User)
	assert.Equal(t, "FI_USERS", tables.Users[0].Team)
	assert.Equal(t, cell.Number(46000), tables.Users[0].ValidTo)
	assert.Equal(t, []RoleTCodeRow{{Role: "Z_FI", TCode: "FB01"}}, tables.RoleTCodes)
	assert.Empty(t, tables.UserRoles)
	assert.Empty(t, tables.TransactionLogs)
}

func TestNormalize_MissingColumns(t *testing.T) {
	rows := NormalizeTransactionLogs(Sheet{
		Name:    "Transaction logs",
		Headers: []string{"Variable Data"},
		Records: []Record{{"Variable Data": cell.Text("SU01")}},
	})
	require.Len(t, rows, 1)
	assert.Equal(t, "SU01", rows[0].TCode)
	assert.Empty(t, rows[0].Text)
	assert.True(t, rows[0].Date.IsEmpty())
}

func TestFoldKey(t *testing.T) {
	assert.Equal(t, "muller", FoldKey(" MÜLLER "))
	assert.Equal(t, "", FoldKey("  "))
}
