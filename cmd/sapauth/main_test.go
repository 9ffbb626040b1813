package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"sapauth/internal/cli"
	"sapauth/pkg/engine"
	"sapauth/pkg/schema"
)

const roleTCodeCSV = "Role,Authorization value\nZ_FI_POSTING,FB01\nZ_FI_POSTING,FB03\nZ_MM_BUYER,ME21N\n"

// run executes the root command in an isolated directory and returns stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	listFlags.search, listFlags.sort, listFlags.desc, listFlags.top = "", "", false, 0
	windowFlags.preset, windowFlags.from, windowFlags.to = "", "", ""
	exportFlags.out, exportFlags.format, exportFlags.kinds = "", "", nil
	sourceFlag, cfgFile, envFile, logLevel = "", "", "", "error"

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func workspace(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, ".git"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "Role_tcode.csv"), []byte(roleTCodeCSV), 0o644))
	t.Chdir(root)
	return root
}

// =============================================================================
// Commands
// =============================================================================

func TestRolesCommand_JSON(t *testing.T) {
	workspace(t)

	out, err := run(t, "roles", "-s", "Role_tcode.csv", "-o", "json", "--sort", "tCodes", "--desc")
	require.NoError(t, err)

	var rows []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, "Z_FI_POSTING", rows[0]["roleName"])
	assert.Equal(t, float64(2), rows[0]["tCodes"])
	assert.Equal(t, float64(0), rows[0]["utilization"])
}

func TestRolesCommand_Table(t *testing.T) {
	workspace(t)

	out, err := run(t, "roles", "-s", "Role_tcode.csv", "-o", "table", "--search", "mm_")
	require.NoError(t, err)
	assert.Contains(t, out, "Role Name")
	assert.Contains(t, out, "Z_MM_BUYER")
	assert.NotContains(t, out, "Z_FI_POSTING")
}

func TestRoleCommand_NotFound(t *testing.T) {
	workspace(t)

	_, err := run(t, "role", "Z_FI_POSTNG", "-s", "Role_tcode.csv", "-o", "table")
	require.Error(t, err)
	var exitErr *cli.ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, cli.ExitNotFound, exitErr.Code)
	assert.Contains(t, err.Error(), "did you mean Z_FI_POSTING")
}

func TestExportCommand(t *testing.T) {
	root := workspace(t)
	target := filepath.Join(root, "unused_roles.xlsx")

	_, err := run(t, "export", "-s", "Role_tcode.csv", "-o", "table", "--kind", "unused", "--out", target)
	require.NoError(t, err)

	f, err := excelize.OpenFile(target)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Unused Roles")
	require.NoError(t, err)
	assert.Len(t, rows, 3, "header plus both never-executed roles")

	_, err = run(t, "export", "-s", "Role_tcode.csv", "-o", "table", "--out", "-", "--format", "csv")
	assert.Error(t, err, "csv needs exactly one kind")
}

func TestLoad_Errors(t *testing.T) {
	workspace(t)

	_, err := run(t, "summary", "-o", "table")
	var exitErr *cli.ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.ErrorIs(t, err, errNoSource)

	_, err = run(t, "summary", "-s", "missing.xlsx", "-o", "table")
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, cli.ExitFetch, exitErr.Code)

	_, err = run(t, "summary", "-s", "Role_tcode.csv", "-o", "xml")
	assert.Error(t, err)

	_, err = run(t, "summary", "-s", "Role_tcode.csv", "-o", "table", "--preset", "this-year", "--from", "2024-01-01")
	assert.Error(t, err)
}

// =============================================================================
// Rendering
// =============================================================================

func TestWriteTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeTable(&buf, []string{"Name", "Value"}, [][]string{{"a", "1"}, {"longer", "22"}}))
	assert.Equal(t, "Name    Value\na       1\nlonger  22\n", buf.String())
}

func TestRender(t *testing.T) {
	v := map[string]int{"roles": 2}

	var buf bytes.Buffer
	require.NoError(t, render(&buf, formatYAML, v, nil))
	assert.Equal(t, "roles: 2\n", buf.String())

	buf.Reset()
	require.NoError(t, render(&buf, formatJSON, v, nil))
	assert.JSONEq(t, `{"roles": 2}`, buf.String())

	called := false
	require.NoError(t, render(&buf, formatTable, v, func(w io.Writer) error { called = true; return nil }))
	assert.True(t, called)
}

func TestBuildDashboard(t *testing.T) {
	snap := engine.Derive(schema.Tables{
		RoleTCodes: []schema.RoleTCodeRow{{Role: "R1", TCode: "A"}, {Role: "R2", TCode: "B"}, {Role: "R3", TCode: "C"}},
	}, engine.Options{})

	d := buildDashboard(snap, 2)
	assert.Equal(t, 3, d.Summary.TotalRoles)
	assert.Len(t, d.RoleUtilization, 2)
	assert.Len(t, d.TopTCodes, 2)
	assert.Nil(t, d.Window)

	var buf bytes.Buffer
	require.NoError(t, printDashboard(&buf, d))
	assert.Contains(t, buf.String(), "all time")
	assert.Contains(t, buf.String(), "Execution heatmap")
	assert.Contains(t, buf.String(), "3 (0 executed)")
}
