package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sapauth/pkg/cell"
	"sapauth/pkg/engine"
	"sapauth/pkg/schema"
)

var testNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func logs(code, date string, n int) []schema.TransactionLogRow {
	rows := make([]schema.TransactionLogRow, n)
	for i := range rows {
		rows[i] = schema.TransactionLogRow{TCode: code, Date: cell.Text(date)}
	}
	return rows
}

// fixture: FI has A1 and B1, MM has A2, GHOST holds R3 but has no user row.
// T1 runs 120 times, T2 20 times, T3 never, T4 once in January.
func fixture(t *testing.T) *engine.Snapshot {
	t.Helper()
	tables := schema.Tables{
		Users: []schema.UserRow{
			{User: "A1", Team: "FI", LastLogon: cell.Text("2024-06-10")},
			{User: "A2", Team: "MM", LastLogon: cell.Text("2024-06-10")},
			{User: "B1", Team: "FI", LastLogon: cell.Text("2024-06-10")},
		},
		UserRoles: []schema.UserRoleRow{
			{Role: "R1", UserName: "A1"},
			{Role: "R1", UserName: "A2"},
			{Role: "R2", UserName: "B1"},
			{Role: "R3", UserName: "GHOST"},
		},
		RoleTCodes: []schema.RoleTCodeRow{
			{Role: "R1", TCode: "T1"},
			{Role: "R1", TCode: "T2"},
			{Role: "R2", TCode: "T2"},
			{Role: "R2", TCode: "T3"},
			{Role: "R3", TCode: "T4"},
		},
	}
	tables.TransactionLogs = append(tables.TransactionLogs, logs("T1", "2024-06-01", 120)...)
	tables.TransactionLogs = append(tables.TransactionLogs, logs("T2", "2024-06-02", 20)...)
	tables.TransactionLogs = append(tables.TransactionLogs, logs("T4", "2024-01-01", 1)...)
	return engine.Derive(tables, engine.Options{Now: testNow})
}

func june() *engine.Window {
	return engine.Between(
		time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC),
	)
}

func TestGroupBy(t *testing.T) {
	got := GroupBy([]string{"b", "a", "", "b", "c", "b"}, func(s string) string { return s })
	assert.Equal(t, []Bucket{{"b", 3}, {"a", 1}, {"c", 1}}, got)
	assert.Empty(t, GroupBy([]string{}, func(s string) string { return s }))
}

func TestTopN(t *testing.T) {
	score := func(b Bucket) int { return b.Value }
	items := []Bucket{{"a", 1}, {"b", 5}, {"c", 5}, {"d", 3}}

	assert.Equal(t, []Bucket{{"b", 5}, {"c", 5}}, TopN(items, 2, score), "ties keep input order")
	assert.Len(t, TopN(items, 0, score), 4)
	assert.Len(t, TopN(items, 10, score), 4)
	assert.Empty(t, TopN([]Bucket{}, 3, score))
	assert.Equal(t, "a", items[0].Name, "input is not reordered")
}

func TestSummarize(t *testing.T) {
	sum := Summarize(fixture(t))
	assert.Equal(t, Summary{
		TotalUsers:      3,
		ActiveUsers:     3,
		TotalRoles:      3,
		TotalTCodes:     4,
		ExecutedTCodes:  3,
		TotalExecutions: 141,
		AvgUtilization:  83,
	}, sum)

	assert.Equal(t, Summary{}, Summarize(engine.Derive(schema.Tables{}, engine.Options{Now: testNow})))

	undated := engine.Derive(schema.Tables{
		RoleTCodes:      []schema.RoleTCodeRow{{Role: "R", TCode: "T"}},
		TransactionLogs: []schema.TransactionLogRow{{TCode: "T"}, {TCode: "T", Date: cell.Text("2024-06-01")}},
	}, engine.Options{Now: testNow, Window: june()})
	assert.Equal(t, 1, Summarize(undated).UndatedLogs)
	assert.Equal(t, 1, Summarize(undated).ExecutedTCodes)
	assert.Equal(t, 2, Summarize(undated).TotalExecutions)
}

func TestUsersAndRolesRollups(t *testing.T) {
	snap := fixture(t)
	assert.Equal(t, []Bucket{{"FI", 2}, {"MM", 1}}, UsersByGroup(snap.Users))
	assert.Equal(t, []Bucket{{string(engine.StatusActive), 3}}, UsersByStatus(snap.Users))
	assert.Equal(t, []Bucket{{engine.TagStandard, 3}}, RolesByTag(snap.Roles))

	utils := RoleUtilizations(snap.Roles)
	assert.Equal(t, []RoleUtilization{{"R1", 100}, {"R3", 100}, {"R2", 50}}, utils)

	unused := RoleUnusedShares(snap.Roles)
	assert.Equal(t, RoleUnused{Name: "R2", UnusedPct: 50, UnusedCount: 1}, unused[0])
}

func TestUnused(t *testing.T) {
	snap := fixture(t)
	assert.Empty(t, Unused(snap.Roles))

	windowed := snap.Rewindow(june())
	unused := Unused(windowed.Roles)
	require.Len(t, unused, 1)
	assert.Equal(t, "R3", unused[0].RoleName)
	assert.Equal(t, 1, Summarize(windowed).UnusedRoles)
}

func TestTopTCodes(t *testing.T) {
	top := TopTCodes(fixture(t), 2)
	require.Len(t, top, 2)
	assert.Equal(t, "T1", top[0].TCode.TCode)
	assert.Equal(t, "85.1%", top[0].Share)
	assert.Equal(t, "14.2%", top[1].Share)

	empty := engine.Derive(schema.Tables{RoleTCodes: []schema.RoleTCodeRow{{Role: "R", TCode: "X"}}}, engine.Options{Now: testNow})
	assert.Equal(t, "0%", TopTCodes(empty, 5)[0].Share)
}

func TestExecutionsByGroup(t *testing.T) {
	got := ExecutionsByGroup(fixture(t))
	assert.Equal(t, []Bucket{{"FI", 160}, {"MM", 140}, {"Unknown", 1}}, got)

	noAssignments := engine.Derive(schema.Tables{
		RoleTCodes:      []schema.RoleTCodeRow{{Role: "R", TCode: "X"}},
		TransactionLogs: logs("X", "2024-06-01", 3),
	}, engine.Options{Now: testNow})
	assert.Empty(t, ExecutionsByGroup(noAssignments))

	unreachable := engine.Derive(schema.Tables{
		Users: []schema.UserRow{
			{User: "A1", Team: "FI"},
			{User: "A2", Team: "MM"},
			{User: "A3", Team: "FI"},
		},
		RoleTCodes:      []schema.RoleTCodeRow{{Role: "R", TCode: "X"}},
		TransactionLogs: logs("X", "2024-06-01", 3),
	}, engine.Options{Now: testNow})
	assert.Equal(t, []Bucket{{"FI", 2}, {"MM", 2}}, ExecutionsByGroup(unreachable), "3 executions over 2 groups round half up")
}

func TestVolume(t *testing.T) {
	assert.Equal(t, VolumeHigh, Volume(101))
	assert.Equal(t, VolumeMedium, Volume(100))
	assert.Equal(t, VolumeMedium, Volume(11))
	assert.Equal(t, VolumeLow, Volume(10))
	assert.Equal(t, VolumeLow, Volume(1))
	assert.Equal(t, VolumeNone, Volume(0))
}

func TestExecutionHeatmap(t *testing.T) {
	rows := ExecutionHeatmap(fixture(t))
	assert.Equal(t, []HeatmapRow{
		{Group: "FI", High: 1, Medium: 1, Low: 1, None: 1},
		{Group: "MM", High: 1, Medium: 1},
	}, rows, "T4 is held only by an unknown user and falls back to the first group")

	assert.Empty(t, ExecutionHeatmap(engine.Derive(schema.Tables{}, engine.Options{Now: testNow})))
}

func TestWindowedTCodes(t *testing.T) {
	snap := fixture(t)
	assert.Len(t, WindowedTCodes(snap), 4, "no window keeps every code")

	codes := WindowedTCodes(snap.Rewindow(june()))
	names := make([]string, len(codes))
	for i, tc := range codes {
		names[i] = tc.TCode
	}
	assert.Equal(t, []string{"T1", "T2"}, names)
}

func TestUniqueCodesByGroup(t *testing.T) {
	snap := fixture(t)
	assert.Equal(t, []Bucket{{"FI", 2}, {"MM", 2}, {"Unknown", 1}}, UniqueCodesByGroup(snap))
	assert.Equal(t, []Bucket{{"FI", 2}, {"MM", 2}}, UniqueCodesByGroup(snap.Rewindow(june())))
}

func TestTable_Search(t *testing.T) {
	roles := []engine.Role{
		{RoleName: "Z_FI_POSTING", TCodes: 4, Tags: engine.TagStandard},
		{RoleName: "Z_MM_BUYER", TCodes: 2, Tags: engine.TagStandard},
		{RoleName: "Z_SAP_ALL", TCodes: 9, Tags: engine.TagCritical},
	}

	got, err := RoleTable.Apply(roles, Query{Search: "fi_"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Z_FI_POSTING", got[0].RoleName)

	got, err = RoleTable.Apply(roles, Query{Search: "critical"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Z_SAP_ALL", got[0].RoleName, "tags are searchable")

	got, err = RoleTable.Apply(roles, Query{Search: "9"})
	require.NoError(t, err)
	assert.Empty(t, got, "numeric columns are not searchable")
}

func TestTable_Sort(t *testing.T) {
	roles := []engine.Role{
		{RoleName: "b_role", TCodes: 10, Unused: 5},
		{RoleName: "A_ROLE", TCodes: 4, Unused: 0},
		{RoleName: "c_role", TCodes: 2, Unused: 2},
	}

	got, err := RoleTable.Apply(roles, Query{SortKey: "utilization", Desc: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"A_ROLE", "b_role", "c_role"}, roleNames(got))

	got, err = RoleTable.Apply(roles, Query{SortKey: "tCodes"})
	require.NoError(t, err)
	assert.Equal(t, []string{"c_role", "A_ROLE", "b_role"}, roleNames(got), "numbers sort numerically")

	got, err = RoleTable.Apply(roles, Query{SortKey: "roleName"})
	require.NoError(t, err)
	assert.Equal(t, []string{"A_ROLE", "b_role", "c_role"}, roleNames(got), "strings sort case-insensitively")
	assert.Equal(t, "b_role", roles[0].RoleName, "input is not reordered")

	_, err = RoleTable.Apply(roles, Query{SortKey: "nope"})
	assert.Error(t, err)
}

func TestTable_Render(t *testing.T) {
	snap := fixture(t)
	assert.Equal(t, []string{"TCode", "Description", "Executions", "Users", "Roles"}, TCodeTable.Headers())
	rows := TCodeTable.Rows(snap.TCodes[:1])
	assert.Equal(t, [][]string{{"T1", "T1", "120", "2", "1"}}, rows)

	users, err := UserTable.Apply(snap.Users, Query{Search: "mm"})
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "A2", users[0].UserID)
}

func roleNames(roles []engine.Role) []string {
	out := make([]string, len(roles))
	for i, r := range roles {
		out[i] = r.RoleName
	}
	return out
}
