package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sapauth/pkg/cell"
	"sapauth/pkg/schema"
)

var testNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func day(s string) cell.Value {
	return cell.Text(s)
}

func sampleTables() schema.Tables {
	return schema.Tables{
		Users: []schema.UserRow{
			{User: "U1", Team: "FI_USERS", LastLogon: day("2024-06-10")},
			{User: "U2", Team: "N/A", LastLogon: day("2024-01-01")},
			{User: "U3", Team: "", LockReason: "Administrator", LastLogon: day("2024-06-14")},
		},
		UserRoles: []schema.UserRoleRow{
			{Role: "R1", UserName: "U1"},
			{Role: "R1", UserName: "U1"},
			{Role: "R2", UserName: "U2"},
			{Role: "R3_ONLY_USERS", UserName: "U3"},
		},
		RoleTCodes: []schema.RoleTCodeRow{
			{Role: "R1", TCode: "T1"},
			{Role: "R1", TCode: "T2"},
			{Role: "R1", TCode: "T2"},
			{Role: "R2", TCode: "T1"},
			{Role: " ", TCode: "T9"},
			{Role: "R2", TCode: ""},
		},
		TransactionLogs: []schema.TransactionLogRow{
			{TCode: "T1", Text: "", Date: day("2024-05-01")},
			{TCode: "T1", Text: "Post Document", Date: day("2024-06-01")},
			{TCode: "T1", Text: "Ignored Later Text", Date: cell.Value{}},
			{TCode: "LOGONLY", Text: "Only in logs", Date: day("2024-06-01")},
		},
	}
}

func TestDerive_WorkedExample(t *testing.T) {
	tables := schema.Tables{
		RoleTCodes:      []schema.RoleTCodeRow{{Role: "R1", TCode: "T1"}, {Role: "R1", TCode: "T2"}},
		UserRoles:       []schema.UserRoleRow{{Role: "R1", UserName: "U1"}},
		TransactionLogs: []schema.TransactionLogRow{{TCode: "T1"}},
	}

	snap := Derive(tables, Options{Now: testNow})

	require.Len(t, snap.Roles, 1)
	assert.Equal(t, Role{RoleName: "R1", UsersAssigned: 1, TCodes: 2, Unused: 1, Tags: TagStandard}, snap.Roles[0])
	assert.Equal(t, 50, Utilization(snap.Roles[0]))

	t1, ok := snap.TCode("T1")
	require.True(t, ok)
	assert.Equal(t, TCode{TCode: "T1", Description: "T1", Executions: 1, Users: 1, Roles: 1}, t1)

	t2, ok := snap.TCode("T2")
	require.True(t, ok)
	assert.Equal(t, 0, t2.Executions)
}

func TestDerive_Users(t *testing.T) {
	snap := Derive(sampleTables(), Options{Now: testNow})

	require.Len(t, snap.Users, 3)
	assert.Equal(t, User{UserID: "U1", Group: "FI_USERS", ValidTo: "N/A", Status: StatusActive, LastLogon: "2024-06-10"}, snap.Users[0])
	assert.Equal(t, "Admin", snap.Users[1].Group)
	assert.Equal(t, StatusDormant, snap.Users[1].Status)
	assert.Equal(t, "Admin", snap.Users[2].Group)
	assert.Equal(t, StatusInactive, snap.Users[2].Status, "administrator lock wins over a recent logon")
}

func TestDerive_BlankTeamRecentLogon(t *testing.T) {
	tables := schema.Tables{Users: []schema.UserRow{
		{User: "U1", LastLogon: cell.Text(testNow.AddDate(0, 0, -10).Format("2006-01-02"))},
	}}
	snap := Derive(tables, Options{Now: testNow})
	require.Len(t, snap.Users, 1)
	assert.Equal(t, "Admin", snap.Users[0].Group)
	assert.Equal(t, StatusActive, snap.Users[0].Status)
}

func TestDerive_RoleUniverseIsUnion(t *testing.T) {
	snap := Derive(sampleTables(), Options{Now: testNow})

	names := make([]string, 0, len(snap.Roles))
	for _, r := range snap.Roles {
		names = append(names, r.RoleName)
	}
	assert.Equal(t, []string{"R1", "R2", "R3_ONLY_USERS"}, names)

	r3, ok := snap.Role("R3_ONLY_USERS")
	require.True(t, ok)
	assert.Equal(t, 0, r3.TCodes)
	assert.Equal(t, 0, r3.Unused)
	assert.Equal(t, 1, r3.UsersAssigned)
	assert.Equal(t, 0, Utilization(r3))
}

func TestDerive_DuplicateEdgesDoNotInflate(t *testing.T) {
	snap := Derive(sampleTables(), Options{Now: testNow})

	r1, ok := snap.Role("R1")
	require.True(t, ok)
	assert.Equal(t, 2, r1.TCodes)
	assert.Equal(t, 1, r1.UsersAssigned)

	t2, ok := snap.TCode("T2")
	require.True(t, ok)
	assert.Equal(t, 1, t2.Roles)
}

func TestDerive_TCodeUniverseExcludesLogOnlyCodes(t *testing.T) {
	snap := Derive(sampleTables(), Options{Now: testNow})

	_, ok := snap.TCode("LOGONLY")
	assert.False(t, ok)
	_, ok = snap.TCode("T9")
	assert.False(t, ok, "rows with an empty role are skipped")
	assert.Len(t, snap.TCodes, 2)

	t1, _ := snap.TCode("T1")
	assert.Equal(t, "Post Document", t1.Description, "first non-empty description wins")
	assert.Equal(t, 3, t1.Executions)
	assert.Equal(t, 2, t1.Roles)
	assert.Equal(t, 2, t1.Users)
}

func TestDerive_Tags(t *testing.T) {
	tables := schema.Tables{
		RoleTCodes: []schema.RoleTCodeRow{
			{Role: "Z_SAP_ALL", TCode: "A"},
			{Role: "Z_admin_lower", TCode: "A"},
			{Role: "Z_LOW", TCode: "A"}, {Role: "Z_LOW", TCode: "B"}, {Role: "Z_LOW", TCode: "C"},
			{Role: "Z_OK", TCode: "A"}, {Role: "Z_OK", TCode: "B"},
		},
		TransactionLogs: []schema.TransactionLogRow{{TCode: "A"}},
	}
	snap := Derive(tables, Options{Now: testNow})

	tags := map[string]string{}
	for _, r := range snap.Roles {
		tags[r.RoleName] = r.Tags
	}
	assert.Equal(t, TagCritical, tags["Z_SAP_ALL"])
	assert.Equal(t, TagStandard, tags["Z_admin_lower"], "keyword match is case-sensitive")
	assert.Equal(t, TagOptimization, tags["Z_LOW"], "33% is below 40")
	assert.Equal(t, TagStandard, tags["Z_OK"])
}

func TestDerive_CustomRules(t *testing.T) {
	tables := schema.Tables{
		Users:      []schema.UserRow{{User: "U1", LastLogon: cell.Text("2024-05-01")}},
		RoleTCodes: []schema.RoleTCodeRow{{Role: "FIREFIGHTER", TCode: "A"}},
	}
	snap := Derive(tables, Options{Now: testNow, Rules: Rules{
		DormancyDays:     30,
		CriticalKeywords: []string{"FIREFIGHTER"},
		DefaultGroup:     "Unassigned",
	}})
	assert.Equal(t, StatusDormant, snap.Users[0].Status)
	assert.Equal(t, "Unassigned", snap.Users[0].Group)
	assert.Equal(t, TagCritical, snap.Roles[0].Tags)
}

func TestDerive_OptimizationThresholdZeroDisablesTag(t *testing.T) {
	tables := schema.Tables{
		RoleTCodes: []schema.RoleTCodeRow{{Role: "Z_IDLE", TCode: "A"}},
	}

	tests := []struct {
		name      string
		threshold *int
		want      string
	}{
		{"default", nil, TagOptimization},
		{"zero", Percent(0), TagStandard},
		{"explicit", Percent(40), TagOptimization},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := Derive(tables, Options{Now: testNow, Rules: Rules{OptimizationThreshold: tt.threshold}})
			require.Len(t, snap.Roles, 1)
			assert.Equal(t, 0, Utilization(snap.Roles[0]))
			assert.Equal(t, tt.want, snap.Roles[0].Tags)
		})
	}
}

func TestDerive_EmptyInput(t *testing.T) {
	snap := Derive(schema.Tables{}, Options{})
	assert.Empty(t, snap.Users)
	assert.Empty(t, snap.Roles)
	assert.Empty(t, snap.TCodes)
	assert.False(t, snap.Now.IsZero())
}

func TestRoleCountsConsistent(t *testing.T) {
	snap := Derive(sampleTables(), Options{Now: testNow})
	for _, r := range snap.Roles {
		assert.GreaterOrEqual(t, r.Unused, 0)
		assert.LessOrEqual(t, r.Unused, r.TCodes)
		u := Utilization(r)
		assert.GreaterOrEqual(t, u, 0)
		assert.LessOrEqual(t, u, 100)
		assert.Equal(t, u, Utilization(r))
	}
}

func TestUtilization(t *testing.T) {
	tests := []struct {
		tCodes, unused, want, share int
	}{
		{0, 0, 0, 0},
		{0, 5, 0, 0},
		{4, 0, 100, 0},
		{4, 4, 0, 100},
		{3, 1, 67, 33},
		{8, 1, 88, 13},
		{2, 9, 0, 100},
		{2, -1, 100, 0},
	}
	for _, tt := range tests {
		r := Role{TCodes: tt.tCodes, Unused: tt.unused}
		assert.Equal(t, tt.want, Utilization(r), "%+v", tt)
		assert.Equal(t, tt.share, UnusedShare(r), "%+v", tt)
	}
}

func TestClassifyStatus_Precedence(t *testing.T) {
	rules := DefaultRules()
	recent := testNow.AddDate(0, 0, -1)
	old := testNow.AddDate(0, 0, -120)
	past := testNow.AddDate(0, 0, -5)
	future := testNow.AddDate(1, 0, 0)

	tests := []struct {
		name      string
		lock      string
		lastLogon *time.Time
		validTo   *time.Time
		want      Status
	}{
		{"nothing", "", nil, nil, StatusActive},
		{"administrator lock beats recent logon", "ADMINISTRATOR", &recent, &future, StatusInactive},
		{"dormant beats expiry", "", &old, &past, StatusDormant},
		{"dormant beats other lock", "Too many failed logons", &old, nil, StatusDormant},
		{"expired", "", &recent, &past, StatusInactive},
		{"other lock", "Locked by admin", &recent, &future, StatusInactive},
		{"zero lock is not a lock", "0", &recent, &future, StatusActive},
		{"exactly 90 days is not dormant", "", ptr(testNow.AddDate(0, 0, -90)), nil, StatusActive},
		{"91 days is dormant", "", ptr(testNow.AddDate(0, 0, -91)), nil, StatusDormant},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, rules.ClassifyStatus(tt.lock, tt.lastLogon, tt.validTo, testNow))
		})
	}
}

func ptr(t time.Time) *time.Time {
	return &t
}

func TestRoleDetail(t *testing.T) {
	tables := sampleTables()
	tables.UserRoles = append(tables.UserRoles, schema.UserRoleRow{Role: "R1", UserName: "GHOST"})
	snap := Derive(tables, Options{Now: testNow})

	detail, ok := snap.RoleDetail(" R1 ")
	require.True(t, ok)
	assert.Equal(t, "R1", detail.Role.RoleName)
	assert.Equal(t, 50, detail.Utilization)

	require.Len(t, detail.TCodes, 2)
	assert.Equal(t, DetailTCode{TCode: "T1", Description: "Post Document", Executions: 3, Users: 3}, detail.TCodes[0])
	assert.Equal(t, DetailTCode{TCode: "T2", Description: "T2", Executions: 0, Users: 2}, detail.TCodes[1])

	require.Len(t, detail.Users, 2)
	assert.Equal(t, "U1", detail.Users[0].UserID)
	assert.Equal(t, StatusActive, detail.Users[0].Status)
	assert.Equal(t, User{UserID: "GHOST", Group: "Unknown", ValidTo: "N/A", Status: StatusUnknown, LastLogon: "N/A"}, detail.Users[1])

	// Detail figures agree with the bulk derivation.
	for _, row := range detail.TCodes {
		bulk, _ := snap.TCode(row.TCode)
		assert.Equal(t, bulk.Executions, row.Executions)
		assert.Equal(t, bulk.Users, row.Users)
	}
	r1, _ := snap.Role("R1")
	assert.Equal(t, r1.TCodes, len(detail.TCodes))
	assert.Equal(t, r1.UsersAssigned, len(detail.Users))
}

func TestRoleDetail_Missing(t *testing.T) {
	snap := Derive(sampleTables(), Options{Now: testNow})
	_, ok := snap.RoleDetail("NOPE")
	assert.False(t, ok)
	assert.Equal(t, []string{"R1"}, snap.SuggestRoles("r1", 3)[:1])
}

func TestIndex(t *testing.T) {
	idx := BuildIndex(sampleTables())
	assert.Equal(t, []string{"T1", "T2"}, idx.TCodesOf("R1"))
	assert.Equal(t, []string{"R1", "R2"}, idx.RolesGranting("T1"))
	assert.Equal(t, []string{"U1", "U2"}, idx.UsersWith("T1"))
	assert.Equal(t, []string{"R1"}, idx.RolesOf("U1"))
	assert.True(t, idx.HasRole("U3"))
	assert.False(t, idx.HasRole("NOBODY"))
	assert.False(t, idx.IsGranted("LOGONLY"))
	assert.Nil(t, idx.UsersOf("MISSING"))
}
