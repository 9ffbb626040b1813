package report

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"sapauth/pkg/engine"
)

// Column describes one field of a table row.
type Column[T any] struct {
	Key        string
	Label      string
	Value      func(T) any
	Searchable bool
}

// Table is a list of columns over rows of type T.
type Table[T any] struct {
	Columns []Column[T]
	// Language selects the collation for string sorting. Zero means undetermined.
	Language language.Tag
}

// Query is a free-text filter composed with a single-key sort.
type Query struct {
	Search  string `json:"search"`
	SortKey string `json:"sortKey"`
	Desc    bool   `json:"desc"`
}

// Column returns the column with the given key.
func (t Table[T]) Column(key string) (Column[T], bool) {
	for _, c := range t.Columns {
		if c.Key == key {
			return c, true
		}
	}
	return Column[T]{}, false
}

// Apply filters rows to those where any searchable column contains the search
// text case-insensitively, then sorts by SortKey. Numeric values compare
// numerically; everything else compares by locale-aware collation. The sort is
// stable and the input slice is never modified. An unknown SortKey is an error.
func (t Table[T]) Apply(rows []T, q Query) ([]T, error) {
	out := make([]T, 0, len(rows))
	needle := strings.ToLower(strings.TrimSpace(q.Search))
	for _, row := range rows {
		if needle == "" || t.matches(row, needle) {
			out = append(out, row)
		}
	}

	if q.SortKey == "" {
		return out, nil
	}
	col, ok := t.Column(q.SortKey)
	if !ok {
		return nil, fmt.Errorf("unknown sort key %q", q.SortKey)
	}

	coll := collate.New(t.Language, collate.IgnoreCase)
	sort.SliceStable(out, func(i, j int) bool {
		c := compareValues(coll, col.Value(out[i]), col.Value(out[j]))
		if q.Desc {
			return c > 0
		}
		return c < 0
	})
	return out, nil
}

func (t Table[T]) matches(row T, needle string) bool {
	for _, c := range t.Columns {
		if !c.Searchable {
			continue
		}
		if strings.Contains(strings.ToLower(fmt.Sprint(c.Value(row))), needle) {
			return true
		}
	}
	return false
}

func compareValues(coll *collate.Collator, a, b any) int {
	an, aNum := number(a)
	bn, bNum := number(b)
	if aNum && bNum {
		switch {
		case an < bn:
			return -1
		case an > bn:
			return 1
		}
		return 0
	}
	return coll.CompareString(fmt.Sprint(a), fmt.Sprint(b))
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// Rows renders rows as strings in column order, for exporters and text output.
func (t Table[T]) Rows(rows []T) [][]string {
	out := make([][]string, 0, len(rows))
	for _, row := range rows {
		cells := make([]string, len(t.Columns))
		for i, c := range t.Columns {
			cells[i] = fmt.Sprint(c.Value(row))
		}
		out = append(out, cells)
	}
	return out
}

// Values returns the raw column values of each row, in column order.
func (t Table[T]) Values(rows []T) [][]any {
	out := make([][]any, 0, len(rows))
	for _, row := range rows {
		cells := make([]any, len(t.Columns))
		for i, c := range t.Columns {
			cells[i] = c.Value(row)
		}
		out = append(out, cells)
	}
	return out
}

// Records returns each row as a map from column key to raw value, for
// structured output.
func (t Table[T]) Records(rows []T) []map[string]any {
	out := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		rec := make(map[string]any, len(t.Columns))
		for _, c := range t.Columns {
			rec[c.Key] = c.Value(row)
		}
		out = append(out, rec)
	}
	return out
}

// Headers returns the column labels.
func (t Table[T]) Headers() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Label
	}
	return out
}

// UserTable lists users; user id and group are searchable.
var UserTable = Table[engine.User]{Columns: []Column[engine.User]{
	{Key: "userId", Label: "User ID", Value: func(u engine.User) any { return u.UserID }, Searchable: true},
	{Key: "group", Label: "Group", Value: func(u engine.User) any { return u.Group }, Searchable: true},
	{Key: "validTo", Label: "Valid To", Value: func(u engine.User) any { return u.ValidTo }},
	{Key: "status", Label: "Status", Value: func(u engine.User) any { return string(u.Status) }, Searchable: true},
	{Key: "lastLogon", Label: "Last Logon", Value: func(u engine.User) any { return u.LastLogon }},
}}

// UnusedRoleTable lists roles for the unused-roles export.
var UnusedRoleTable = Table[engine.Role]{Columns: []Column[engine.Role]{
	{Key: "roleName", Label: "Role Name", Value: func(r engine.Role) any { return r.RoleName }, Searchable: true},
	{Key: "usersAssigned", Label: "Users Assigned", Value: func(r engine.Role) any { return r.UsersAssigned }},
	{Key: "tCodes", Label: "TCodes", Value: func(r engine.Role) any { return r.TCodes }},
	{Key: "unused", Label: "Unused TCodes", Value: func(r engine.Role) any { return r.Unused }},
	{Key: "tags", Label: "Tags", Value: func(r engine.Role) any { return r.Tags }, Searchable: true},
}}

// RoleTable lists roles with live utilization; role name and tags are searchable.
var RoleTable = Table[engine.Role]{Columns: []Column[engine.Role]{
	{Key: "roleName", Label: "Role Name", Value: func(r engine.Role) any { return r.RoleName }, Searchable: true},
	{Key: "usersAssigned", Label: "Users", Value: func(r engine.Role) any { return r.UsersAssigned }},
	{Key: "tCodes", Label: "TCodes", Value: func(r engine.Role) any { return r.TCodes }},
	{Key: "utilization", Label: "Util %", Value: func(r engine.Role) any { return engine.Utilization(r) }},
	{Key: "unused", Label: "Unused", Value: func(r engine.Role) any { return r.Unused }},
	{Key: "tags", Label: "Tags", Value: func(r engine.Role) any { return r.Tags }, Searchable: true},
}}

// TCodeTable lists transaction codes; code and description are searchable.
var TCodeTable = Table[engine.TCode]{Columns: []Column[engine.TCode]{
	{Key: "tCode", Label: "TCode", Value: func(t engine.TCode) any { return t.TCode }, Searchable: true},
	{Key: "description", Label: "Description", Value: func(t engine.TCode) any { return t.Description }, Searchable: true},
	{Key: "executions", Label: "Executions", Value: func(t engine.TCode) any { return t.Executions }},
	{Key: "users", Label: "Users", Value: func(t engine.TCode) any { return t.Users }},
	{Key: "roles", Label: "Roles", Value: func(t engine.TCode) any { return t.Roles }},
}}
