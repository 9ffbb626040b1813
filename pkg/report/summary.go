package report

import (
	"fmt"

	"sapauth/pkg/engine"
)

// Summary holds the headline figures of a snapshot.
type Summary struct {
	TotalUsers      int `json:"totalUsers"`
	ActiveUsers     int `json:"activeUsers"`
	DormantUsers    int `json:"dormantUsers"`
	InactiveUsers   int `json:"inactiveUsers"`
	TotalRoles      int `json:"totalRoles"`
	CriticalRoles   int `json:"criticalRoles"`
	UnusedRoles     int `json:"unusedRoles"`
	TotalTCodes     int `json:"totalTCodes"`
	ExecutedTCodes  int `json:"executedTCodes"`
	TotalExecutions int `json:"totalExecutions"`
	// UndatedLogs counts log rows without a date; they count toward every window.
	UndatedLogs int `json:"undatedLogs"`
	// AvgUtilization is the rounded mean of per-role utilization, 0 without roles.
	AvgUtilization int `json:"avgUtilization"`
}

// Summarize computes the headline figures.
func Summarize(s *engine.Snapshot) Summary {
	sum := Summary{
		TotalUsers:  len(s.Users),
		TotalRoles:  len(s.Roles),
		TotalTCodes: len(s.TCodes),
	}
	for _, u := range s.Users {
		switch u.Status {
		case engine.StatusActive:
			sum.ActiveUsers++
		case engine.StatusDormant:
			sum.DormantUsers++
		case engine.StatusInactive:
			sum.InactiveUsers++
		}
	}

	utilTotal := 0
	for _, r := range s.Roles {
		u := engine.Utilization(r)
		utilTotal += u
		if u == 0 {
			sum.UnusedRoles++
		}
		if r.Tags == engine.TagCritical {
			sum.CriticalRoles++
		}
	}
	if len(s.Roles) > 0 {
		sum.AvgUtilization = roundDiv(utilTotal, len(s.Roles))
	}

	for _, tc := range s.TCodes {
		sum.TotalExecutions += tc.Executions
		if tc.Executions > 0 {
			sum.ExecutedTCodes++
		}
	}
	if ev := s.Evidence(); ev != nil {
		sum.UndatedLogs = ev.Undated
	}
	return sum
}

// RoleUtilization is one bar of the role utilization chart.
type RoleUtilization struct {
	Name        string `json:"name"`
	Utilization int    `json:"utilization"`
}

// RoleUtilizations lists every role by utilization, highest first.
func RoleUtilizations(roles []engine.Role) []RoleUtilization {
	rows := make([]RoleUtilization, 0, len(roles))
	for _, r := range roles {
		rows = append(rows, RoleUtilization{Name: r.RoleName, Utilization: engine.Utilization(r)})
	}
	return TopN(rows, 0, func(r RoleUtilization) int { return r.Utilization })
}

// RoleUnused is one bar of the unused-codes chart.
type RoleUnused struct {
	Name        string `json:"name"`
	UnusedPct   int    `json:"unusedPct"`
	UnusedCount int    `json:"unusedCount"`
}

// RoleUnusedShares lists every role by share of never-executed codes, highest first.
func RoleUnusedShares(roles []engine.Role) []RoleUnused {
	rows := make([]RoleUnused, 0, len(roles))
	for _, r := range roles {
		rows = append(rows, RoleUnused{Name: r.RoleName, UnusedPct: engine.UnusedShare(r), UnusedCount: r.Unused})
	}
	return TopN(rows, 0, func(r RoleUnused) int { return r.UnusedPct })
}

// TCodeShare is a transaction code with its share of all executions.
type TCodeShare struct {
	engine.TCode
	Share string `json:"pct"`
}

// TopTCodes ranks codes by executions and annotates each with its share of the
// snapshot's total executions, formatted like "12.5%".
func TopTCodes(s *engine.Snapshot, n int) []TCodeShare {
	total := 0
	for _, tc := range s.TCodes {
		total += tc.Executions
	}
	top := TopN(s.TCodes, n, func(tc engine.TCode) int { return tc.Executions })
	out := make([]TCodeShare, 0, len(top))
	for _, tc := range top {
		share := "0%"
		if total > 0 {
			share = fmt.Sprintf("%.1f%%", float64(tc.Executions)/float64(total)*100)
		}
		out = append(out, TCodeShare{TCode: tc, Share: share})
	}
	return out
}

// roundDiv divides and rounds half up, for non-negative operands.
func roundDiv(a, b int) int {
	return (2*a + b) / (2 * b)
}
