package engine

import (
	"math"
	"strings"
	"time"

	"sapauth/pkg/cell"
)

// Status is the derived state of a user account.
type Status string

const (
	StatusActive   Status = "Active"
	StatusDormant  Status = "Dormant"
	StatusInactive Status = "Inactive"
	// StatusUnknown marks users named by a role assignment but absent from the Users sheet.
	StatusUnknown Status = "Unknown"
)

// Role classification tags.
const (
	TagCritical     = "Critical Access"
	TagOptimization = "Optimization Candidate"
	TagStandard     = "Standard"
)

// DefaultCriticalKeywords mark roles granting broad or administrative access.
// Matching is a case-sensitive substring test on the role name.
var DefaultCriticalKeywords = []string{"SAP_ALL", "SAP_NEW", "ADMIN"}

// Rules holds the classification thresholds. Zero fields fall back to DefaultRules.
type Rules struct {
	// DormancyDays is the number of days without a logon after which a user is Dormant.
	DormancyDays int `json:"dormancyDays" mapstructure:"dormancy_days"`
	// OptimizationThreshold is the utilization percentage below which a role is
	// an Optimization Candidate. Nil means the default; 0 disables the tag.
	OptimizationThreshold *int     `json:"optimizationThreshold" mapstructure:"optimization_threshold"`
	CriticalKeywords      []string `json:"criticalKeywords" mapstructure:"critical_keywords"`
	// AdministratorLockReason is compared case-insensitively with the lock reason.
	AdministratorLockReason string `json:"administratorLockReason" mapstructure:"administrator_lock_reason"`
	DefaultGroup            string `json:"defaultGroup" mapstructure:"default_group"`
}

const defaultOptimizationThreshold = 40

// Percent returns a pointer to p for setting OptimizationThreshold.
func Percent(p int) *int {
	return &p
}

// DefaultRules returns the standard thresholds.
func DefaultRules() Rules {
	return Rules{
		DormancyDays:            90,
		OptimizationThreshold:   Percent(defaultOptimizationThreshold),
		CriticalKeywords:        DefaultCriticalKeywords,
		AdministratorLockReason: "administrator",
		DefaultGroup:            "Admin",
	}
}

func (r Rules) withDefaults() Rules {
	d := DefaultRules()
	if r.DormancyDays <= 0 {
		r.DormancyDays = d.DormancyDays
	}
	if r.OptimizationThreshold == nil {
		r.OptimizationThreshold = d.OptimizationThreshold
	}
	if r.CriticalKeywords == nil {
		r.CriticalKeywords = d.CriticalKeywords
	}
	if r.AdministratorLockReason == "" {
		r.AdministratorLockReason = d.AdministratorLockReason
	}
	if r.DefaultGroup == "" {
		r.DefaultGroup = d.DefaultGroup
	}
	return r
}

// ClassifyStatus derives a user's status. The first matching rule wins:
//  1. lock reason equals the administrator reason -> Inactive
//  2. last logon more than DormancyDays ago -> Dormant
//  3. valid-to date in the past -> Inactive
//  4. any other lock reason except "0" -> Inactive
//  5. otherwise Active
func (r Rules) ClassifyStatus(lockReason string, lastLogon, validTo *time.Time, now time.Time) Status {
	lockReason = strings.TrimSpace(lockReason)
	switch {
	case strings.EqualFold(lockReason, r.AdministratorLockReason):
		return StatusInactive
	case lastLogon != nil && cell.DaysBetween(now, *lastLogon) > r.DormancyDays:
		return StatusDormant
	case validTo != nil && validTo.Before(now):
		return StatusInactive
	case lockReason != "" && lockReason != "0":
		return StatusInactive
	}
	return StatusActive
}

// NormalizeGroup maps blank and "N/A" teams to the default group.
func (r Rules) NormalizeGroup(team string) string {
	team = strings.TrimSpace(team)
	if team == "" || team == cell.NotAvailable || team == "n/a" {
		return r.DefaultGroup
	}
	return team
}

// ClassifyRole tags a role by name first, then by utilization.
func (r Rules) ClassifyRole(roleName string, tCodes, unused int) string {
	for _, kw := range r.CriticalKeywords {
		if kw != "" && strings.Contains(roleName, kw) {
			return TagCritical
		}
	}
	threshold := defaultOptimizationThreshold
	if r.OptimizationThreshold != nil {
		threshold = *r.OptimizationThreshold
	}
	if utilization(tCodes, unused) < threshold {
		return TagOptimization
	}
	return TagStandard
}

// Utilization is the rounded percentage of a role's granted codes that were executed.
// It is 0 for a role without codes and always lies in [0, 100].
func Utilization(role Role) int {
	return utilization(role.TCodes, role.Unused)
}

// UnusedShare is the rounded percentage of a role's granted codes never executed.
func UnusedShare(role Role) int {
	if role.TCodes <= 0 {
		return 0
	}
	unused := min(max(role.Unused, 0), role.TCodes)
	return roundHalfUp(float64(unused) / float64(role.TCodes) * 100)
}

func utilization(tCodes, unused int) int {
	if tCodes <= 0 {
		return 0
	}
	clamped := min(max(unused, 0), tCodes)
	used := tCodes - clamped
	return roundHalfUp(float64(used) / float64(tCodes) * 100)
}

// roundHalfUp rounds .5 toward positive infinity, matching spreadsheet and
// browser rounding rather than math.Round's away-from-zero.
func roundHalfUp(f float64) int {
	return int(math.Floor(f + 0.5))
}
