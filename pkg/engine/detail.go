package engine

import (
	"strings"

	"sapauth/pkg/cell"
)

// DetailTCode is one transaction code row in a role's detail view.
type DetailTCode struct {
	TCode       string `json:"tCode"`
	Description string `json:"description"`
	Executions  int    `json:"executions"`
	Users       int    `json:"users"`
}

// RoleDetail is the point-lookup view of a single role.
type RoleDetail struct {
	Role        Role          `json:"role"`
	Utilization int           `json:"utilization"`
	TCodes      []DetailTCode `json:"tCodes"`
	Users       []User        `json:"users"`
}

// RoleDetail replays the raw edge tables for one role rather than scanning the
// whole derivation. Code rows take their figures from the snapshot, so the
// detail never drifts from the bulk view. Users missing from the Users sheet
// are listed with Unknown status.
func (s *Snapshot) RoleDetail(roleName string) (*RoleDetail, bool) {
	name := strings.TrimSpace(roleName)
	role, ok := s.Role(name)
	if !ok {
		return nil, false
	}

	detail := &RoleDetail{
		Role:        role,
		Utilization: Utilization(role),
		TCodes:      make([]DetailTCode, 0),
		Users:       make([]User, 0),
	}

	codes := newOrderedSet()
	for _, rt := range s.Raw.RoleTCodes {
		code := strings.TrimSpace(rt.TCode)
		if strings.TrimSpace(rt.Role) != name || code == "" || !codes.add(code) {
			continue
		}
		row := DetailTCode{TCode: code, Description: code}
		if tc, found := s.TCode(code); found {
			row.Description = tc.Description
			row.Executions = tc.Executions
			row.Users = tc.Users
		}
		detail.TCodes = append(detail.TCodes, row)
	}

	users := newOrderedSet()
	for _, ur := range s.Raw.UserRoles {
		id := strings.TrimSpace(ur.UserName)
		if strings.TrimSpace(ur.Role) != name || id == "" || !users.add(id) {
			continue
		}
		u, found := s.User(id)
		if !found {
			u = User{
				UserID:    id,
				Group:     "Unknown",
				ValidTo:   cell.NotAvailable,
				Status:    StatusUnknown,
				LastLogon: cell.NotAvailable,
			}
		}
		detail.Users = append(detail.Users, u)
	}

	return detail, true
}

// SuggestRoles returns up to limit role names resembling name, best first.
// Used when a lookup misses because of a typo.
func (s *Snapshot) SuggestRoles(name string, limit int) []string {
	names := make([]string, len(s.Roles))
	for i, r := range s.Roles {
		names[i] = r.RoleName
	}
	return closestMatches(name, names, suggestionThreshold, limit)
}
