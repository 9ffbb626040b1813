package engine

import "fmt"

// FindingKind classifies an integrity finding.
type FindingKind string

const (
	// FindingUnknownUser: a role assignment names a user absent from the Users sheet.
	FindingUnknownUser FindingKind = "unknown_user"
	// FindingUngrantedTCode: logs show executions of a code no role grants.
	FindingUngrantedTCode FindingKind = "ungranted_tcode"
	// FindingUserWithoutRole: a user holds no role at all.
	FindingUserWithoutRole FindingKind = "user_without_role"
	// FindingUserConflict: the Users sheet lists the same id twice with different values.
	FindingUserConflict FindingKind = "user_conflict"
)

// Finding is one informational inconsistency in an export.
type Finding struct {
	Kind       FindingKind     `json:"kind"`
	Subject    string          `json:"subject"`
	Message    string          `json:"message"`
	Suggestion string          `json:"suggestion,omitempty"`
	Conflicts  []FieldConflict `json:"conflicts,omitempty"`
}

// IntegrityStats counts findings per kind.
type IntegrityStats struct {
	UnknownUsers     int `json:"unknownUsers"`
	UngrantedTCodes  int `json:"ungrantedTCodes"`
	UsersWithoutRole int `json:"usersWithoutRole"`
	UserConflicts    int `json:"userConflicts"`
}

// IntegrityReport lists cross-sheet inconsistencies. None of them affects derivation.
type IntegrityReport struct {
	Findings []Finding      `json:"findings"`
	Stats    IntegrityStats `json:"stats"`
}

// CheckIntegrity cross-checks the sheets of a snapshot:
//  1. Assigned users missing from the Users sheet, with a fuzzy suggestion
//  2. Executed codes no role grants (invisible as TCode entities)
//  3. Users without any role
//  4. Duplicate user rows that disagree
func CheckIntegrity(s *Snapshot) *IntegrityReport {
	report := &IntegrityReport{Findings: make([]Finding, 0)}

	known := newOrderedSet()
	for _, u := range s.Users {
		if u.UserID != "" {
			known.add(u.UserID)
		}
	}
	knownIDs := known.items

	reported := newOrderedSet()
	for _, role := range s.index.roles {
		for _, user := range s.index.UsersOf(role) {
			if _, known := s.usersByID[user]; known || !reported.add(user) {
				continue
			}
			f := Finding{
				Kind:    FindingUnknownUser,
				Subject: user,
				Message: fmt.Sprintf("assigned role %s but not listed in the Users sheet", role),
			}
			if match, ok := bestMatch(user, knownIDs); ok {
				f.Suggestion = match
			}
			report.Findings = append(report.Findings, f)
			report.Stats.UnknownUsers++
		}
	}

	for _, code := range s.evidence.Codes() {
		if s.index.IsGranted(code) {
			continue
		}
		report.Findings = append(report.Findings, Finding{
			Kind:    FindingUngrantedTCode,
			Subject: code,
			Message: fmt.Sprintf("executed %d times but granted by no role", s.evidence.Count(code)),
		})
		report.Stats.UngrantedTCodes++
	}

	seen := make(map[string]bool, len(s.Users))
	for _, u := range s.Users {
		if u.UserID == "" {
			continue
		}
		if seen[u.UserID] {
			first := s.Users[s.usersByID[u.UserID]]
			if conflicts := DetectConflicts(first, u); len(conflicts) > 0 {
				report.Findings = append(report.Findings, Finding{
					Kind:      FindingUserConflict,
					Subject:   u.UserID,
					Message:   "listed more than once with different values; the first row is used",
					Conflicts: conflicts,
				})
				report.Stats.UserConflicts++
			}
			continue
		}
		seen[u.UserID] = true
		if !s.index.HasRole(u.UserID) {
			report.Findings = append(report.Findings, Finding{
				Kind:    FindingUserWithoutRole,
				Subject: u.UserID,
				Message: "holds no role",
			})
			report.Stats.UsersWithoutRole++
		}
	}

	return report
}
