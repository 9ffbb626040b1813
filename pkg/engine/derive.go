package engine

import (
	"strings"
	"time"

	"sapauth/pkg/cell"
	"sapauth/pkg/schema"
)

// User is a derived SAP user account.
type User struct {
	UserID    string `json:"userId"`
	Group     string `json:"group"`
	ValidTo   string `json:"validTo"`
	Status    Status `json:"status"`
	LastLogon string `json:"lastLogon"`
}

// Role is a derived role. Utilization is not stored; use Utilization(role).
type Role struct {
	RoleName      string `json:"roleName"`
	UsersAssigned int    `json:"usersAssigned"`
	TCodes        int    `json:"tCodes"`
	Unused        int    `json:"unused"`
	Tags          string `json:"tags"`
}

// TCode is a derived transaction code. Only codes granted by at least one role exist.
type TCode struct {
	TCode       string `json:"tCode"`
	Description string `json:"description"`
	Executions  int    `json:"executions"`
	Users       int    `json:"users"`
	Roles       int    `json:"roles"`
}

// Options controls a derivation.
type Options struct {
	// Window restricts which logs count as executions. Nil counts every row.
	Window *Window
	// Now is the reference instant for dormancy and expiry. Zero means time.Now().
	Now   time.Time
	Rules Rules
}

// Snapshot is an immutable derivation result. A new filter produces a new
// snapshot; nothing in it is mutated after Derive returns.
type Snapshot struct {
	Users  []User        `json:"users"`
	Roles  []Role        `json:"roles"`
	TCodes []TCode       `json:"tCodes"`
	Window *Window       `json:"window,omitempty"`
	Now    time.Time     `json:"now"`
	Rules  Rules         `json:"rules"`
	Raw    schema.Tables `json:"raw"`

	index      *Index
	evidence   *Evidence
	usersByID  map[string]int
	rolesByKey map[string]int
	codesByKey map[string]int
}

// Derive builds users, roles and tcodes from the raw tables.
//  1. Users: status and group per user row
//  2. Edge indices: role->tcodes, role->users, deduplicated
//  3. Evidence: executed codes, counts and descriptions, gated by the window
//  4. Roles over the union of both edge tables
//  5. TCodes over every granted code
//
// Derive never fails: missing sheets, columns or cells degrade to zero counts
// and "N/A" strings.
func Derive(tables schema.Tables, opts Options) *Snapshot {
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	rules := opts.Rules.withDefaults()

	snap := &Snapshot{
		Now:   now,
		Rules: rules,
		Raw:   tables,
		index: BuildIndex(tables),
	}
	snap.Users, snap.usersByID = deriveUsers(tables.Users, rules, now)
	snap.applyEvidence(opts.Window)
	return snap
}

// Rewindow re-runs the evidence, role and tcode steps under a new window,
// reusing the users and join indices of s. A window covering all time yields
// the same roles and tcodes as an unwindowed Derive.
func (s *Snapshot) Rewindow(w *Window) *Snapshot {
	next := &Snapshot{
		Users:     s.Users,
		Now:       s.Now,
		Rules:     s.Rules,
		Raw:       s.Raw,
		index:     s.index,
		usersByID: s.usersByID,
	}
	next.applyEvidence(w)
	return next
}

func (s *Snapshot) applyEvidence(w *Window) {
	if !w.IsAllTime() {
		s.Window = w
	}
	s.evidence = CollectEvidence(s.Raw.TransactionLogs, w)
	s.Roles, s.rolesByKey = deriveRoles(s.index, s.evidence, s.Rules)
	s.TCodes, s.codesByKey = deriveTCodes(s.index, s.evidence)
}

func deriveUsers(rows []schema.UserRow, rules Rules, now time.Time) ([]User, map[string]int) {
	users := make([]User, 0, len(rows))
	byID := make(map[string]int, len(rows))

	for _, row := range rows {
		validTo, validOK := cell.ParseDate(row.ValidTo)
		lastLogon, logonOK := cell.ParseDate(row.LastLogon)

		var validPtr, logonPtr *time.Time
		if validOK {
			validPtr = &validTo
		}
		if logonOK {
			logonPtr = &lastLogon
		}

		u := User{
			UserID:    strings.TrimSpace(row.User),
			Group:     rules.NormalizeGroup(row.Team),
			ValidTo:   cell.FormatDate(validTo, validOK),
			Status:    rules.ClassifyStatus(row.LockReason, logonPtr, validPtr, now),
			LastLogon: cell.FormatDate(lastLogon, logonOK),
		}
		// First occurrence wins for lookups; every row is still listed.
		if _, exists := byID[u.UserID]; !exists && u.UserID != "" {
			byID[u.UserID] = len(users)
		}
		users = append(users, u)
	}
	return users, byID
}

func deriveRoles(idx *Index, ev *Evidence, rules Rules) ([]Role, map[string]int) {
	roles := make([]Role, 0, len(idx.roles))
	byKey := make(map[string]int, len(idx.roles))

	for _, name := range idx.roles {
		codes := idx.roleTCodes.get(name)
		tCodeCount := codes.len()

		unused := 0
		if codes != nil {
			for _, c := range codes.items {
				if !ev.Executed(c) {
					unused++
				}
			}
		}
		unused = min(max(unused, 0), tCodeCount)

		byKey[name] = len(roles)
		roles = append(roles, Role{
			RoleName:      name,
			UsersAssigned: idx.roleUsers.get(name).len(),
			TCodes:        tCodeCount,
			Unused:        unused,
			Tags:          rules.ClassifyRole(name, tCodeCount, unused),
		})
	}
	return roles, byKey
}

func deriveTCodes(idx *Index, ev *Evidence) ([]TCode, map[string]int) {
	tcodes := make([]TCode, 0, len(idx.tcodes))
	byKey := make(map[string]int, len(idx.tcodes))

	for _, code := range idx.tcodes {
		desc, ok := ev.Description(code)
		if !ok {
			desc = code
		}
		byKey[code] = len(tcodes)
		tcodes = append(tcodes, TCode{
			TCode:       code,
			Description: desc,
			Executions:  ev.Count(code),
			Users:       idx.tcodeUsers.get(code).len(),
			Roles:       idx.tcodeRoles.get(code).len(),
		})
	}
	return tcodes, byKey
}

// Index returns the join indices the snapshot was derived from.
func (s *Snapshot) Index() *Index {
	return s.index
}

// Evidence returns the execution evidence admitted by the snapshot window.
func (s *Snapshot) Evidence() *Evidence {
	return s.evidence
}

// User looks up a user by id. Duplicate user rows resolve to the first.
func (s *Snapshot) User(id string) (User, bool) {
	i, ok := s.usersByID[strings.TrimSpace(id)]
	if !ok {
		return User{}, false
	}
	return s.Users[i], true
}

// Role looks up a role by name.
func (s *Snapshot) Role(name string) (Role, bool) {
	i, ok := s.rolesByKey[strings.TrimSpace(name)]
	if !ok {
		return Role{}, false
	}
	return s.Roles[i], true
}

// TCode looks up a granted transaction code.
func (s *Snapshot) TCode(code string) (TCode, bool) {
	i, ok := s.codesByKey[strings.TrimSpace(code)]
	if !ok {
		return TCode{}, false
	}
	return s.TCodes[i], true
}
