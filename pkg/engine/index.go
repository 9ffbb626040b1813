package engine

import (
	"strings"

	"sapauth/pkg/schema"
)

// orderedSet is a string set that remembers insertion order.
type orderedSet struct {
	items []string
	has   map[string]struct{}
}

func newOrderedSet() *orderedSet {
	return &orderedSet{has: make(map[string]struct{})}
}

func (s *orderedSet) add(v string) bool {
	if _, ok := s.has[v]; ok {
		return false
	}
	s.has[v] = struct{}{}
	s.items = append(s.items, v)
	return true
}

func (s *orderedSet) contains(v string) bool {
	if s == nil {
		return false
	}
	_, ok := s.has[v]
	return ok
}

func (s *orderedSet) len() int {
	if s == nil {
		return 0
	}
	return len(s.items)
}

func (s *orderedSet) values() []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s.items))
	copy(out, s.items)
	return out
}

// edges maps a key to an ordered set of related keys.
type edges struct {
	keys []string
	sets map[string]*orderedSet
}

func newEdges() *edges {
	return &edges{sets: make(map[string]*orderedSet)}
}

func (e *edges) add(from, to string) {
	set, ok := e.sets[from]
	if !ok {
		set = newOrderedSet()
		e.sets[from] = set
		e.keys = append(e.keys, from)
	}
	set.add(to)
}

func (e *edges) get(from string) *orderedSet {
	return e.sets[from]
}

// Index holds the join indices of one export. Keys and members are trimmed and
// deduplicated; rows with an empty side never contribute.
type Index struct {
	roleTCodes *edges // role -> granted codes
	roleUsers  *edges // role -> assigned users
	userRoles  *edges // user -> held roles
	tcodeRoles *edges // code -> granting roles
	tcodeUsers *edges // code -> users reachable through granting roles

	roles  []string // union of both role key sets, first seen
	tcodes []string // every granted code, first seen
}

// BuildIndex scans the role->tcode and user->role edge tables once.
func BuildIndex(tables schema.Tables) *Index {
	idx := &Index{
		roleTCodes: newEdges(),
		roleUsers:  newEdges(),
		userRoles:  newEdges(),
		tcodeRoles: newEdges(),
		tcodeUsers: newEdges(),
	}

	for _, rt := range tables.RoleTCodes {
		role := strings.TrimSpace(rt.Role)
		code := strings.TrimSpace(rt.TCode)
		if role == "" || code == "" {
			continue
		}
		idx.roleTCodes.add(role, code)
		idx.tcodeRoles.add(code, role)
	}

	for _, ur := range tables.UserRoles {
		role := strings.TrimSpace(ur.Role)
		user := strings.TrimSpace(ur.UserName)
		if role == "" || user == "" {
			continue
		}
		idx.roleUsers.add(role, user)
		idx.userRoles.add(user, role)
	}

	// Role universe: union of both edge tables, not the intersection.
	roles := newOrderedSet()
	for _, r := range idx.roleTCodes.keys {
		roles.add(r)
	}
	for _, r := range idx.roleUsers.keys {
		roles.add(r)
	}
	idx.roles = roles.items

	// Code universe: granted codes only, walked role by role.
	codes := newOrderedSet()
	for _, r := range idx.roleTCodes.keys {
		for _, c := range idx.roleTCodes.get(r).items {
			codes.add(c)
		}
	}
	idx.tcodes = codes.items

	// Code -> users is the composition code -> roles -> users.
	for _, code := range idx.tcodes {
		for _, role := range idx.tcodeRoles.get(code).items {
			for _, user := range idx.roleUsers.get(role).values() {
				idx.tcodeUsers.add(code, user)
			}
		}
	}

	return idx
}

// Roles returns every role name in first-seen order.
func (idx *Index) Roles() []string {
	return append([]string(nil), idx.roles...)
}

// TCodes returns every granted transaction code in first-seen order.
func (idx *Index) TCodes() []string {
	return append([]string(nil), idx.tcodes...)
}

// TCodesOf returns the distinct codes granted by role.
func (idx *Index) TCodesOf(role string) []string {
	return idx.roleTCodes.get(role).values()
}

// UsersOf returns the distinct users assigned role.
func (idx *Index) UsersOf(role string) []string {
	return idx.roleUsers.get(role).values()
}

// RolesGranting returns the distinct roles granting code.
func (idx *Index) RolesGranting(code string) []string {
	return idx.tcodeRoles.get(code).values()
}

// UsersWith returns the distinct users holding at least one role granting code.
func (idx *Index) UsersWith(code string) []string {
	return idx.tcodeUsers.get(code).values()
}

// IsGranted reports whether any role grants code.
func (idx *Index) IsGranted(code string) bool {
	return idx.tcodeRoles.get(code) != nil
}

// RolesOf returns the distinct roles held by user.
func (idx *Index) RolesOf(user string) []string {
	return idx.userRoles.get(user).values()
}

// HasRole reports whether user holds at least one role.
func (idx *Index) HasRole(user string) bool {
	return idx.userRoles.get(user).len() > 0
}
