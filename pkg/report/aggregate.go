// Package report turns a derived snapshot into chart- and table-ready rows.
//
// Every function here is a pure read of an engine.Snapshot; none of them
// mutates its input, so they are safe to call from concurrent callers.
package report

import (
	"sort"

	"sapauth/pkg/engine"
)

// Bucket is one slice of a group-by rollup.
type Bucket struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// GroupBy counts items per key. Buckets appear in first-seen key order;
// items with an empty key are not counted.
func GroupBy[T any](items []T, key func(T) string) []Bucket {
	buckets := make([]Bucket, 0)
	pos := make(map[string]int)
	for _, item := range items {
		k := key(item)
		if k == "" {
			continue
		}
		i, ok := pos[k]
		if !ok {
			i = len(buckets)
			pos[k] = i
			buckets = append(buckets, Bucket{Name: k})
		}
		buckets[i].Value++
	}
	return buckets
}

// UsersByStatus counts users per status.
func UsersByStatus(users []engine.User) []Bucket {
	return GroupBy(users, func(u engine.User) string { return string(u.Status) })
}

// UsersByGroup counts users per group.
func UsersByGroup(users []engine.User) []Bucket {
	return GroupBy(users, func(u engine.User) string { return u.Group })
}

// RolesByTag counts roles per classification tag.
func RolesByTag(roles []engine.Role) []Bucket {
	return GroupBy(roles, func(r engine.Role) string { return r.Tags })
}

// SortBuckets orders buckets by value, largest first; ties keep their order.
func SortBuckets(buckets []Bucket) []Bucket {
	out := append([]Bucket(nil), buckets...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Value > out[j].Value })
	return out
}

// TopN returns the n items with the highest score, largest first. Ties keep
// input order. n <= 0 returns every item sorted. Empty input gives an empty result.
func TopN[T any](items []T, n int, score func(T) int) []T {
	out := make([]T, len(items))
	copy(out, items)
	sort.SliceStable(out, func(i, j int) bool { return score(out[i]) > score(out[j]) })
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// Unused returns the roles whose utilization is exactly 0%, in input order.
func Unused(roles []engine.Role) []engine.Role {
	out := make([]engine.Role, 0)
	for _, r := range roles {
		if engine.Utilization(r) == 0 {
			out = append(out, r)
		}
	}
	return out
}
