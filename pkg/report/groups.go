package report

import "sapauth/pkg/engine"

// unknownGroup labels users reachable through roles but absent from the Users sheet.
const unknownGroup = "Unknown"

// Execution volume buckets for the heatmap.
const (
	VolumeHigh   = "High"
	VolumeMedium = "Medium"
	VolumeLow    = "Low"
	VolumeNone   = "None"
)

// Volume classifies an execution count: High > 100, Medium > 10, Low > 0, else None.
func Volume(executions int) string {
	switch {
	case executions > 100:
		return VolumeHigh
	case executions > 10:
		return VolumeMedium
	case executions > 0:
		return VolumeLow
	}
	return VolumeNone
}

// groupOf resolves a user id to its group.
func groupOf(s *engine.Snapshot, user string) (string, bool) {
	u, ok := s.User(user)
	if !ok {
		return unknownGroup, false
	}
	return u.Group, true
}

// groups returns the distinct user groups in first-seen order.
func groups(s *engine.Snapshot) []string {
	buckets := UsersByGroup(s.Users)
	out := make([]string, len(buckets))
	for i, b := range buckets {
		out[i] = b.Name
	}
	return out
}

// ExecutionsByGroup adds each code's executions to the group of every distinct
// user able to run it, so a group is weighted by how many of its users hold the
// code. Largest first.
// When no code reaches a user, the total executions are spread evenly over the
// groups of the Users sheet, rounded half up. Without users it yields no buckets.
func ExecutionsByGroup(s *engine.Snapshot) []Bucket {
	buckets := make([]Bucket, 0)
	pos := make(map[string]int)
	idx := s.Index()

	for _, tc := range s.TCodes {
		for _, user := range idx.UsersWith(tc.TCode) {
			g, _ := groupOf(s, user)
			i, ok := pos[g]
			if !ok {
				i = len(buckets)
				pos[g] = i
				buckets = append(buckets, Bucket{Name: g})
			}
			buckets[i].Value += tc.Executions
		}
	}
	if len(buckets) == 0 {
		return spreadExecutions(s)
	}
	return SortBuckets(buckets)
}

func spreadExecutions(s *engine.Snapshot) []Bucket {
	names := groups(s)
	if len(names) == 0 {
		return []Bucket{}
	}
	total := 0
	for _, tc := range s.TCodes {
		total += tc.Executions
	}
	per := roundDiv(total, len(names))
	buckets := make([]Bucket, len(names))
	for i, g := range names {
		buckets[i] = Bucket{Name: g, Value: per}
	}
	return buckets
}

// HeatmapRow counts, for one group, the codes its users can run per volume bucket.
type HeatmapRow struct {
	Group  string `json:"group"`
	High   int    `json:"High"`
	Medium int    `json:"Medium"`
	Low    int    `json:"Low"`
	None   int    `json:"None"`
}

func (r *HeatmapRow) add(volume string) {
	switch volume {
	case VolumeHigh:
		r.High++
	case VolumeMedium:
		r.Medium++
	case VolumeLow:
		r.Low++
	default:
		r.None++
	}
}

// ExecutionHeatmap buckets every code by execution volume for each group whose
// users can run it. Codes reachable by no known user are counted against the
// first group so the totals still cover every code.
func ExecutionHeatmap(s *engine.Snapshot) []HeatmapRow {
	names := groups(s)
	rows := make([]HeatmapRow, len(names))
	pos := make(map[string]int, len(names))
	for i, g := range names {
		rows[i] = HeatmapRow{Group: g}
		pos[g] = i
	}
	if len(rows) == 0 {
		return rows
	}

	idx := s.Index()
	for _, tc := range s.TCodes {
		volume := Volume(tc.Executions)
		related := make(map[string]bool)
		for _, user := range idx.UsersWith(tc.TCode) {
			if g, known := groupOf(s, user); known && !related[g] {
				related[g] = true
				rows[pos[g]].add(volume)
			}
		}
		if len(related) == 0 {
			rows[0].add(volume)
		}
	}
	return rows
}

// WindowedTCodes returns the codes executed at least once inside the snapshot
// window. Without a window every code is returned, as in the bulk table.
func WindowedTCodes(s *engine.Snapshot) []engine.TCode {
	if s.Window.IsAllTime() {
		return append([]engine.TCode(nil), s.TCodes...)
	}
	out := make([]engine.TCode, 0)
	for _, tc := range s.TCodes {
		if tc.Executions > 0 {
			out = append(out, tc)
		}
	}
	return out
}

// UniqueCodesByGroup counts, per group, the distinct granted codes executed in
// the snapshot window that at least one of the group's users can run.
// Groups appear in first-seen order; users missing from the Users sheet fall
// under "Unknown".
func UniqueCodesByGroup(s *engine.Snapshot) []Bucket {
	buckets := make([]Bucket, 0)
	pos := make(map[string]int)
	for _, g := range groups(s) {
		pos[g] = len(buckets)
		buckets = append(buckets, Bucket{Name: g})
	}

	idx := s.Index()
	for _, tc := range s.TCodes {
		if tc.Executions == 0 {
			continue
		}
		counted := make(map[string]bool)
		for _, user := range idx.UsersWith(tc.TCode) {
			g, _ := groupOf(s, user)
			if counted[g] {
				continue
			}
			counted[g] = true
			i, ok := pos[g]
			if !ok {
				i = len(buckets)
				pos[g] = i
				buckets = append(buckets, Bucket{Name: g})
			}
			buckets[i].Value++
		}
	}
	return buckets
}
