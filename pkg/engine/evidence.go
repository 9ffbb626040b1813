package engine

import (
	"strings"
	"time"

	"sapauth/pkg/cell"
	"sapauth/pkg/schema"
)

// Window restricts which transaction-log rows count as execution evidence.
// Both bounds are inclusive; a nil bound is open.
type Window struct {
	Start *time.Time `json:"start,omitempty"`
	End   *time.Time `json:"end,omitempty"`
}

// IsAllTime reports whether the window admits every row.
func (w *Window) IsAllTime() bool {
	return w == nil || (w.Start == nil && w.End == nil)
}

// Admits reports whether a log row dated v falls inside the window.
// Rows without a parseable date are always admitted.
func (w *Window) Admits(v cell.Value) bool {
	if w.IsAllTime() {
		return true
	}
	d, ok := cell.ParseDate(v)
	if !ok {
		return true
	}
	return w.Contains(d)
}

// Contains reports whether t lies within the window bounds.
func (w *Window) Contains(t time.Time) bool {
	if w == nil {
		return true
	}
	if w.Start != nil && t.Before(*w.Start) {
		return false
	}
	if w.End != nil && t.After(*w.End) {
		return false
	}
	return true
}

// Key identifies the window for caching. Equal windows produce equal keys.
func (w *Window) Key() string {
	if w.IsAllTime() {
		return "all"
	}
	bound := func(t *time.Time) string {
		if t == nil {
			return "*"
		}
		return t.UTC().Format(time.RFC3339Nano)
	}
	return bound(w.Start) + ".." + bound(w.End)
}

// Evidence is what the transaction logs prove was executed.
type Evidence struct {
	counts       map[string]int
	descriptions map[string]string
	order        []string

	// Rows is the number of log rows admitted by the window.
	Rows int `json:"rows"`
	// Undated counts admitted rows that had no parseable date.
	Undated int `json:"undated"`
}

// CollectEvidence scans the logs once. Every admitted row increments its code's
// count; the first non-empty description per code wins.
func CollectEvidence(logs []schema.TransactionLogRow, w *Window) *Evidence {
	ev := &Evidence{
		counts:       make(map[string]int),
		descriptions: make(map[string]string),
	}
	for _, log := range logs {
		code := strings.TrimSpace(log.TCode)
		if code == "" {
			continue
		}
		d, dated := cell.ParseDate(log.Date)
		if dated && !w.Contains(d) {
			continue
		}
		if !dated {
			ev.Undated++
		}
		ev.Rows++

		if _, seen := ev.counts[code]; !seen {
			ev.order = append(ev.order, code)
		}
		ev.counts[code]++

		if desc := strings.TrimSpace(log.Text); desc != "" {
			if _, ok := ev.descriptions[code]; !ok {
				ev.descriptions[code] = desc
			}
		}
	}
	return ev
}

// Executed reports whether code appears in at least one admitted row.
func (ev *Evidence) Executed(code string) bool {
	_, ok := ev.counts[code]
	return ok
}

// Count returns the number of admitted rows executing code.
func (ev *Evidence) Count(code string) int {
	return ev.counts[code]
}

// Description returns the first logged description of code.
func (ev *Evidence) Description(code string) (string, bool) {
	d, ok := ev.descriptions[code]
	return d, ok
}

// Codes returns every executed code in first-seen order.
func (ev *Evidence) Codes() []string {
	return append([]string(nil), ev.order...)
}
