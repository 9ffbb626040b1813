package engine

import (
	"fmt"
	"time"

	"sapauth/pkg/cell"
)

// Preset names a relative date window.
type Preset string

const (
	PresetAll         Preset = "all"
	PresetThisWeek    Preset = "this-week"
	PresetThisMonth   Preset = "this-month"
	PresetLastMonth   Preset = "last-month"
	PresetLast3Months Preset = "last-3-months"
	Preset6Months     Preset = "6-months"
	PresetThisYear    Preset = "this-year"
)

// Presets lists every preset in display order.
var Presets = []Preset{
	PresetAll, PresetThisWeek, PresetThisMonth, PresetLastMonth,
	PresetLast3Months, Preset6Months, PresetThisYear,
}

// PresetWindow resolves a preset against now. Start bounds fall on midnight in
// now's location; end bounds are now, except last-month which ends on the last
// instant of the previous month. PresetAll returns a nil window.
func PresetWindow(p Preset, now time.Time) (*Window, error) {
	day := startOfDay(now)
	switch p {
	case PresetAll, "":
		return nil, nil
	case PresetThisWeek:
		return Between(day.AddDate(0, 0, -int(now.Weekday())), now), nil
	case PresetThisMonth:
		return Between(firstOfMonth(now, 0), now), nil
	case PresetLastMonth:
		start := firstOfMonth(now, -1)
		return Between(start, firstOfMonth(now, 0).Add(-time.Nanosecond)), nil
	case PresetLast3Months:
		return Between(day.AddDate(0, -3, 0), now), nil
	case Preset6Months:
		return Between(day.AddDate(0, -6, 0), now), nil
	case PresetThisYear:
		return Between(time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location()), now), nil
	}
	return nil, fmt.Errorf("unknown date preset %q", p)
}

// Between returns an inclusive window from start to end.
func Between(start, end time.Time) *Window {
	return &Window{Start: &start, End: &end}
}

// EndOfDay returns the last instant of t's calendar day, for inclusive
// end bounds entered as plain dates.
func EndOfDay(t time.Time) time.Time {
	return startOfDay(t).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func firstOfMonth(t time.Time, offset int) time.Time {
	return time.Date(t.Year(), t.Month()+time.Month(offset), 1, 0, 0, 0, 0, t.Location())
}

// WindowSpec is a user-entered window: either a preset or explicit bounds.
type WindowSpec struct {
	Preset Preset `json:"preset,omitempty"`
	From   string `json:"from,omitempty"`
	To     string `json:"to,omitempty"`
}

// Resolve turns s into a window relative to now. Bounds accept the same
// layouts as sheet dates; a To given as a plain date covers that whole day.
// An empty WindowSpec resolves to a nil window.
func (s WindowSpec) Resolve(now time.Time) (*Window, error) {
	if s.Preset != "" && (s.From != "" || s.To != "") {
		return nil, fmt.Errorf("a date preset cannot be combined with explicit bounds")
	}
	if s.Preset != "" {
		return PresetWindow(s.Preset, now)
	}

	var w Window
	if s.From != "" {
		t, ok := cell.ParseDate(cell.Text(s.From))
		if !ok {
			return nil, fmt.Errorf("invalid start date %q", s.From)
		}
		w.Start = &t
	}
	if s.To != "" {
		t, ok := cell.ParseDate(cell.Text(s.To))
		if !ok {
			return nil, fmt.Errorf("invalid end date %q", s.To)
		}
		if t.Equal(startOfDay(t)) {
			t = EndOfDay(t)
		}
		w.End = &t
	}
	if w.Start != nil && w.End != nil && w.End.Before(*w.Start) {
		return nil, fmt.Errorf("end date %s is before start date %s", s.To, s.From)
	}
	if w.IsAllTime() {
		return nil, nil
	}
	return &w, nil
}
