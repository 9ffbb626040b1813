// Package cell normalizes untyped spreadsheet cells into strings and dates.
//
// Every helper here is total: malformed input degrades to an empty string or a
// missing date, never to an error or a panic.
package cell

import (
	"math"
	"strconv"
	"strings"
)

// Kind identifies what a spreadsheet cell holds.
type Kind uint8

const (
	KindEmpty Kind = iota
	KindNumber
	KindText
)

// Value is a single untyped spreadsheet cell.
type Value struct {
	Kind Kind
	Num  float64
	Text string
}

// Number returns a numeric cell.
func Number(f float64) Value {
	return Value{Kind: KindNumber, Num: f}
}

// Text returns a text cell. Blank text is stored as an empty cell.
func Text(s string) Value {
	if strings.TrimSpace(s) == "" {
		return Value{}
	}
	return Value{Kind: KindText, Text: s}
}

// Parse classifies a raw string holding a stored number: strings that are a
// complete decimal number become numeric cells, everything else stays text.
func Parse(raw string) Value {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Value{}
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return Number(f)
	}
	return Value{Kind: KindText, Text: raw}
}

// IsEmpty reports whether the cell holds nothing.
func (v Value) IsEmpty() bool {
	return v.Kind == KindEmpty
}

// String implements fmt.Stringer with the same rules as String.
func (v Value) String() string {
	return String(v)
}

// MarshalText renders the cell for JSON and YAML encoders.
func (v Value) MarshalText() ([]byte, error) {
	return []byte(String(v)), nil
}

// UnmarshalText reverses MarshalText.
func (v *Value) UnmarshalText(b []byte) error {
	*v = Parse(string(b))
	return nil
}

// String coerces a cell to trimmed text. Empty cells yield "".
func String(v Value) string {
	switch v.Kind {
	case KindNumber:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	case KindText:
		return strings.TrimSpace(v.Text)
	default:
		return ""
	}
}
