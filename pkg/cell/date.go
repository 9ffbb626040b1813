package cell

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// NotAvailable is the placeholder rendered for missing dates and unknown values.
const NotAvailable = "N/A"

// msPerDay is fixed; leap seconds and DST transitions are ignored.
const msPerDay = 86_400_000

// spreadsheetEpoch is day zero of the spreadsheet serial date system.
var spreadsheetEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

// maxSerial is 9999-12-31, the largest serial a spreadsheet will display.
const maxSerial = 2958465

// dateLayouts are tried in order for text cells.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02",
	"01/02/2006 15:04:05",
	"01/02/2006",
	"1/2/2006",
	"02.01.2006",
	"2.1.2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"02-Jan-2006",
	"Mon Jan 2 2006",
	time.RFC1123,
}

// ParseDate converts a cell to a calendar instant in UTC.
//
// Numeric cells are days since 1899-12-30, fractional part kept as time of day.
// Text cells holding a plain number are treated the same way; other text is
// matched against dateLayouts. The second result is false for empty or
// unparseable cells.
func ParseDate(v Value) (time.Time, bool) {
	switch v.Kind {
	case KindNumber:
		return fromSerial(v.Num)
	case KindText:
		s := strings.TrimSpace(v.Text)
		if s == "" {
			return time.Time{}, false
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return fromSerial(f)
		}
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC(), true
			}
		}
	}
	return time.Time{}, false
}

func fromSerial(days float64) (time.Time, bool) {
	if math.IsNaN(days) || math.IsInf(days, 0) || days < -maxSerial || days > maxSerial {
		return time.Time{}, false
	}
	// Whole days go through AddDate so far-future serials cannot overflow a Duration.
	ms := int64(math.Round(days * msPerDay))
	whole, rem := ms/msPerDay, ms%msPerDay
	if rem < 0 {
		whole--
		rem += msPerDay
	}
	return spreadsheetEpoch.AddDate(0, 0, int(whole)).Add(time.Duration(rem) * time.Millisecond), true
}

// FormatDate renders t as YYYY-MM-DD, or NotAvailable when ok is false.
func FormatDate(t time.Time, ok bool) string {
	if !ok {
		return NotAvailable
	}
	return t.UTC().Format("2006-01-02")
}

// DaysBetween returns the whole days from b to a, rounded toward negative infinity.
func DaysBetween(a, b time.Time) int {
	d := a.Sub(b).Milliseconds()
	q := d / msPerDay
	if d%msPerDay != 0 && d < 0 {
		q--
	}
	return int(q)
}
