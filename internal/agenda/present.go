package agenda

import (
	"time"
)

const (
	displayLayout = "01/02/2006 3:04 PM"
	dateLayout    = "Mon 01/02/2006"
	clockLayout   = "15:04"

	badDate = "(bad date)"
	badTime = "(bad time)"
)

// Describe renders a free interval for people, e.g.
// "From 01/05/2026 11:00 AM until 01/05/2026 2:00 PM".
func Describe(iv Interval, loc *time.Location) string {
	return "From " + formatInstant(iv.Start, loc) + " until " + formatInstant(iv.End, loc)
}

func DescribeAll(intervals []Interval, loc *time.Location) []string {
	lines := make([]string, 0, len(intervals))
	for _, iv := range intervals {
		lines = append(lines, Describe(iv, loc))
	}
	return lines
}

func formatInstant(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return badDate
	}
	if loc != nil {
		t = t.In(loc)
	}
	return t.Format(displayLayout)
}

// FormatDate renders an RFC 3339 timestamp as "Mon 01/02/2006", or
// "(bad date)" when it cannot be read.
func FormatDate(text string) string {
	t, err := time.Parse(time.RFC3339Nano, text)
	if err != nil {
		return badDate
	}
	return t.Format(dateLayout)
}

// FormatClock renders an RFC 3339 timestamp as "15:04", or "(bad time)".
func FormatClock(text string) string {
	t, err := time.Parse(time.RFC3339Nano, text)
	if err != nil {
		return badTime
	}
	return t.Format(clockLayout)
}
