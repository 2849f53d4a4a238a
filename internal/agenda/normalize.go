package agenda

import (
	"time"
)

// Normalize flattens per-calendar busy records into a single sequence with
// every instant converted to loc. Calendars with no busy records contribute
// nothing.
func Normalize(busy [][]RawInterval, loc *time.Location) ([]Interval, error) {
	if loc == nil {
		loc = time.Local
	}
	var out []Interval
	for _, records := range busy {
		for _, rec := range records {
			start, err := parseTimestamp("start", rec.Start)
			if err != nil {
				return nil, err
			}
			end, err := parseTimestamp("end", rec.End)
			if err != nil {
				return nil, err
			}
			iv := Interval{Start: start.In(loc), End: end.In(loc)}
			if err := iv.Validate(); err != nil {
				return nil, err
			}
			out = append(out, iv)
		}
	}
	return out, nil
}

func parseTimestamp(field, text string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, text)
	if err != nil {
		return time.Time{}, &TimestampParseError{Field: field, Value: text, Err: err}
	}
	return t, nil
}

// Clip drops intervals outside [lo, hi) and trims the rest to it.
func Clip(intervals []Interval, lo, hi time.Time) []Interval {
	out := make([]Interval, 0, len(intervals))
	for _, iv := range intervals {
		if iv.End.Before(lo) || !iv.Start.Before(hi) {
			continue
		}
		if iv.Start.Before(lo) {
			iv.Start = lo
		}
		if iv.End.After(hi) {
			iv.End = hi
		}
		out = append(out, iv)
	}
	return out
}
