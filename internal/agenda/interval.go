package agenda

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrEmptyIntervalSequence = errors.New("empty interval sequence")
	ErrInvertedInterval      = errors.New("interval starts after it ends")
	ErrInvertedRange         = errors.New("end date before begin date")
	ErrInvalidWakingHours    = errors.New("waking hours must end after they start")
)

// Interval is a closed span of time. Intervals are values; two intervals with
// the same bounds are the same interval.
type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// RawInterval is a busy record as returned by a calendar provider.
type RawInterval struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

func (iv Interval) Validate() error {
	if iv.Start.After(iv.End) {
		return fmt.Errorf("%w: %s > %s", ErrInvertedInterval,
			iv.Start.Format(time.RFC3339Nano), iv.End.Format(time.RFC3339Nano))
	}
	return nil
}

func (iv Interval) Duration() time.Duration {
	return iv.End.Sub(iv.Start)
}

func (iv Interval) In(loc *time.Location) Interval {
	return Interval{Start: iv.Start.In(loc), End: iv.End.In(loc)}
}

func (iv Interval) String() string {
	return iv.Start.Format(time.RFC3339Nano) + "/" + iv.End.Format(time.RFC3339Nano)
}

// TimestampParseError reports a busy record whose start or end text could not
// be read as an RFC 3339 instant.
type TimestampParseError struct {
	Field string
	Value string
	Err   error
}

func (e *TimestampParseError) Error() string {
	return fmt.Sprintf("parse busy %s %q: %v", e.Field, e.Value, e.Err)
}

func (e *TimestampParseError) Unwrap() error { return e.Err }

// InvariantViolationError means the resolver produced (or was handed) a
// sequence that is not start-ordered and non-overlapping. It always indicates
// a logic defect and the computation must be abandoned.
type InvariantViolationError struct {
	Index  int
	Prev   Interval
	Next   Interval
	Reason string
}

func (e *InvariantViolationError) Error() string {
	return fmt.Sprintf("interval invariant violated at %d (%s then %s): %s", e.Index, e.Prev, e.Next, e.Reason)
}

// Range is a span of whole calendar days. Begin and End may carry any time of
// day; only their dates matter. Both days are included.
type Range struct {
	Begin time.Time `json:"begin"`
	End   time.Time `json:"end"`
}

func (r Range) In(loc *time.Location) Range {
	return Range{Begin: r.Begin.In(loc), End: r.End.In(loc)}
}

// Days returns the midnight of every day in the range, in Begin's location.
func (r Range) Days() ([]time.Time, error) {
	loc := r.Begin.Location()
	first := startOfDay(r.Begin)
	last := startOfDay(r.End.In(loc))
	if last.Before(first) {
		return nil, ErrInvertedRange
	}
	var days []time.Time
	for day := first; !day.After(last); day = nextDay(day) {
		days = append(days, day)
	}
	return days, nil
}

// Bounds returns the first instant of the range and the first instant after it.
func (r Range) Bounds() (time.Time, time.Time, error) {
	days, err := r.Days()
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return days[0], nextDay(days[len(days)-1]), nil
}

// QueryWindow is the window providers are asked about: the range widened by a
// full calendar day past its end so zone offsets never cut off the last day.
// The day after is stepped with time.Date, so a 25 hour DST day is covered.
func (r Range) QueryWindow() (time.Time, time.Time) {
	last := startOfDay(r.End.In(r.Begin.Location()))
	return startOfDay(r.Begin), nextDay(last)
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func nextDay(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day()+1, 0, 0, 0, 0, day.Location())
}
