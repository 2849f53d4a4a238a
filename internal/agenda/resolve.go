package agenda

import (
	"slices"
)

// Sort returns a copy of intervals ordered by start, then end. Equal
// intervals keep their relative order.
func Sort(intervals []Interval) []Interval {
	out := slices.Clone(intervals)
	slices.SortStableFunc(out, compareIntervals)
	return out
}

func compareIntervals(a, b Interval) int {
	if c := a.Start.Compare(b.Start); c != 0 {
		return c
	}
	return a.End.Compare(b.End)
}

// Resolve turns a start-ordered sequence into one where no interval overlaps
// the next. When next starts inside current, current is cut at next.Start;
// if current also reaches past next.End, next takes over current's end. Cut
// pieces of zero length are dropped, so duplicates collapse into one.
//
// The input slice is never modified.
func Resolve(sorted []Interval) ([]Interval, error) {
	if len(sorted) == 0 {
		return nil, ErrEmptyIntervalSequence
	}
	for i, iv := range sorted {
		if err := iv.Validate(); err != nil {
			return nil, err
		}
		if i > 0 && iv.Start.Before(sorted[i-1].Start) {
			return nil, &InvariantViolationError{Index: i, Prev: sorted[i-1], Next: iv, Reason: "input not ordered by start"}
		}
	}

	out := make([]Interval, 0, len(sorted))
	cur := sorted[0]
	for _, next := range sorted[1:] {
		if !next.Start.Before(cur.End) {
			out = append(out, cur)
			cur = next
			continue
		}
		if cur.End.After(next.End) {
			next.End = cur.End
		}
		if next.Start.After(cur.Start) {
			out = append(out, Interval{Start: cur.Start, End: next.Start})
		}
		cur = next
	}
	out = append(out, cur)

	if err := checkResolved(out); err != nil {
		return nil, err
	}
	return out, nil
}

func checkResolved(intervals []Interval) error {
	for i := 1; i < len(intervals); i++ {
		prev, next := intervals[i-1], intervals[i]
		if next.Start.Before(prev.Start) {
			return &InvariantViolationError{Index: i, Prev: prev, Next: next, Reason: "out of order"}
		}
		if next.Start.Before(prev.End) {
			return &InvariantViolationError{Index: i, Prev: prev, Next: next, Reason: "overlap"}
		}
	}
	return nil
}

// Gaps returns the free intervals strictly between consecutive busy
// intervals of a resolved sequence. Touching intervals leave no gap.
func Gaps(resolved []Interval) ([]Interval, error) {
	if len(resolved) == 0 {
		return nil, ErrEmptyIntervalSequence
	}
	free := []Interval{}
	for i := 0; i+1 < len(resolved); i++ {
		cur, next := resolved[i], resolved[i+1]
		if next.Start.After(cur.End) {
			free = append(free, Interval{Start: cur.End, End: next.Start})
		}
	}
	return free, nil
}
