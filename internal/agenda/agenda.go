// Package agenda computes the free time left between busy intervals.
//
// The pipeline is Normalize, AddNights, Sort, Resolve and Gaps, in that
// order; FreeTimes runs all of them.
package agenda

import (
	"fmt"
	"time"
)

// FreeTimes computes the free intervals shared by every calendar in busy
// within rng, restricted to the waking hours of each day. Busy records may
// extend past the range (providers are queried with a widened window); they
// are trimmed to it first.
func FreeTimes(busy [][]RawInterval, rng Range, hours WakingHours, loc *time.Location) ([]Interval, error) {
	if loc == nil {
		loc = time.Local
	}
	rng = rng.In(loc)
	lo, hi, err := rng.Bounds()
	if err != nil {
		return nil, err
	}
	intervals, err := Normalize(busy, loc)
	if err != nil {
		return nil, fmt.Errorf("normalize busy times: %w", err)
	}
	intervals, err = AddNights(Clip(intervals, lo, hi), rng, hours)
	if err != nil {
		return nil, err
	}
	resolved, err := Resolve(Sort(intervals))
	if err != nil {
		return nil, fmt.Errorf("resolve busy times: %w", err)
	}
	return Gaps(resolved)
}
