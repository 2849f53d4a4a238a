package ics

import (
	"fmt"
	"time"

	"github.com/teambition/rrule-go"
)

const maxOccurrencesPerEvent = 5000

// busyBetween returns the occurrences of events that overlap
// [rangeStart, rangeEnd). Transparent and cancelled events are not busy.
func busyBetween(events []event, rangeStart, rangeEnd time.Time) ([]occurrence, error) {
	var out []occurrence
	for _, ev := range events {
		if ev.Transparent || ev.Cancelled {
			continue
		}
		if ev.RRule == "" {
			if overlaps(ev.Start, ev.End, rangeStart, rangeEnd) {
				out = append(out, occurrence{Start: ev.Start, End: ev.End})
			}
			continue
		}
		occ, err := expandRecurring(ev, rangeStart, rangeEnd)
		if err != nil {
			return nil, err
		}
		out = append(out, occ...)
	}
	return out, nil
}

type occurrence struct {
	Start time.Time
	End   time.Time
}

func expandRecurring(ev event, rangeStart, rangeEnd time.Time) ([]occurrence, error) {
	r, err := rrule.StrToRRule(ev.RRule)
	if err != nil {
		return nil, fmt.Errorf("event %s: parse RRULE %q: %w", ev.UID, ev.RRule, err)
	}
	r.DTStart(ev.Start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range ev.ExDates {
		set.ExDate(ex.In(ev.Start.Location()))
	}

	dur := ev.End.Sub(ev.Start)
	// Occurrences that started before the window may still run into it.
	from := rangeStart.Add(-dur).In(ev.Start.Location())
	starts := set.Between(from, rangeEnd.In(ev.Start.Location()), true)
	if len(starts) > maxOccurrencesPerEvent {
		starts = starts[:maxOccurrencesPerEvent]
	}

	out := make([]occurrence, 0, len(starts))
	for _, start := range starts {
		end := start.Add(dur)
		if ev.AllDay {
			end = start.AddDate(0, 0, int(dur.Hours()/24+0.5))
		}
		if overlaps(start, end, rangeStart, rangeEnd) {
			out = append(out, occurrence{Start: start, End: end})
		}
	}
	return out, nil
}

func overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}
