package schedule

import (
	"slices"
	"strings"
)

const noDescription = "(no description)"

// Calendar is one entry of the viewer's calendar list.
type Calendar struct {
	Kind        string `json:"kind"`
	ID          string `json:"id"`
	Summary     string `json:"summary"`
	Description string `json:"description"`
	Selected    bool   `json:"selected"`
	Primary     bool   `json:"primary"`
}

// SortCalendars orders the primary calendar first, then calendars shown in
// the provider's own UI, then the rest, each group by summary.
func SortCalendars(cals []Calendar) []Calendar {
	out := slices.Clone(cals)
	for i := range out {
		if strings.TrimSpace(out[i].Description) == "" {
			out[i].Description = noDescription
		}
	}
	slices.SortStableFunc(out, func(a, b Calendar) int {
		if a.Primary != b.Primary {
			return rank(a.Primary)
		}
		if a.Selected != b.Selected {
			return rank(a.Selected)
		}
		return strings.Compare(a.Summary, b.Summary)
	})
	return out
}

func rank(first bool) int {
	if first {
		return -1
	}
	return 1
}

// SelectCalendars keeps the calendars whose id is in ids, in list order.
func SelectCalendars(all []Calendar, ids []string) []Calendar {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []Calendar
	for _, cal := range all {
		if want[cal.ID] {
			out = append(out, cal)
		}
	}
	return out
}

// DefaultSelection returns the ids of calendars to preselect: the configured
// ones when present in the list, otherwise the primary calendar.
func DefaultSelection(all []Calendar, configured []string) []string {
	var ids []string
	for _, cal := range SelectCalendars(all, configured) {
		ids = append(ids, cal.ID)
	}
	if len(ids) > 0 {
		return ids
	}
	for _, cal := range all {
		if cal.Primary {
			return []string{cal.ID}
		}
	}
	return nil
}
