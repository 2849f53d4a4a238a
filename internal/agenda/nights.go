package agenda

// AddNights returns intervals followed by two synthetic busy blocks for every
// day in rng: midnight until hours.Start, and hours.End until the next
// midnight. The night block ends exactly where the following day's morning
// block begins, so consecutive days never leave a sliver of free time at
// midnight.
func AddNights(intervals []Interval, rng Range, hours WakingHours) ([]Interval, error) {
	if err := hours.Validate(); err != nil {
		return nil, err
	}
	days, err := rng.Days()
	if err != nil {
		return nil, err
	}
	out := make([]Interval, len(intervals), len(intervals)+2*len(days))
	copy(out, intervals)
	for _, day := range days {
		wake, sleep := hours.Window(day)
		out = append(out,
			Interval{Start: day, End: wake},
			Interval{Start: sleep, End: nextDay(day)},
		)
	}
	return out, nil
}
