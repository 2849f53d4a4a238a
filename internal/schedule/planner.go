// Package schedule fetches busy times from calendar providers and hands them
// to the agenda engine.
package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"meetme/internal/agenda"
)

// Provider is a read-only calendar backend.
type Provider interface {
	ListCalendars(ctx context.Context) ([]Calendar, error)
	BusyTimes(ctx context.Context, calendarID string, timeMin, timeMax time.Time) ([]agenda.RawInterval, error)
}

// Planner computes free times for a set of calendars. It holds no state
// between calls.
type Planner struct {
	Provider Provider
	Location *time.Location
	Hours    agenda.WakingHours
	Logger   *slog.Logger
}

// Result is one free-time computation.
type Result struct {
	Calendars []Calendar        `json:"calendars"`
	Range     agenda.Range      `json:"range"`
	Free      []agenda.Interval `json:"free"`
	Lines     []string          `json:"lines"`
}

// BusyTimes queries the provider once per calendar, one after the other,
// over the range widened by a day.
func (p *Planner) BusyTimes(ctx context.Context, cals []Calendar, rng agenda.Range) ([][]agenda.RawInterval, error) {
	timeMin, timeMax := rng.In(p.location()).QueryWindow()
	busy := make([][]agenda.RawInterval, 0, len(cals))
	for _, cal := range cals {
		records, err := p.Provider.BusyTimes(ctx, cal.ID, timeMin, timeMax)
		if err != nil {
			return nil, fmt.Errorf("busy times for %s: %w", cal.ID, err)
		}
		p.logger().Debug("fetched busy times", "calendar", cal.ID, "count", len(records))
		busy = append(busy, records)
	}
	return busy, nil
}

func (p *Planner) FreeTimes(ctx context.Context, cals []Calendar, rng agenda.Range) (*Result, error) {
	if len(cals) == 0 {
		return nil, fmt.Errorf("no calendars selected")
	}
	busy, err := p.BusyTimes(ctx, cals, rng)
	if err != nil {
		return nil, err
	}
	free, err := agenda.FreeTimes(busy, rng, p.hours(), p.location())
	if err != nil {
		return nil, err
	}
	p.logger().Info("computed free times",
		"calendars", len(cals),
		"begin", rng.Begin.Format(time.DateOnly),
		"end", rng.End.Format(time.DateOnly),
		"free", len(free))
	return &Result{
		Calendars: cals,
		Range:     rng,
		Free:      free,
		Lines:     agenda.DescribeAll(free, p.location()),
	}, nil
}

func (p *Planner) location() *time.Location {
	if p.Location == nil {
		return time.Local
	}
	return p.Location
}

func (p *Planner) hours() agenda.WakingHours {
	if p.Hours == (agenda.WakingHours{}) {
		return agenda.DefaultWakingHours
	}
	return p.Hours
}

func (p *Planner) logger() *slog.Logger {
	if p.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return p.Logger
}
