package schedule

import (
	"context"
	"fmt"
	"sync"
	"time"

	"meetme/internal/agenda"
)

// MultiProvider merges the calendar lists of several providers and routes
// busy-time queries to whichever provider listed the calendar.
type MultiProvider struct {
	Providers []Provider

	mu     sync.Mutex
	owners map[string]Provider
}

func NewMultiProvider(providers ...Provider) *MultiProvider {
	return &MultiProvider{Providers: providers, owners: map[string]Provider{}}
}

func (m *MultiProvider) ListCalendars(ctx context.Context) ([]Calendar, error) {
	var all []Calendar
	owners := map[string]Provider{}
	for _, p := range m.Providers {
		cals, err := p.ListCalendars(ctx)
		if err != nil {
			return nil, err
		}
		for _, cal := range cals {
			if _, dup := owners[cal.ID]; dup {
				continue
			}
			owners[cal.ID] = p
			all = append(all, cal)
		}
	}
	m.mu.Lock()
	m.owners = owners
	m.mu.Unlock()
	return all, nil
}

func (m *MultiProvider) BusyTimes(ctx context.Context, calendarID string, timeMin, timeMax time.Time) ([]agenda.RawInterval, error) {
	p, ok := m.owner(calendarID)
	if !ok {
		if _, err := m.ListCalendars(ctx); err != nil {
			return nil, err
		}
		if p, ok = m.owner(calendarID); !ok {
			return nil, fmt.Errorf("unknown calendar %q", calendarID)
		}
	}
	return p.BusyTimes(ctx, calendarID, timeMin, timeMax)
}

func (m *MultiProvider) owner(calendarID string) (Provider, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.owners[calendarID]
	return p, ok
}
