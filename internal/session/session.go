// Package session keeps per-browser state for the web app: the OAuth token,
// the calendar list, the chosen date range and pending flash messages.
package session

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"meetme/internal/agenda"
	"meetme/internal/schedule"
	"meetme/internal/timeparse"
)

var ErrNotFound = errors.New("session not found")

// Store persists sessions by id. Implementations must return copies, so a
// caller mutating a loaded session never affects other requests until Save.
type Store interface {
	Load(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
}

type Session struct {
	ID         string              `json:"id"`
	Token      *oauth2.Token       `json:"token,omitempty"`
	OAuthState string              `json:"oauth_state,omitempty"`
	Calendars  []schedule.Calendar `json:"calendars,omitempty"`
	Selected   []string            `json:"selected,omitempty"`
	DateRange  string              `json:"date_range"`
	Begin      time.Time           `json:"begin"`
	End        time.Time           `json:"end"`
	Hours      agenda.WakingHours  `json:"hours"`
	Flashes    []string            `json:"flashes,omitempty"`
	Free       []agenda.Interval   `json:"free,omitempty"`
}

// New starts a session covering the week after now: tomorrow through six
// days later.
func New(now time.Time, hours agenda.WakingHours) *Session {
	begin := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, now.Location())
	end := time.Date(begin.Year(), begin.Month(), begin.Day()+6, 0, 0, 0, 0, begin.Location())
	return &Session{
		ID:        uuid.NewString(),
		DateRange: timeparse.FormatFormRange(begin, end),
		Begin:     begin,
		End:       end,
		Hours:     hours,
	}
}

func (s *Session) Range() agenda.Range {
	return agenda.Range{Begin: s.Begin, End: s.End}
}

func (s *Session) SetRange(begin, end time.Time) {
	s.Begin = begin
	s.End = end
	s.DateRange = timeparse.FormatFormRange(begin, end)
}

func (s *Session) Flash(msg string) {
	s.Flashes = append(s.Flashes, msg)
}

// TakeFlashes returns pending messages and clears them.
func (s *Session) TakeFlashes() []string {
	out := s.Flashes
	s.Flashes = nil
	return out
}

// SelectedCalendars returns the listed calendars whose ids are selected.
func (s *Session) SelectedCalendars() []schedule.Calendar {
	return schedule.SelectCalendars(s.Calendars, s.Selected)
}

func (s *Session) IsSelected(id string) bool {
	return slices.Contains(s.Selected, id)
}
