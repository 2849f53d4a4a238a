package agenda

import (
	"fmt"
	"time"

	"meetme/internal/timeparse"
)

// Clock is a wall-clock time of day. 24:00 is allowed and means the
// following midnight.
type Clock struct {
	Hour   int
	Minute int
}

// WakingHours is the daily window in which free time is reported.
type WakingHours struct {
	Start Clock
	End   Clock
}

// DefaultWakingHours keeps free time between 7am and 9pm.
var DefaultWakingHours = WakingHours{
	Start: Clock{Hour: 7},
	End:   Clock{Hour: 21},
}

// ParseClock accepts "15:04" as well as the human forms understood by
// timeparse.ParseTimeOfDay ("3pm", "3:04pm", "3:04 pm").
func ParseClock(text string) (Clock, error) {
	if text == "24:00" {
		return Clock{Hour: 24}, nil
	}
	hour, minute, err := timeparse.ParseTimeOfDay(text)
	if err != nil {
		return Clock{}, err
	}
	return Clock{Hour: hour, Minute: minute}, nil
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// On returns the clock time on the given day, in the day's location.
func (c Clock) On(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), c.Hour, c.Minute, 0, 0, day.Location())
}

func (c Clock) minutes() int {
	return c.Hour*60 + c.Minute
}

func (c Clock) valid() bool {
	if c.Minute < 0 || c.Minute > 59 || c.Hour < 0 {
		return false
	}
	return c.minutes() <= 24*60
}

func (h WakingHours) Validate() error {
	if !h.Start.valid() || !h.End.valid() || h.Start.minutes() >= h.End.minutes() {
		return fmt.Errorf("%w: %s-%s", ErrInvalidWakingHours, h.Start, h.End)
	}
	return nil
}

// Window returns the waking window on day.
func (h WakingHours) Window(day time.Time) (time.Time, time.Time) {
	day = startOfDay(day)
	return h.Start.On(day), h.End.On(day)
}

func (h WakingHours) String() string {
	return h.Start.String() + "-" + h.End.String()
}
