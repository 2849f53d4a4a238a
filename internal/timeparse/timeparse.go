package timeparse

import (
	"fmt"
	"strings"
	"time"

	"github.com/tj/go-naturaldate"
)

const FormDateLayout = "01/02/2006"

// Layouts accepted for a time of day typed by a person.
var timeOfDayLayouts = []string{"3pm", "3:04pm", "3:04 pm", "15:04"}

func LoadLocation(name string) (*time.Location, error) {
	if name == "" || strings.EqualFold(name, "local") {
		return time.Local, nil
	}
	return time.LoadLocation(name)
}

// ParseDate reads a date such as "tomorrow", "next friday" or "2026-01-02"
// and returns its midnight in loc.
func ParseDate(dateStr string, now time.Time, loc *time.Location) (time.Time, error) {
	if dateStr == "" {
		return time.Time{}, nil
	}
	if t, err := time.ParseInLocation("2006-01-02", dateStr, loc); err == nil {
		return t, nil
	}
	parsed, err := naturaldate.Parse(dateStr, now.In(loc))
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(parsed.Year(), parsed.Month(), parsed.Day(), 0, 0, 0, 0, loc), nil
}

// ParseFormDate reads a strict MM/DD/YYYY date as entered in the web form.
func ParseFormDate(text string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(FormDateLayout, strings.TrimSpace(text), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("date %q didn't fit expected format 12/31/2001", text)
	}
	return t, nil
}

// ParseFormRange reads "MM/DD/YYYY - MM/DD/YYYY".
func ParseFormRange(text string, loc *time.Location) (time.Time, time.Time, error) {
	parts := strings.Fields(text)
	if len(parts) != 3 || parts[1] != "-" {
		return time.Time{}, time.Time{}, fmt.Errorf("date range %q didn't fit expected format 12/01/2001 - 12/31/2001", text)
	}
	begin, err := ParseFormDate(parts[0], loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := ParseFormDate(parts[2], loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if end.Before(begin) {
		return time.Time{}, time.Time{}, fmt.Errorf("end date before start date")
	}
	return begin, end, nil
}

func FormatFormRange(begin, end time.Time) string {
	return begin.Format(FormDateLayout) + " - " + end.Format(FormDateLayout)
}

// ParseTimeOfDay reads "9am", "1:30pm", "1:30 pm" or "13:30".
func ParseTimeOfDay(text string) (int, int, error) {
	clean := strings.ToLower(strings.TrimSpace(text))
	for _, layout := range timeOfDayLayouts {
		if t, err := time.Parse(layout, clean); err == nil {
			return t.Hour(), t.Minute(), nil
		}
	}
	return 0, 0, fmt.Errorf("time %q didn't match accepted formats 13:30 or 1:30pm", text)
}
