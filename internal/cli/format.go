package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/mattn/go-isatty"

	"meetme/internal/agenda"
)

const (
	colorReset = "\033[0m"
	colorGray  = "\033[90m"

	dayHeadingLayout = "Mon 01/02/2006"
	shortDayLayout   = "Mon 01/02"
	clockLayout      = "15:04"
)

func gray(text string) string {
	if !useColor() {
		return text
	}
	return colorGray + text + colorReset
}

func useColor() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if os.Getenv("TERM") == "dumb" {
		return false
	}
	return isatty.IsTerminal(os.Stdout.Fd())
}

// dayHeading is the per-day title in `meetme free` output.
func dayHeading(t time.Time) string {
	return t.Format(dayHeadingLayout)
}

func shortDay(t time.Time) string {
	return t.Format(shortDayLayout)
}

// slotLabel renders a free interval as "09:00 - 12:30". An interval that
// runs past midnight names the weekday it ends on.
func slotLabel(iv agenda.Interval) string {
	end := iv.End.Format(clockLayout)
	if !sameDay(iv.Start, iv.End) {
		end = iv.End.Format("Mon " + clockLayout)
	}
	return iv.Start.Format(clockLayout) + " - " + end
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// formatDuration rounds to the minute: 45m, 2h, 1h30m.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Minute)
	h := int(d / time.Hour)
	m := int((d % time.Hour) / time.Minute)
	switch {
	case h == 0:
		return fmt.Sprintf("%dm", m)
	case m == 0:
		return fmt.Sprintf("%dh", h)
	default:
		return fmt.Sprintf("%dh%02dm", h, m)
	}
}
