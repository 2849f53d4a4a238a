package cli

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"meetme/internal/agenda"
	"meetme/internal/config"
	"meetme/internal/schedule"
)

type fakeProvider struct {
	cals    []schedule.Calendar
	busy    map[string][]agenda.RawInterval
	queried []string
}

func (f *fakeProvider) ListCalendars(context.Context) ([]schedule.Calendar, error) {
	return f.cals, nil
}

func (f *fakeProvider) BusyTimes(_ context.Context, id string, _, _ time.Time) ([]agenda.RawInterval, error) {
	f.queried = append(f.queried, id)
	return f.busy[id], nil
}

func testApp(provider schedule.Provider) *App {
	return &App{
		Config:   config.Default(),
		Location: time.UTC,
		Hours:    agenda.DefaultWakingHours,
		Logger:   slog.New(slog.DiscardHandler),
		provider: provider,
	}
}

func TestResolveRange(t *testing.T) {
	now := time.Date(2026, 1, 4, 15, 0, 0, 0, time.UTC)
	cases := []struct {
		name      string
		from, to  string
		wantBegin string
		wantEnd   string
		wantErr   bool
	}{
		{name: "defaults", wantBegin: "2026-01-05", wantEnd: "2026-01-11"},
		{name: "from only", from: "2026-02-01", wantBegin: "2026-02-01", wantEnd: "2026-02-07"},
		{name: "both", from: "2026-02-01", to: "2026-02-03", wantBegin: "2026-02-01", wantEnd: "2026-02-03"},
		{name: "natural", from: "tomorrow", to: "2026-01-06", wantBegin: "2026-01-05", wantEnd: "2026-01-06"},
		{name: "inverted", from: "2026-02-03", to: "2026-02-01", wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rng, err := resolveRange(tc.from, tc.to, now, time.UTC)
			if tc.wantErr {
				if !errors.Is(err, agenda.ErrInvertedRange) {
					t.Fatalf("expected ErrInvertedRange, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("resolveRange error: %v", err)
			}
			if got := rng.Begin.Format(time.DateOnly); got != tc.wantBegin {
				t.Fatalf("begin = %s, want %s", got, tc.wantBegin)
			}
			if got := rng.End.Format(time.DateOnly); got != tc.wantEnd {
				t.Fatalf("end = %s, want %s", got, tc.wantEnd)
			}
		})
	}
}

func TestRunFreeUsesConfiguredCalendars(t *testing.T) {
	provider := &fakeProvider{
		cals: []schedule.Calendar{
			{ID: "me", Summary: "Me", Primary: true},
			{ID: "team", Summary: "Team"},
		},
		busy: map[string][]agenda.RawInterval{
			"team": {{Start: "2026-01-05T10:00:00Z", End: "2026-01-05T11:30:00Z"}},
		},
	}
	app := testApp(provider)
	app.Config.Calendars = []string{"team"}

	res, err := runFree(context.Background(), app, freeOptions{From: "2026-01-05", To: "2026-01-05"})
	if err != nil {
		t.Fatalf("runFree error: %v", err)
	}
	if len(provider.queried) != 1 || provider.queried[0] != "team" {
		t.Fatalf("expected only the configured calendar to be queried, got %v", provider.queried)
	}
	if len(res.Free) != 2 {
		t.Fatalf("unexpected free times %#v", res.Free)
	}

	var buf bytes.Buffer
	printFree(&buf, res, time.UTC)
	out := buf.String()
	for _, want := range []string{"Calendars: Team", "Mon 01/05/2026", "07:00 - 10:00", "3h", "11:30 - 21:00", "9h30m"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in output:\n%s", want, out)
		}
	}
}

func TestRunFreeDefaultsToPrimary(t *testing.T) {
	provider := &fakeProvider{cals: []schedule.Calendar{{ID: "other"}, {ID: "me", Primary: true}}}
	if _, err := runFree(context.Background(), testApp(provider), freeOptions{From: "2026-01-05", To: "2026-01-05"}); err != nil {
		t.Fatalf("runFree error: %v", err)
	}
	if len(provider.queried) != 1 || provider.queried[0] != "me" {
		t.Fatalf("expected primary calendar to be queried, got %v", provider.queried)
	}
}

func TestRunFreeRequiresCalendar(t *testing.T) {
	provider := &fakeProvider{cals: []schedule.Calendar{{ID: "other"}}}
	_, err := runFree(context.Background(), testApp(provider), freeOptions{Calendars: []string{"missing"}})
	if err == nil || !strings.Contains(err.Error(), "no calendars selected") {
		t.Fatalf("expected selection error, got %v", err)
	}
}

func TestPrintFreeEmpty(t *testing.T) {
	var buf bytes.Buffer
	printFree(&buf, &schedule.Result{}, time.UTC)
	if !strings.Contains(buf.String(), "No free time in the selected range.") {
		t.Fatalf("unexpected output %q", buf.String())
	}
}

func TestFormatDuration(t *testing.T) {
	cases := map[time.Duration]string{
		45 * time.Minute:                "45m",
		2 * time.Hour:                   "2h",
		90 * time.Minute:                "1h30m",
		9*time.Hour + 5*time.Minute:     "9h05m",
		59*time.Minute + 40*time.Second: "1h",
	}
	for d, want := range cases {
		if got := formatDuration(d); got != want {
			t.Fatalf("formatDuration(%v) = %q, want %q", d, got, want)
		}
	}
}

func TestSlotLabelAcrossMidnight(t *testing.T) {
	iv := agenda.Interval{
		Start: time.Date(2026, 1, 5, 22, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 1, 6, 1, 0, 0, 0, time.UTC),
	}
	if got := slotLabel(iv); got != "22:00 - Tue 01:00" {
		t.Fatalf("unexpected label %q", got)
	}
}

func TestDayLabels(t *testing.T) {
	day := time.Date(2026, 1, 5, 13, 45, 0, 0, time.UTC)
	if got := dayHeading(day); got != "Mon 01/05/2026" {
		t.Fatalf("dayHeading = %q", got)
	}
	if got := shortDay(day); got != "Mon 01/05" {
		t.Fatalf("shortDay = %q", got)
	}
	item := slotItem{Interval: agenda.Interval{Start: day, End: day.Add(90 * time.Minute)}, Loc: time.UTC}
	if item.Title() != "Mon 01/05  13:45 - 15:15" || item.Description() != "1h30m" {
		t.Fatalf("unexpected slot item %q / %q", item.Title(), item.Description())
	}
}

func TestPrintCalendars(t *testing.T) {
	cals := schedule.SortCalendars([]schedule.Calendar{
		{ID: "team", Summary: "Team"},
		{ID: "me", Summary: "Me", Primary: true},
	})
	var buf bytes.Buffer
	printCalendars(&buf, cals, nil, true)
	out := buf.String()
	if !strings.HasPrefix(out, "* Me (primary)") {
		t.Fatalf("expected primary first and marked:\n%s", out)
	}
	if !strings.Contains(out, "  Team") || !strings.Contains(out, "id: team") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestBuildCalendarChoices(t *testing.T) {
	choices := buildCalendarChoices([]schedule.Calendar{
		{ID: "a", Summary: "Work"},
		{ID: "b", Summary: "Work"},
		{ID: "c", Primary: true},
	})
	labels := labelsFromChoices(choices)
	want := []string{"Work", "Work [b]", "c (primary)"}
	for i := range want {
		if labels[i] != want[i] {
			t.Fatalf("labels = %v, want %v", labels, want)
		}
	}
	if got := defaultLabels(choices, []string{"b"}); len(got) != 1 || got[0] != "Work [b]" {
		t.Fatalf("unexpected defaults %v", got)
	}
	if choice, ok := findChoice(choices, "c (primary)"); !ok || choice.Item.ID != "c" {
		t.Fatalf("findChoice failed")
	}
}

func TestWakingHoursFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.WakingStart = "8:30am"
	cfg.WakingEnd = "18:00"
	hours, err := wakingHours(cfg)
	if err != nil {
		t.Fatalf("wakingHours error: %v", err)
	}
	if hours.String() != "08:30-18:00" {
		t.Fatalf("unexpected hours %s", hours)
	}
	cfg.WakingEnd = "6am"
	if _, err := wakingHours(cfg); !errors.Is(err, agenda.ErrInvalidWakingHours) {
		t.Fatalf("expected ErrInvalidWakingHours, got %v", err)
	}
}

func TestTUIModel(t *testing.T) {
	res := &schedule.Result{
		Calendars: []schedule.Calendar{{ID: "me", Summary: "Me"}},
		Range: agenda.Range{
			Begin: time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC),
			End:   time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC),
		},
		Free: []agenda.Interval{{
			Start: time.Date(2026, 1, 5, 7, 0, 0, 0, time.UTC),
			End:   time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC),
		}},
	}
	m := newTUIModel(res, time.UTC)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	m = next.(tuiModel)

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(tuiModel)
	if m.status != "From 01/05/2026 7:00 AM until 01/05/2026 9:00 AM" {
		t.Fatalf("unexpected status %q", m.status)
	}

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("c")})
	m = next.(tuiModel)
	if !m.detail || !strings.Contains(m.View(), "Me") {
		t.Fatalf("expected calendars view")
	}
	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	m = next.(tuiModel)
	if m.detail {
		t.Fatalf("esc should leave calendars view")
	}

	if _, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")}); cmd == nil {
		t.Fatalf("expected quit command")
	}

	empty := newTUIModel(&schedule.Result{}, time.UTC)
	if empty.status == "" {
		t.Fatalf("expected empty-range status")
	}
}
