package cli

import (
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"meetme/internal/agenda"
	"meetme/internal/schedule"
)

var (
	colorAccent = lipgloss.Color("69")
	colorMuted  = lipgloss.Color("241")
)

type slotItem struct {
	Interval agenda.Interval
	Loc      *time.Location
}

func (s slotItem) Title() string {
	iv := s.Interval.In(s.Loc)
	return shortDay(iv.Start) + "  " + slotLabel(iv)
}

func (s slotItem) Description() string {
	return formatDuration(s.Interval.Duration())
}

func (s slotItem) FilterValue() string {
	return s.Title()
}

type tuiModel struct {
	result *schedule.Result
	loc    *time.Location

	slots    list.Model
	viewport viewport.Model
	detail   bool
	status   string

	winW int
	winH int
}

func startTUI(app *App, res *schedule.Result) error {
	p := tea.NewProgram(newTUIModel(res, app.Location), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

func newTUIModel(res *schedule.Result, loc *time.Location) tuiModel {
	items := make([]list.Item, 0, len(res.Free))
	for _, iv := range res.Free {
		items = append(items, slotItem{Interval: iv, Loc: loc})
	}
	slots := list.New(items, list.NewDefaultDelegate(), 0, 0)
	slots.Title = rangeTitle(res.Range, loc)
	slots.SetShowStatusBar(false)
	slots.SetFilteringEnabled(true)
	slots.SetShowHelp(true)
	slots.KeyMap.Quit.SetEnabled(false)
	slots = styleList(slots)

	model := tuiModel{
		result:   res,
		loc:      loc,
		slots:    slots,
		viewport: viewport.New(0, 0),
	}
	if len(items) == 0 {
		model.status = "No free time in the selected range."
	}
	return model
}

func rangeTitle(rng agenda.Range, loc *time.Location) string {
	return shortDay(rng.Begin.In(loc)) + " - " + shortDay(rng.End.In(loc))
}

func (m tuiModel) Init() tea.Cmd {
	return nil
}

func (m *tuiModel) setSizes() {
	if m.winW == 0 || m.winH == 0 {
		return
	}
	m.slots.SetSize(m.winW-4, m.winH-6)
	m.viewport.Width = m.winW - 4
	m.viewport.Height = m.winH - 8
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.winW = msg.Width
		m.winH = msg.Height
		m.setSizes()
		return m, nil
	case tea.KeyMsg:
		if m.slots.FilterState() == list.Filtering {
			break
		}
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "q":
			if !m.detail {
				return m, tea.Quit
			}
		case "esc":
			if m.detail {
				m.detail = false
				return m, nil
			}
			return m, tea.Quit
		case "enter":
			if item, ok := m.slots.SelectedItem().(slotItem); ok {
				m.status = agenda.Describe(item.Interval, m.loc)
			}
			return m, nil
		case "c":
			m.detail = true
			m.viewport.SetContent(m.calendarsView())
			return m, nil
		}
	}
	if m.detail {
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}
	var cmd tea.Cmd
	m.slots, cmd = m.slots.Update(msg)
	return m, cmd
}

func (m tuiModel) View() string {
	padding := lipgloss.NewStyle().Padding(1, 2)
	status := ""
	if m.status != "" {
		status = "\n\n" + gray(m.status)
	}
	if m.detail {
		return padding.Render(renderHeader("Calendars") + "\n\n" + m.viewport.View() + "\n\n" + gray("esc: back"))
	}
	return padding.Render(renderHeader("Free time") + "\n\n" + m.slots.View() + "\n\n" + gray("enter: describe • c: calendars • q: quit") + status)
}

func (m tuiModel) calendarsView() string {
	lines := make([]string, 0, len(m.result.Calendars)*2)
	for _, cal := range m.result.Calendars {
		lines = append(lines, lipgloss.NewStyle().Bold(true).Render(cal.Summary), gray(cal.ID))
	}
	return strings.Join(lines, "\n")
}

func renderHeader(title string) string {
	return lipgloss.NewStyle().Bold(true).Foreground(colorAccent).Render("meetme") + " · " + lipgloss.NewStyle().Bold(true).Render(title)
}

func styleList(model list.Model) list.Model {
	styles := model.Styles
	styles.Title = styles.Title.Foreground(colorAccent).Bold(true)
	styles.FilterPrompt = styles.FilterPrompt.Foreground(colorMuted)
	styles.FilterCursor = styles.FilterCursor.Foreground(colorAccent)
	styles.StatusBar = styles.StatusBar.Foreground(colorMuted)
	styles.PaginationStyle = styles.PaginationStyle.Foreground(colorMuted)
	styles.HelpStyle = styles.HelpStyle.Foreground(colorMuted)
	model.Styles = styles

	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.Foreground(colorAccent).Bold(true)
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.Foreground(colorMuted)
	delegate.Styles.NormalDesc = delegate.Styles.NormalDesc.Foreground(colorMuted)
	model.SetDelegate(delegate)

	return model
}
